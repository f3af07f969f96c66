package service

import "errors"

// ErrNonRetryable marks errors where redelivering the triggering event can
// never succeed; consumers should dead-letter instead of retrying.
var ErrNonRetryable = errors.New("non-retryable error")

var (
	ErrValidation         = errors.New("validation error")
	ErrPersistence        = errors.New("persistence error")
	ErrCredentialIssuance = errors.New("credential issuance error")
	ErrMalformedEvent     = errors.New("malformed event")
	ErrOrphanObject       = errors.New("orphan object")
	ErrTranslationEngine  = errors.New("translation engine error")
)
