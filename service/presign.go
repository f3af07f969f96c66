package service

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
)

// SlotIssuer mints the scoped, time-limited write capability a client uses
// to upload directly against storage. The slot is bound to one object
// location, one content type, and carries the job metadata the notification
// path needs to resolve the object back to its job.
type SlotIssuer interface {
	IssueUploadSlot(ctx context.Context, bucket, key, contentType string, metadata map[string]string, expiry time.Duration) (string, time.Time, error)
}

type minioSlotIssuer struct {
	client *minio.Client
}

func NewSlotIssuer(client *minio.Client) SlotIssuer {
	return &minioSlotIssuer{client: client}
}

func (m *minioSlotIssuer) IssueUploadSlot(ctx context.Context, bucket, key, contentType string, metadata map[string]string, expiry time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().UTC().Add(expiry)

	headers := http.Header{}
	headers.Set("Content-Type", contentType)
	for k, v := range metadata {
		headers.Set("x-amz-meta-"+k, v)
	}

	signed, err := m.client.PresignHeader(ctx, http.MethodPut, bucket, key, expiry, url.Values{}, headers)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed.String(), expiresAt, nil
}
