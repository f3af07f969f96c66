package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"worker-translate/config"
	"worker-translate/constant"
	"worker-translate/dto"
	"worker-translate/repository"
)

const defaultEngineTimeout = 2 * time.Minute

// TriggerService reacts to object-created notifications. Delivery is
// at-least-once and possibly concurrent for the same logical event;
// idempotency rests entirely on the store's conditional transition.
type TriggerService interface {
	Process(ctx context.Context, event dto.ObjectCreatedEvent) error
}

type triggerService struct {
	repo          repository.JobRepository
	engine        TranslationEngine
	engineTimeout time.Duration
}

func NewTriggerService(repo repository.JobRepository, engine TranslationEngine, cfg *config.Config) TriggerService {
	timeout := cfg.Engine.Timeout
	if timeout <= 0 {
		timeout = defaultEngineTimeout
	}
	return &triggerService{
		repo:          repo,
		engine:        engine,
		engineTimeout: timeout,
	}
}

func (s *triggerService) Process(ctx context.Context, event dto.ObjectCreatedEvent) error {
	logger := zerolog.Ctx(ctx).With().Str("bucket", event.Bucket).Str("object_key", event.Key).Logger()

	jobId, languageCode, err := extractJobMetadata(event.Metadata)
	if err != nil {
		logger.Error().Err(err).Msg("object-created event has no usable job metadata")
		return errors.Join(ErrNonRetryable, ErrMalformedEvent, err)
	}
	logger = logger.With().Str("job_id", jobId.String()).Logger()

	job, err := s.repo.FindJobById(ctx, jobId)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			logger.Error().Msg("object written with no matching job record")
			return errors.Join(ErrNonRetryable, ErrOrphanObject)
		}
		return err
	}

	if job.ObjectKey != event.Key {
		logger.Warn().Str("registered_key", job.ObjectKey).Msg("event key differs from registered object key")
	}

	// A job can predate a language being dropped from the supported set;
	// reject before the engine ever runs.
	if !constant.IsSupportedLanguage(languageCode) {
		rejected, err := s.repo.TransitionStatus(ctx, job.ID, constant.JobStatusPending, constant.JobStatusFailed,
			fmt.Sprintf("unsupported language code %q", languageCode))
		if err != nil {
			return err
		}
		if rejected {
			logger.Warn().Str("language_code", languageCode).Msg("job rejected before translation")
		}
		return nil
	}

	claimed, err := s.repo.TransitionStatus(ctx, job.ID, constant.JobStatusPending, constant.JobStatusInProgress, "")
	if err != nil {
		return err
	}
	if !claimed {
		// Another delivery already claimed or finished this job.
		logger.Info().Msg("job already claimed, skipping duplicate delivery")
		return nil
	}

	engineCtx, cancel := context.WithTimeout(ctx, s.engineTimeout)
	defer cancel()

	outputKey, engineErr := s.engine.Translate(engineCtx, job)
	if engineErr != nil {
		logger.Error().Err(engineErr).Msg("translation engine failed")
		completed, err := s.repo.TransitionStatus(ctx, job.ID, constant.JobStatusInProgress, constant.JobStatusFailed, engineErr.Error())
		if err != nil {
			return err
		}
		if !completed {
			// This invocation is the sole holder of IN_PROGRESS; a failed
			// terminal transition means the state machine was violated.
			logger.Error().Msg("invariant violation: could not record terminal FAILED state")
		}
		return nil
	}

	completed, err := s.repo.TransitionStatus(ctx, job.ID, constant.JobStatusInProgress, constant.JobStatusCompleted, outputKey)
	if err != nil {
		return err
	}
	if !completed {
		logger.Error().Msg("invariant violation: could not record terminal COMPLETED state")
		return nil
	}

	logger.Info().Str("output_key", outputKey).Msg("job completed")
	return nil
}

// extractJobMetadata pulls the job id and language code out of the metadata
// attached to the upload slot. S3-compatible stores case-fold metadata keys
// and may prefix them with x-amz-meta-, so matching is normalized.
func extractJobMetadata(metadata map[string]string) (uuid.UUID, string, error) {
	raw := metadataValue(metadata, constant.MetadataKeyFileId)
	if raw == "" {
		return uuid.Nil, "", fmt.Errorf("metadata field %q is missing", constant.MetadataKeyFileId)
	}
	jobId, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("metadata field %q is not a job id: %w", constant.MetadataKeyFileId, err)
	}

	languageCode := metadataValue(metadata, constant.MetadataKeyLanguageCode)
	if languageCode == "" {
		return uuid.Nil, "", fmt.Errorf("metadata field %q is missing", constant.MetadataKeyLanguageCode)
	}

	return jobId, languageCode, nil
}

func metadataValue(metadata map[string]string, key string) string {
	want := strings.ToLower(key)
	for k, v := range metadata {
		normalized := strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if normalized == want {
			return v
		}
	}
	return ""
}
