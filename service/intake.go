package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"worker-translate/config"
	"worker-translate/constant"
	"worker-translate/dto"
	"worker-translate/entities"
	"worker-translate/repository"
)

// acceptedFileTypes are the document content types the pipeline can feed to
// the translation engine.
var acceptedFileTypes = map[string]struct{}{
	"text/plain":      {},
	"application/pdf": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

type IntakeService interface {
	RequestUploadSlot(ctx context.Context, req dto.UploadSlotRequest) (*dto.UploadSlotResponse, error)
}

type intakeService struct {
	repo  repository.JobRepository
	slots SlotIssuer
	cfg   *config.Config
}

func NewIntakeService(repo repository.JobRepository, slots SlotIssuer, cfg *config.Config) IntakeService {
	return &intakeService{
		repo:  repo,
		slots: slots,
		cfg:   cfg,
	}
}

// RequestUploadSlot registers a PENDING job and then mints the upload slot
// for it. The ordering is load-bearing: the job record must be durable
// before the capability exists, so an object-created notification can never
// race an unregistered job.
func (s *intakeService) RequestUploadSlot(ctx context.Context, req dto.UploadSlotRequest) (*dto.UploadSlotResponse, error) {
	if err := validateSlotRequest(req); err != nil {
		return nil, errors.Join(ErrValidation, err)
	}

	jobId := uuid.New()
	objectKey := buildObjectKey(jobId, req.FileName)

	job := &entities.Job{
		ID:           jobId,
		FileName:     req.FileName,
		FileType:     req.FileType,
		LanguageCode: req.LanguageCode,
		BucketName:   s.cfg.Buckets.Input,
		ObjectKey:    objectKey,
		Status:       constant.JobStatusPending,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("job_id", jobId.String()).Msg("failed to persist job record")
		return nil, errors.Join(ErrPersistence, err)
	}

	metadata := map[string]string{
		constant.MetadataKeyFileId:       jobId.String(),
		constant.MetadataKeyLanguageCode: req.LanguageCode,
	}
	signedUrl, expiresAt, err := s.slots.IssueUploadSlot(ctx, s.cfg.Buckets.Input, objectKey, req.FileType, metadata, s.cfg.Upload.SlotExpiry)
	if err != nil {
		// The PENDING record stays behind; the sweeper reaps it once the
		// slot window has passed.
		zerolog.Ctx(ctx).Error().Err(err).Str("job_id", jobId.String()).Str("object_key", objectKey).Msg("failed to issue upload slot")
		return nil, errors.Join(ErrCredentialIssuance, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", jobId.String()).
		Str("object_key", objectKey).
		Str("language_code", req.LanguageCode).
		Time("expires_at", expiresAt).
		Msg("upload slot issued")

	return &dto.UploadSlotResponse{
		JobId:     jobId,
		Url:       signedUrl,
		ExpiresAt: expiresAt,
	}, nil
}

func validateSlotRequest(req dto.UploadSlotRequest) error {
	if req.FileName == "" {
		return errors.New("fileName is required")
	}
	mediaType, _, err := mime.ParseMediaType(req.FileType)
	if err != nil {
		return fmt.Errorf("fileType %q is not a valid media type: %w", req.FileType, err)
	}
	if _, ok := acceptedFileTypes[mediaType]; !ok {
		return fmt.Errorf("fileType %q is not supported", mediaType)
	}
	if !constant.IsSupportedLanguage(req.LanguageCode) {
		return fmt.Errorf("languageCode %q is not supported", req.LanguageCode)
	}
	return nil
}

// buildObjectKey namespaces every upload under its job id so two uploads of
// the same file name can never collide on one object location.
func buildObjectKey(jobId uuid.UUID, fileName string) string {
	return constant.InputKeyPrefix + jobId.String() + "/" + url.PathEscape(fileName)
}
