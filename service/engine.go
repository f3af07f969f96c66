package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"worker-translate/config"
	"worker-translate/constant"
	"worker-translate/entities"
)

// TranslationEngine translates the uploaded object and returns the location
// of the translated output. It is a black box to the trigger: retries, if
// any, are the engine's own concern.
type TranslationEngine interface {
	Translate(ctx context.Context, job *entities.Job) (string, error)
}

type httpEngine struct {
	storage *minio.Client
	client  *http.Client
	cfg     *config.Config
}

func NewTranslationEngine(cfg *config.Config) TranslationEngine {
	return &httpEngine{
		storage: cfg.Storage,
		client:  &http.Client{},
		cfg:     cfg,
	}
}

// Translate streams the input object to the translator endpoint and writes
// the translated bytes to the output bucket under the job's namespace.
func (e *httpEngine) Translate(ctx context.Context, job *entities.Job) (string, error) {
	object, err := e.storage.GetObject(ctx, job.BucketName, job.ObjectKey, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("fetch input object: %w", err)
	}
	defer object.Close()

	endpoint := fmt.Sprintf("%s?source=en&target=%s", e.cfg.Engine.Url, url.QueryEscape(job.LanguageCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, object)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", job.FileType)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", errors.Join(ErrTranslationEngine, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Join(ErrTranslationEngine, fmt.Errorf("translator returned %d: %s", resp.StatusCode, body))
	}

	outputKey := constant.OutputKeyPrefix + job.ID.String() + "/Translated-" + url.PathEscape(job.FileName)
	_, err = e.storage.PutObject(ctx, e.cfg.Buckets.Output, outputKey, resp.Body, -1, minio.PutObjectOptions{
		ContentType: job.FileType,
	})
	if err != nil {
		return "", fmt.Errorf("store translated object: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", job.ID.String()).
		Str("output_key", outputKey).
		Msg("translated object stored")

	return outputKey, nil
}
