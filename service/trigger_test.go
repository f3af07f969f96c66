package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"worker-translate/config"
	"worker-translate/constant"
	"worker-translate/dto"
	"worker-translate/entities"
)

func triggerConfig() *config.Config {
	return &config.Config{Engine: config.Engine{Timeout: time.Second}}
}

func pendingJob(t *testing.T, repo *fakeRepo, languageCode string) *entities.Job {
	t.Helper()
	jobId := uuid.New()
	job := &entities.Job{
		ID:           jobId,
		FileName:     "report.pdf",
		FileType:     "application/pdf",
		LanguageCode: languageCode,
		BucketName:   "documents-input",
		ObjectKey:    constant.InputKeyPrefix + jobId.String() + "/report.pdf",
		Status:       constant.JobStatusPending,
	}
	require.NoError(t, repo.CreateJob(context.Background(), job))
	return job
}

func eventFor(job *entities.Job) dto.ObjectCreatedEvent {
	return dto.ObjectCreatedEvent{
		Bucket: job.BucketName,
		Key:    job.ObjectKey,
		Metadata: map[string]string{
			"X-Amz-Meta-Fileid":       job.ID.String(),
			"X-Amz-Meta-Languagecode": job.LanguageCode,
		},
	}
}

func TestTriggerCompletesJob(t *testing.T) {
	repo := newFakeRepo()
	engine := &fakeEngine{}
	trigger := NewTriggerService(repo, engine, triggerConfig())
	job := pendingJob(t, repo, "es")

	err := trigger.Process(context.Background(), eventFor(job))
	require.NoError(t, err)

	stored, err := repo.FindJobById(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusCompleted, stored.Status)
	assert.Equal(t, constant.OutputKeyPrefix+job.ID.String()+"/Translated-report.pdf", stored.OutputKey)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, 1, engine.callCount())
}

func TestTriggerDuplicateDeliveryAfterCompletionIsNoop(t *testing.T) {
	repo := newFakeRepo()
	engine := &fakeEngine{}
	trigger := NewTriggerService(repo, engine, triggerConfig())
	job := pendingJob(t, repo, "es")

	require.NoError(t, trigger.Process(context.Background(), eventFor(job)))
	require.NoError(t, trigger.Process(context.Background(), eventFor(job)))

	stored, err := repo.FindJobById(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusCompleted, stored.Status)
	assert.Equal(t, 1, engine.callCount(), "redelivery after a terminal state must not reach the engine")
}

func TestTriggerConcurrentDuplicateDelivery(t *testing.T) {
	repo := newFakeRepo()
	engine := &fakeEngine{delay: 20 * time.Millisecond}
	trigger := NewTriggerService(repo, engine, triggerConfig())
	job := pendingJob(t, repo, "fr")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = trigger.Process(context.Background(), eventFor(job))
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, engine.callCount(), "exactly one delivery may claim the job and invoke the engine")

	stored, err := repo.FindJobById(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusCompleted, stored.Status)
}

func TestTriggerEngineFailure(t *testing.T) {
	repo := newFakeRepo()
	engine := &fakeEngine{err: errors.New("translator unavailable")}
	trigger := NewTriggerService(repo, engine, triggerConfig())
	job := pendingJob(t, repo, "de")

	require.NoError(t, trigger.Process(context.Background(), eventFor(job)))

	stored, err := repo.FindJobById(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.ErrorDetail)
	require.NotNil(t, stored.CompletedAt)

	// A later notification for the same job must be a no-op.
	require.NoError(t, trigger.Process(context.Background(), eventFor(job)))
	assert.Equal(t, 1, engine.callCount())
}

func TestTriggerEngineTimeout(t *testing.T) {
	repo := newFakeRepo()
	engine := &fakeEngine{delay: time.Second}
	trigger := NewTriggerService(repo, engine, &config.Config{Engine: config.Engine{Timeout: 20 * time.Millisecond}})
	job := pendingJob(t, repo, "it")

	require.NoError(t, trigger.Process(context.Background(), eventFor(job)))

	stored, err := repo.FindJobById(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.ErrorDetail)
}

func TestTriggerOrphanObject(t *testing.T) {
	repo := newFakeRepo()
	engine := &fakeEngine{}
	trigger := NewTriggerService(repo, engine, triggerConfig())

	event := dto.ObjectCreatedEvent{
		Bucket: "documents-input",
		Key:    "input/unknown/file.txt",
		Metadata: map[string]string{
			"X-Amz-Meta-Fileid":       uuid.NewString(),
			"X-Amz-Meta-Languagecode": "es",
		},
	}

	err := trigger.Process(context.Background(), event)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrphanObject)
	assert.ErrorIs(t, err, ErrNonRetryable)
	assert.Equal(t, 0, repo.count(), "an orphan event must not synthesize a job")
	assert.Equal(t, 0, engine.callCount())
}

func TestTriggerMalformedMetadata(t *testing.T) {
	repo := newFakeRepo()
	engine := &fakeEngine{}
	trigger := NewTriggerService(repo, engine, triggerConfig())
	job := pendingJob(t, repo, "es")

	cases := []struct {
		name     string
		metadata map[string]string
	}{
		{"no metadata", nil},
		{"missing file id", map[string]string{"X-Amz-Meta-Languagecode": "es"}},
		{"bad file id", map[string]string{"X-Amz-Meta-Fileid": "not-a-uuid", "X-Amz-Meta-Languagecode": "es"}},
		{"missing language", map[string]string{"X-Amz-Meta-Fileid": job.ID.String()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := trigger.Process(context.Background(), dto.ObjectCreatedEvent{
				Bucket:   job.BucketName,
				Key:      job.ObjectKey,
				Metadata: tc.metadata,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedEvent)
			assert.ErrorIs(t, err, ErrNonRetryable)
		})
	}

	stored, err := repo.FindJobById(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusPending, stored.Status)
	assert.Equal(t, 0, engine.callCount())
}

func TestTriggerLowercaseMetadataKeys(t *testing.T) {
	repo := newFakeRepo()
	engine := &fakeEngine{}
	trigger := NewTriggerService(repo, engine, triggerConfig())
	job := pendingJob(t, repo, "pt")

	// S3-compatible stores may deliver metadata keys fully lower-cased.
	err := trigger.Process(context.Background(), dto.ObjectCreatedEvent{
		Bucket: job.BucketName,
		Key:    job.ObjectKey,
		Metadata: map[string]string{
			"fileid":       job.ID.String(),
			"languagecode": "pt",
		},
	})
	require.NoError(t, err)

	stored, err := repo.FindJobById(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusCompleted, stored.Status)
}

func TestTriggerRejectsUnsupportedLanguageBeforeEngine(t *testing.T) {
	repo := newFakeRepo()
	engine := &fakeEngine{}
	trigger := NewTriggerService(repo, engine, triggerConfig())
	job := pendingJob(t, repo, "xx")

	require.NoError(t, trigger.Process(context.Background(), eventFor(job)))

	stored, err := repo.FindJobById(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorDetail, "unsupported language")
	assert.Equal(t, 0, engine.callCount())
}
