package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"worker-translate/constant"
	"worker-translate/entities"
	"worker-translate/repository"
)

// fakeRepo mirrors the store's conditional-transition semantics in memory so
// trigger and intake behavior can be exercised without a database.
type fakeRepo struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]*entities.Job
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: map[uuid.UUID]*entities.Job{}}
}

func (f *fakeRepo) CreateJob(ctx context.Context, job *entities.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.jobs[job.ID]; ok {
		return repository.ErrDuplicateJob
	}

	stored := *job
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	f.jobs[stored.ID] = &stored
	return nil
}

func (f *fakeRepo) FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	out := *job
	return &out, nil
}

func (f *fakeRepo) TransitionStatus(ctx context.Context, id uuid.UUID, expected, next constant.JobStatus, detail string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !expected.CanTransitionTo(next) {
		return false, nil
	}
	job, ok := f.jobs[id]
	if !ok || job.Status != expected {
		return false, nil
	}

	now := time.Now().UTC()
	job.Status = next
	job.UpdatedAt = now
	if next.IsTerminal() {
		job.CompletedAt = &now
	}
	switch next {
	case constant.JobStatusCompleted:
		job.OutputKey = detail
	case constant.JobStatusFailed:
		job.ErrorDetail = detail
	}
	return true, nil
}

func (f *fakeRepo) ListJobsByStatus(ctx context.Context, status constant.JobStatus) ([]*entities.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var jobs []*entities.Job
	for _, job := range f.jobs {
		if job.Status == status {
			out := *job
			jobs = append(jobs, &out)
		}
	}
	return jobs, nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

type fakeEngine struct {
	mu    sync.Mutex
	calls int
	err   error
	delay time.Duration
}

func (e *fakeEngine) Translate(ctx context.Context, job *entities.Job) (string, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if e.err != nil {
		return "", e.err
	}
	return constant.OutputKeyPrefix + job.ID.String() + "/Translated-" + job.FileName, nil
}

func (e *fakeEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type slotCall struct {
	bucket      string
	key         string
	contentType string
	metadata    map[string]string
	expiry      time.Duration
}

type stubSlotIssuer struct {
	mu      sync.Mutex
	calls   []slotCall
	err     error
	onIssue func(call slotCall)
}

func (s *stubSlotIssuer) IssueUploadSlot(ctx context.Context, bucket, key, contentType string, metadata map[string]string, expiry time.Duration) (string, time.Time, error) {
	call := slotCall{bucket: bucket, key: key, contentType: contentType, metadata: metadata, expiry: expiry}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	if s.onIssue != nil {
		s.onIssue(call)
	}
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return "https://storage.example.com/" + bucket + "/" + key + "?signed=1", time.Now().UTC().Add(expiry), nil
}

func (s *stubSlotIssuer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
