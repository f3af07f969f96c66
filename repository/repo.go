package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"worker-translate/constant"
	"worker-translate/entities"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrDuplicateJob = errors.New("job id already exists")
)

// JobRepository is the metadata store for Job records. TransitionStatus is
// the only concurrency-control primitive in the system: every writer goes
// through its conditional update, nobody caches Job state across calls.
type JobRepository interface {
	CreateJob(ctx context.Context, job *entities.Job) error
	FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	// TransitionStatus applies next only if the record's current status
	// equals expected and next is a legal successor. It returns false with a
	// nil error when the condition does not hold; callers must treat that as
	// "someone else already moved this job" and stop, not retry.
	TransitionStatus(ctx context.Context, id uuid.UUID, expected, next constant.JobStatus, detail string) (bool, error)
	ListJobsByStatus(ctx context.Context, status constant.JobStatus) ([]*entities.Job, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) JobRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger:         logger.Default.LogMode(logger.Info),
			TranslateError: true,
		},
	)
	return &repo{
		db: gormDB,
	}
}

// NewRepoWithDB wraps an already-opened gorm connection.
func NewRepoWithDB(db *gorm.DB) JobRepository {
	return &repo{db: db}
}

func (r *repo) CreateJob(ctx context.Context, job *entities.Job) error {
	err := r.db.WithContext(ctx).Create(job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateJob
		}
		return err
	}
	return nil
}

func (r *repo) FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	job := &entities.Job{}
	err := r.db.WithContext(ctx).First(job, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	return job, nil
}

func (r *repo) TransitionStatus(ctx context.Context, id uuid.UUID, expected, next constant.JobStatus, detail string) (bool, error) {
	if !expected.CanTransitionTo(next) {
		return false, nil
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     next,
		"updated_at": now,
	}
	if next.IsTerminal() {
		updates["completed_at"] = now
	}
	switch next {
	case constant.JobStatusCompleted:
		updates["output_key"] = detail
	case constant.JobStatusFailed:
		updates["error_detail"] = detail
	}

	// Single conditional UPDATE; the row count tells us whether this caller
	// won the transition.
	res := r.db.WithContext(ctx).Model(&entities.Job{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}

func (r *repo) ListJobsByStatus(ctx context.Context, status constant.JobStatus) ([]*entities.Job, error) {
	var jobs []*entities.Job
	err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
