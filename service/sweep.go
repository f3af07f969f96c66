package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"worker-translate/config"
	"worker-translate/constant"
	"worker-translate/repository"
)

// Sweeper reaps PENDING jobs whose upload slot has expired without an object
// ever arriving. It runs beside the trigger, not inside it, and relies on
// the same conditional transition: a job that progresses concurrently simply
// loses the CAS and is left alone.
type Sweeper interface {
	Run(ctx context.Context)
}

type sweeper struct {
	repo          repository.JobRepository
	interval      time.Duration
	maxPendingAge time.Duration
}

func NewSweeper(repo repository.JobRepository, cfg *config.Config) Sweeper {
	return &sweeper{
		repo:          repo,
		interval:      cfg.Sweep.Interval,
		maxPendingAge: cfg.Sweep.MaxPendingAge,
	}
}

func (s *sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("pending job sweep failed")
			}
		}
	}
}

func (s *sweeper) sweepOnce(ctx context.Context) error {
	jobs, err := s.repo.ListJobsByStatus(ctx, constant.JobStatusPending)
	if err != nil {
		return err
	}

	cutoff := time.Now().UTC().Add(-s.maxPendingAge)
	reaped := 0
	for _, job := range jobs {
		if job.CreatedAt.After(cutoff) {
			continue
		}
		ok, err := s.repo.TransitionStatus(ctx, job.ID, constant.JobStatusPending, constant.JobStatusFailed,
			"upload slot expired before an object was received")
		if err != nil {
			return err
		}
		if ok {
			reaped++
			zerolog.Ctx(ctx).Info().Str("job_id", job.ID.String()).Time("created_at", job.CreatedAt).Msg("reaped stale pending job")
		}
	}

	if reaped > 0 {
		zerolog.Ctx(ctx).Info().Int("reaped", reaped).Msg("pending job sweep finished")
	}
	return nil
}
