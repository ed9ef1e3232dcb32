package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
)

const defaultEmailJobRetention = 14 * 24 * time.Hour

type EmailJobRetentionJobParams struct {
	Logger     *logger.Logger
	Repository emailJobRetentionRepo
	Retention  time.Duration
}

type emailJobRetentionRepo interface {
	DeleteTerminalEmailJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewEmailJobRetentionJob drops sent and failed email jobs past retention.
// Pending and processing jobs are never touched.
func NewEmailJobRetentionJob(params EmailJobRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("email job repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultEmailJobRetention
	}
	return &emailJobRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type emailJobRetentionJob struct {
	logg      *logger.Logger
	repo      emailJobRetentionRepo
	retention time.Duration
	now       func() time.Time
}

func (j *emailJobRetentionJob) Name() string { return "email-job-retention" }

func (j *emailJobRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteTerminalEmailJobsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("email job retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "email job retention complete")
	return nil
}
