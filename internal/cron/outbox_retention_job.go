package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
)

const (
	defaultOutboxPublishedRetention = 30 * 24 * time.Hour
	defaultOutboxDLQRetention       = 30 * 24 * time.Hour
)

type OutboxRetentionJobParams struct {
	Logger             *logger.Logger
	Outbox             outboxRetentionRepo
	DLQ                dlqRetentionRepo
	PublishedRetention time.Duration
	DLQRetention       time.Duration
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	published := params.PublishedRetention
	if published <= 0 {
		published = defaultOutboxPublishedRetention
	}
	dlq := params.DLQRetention
	if dlq <= 0 {
		dlq = defaultOutboxDLQRetention
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		outbox:    params.Outbox,
		dlq:       params.DLQ,
		published: published,
		dlqTTL:    dlq,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	outbox    outboxRetentionRepo
	dlq       dlqRetentionRepo
	published time.Duration
	dlqTTL    time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	publishedCutoff := now.Add(-j.published)

	var errs []error
	deleted, err := j.outbox.DeletePublishedBefore(ctx, publishedCutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("outbox retention: %w", err))
	}

	var dlqDeleted int64
	if j.dlq != nil {
		dlqDeleted, err = j.dlq.DeleteBefore(ctx, now.Add(-j.dlqTTL))
		if err != nil {
			errs = append(errs, fmt.Errorf("outbox dlq retention: %w", err))
		}
	}
	if len(errs) > 0 {
		return multierr.Combine(errs...)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":           publishedCutoff,
		"rows_deleted":     deleted,
		"dlq_rows_deleted": dlqDeleted,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
