package notifications

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/pawfinderz-backend/internal/emailconfig"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
	"github.com/angelmondragon/pawfinderz-backend/pkg/mailer"
	"github.com/angelmondragon/pawfinderz-backend/pkg/metrics"
)

const (
	defaultDispatchInterval = 5 * time.Second
	defaultDispatchBatch    = 25
	defaultClaimLease       = 5 * time.Minute
	maxErrorLength          = 1000
)

// emailBackoff is the delay before attempt n+1 after n failures.
var emailBackoff = []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second}

type deliveryResolver interface {
	ActiveDelivery(ctx context.Context) (*emailconfig.Delivery, error)
}

// DispatcherParams groups email dispatcher dependencies.
type DispatcherParams struct {
	Repo      Repository
	Delivery  deliveryResolver
	Interval  time.Duration
	BatchSize int
	// ClaimLease bounds how long a job may sit in processing before another
	// dispatcher releases it.
	ClaimLease time.Duration
	Metrics    notificationMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

// Dispatcher drains due email jobs through the active mail configuration.
type Dispatcher struct {
	repo      Repository
	delivery  deliveryResolver
	interval  time.Duration
	batchSize int
	lease     time.Duration
	metrics   notificationMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("notifications repository required")
	case params.Delivery == nil:
		return nil, errors.New("email delivery resolver required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultDispatchInterval
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultDispatchBatch
	}
	lease := params.ClaimLease
	if lease <= 0 {
		lease = defaultClaimLease
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		repo:      params.Repo,
		delivery:  params.Delivery,
		interval:  interval,
		batchSize: batch,
		lease:     lease,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       func() time.Time { return now().UTC() },
	}, nil
}

// Run processes batches on every tick until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.ProcessBatch(ctx); err != nil && d.logg != nil {
			d.logg.Error(ctx, "email dispatch batch failed", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessBatch claims up to one batch of due jobs and attempts each once. It
// returns the number of jobs it claimed. Jobs left in processing longer than
// the claim lease are released first.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (int, error) {
	now := d.now()
	released, err := d.repo.ReleaseStaleEmailJobs(ctx, now.Add(-d.lease), now)
	if err != nil {
		return 0, err
	}
	if released > 0 && d.logg != nil {
		d.logg.Warn(d.logg.WithField(ctx, "released", released), "released stale email jobs")
	}

	jobs, err := d.repo.ListDueEmailJobs(ctx, now, d.batchSize)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	// A broken active configuration counts as a failed attempt for every job
	// so the retry schedule and in-app fallback still apply.
	delivery, resolveErr := d.delivery.ActiveDelivery(ctx)
	if resolveErr != nil && d.logg != nil {
		d.logg.Error(ctx, "resolve email delivery", resolveErr)
	}

	claimed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		rows, err := d.repo.UpdateEmailJob(ctx, job.ID, enums.EmailJobPending, map[string]any{
			"status":     enums.EmailJobProcessing,
			"updated_at": now,
		})
		if err != nil {
			return claimed, err
		}
		if rows != 1 {
			continue
		}
		claimed++
		if err := d.attempt(ctx, delivery, resolveErr, job); err != nil {
			return claimed, err
		}
	}
	return claimed, nil
}

func (d *Dispatcher) attempt(ctx context.Context, delivery *emailconfig.Delivery, resolveErr error, job models.NotificationEmailJob) error {
	logCtx := ctx
	if d.logg != nil {
		logCtx = d.logg.WithFields(ctx, map[string]any{
			"email_job_id": job.ID.String(),
			"user_id":      job.UserID.String(),
			"attempt":      job.Attempts + 1,
		})
	}

	sendErr := resolveErr
	if sendErr == nil {
		sendErr = delivery.Mailer.Send(ctx, mailer.Message{
			From:     delivery.From,
			FromName: delivery.FromName,
			To:       job.Recipient,
			Subject:  job.Subject,
			Body:     job.Body,
		})
	}
	now := d.now()
	attempts := job.Attempts + 1

	// The claimed job must leave processing even when ctx was canceled
	// during the send.
	storeCtx := context.WithoutCancel(ctx)

	if sendErr == nil {
		_, err := d.repo.UpdateEmailJob(storeCtx, job.ID, enums.EmailJobProcessing, map[string]any{
			"status":     enums.EmailJobSent,
			"attempts":   attempts,
			"sent_at":    now,
			"last_error": nil,
		})
		if err == nil {
			d.record(metrics.EmailOutcomeSent)
		}
		return err
	}

	lastErr := truncate(sendErr.Error())
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultEmailMaxAttempts
	}

	if attempts < maxAttempts {
		if _, err := d.repo.UpdateEmailJob(storeCtx, job.ID, enums.EmailJobProcessing, map[string]any{
			"status":       enums.EmailJobPending,
			"attempts":     attempts,
			"available_at": now.Add(backoffFor(attempts)),
			"last_error":   lastErr,
		}); err != nil {
			return err
		}
		d.record(metrics.EmailOutcomeRetry)
		if d.logg != nil {
			d.logg.Warn(logCtx, "notification email failed, retry scheduled")
		}
		return nil
	}

	if _, err := d.repo.UpdateEmailJob(storeCtx, job.ID, enums.EmailJobProcessing, map[string]any{
		"status":     enums.EmailJobFailed,
		"attempts":   attempts,
		"failed_at":  now,
		"last_error": lastErr,
	}); err != nil {
		return err
	}
	d.record(metrics.EmailOutcomeFailed)
	if d.logg != nil {
		d.logg.Error(logCtx, "notification email failed permanently", sendErr)
	}

	fallback := &models.Notification{
		UserID:      job.UserID,
		Type:        job.NotificationType,
		Title:       job.Subject,
		Message:     job.Body,
		Link:        job.Link,
		Data:        job.Data,
		DeliveredAt: &now,
		CreatedAt:   now,
	}
	if err := d.repo.Create(storeCtx, fallback); err != nil {
		return err
	}
	d.record(metrics.EmailOutcomeFallback)
	return nil
}

func (d *Dispatcher) record(outcome string) {
	if d.metrics != nil {
		d.metrics.IncEmailJob(outcome)
	}
}

func backoffFor(attempts int) time.Duration {
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(emailBackoff) {
		idx = len(emailBackoff) - 1
	}
	return emailBackoff[idx]
}

// truncate caps msg at maxErrorLength bytes without splitting a rune.
func truncate(msg string) string {
	if len(msg) <= maxErrorLength {
		return msg
	}
	cut := maxErrorLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
