package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/angelmondragon/pawfinderz-backend/internal/emailconfig"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	"github.com/angelmondragon/pawfinderz-backend/pkg/mailer"
	"github.com/angelmondragon/pawfinderz-backend/pkg/metrics"
)

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []mailer.Message
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// cancelingMailer simulates a worker shutdown that lands mid-send.
type cancelingMailer struct {
	cancel context.CancelFunc
}

func (m cancelingMailer) Send(ctx context.Context, _ mailer.Message) error {
	m.cancel()
	return ctx.Err()
}

type staticDelivery struct {
	mailer mailer.Mailer
}

func (s staticDelivery) ActiveDelivery(context.Context) (*emailconfig.Delivery, error) {
	return &emailconfig.Delivery{Mailer: s.mailer, From: "no-reply@pawfinderz.test", FromName: "PawFinderz"}, nil
}

func newDispatcher(t *testing.T, f *fixture, m mailer.Mailer) *Dispatcher {
	t.Helper()
	return newDispatcherWith(t, f, staticDelivery{mailer: m})
}

func newDispatcherWith(t *testing.T, f *fixture, resolver deliveryResolver) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherParams{
		Repo:     f.repo,
		Delivery: resolver,
		Interval: 10 * time.Millisecond,
		Metrics:  f.metrics,
		Now:      func() time.Time { return f.now },
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) job(t *testing.T) models.NotificationEmailJob {
	t.Helper()
	jobs := f.emailJobs(t)
	require.Len(t, jobs, 1)
	return jobs[0]
}

func (f *fixture) notificationCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.Notification{}).Where("user_id = ?", f.user.ID).Count(&count).Error)
	return count
}

func TestDispatcherSendsDueJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Send(ctx, f.user.ID, enums.NotificationHandoverConfirmed, Payload{Title: "Handover confirmed", Message: "ready"})
	require.NoError(t, err)

	m := &fakeMailer{}
	claimed, err := newDispatcher(t, f, m).ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, claimed)

	require.Len(t, m.sent, 1)
	require.Equal(t, "owner@example.com", m.sent[0].To)
	require.Equal(t, "no-reply@pawfinderz.test", m.sent[0].From)

	job := f.job(t)
	require.Equal(t, enums.EmailJobSent, job.Status)
	require.Equal(t, 1, job.Attempts)
	require.NotNil(t, job.SentAt)
	require.Equal(t, 1, f.metrics.outcomes[metrics.EmailOutcomeSent])

	claimed, err = newDispatcher(t, f, m).ProcessBatch(ctx)
	require.NoError(t, err)
	require.Zero(t, claimed)
}

func TestDispatcherBacksOffThenFallsBackInApp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := false
	_, err := f.svc.UpdatePreference(ctx, f.user.ID, UpdatePreferenceInput{
		Type:         string(enums.NotificationHandoverCompleted),
		InAppEnabled: &off,
	})
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, f.user.ID, enums.NotificationHandoverCompleted, Payload{Title: "Handover completed", Message: "done"})
	require.NoError(t, err)
	require.Zero(t, f.notificationCount(t))

	m := &fakeMailer{err: errors.New("smtp: 451 try later")}
	d := newDispatcher(t, f, m)

	for attempt, wait := range []time.Duration{60 * time.Second, 300 * time.Second} {
		claimed, err := d.ProcessBatch(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, claimed)

		job := f.job(t)
		require.Equal(t, enums.EmailJobPending, job.Status)
		require.Equal(t, attempt+1, job.Attempts)
		require.True(t, job.AvailableAt.Equal(f.now.Add(wait)), "attempt %d available at %s", attempt+1, job.AvailableAt)
		require.NotNil(t, job.LastError)

		claimed, err = d.ProcessBatch(ctx)
		require.NoError(t, err)
		require.Zero(t, claimed, "job must not be retried before its backoff")

		f.now = f.now.Add(wait)
	}

	claimed, err := d.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, claimed)

	job := f.job(t)
	require.Equal(t, enums.EmailJobFailed, job.Status)
	require.Equal(t, 3, job.Attempts)
	require.NotNil(t, job.FailedAt)

	require.EqualValues(t, 1, f.notificationCount(t))
	require.Equal(t, 2, f.metrics.outcomes[metrics.EmailOutcomeRetry])
	require.Equal(t, 1, f.metrics.outcomes[metrics.EmailOutcomeFailed])
	require.Equal(t, 1, f.metrics.outcomes[metrics.EmailOutcomeFallback])
}

func TestBackoffSchedule(t *testing.T) {
	require.Equal(t, 60*time.Second, backoffFor(1))
	require.Equal(t, 300*time.Second, backoffFor(2))
	require.Equal(t, 900*time.Second, backoffFor(3))
	require.Equal(t, 900*time.Second, backoffFor(7))
	require.Equal(t, 60*time.Second, backoffFor(0))
}

func TestDispatcherRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	_, err := f.svc.Send(context.Background(), f.user.ID, enums.NotificationSystemAnnouncement, Payload{Title: "hello"})
	require.NoError(t, err)

	m := &fakeMailer{}
	d := newDispatcher(t, f, m)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcherRecordsAttemptWhenCanceledMidSend(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(context.Background(), f.user.ID, enums.NotificationTransferAccepted, Payload{Title: "Transfer accepted"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	claimed, err := newDispatcher(t, f, cancelingMailer{cancel: cancel}).ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, claimed)

	job := f.job(t)
	require.Equal(t, enums.EmailJobPending, job.Status)
	require.Equal(t, 1, job.Attempts)
	require.True(t, job.AvailableAt.Equal(f.now.Add(60*time.Second)))
	require.NotNil(t, job.LastError)
	require.Contains(t, *job.LastError, context.Canceled.Error())

	f.now = f.now.Add(60 * time.Second)
	m := &fakeMailer{}
	claimed, err = newDispatcher(t, f, m).ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, claimed)
	require.Len(t, m.sent, 1)
	require.Equal(t, enums.EmailJobSent, f.job(t).Status)
}

func TestDispatcherReleasesJobsPastClaimLease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Send(ctx, f.user.ID, enums.NotificationHandoverConfirmed, Payload{Title: "Handover confirmed"})
	require.NoError(t, err)

	stranded := f.job(t)
	require.NoError(t, f.conn.Model(&models.NotificationEmailJob{}).
		Where("id = ?", stranded.ID).
		Updates(map[string]any{"status": enums.EmailJobProcessing, "updated_at": f.now.Add(-time.Minute)}).Error)

	m := &fakeMailer{}
	d := newDispatcher(t, f, m)

	claimed, err := d.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Zero(t, claimed, "job inside its lease belongs to another dispatcher")
	require.Equal(t, enums.EmailJobProcessing, f.job(t).Status)

	f.now = f.now.Add(defaultClaimLease)
	claimed, err = d.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, claimed)
	require.Len(t, m.sent, 1)

	job := f.job(t)
	require.Equal(t, enums.EmailJobSent, job.Status)
	require.Equal(t, 1, job.Attempts)
}

func TestDispatcherFallsBackWhenActiveSMTPConfigIsBroken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Send(ctx, f.user.ID, enums.NotificationSystemAnnouncement, Payload{Title: "Maintenance tonight"})
	require.NoError(t, err)
	inApp := f.notificationCount(t)

	require.NoError(t, f.conn.Create(&models.EmailConfiguration{
		Provider:    enums.EmailProviderSMTP,
		Status:      enums.EmailConfigActive,
		FromAddress: "ops@example.com",
		Config:      json.RawMessage(`{"port":25}`),
	}).Error)
	configs, err := emailconfig.NewService(emailconfig.NewRepository(f.conn), db.NewFromGorm(f.conn), nil, "no-reply@pawfinderz.test")
	require.NoError(t, err)
	d := newDispatcherWith(t, f, configs)

	for _, wait := range []time.Duration{60 * time.Second, 300 * time.Second} {
		claimed, err := d.ProcessBatch(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, claimed)
		require.Equal(t, enums.EmailJobPending, f.job(t).Status)
		f.now = f.now.Add(wait)
	}

	claimed, err := d.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, claimed)

	job := f.job(t)
	require.Equal(t, enums.EmailJobFailed, job.Status)
	require.Equal(t, 3, job.Attempts)
	require.Contains(t, *job.LastError, "smtp")
	require.Equal(t, inApp+1, f.notificationCount(t))
	require.Equal(t, 1, f.metrics.outcomes[metrics.EmailOutcomeFallback])
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	msg := strings.Repeat("a", maxErrorLength-1) + "é and more"
	got := truncate(msg)
	require.True(t, utf8.ValidString(got))
	require.Len(t, got, maxErrorLength-1)

	require.Equal(t, "short", truncate("short"))
	require.Len(t, truncate(strings.Repeat("b", maxErrorLength+10)), maxErrorLength)
}
