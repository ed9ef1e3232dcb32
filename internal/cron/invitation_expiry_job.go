package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
)

type InvitationExpiryJobParams struct {
	Logger      *logger.Logger
	Invitations invitationExpirer
}

type invitationExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// NewInvitationExpiryJob flips pending invitations past expires_at to expired.
func NewInvitationExpiryJob(params InvitationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Invitations == nil {
		return nil, fmt.Errorf("invitation service required")
	}
	return &invitationExpiryJob{
		logg:        params.Logger,
		invitations: params.Invitations,
		now:         time.Now,
	}, nil
}

type invitationExpiryJob struct {
	logg        *logger.Logger
	invitations invitationExpirer
	now         func() time.Time
}

func (j *invitationExpiryJob) Name() string { return "invitation-expiry" }

func (j *invitationExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	expired, err := j.invitations.ExpireStale(ctx, now)
	if err != nil {
		return fmt.Errorf("invitation expiry: %w", err)
	}
	if expired > 0 {
		j.logg.Info(j.logg.WithField(ctx, "rows_expired", expired), "stale invitations expired")
	}
	return nil
}
