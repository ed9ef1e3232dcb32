package mailer

import (
	"context"

	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
)

// LogMailer writes messages to the structured log instead of sending them.
// Used in development and as the "log" provider.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if m.logg == nil {
		return nil
	}
	logCtx := m.logg.WithFields(ctx, map[string]any{
		"mail_from":    msg.From,
		"mail_to":      msg.To,
		"mail_subject": msg.Subject,
	})
	m.logg.Info(logCtx, "email delivered to log")
	return nil
}
