package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestParseSMTPConfigDefaultsPort(t *testing.T) {
	cfg, err := ParseSMTPConfig(json.RawMessage(`{"host":"smtp.example.com","username":"u"}`))
	require.NoError(t, err)
	require.Equal(t, 587, cfg.Port)

	_, err = ParseSMTPConfig(json.RawMessage(`{"port":25}`))
	require.Error(t, err)
	_, err = ParseSMTPConfig(nil)
	require.Error(t, err)
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	var got *mail.Msg
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 2525})
	m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	m.send = func(_ context.Context, msg *mail.Msg) error {
		got = msg
		return nil
	}

	err := m.Send(context.Background(), Message{
		From:     "no-reply@pawfinderz.local",
		FromName: "PawFinderz",
		To:       "owner@example.com",
		Subject:  "Handover completed",
		Body:     "line one\nline two",
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	rcpts, err := got.GetRecipients()
	require.NoError(t, err)
	require.Equal(t, []string{"owner@example.com"}, rcpts)
	require.Equal(t, []string{"Handover completed"}, got.GetGenHeader(mail.HeaderSubject))

	var buf bytes.Buffer
	_, err = got.WriteTo(&buf)
	require.NoError(t, err)
	rendered := buf.String()
	require.Contains(t, rendered, "PawFinderz")
	require.Contains(t, rendered, "<no-reply@pawfinderz.local>")
	require.Contains(t, rendered, "line one")
	require.Contains(t, rendered, "line two")
}

func TestSMTPMailerWrapsTransportErrors(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25, Username: "u", Password: "p"})
	boom := errors.New("connection refused")
	m.send = func(context.Context, *mail.Msg) error { return boom }

	err := m.Send(context.Background(), Message{From: "a@example.com", To: "b@example.com"})
	require.ErrorIs(t, err, boom)

	err = m.Send(context.Background(), Message{To: "b@example.com"})
	require.ErrorIs(t, err, ErrInvalidMessage)

	err = m.Send(context.Background(), Message{From: "a@example.com", To: "not an address"})
	require.ErrorIs(t, err, ErrInvalidMessage)
}

func TestSMTPMailerRejectsBadPortBeforeDialing(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 70000})

	err := m.Send(context.Background(), Message{From: "a@example.com", To: "b@example.com"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "smtp client")
}

func TestSMTPMailerAddsAuthOnlyWithUsername(t *testing.T) {
	anon := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25})
	authed := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25, Username: "u", Password: "p"})

	require.Len(t, anon.clientOptions(), 3)
	require.Len(t, authed.clientOptions(), 6)
	_, err := mail.NewClient("smtp.example.com", authed.clientOptions()...)
	require.NoError(t, err)
}
