package mailer

import (
	"context"
	"errors"
	"strings"
)

// Message is one outgoing email.
type Message struct {
	From     string
	FromName string
	To       string
	Subject  string
	Body     string
}

// Mailer delivers messages through a provider.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ErrInvalidMessage is returned for messages missing a sender or recipient.
var ErrInvalidMessage = errors.New("message requires from and to addresses")

func (m Message) validate() error {
	if strings.TrimSpace(m.From) == "" || strings.TrimSpace(m.To) == "" {
		return ErrInvalidMessage
	}
	return nil
}
