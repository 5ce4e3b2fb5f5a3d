package queue

import (
	"context"

	"github.com/iliyamo/user-auth-service/internal/logging"
)

// Message is an outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// LogMailer records messages in the log instead of sending them.
type LogMailer struct {
	Log logging.Logger
}

func (m LogMailer) Send(ctx context.Context, msg Message) error {
	m.Log.Info(ctx, "email sent", "to", msg.To, "subject", msg.Subject, "bytes", len(msg.Body))
	return nil
}
