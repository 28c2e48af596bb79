// Package mailer renders and delivers transactional email through Resend.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Message is a rendered HTML email ready for delivery.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// ResendMailer delivers messages through the Resend HTTP API.
type ResendMailer struct {
	client *resend.Client
}

// NewResendMailer creates a mailer authenticated with apiKey.
func NewResendMailer(apiKey string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey)}
}

// Send delivers msg and returns the provider's message id.
func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend: send %q: %w", msg.Subject, err)
	}
	return sent.Id, nil
}

// LogMailer writes messages to the log instead of sending them.
// It stands in for Resend when no API key is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(_ context.Context, msg Message) (string, error) {
	l := m.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("email not sent, no provider configured",
		slog.String("from", msg.From),
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return "", nil
}
