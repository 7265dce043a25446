package mailer

import (
	"context"
	"fmt"

	"github.com/rshakya/taskhub-be/internal/config"
	mail "github.com/wneessen/go-mail"
)

// Mailer sends account lifecycle notifications. Delivery is best-effort:
// callers dispatch asynchronously and must never fail a request over it.
type Mailer interface {
	SendWelcome(ctx context.Context, email, name string) error
	SendCancellation(ctx context.Context, email, name string) error
}

// SMTPMailer delivers mail over SMTP.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTP creates a mailer from the SMTP configuration.
func NewSMTP(cfg config.SMTP) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// SendWelcome greets a freshly signed-up user.
func (m *SMTPMailer) SendWelcome(ctx context.Context, email, name string) error {
	body := fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name)
	return m.send(ctx, email, "Thanks for joining in!", body)
}

// SendCancellation asks a departing user why they left.
func (m *SMTPMailer) SendCancellation(ctx context.Context, email, name string) error {
	body := fmt.Sprintf("Goodbye, %s. I hope to see you back sometime soon.", name)
	return m.send(ctx, email, "Sorry to see you go!", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return m.client.DialAndSendWithContext(ctx, msg)
}

// Noop discards all mail. Used when no SMTP host is configured, and in tests.
type Noop struct{}

func (Noop) SendWelcome(context.Context, string, string) error      { return nil }
func (Noop) SendCancellation(context.Context, string, string) error { return nil }
