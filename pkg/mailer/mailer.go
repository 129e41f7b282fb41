// Package mailer sends transactional email through SendGrid.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/meltedmeethas/storefront-backend/pkg/config"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
)

// Message is a single plain-text email with an optional HTML body.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// PermanentError marks a rejection that will not succeed on retry, such as an
// invalid recipient.
type PermanentError struct {
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("sendgrid rejected message: status %d", e.StatusCode)
}

// IsPermanent reports whether err is a non-retryable delivery failure.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid sends through the v3 mail send API.
type SendGrid struct {
	client  sendClient
	from    *mail.Email
	timeout time.Duration
}

// New returns a SendGrid sender, or a logging sender when no API key is
// configured so local environments can run without credentials.
func New(cfg config.SendgridConfig, logg *logger.Logger) (Sender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		if logg == nil {
			return nil, errors.New("sendgrid api key is required")
		}
		return &LogSender{logg: logg}, nil
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid from email is required")
	}
	return newSendGrid(sendgrid.NewSendClient(cfg.APIKey), cfg), nil
}

func newSendGrid(client sendClient, cfg config.SendgridConfig) *SendGrid {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SendGrid{
		client:  client,
		from:    mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		timeout: timeout,
	}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	email := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Text, msg.HTML)
	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == 429 || resp.StatusCode >= 500:
		return fmt.Errorf("sendgrid send: status %d", resp.StatusCode)
	default:
		return &PermanentError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	logg *logger.Logger
}

func (l *LogSender) Send(ctx context.Context, msg Message) error {
	l.logg.Info(l.logg.WithFields(ctx, map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
	}), "email delivery skipped: no sendgrid api key")
	return nil
}
