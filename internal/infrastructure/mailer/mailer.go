// Package mailer delivers transactional email through Resend, or to the log
// in development.
package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"

	"github.com/devstudio/backoffice/internal/config"
	"github.com/devstudio/backoffice/internal/logging"
	"github.com/devstudio/backoffice/pkg/errors"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is one outgoing email.
type Message struct {
	To          []string
	Subject     string
	HTML        string
	Text        string
	Template    string
	Attachments []Attachment
}

// Mailer sends messages and returns the provider's message ID.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// New picks the mailer configured in cfg.
func New(cfg config.MailConfig) (Mailer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "resend":
		if cfg.APIKey == "" {
			return nil, errors.NewValidationError("mail.api_key", "required for the resend provider")
		}
		return NewResendMailer(cfg.APIKey, cfg.From, ""), nil
	case "", "log":
		return NewLogMailer(logging.WithComponent("mailer")), nil
	default:
		return nil, errors.NewValidationError("mail.provider", fmt.Sprintf("unknown provider %q", cfg.Provider))
	}
}

// ResendMailer sends through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer creates a Resend mailer. baseURL overrides the API
// endpoint when non-empty.
func NewResendMailer(apiKey, from, baseURL string) *ResendMailer {
	client := resend.NewClient(apiKey)
	if baseURL != "" {
		if u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/"); err == nil {
			client.BaseURL = u
		}
	}
	return &ResendMailer{client: client, from: from}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	if len(msg.To) == 0 {
		return "", errors.NewValidationError("to", "at least one recipient is required")
	}
	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if msg.Template != "" {
		req.Tags = []resend.Tag{{Name: "template", Value: msg.Template}}
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{Filename: a.Filename, Content: a.Content})
	}

	sent, err := m.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", errors.NewExternalServiceError("resend", err)
	}
	return sent.Id, nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log *logrus.Entry
}

func NewLogMailer(log *logrus.Entry) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	masked := make([]string, len(msg.To))
	for i, to := range msg.To {
		masked[i] = logging.MaskEmail(to)
	}
	m.log.WithFields(logrus.Fields{
		"to":          masked,
		"subject":     msg.Subject,
		"template":    msg.Template,
		"attachments": len(msg.Attachments),
	}).Info("📧 [Mail] Message logged (log provider)")
	return "log-" + msg.Template, nil
}
