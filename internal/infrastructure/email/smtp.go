package email

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/corates/billing/internal/shared/config"
	"github.com/corates/billing/internal/shared/services/markdown"
)

var ErrNoRecipients = errors.New("no recipients")

// Message is an operator mail whose body is markdown.
type Message struct {
	To       []string
	Subject  string
	Markdown string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends markdown mail as a plain text part with an HTML alternative.
type SMTPMailer struct {
	from     string
	fromName string
	dialer   sender
	renderer markdown.Renderer
}

func NewSMTPMailer(cfg config.SMTPConfig, renderer markdown.Renderer) *SMTPMailer {
	return &SMTPMailer{
		from:     cfg.FromAddress,
		fromName: cfg.FromName,
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		renderer: renderer,
	}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	htmlBody, err := s.renderer.Render(msg.Markdown)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	if s.fromName != "" {
		m.SetAddressHeader("From", s.from, s.fromName)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Markdown)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
