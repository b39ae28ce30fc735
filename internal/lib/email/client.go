// Package email sends the owner alerts.
//
// Bodies are rendered from embedded templates. Delivery goes through one
// of two transports: the Resend API or plain SMTP with the mailbox's
// credentials.
package email

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned when no transport is configured.
var ErrDisabled = errors.New("email delivery is not configured")

// Message is a rendered email ready for a Transport.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Transport delivers a rendered Message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// Client renders templates and hands them to its transport.
type Client struct {
	transport Transport
	from      string
	mailbox   string
	logger    *zerolog.Logger
}

// NewClient picks the transport from cfg.Email. With provider "none", or
// nothing configured under "auto", the returned client is disabled and
// every send returns ErrDisabled.
func NewClient(cfg *config.Config, logger *zerolog.Logger) *Client {
	mailbox := cfg.Email.Address()

	var transport Transport
	switch cfg.Email.ResolvedProvider() {
	case "resend":
		transport = &resendTransport{client: resend.NewClient(cfg.Email.ResendAPIKey)}
	case "smtp":
		transport = newSMTPTransport(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.Username, cfg.Email.Password)
	}

	return NewClientWithTransport(transport, cfg.Email.FromName, mailbox, logger)
}

// NewClientWithTransport builds a client around an explicit transport.
// Alerts are sent from and to mailbox.
func NewClientWithTransport(transport Transport, fromName, mailbox string, logger *zerolog.Logger) *Client {
	from := mailbox
	if fromName != "" && mailbox != "" {
		from = (&mail.Address{Name: fromName, Address: mailbox}).String()
	}

	return &Client{
		transport: transport,
		from:      from,
		mailbox:   mailbox,
		logger:    logger,
	}
}

// Enabled reports whether the client can deliver anything.
func (c *Client) Enabled() bool {
	return c != nil && c.transport != nil && c.mailbox != ""
}

// Transport returns the active transport name, or "none".
func (c *Client) Transport() string {
	if !c.Enabled() {
		return "none"
	}
	return c.transport.Name()
}

// SendEmail renders templateName with data and delivers it.
func (c *Client) SendEmail(ctx context.Context, to, replyTo, subject string, templateName Template, data any) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	html, text, err := Render(templateName, data)
	if err != nil {
		return err
	}

	msg := Message{
		From:    c.from,
		To:      []string{to},
		ReplyTo: replyTo,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}

	if err := c.transport.Send(ctx, msg); err != nil {
		return errors.Wrapf(err, "failed to send email via %s", c.transport.Name())
	}
	return nil
}

type resendTransport struct {
	client *resend.Client
}

func (t *resendTransport) Name() string { return "resend" }

func (t *resendTransport) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	if _, err := t.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
