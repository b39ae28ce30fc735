package email

import (
	"context"
	"net/mail"
	"time"
)

// ContactAlert is the data behind TemplateContactAlert.
type ContactAlert struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Mobile     string    `json:"mobile,omitempty"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

// MobileOrDefault is used by the templates.
func (a ContactAlert) MobileOrDefault() string {
	if a.Mobile == "" {
		return "not provided"
	}
	return a.Mobile
}

// Subject is the alert's subject line.
func (a ContactAlert) Subject() string {
	return "Portfolio: Message from " + a.Name
}

// SendContactAlert mails a submission to the service mailbox. Replies go
// to the visitor when their address parses; otherwise the alert is sent
// without a Reply-To.
func (c *Client) SendContactAlert(ctx context.Context, alert ContactAlert) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	return c.SendEmail(ctx, c.mailbox, c.replyTo(alert.Email), alert.Subject(), TemplateContactAlert, alert)
}

// replyTo reduces a visitor-supplied address to its bare addr-spec.
func (c *Client) replyTo(raw string) string {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn().Err(err).Msg("dropping unparseable reply-to address")
		}
		return ""
	}
	return addr.Address
}

// Dispatch implements the notifier's dispatcher contract.
func (c *Client) Dispatch(ctx context.Context, alert ContactAlert) error {
	return c.SendContactAlert(ctx, alert)
}
