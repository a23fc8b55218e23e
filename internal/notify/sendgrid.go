package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailSink sends an e-mail copy of each notification through SendGrid.
// Messages without a recipient address are skipped.
type EmailSink struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewEmailSink constructs an EmailSink.
func NewEmailSink(apiKey, fromEmail, fromName string) *EmailSink {
	return &EmailSink{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

// Name implements Sink.
func (s *EmailSink) Name() string { return "sendgrid" }

// Deliver implements Sink.
func (s *EmailSink) Deliver(ctx context.Context, msg Message) error {
	if msg.Email == "" {
		return nil
	}
	resp, err := s.client.SendWithContext(ctx, buildEmail(s.from, msg))
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func buildEmail(from *mail.Email, msg Message) *mail.SGMailV3 {
	to := mail.NewEmail(msg.Name, msg.Email)
	htmlContent := fmt.Sprintf("<html><body><h2>%s</h2><p>%s</p></body></html>",
		html.EscapeString(msg.Title), html.EscapeString(msg.Body))
	return mail.NewSingleEmail(from, msg.Title, to, msg.Body, htmlContent)
}
