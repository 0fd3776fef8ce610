// Package notification delivers the final outing invitation once a planning
// session completes. Delivery is best-effort and asynchronous; the session
// layer never waits on it.
package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// InvitationEmail is one rendered invitation ready for delivery
type InvitationEmail struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// EmailProvider defines the email delivery interface
type EmailProvider interface {
	SendEmail(ctx context.Context, email *InvitationEmail) error
}

// SendGridEmailProvider implements EmailProvider using SendGrid
type SendGridEmailProvider struct {
	apiKey   string
	from     string
	fromName string
}

func NewSendGridEmailProvider(apiKey, from string) EmailProvider {
	return &SendGridEmailProvider{
		apiKey:   apiKey,
		from:     from,
		fromName: "PairPlan",
	}
}

// SendEmail sends an invitation via SendGrid
func (p *SendGridEmailProvider) SendEmail(ctx context.Context, email *InvitationEmail) error {
	from := mail.NewEmail(p.fromName, p.from)
	to := mail.NewEmail(email.ToName, email.To)

	message := mail.NewSingleEmail(from, email.Subject, to, email.PlainText, email.HTML)
	client := sendgrid.NewSendClient(p.apiKey)

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid returned error status: %d", response.StatusCode)
	}
	return nil
}

// LogEmailProvider writes invitations to the log instead of delivering them.
// Used in development and when no provider is configured.
type LogEmailProvider struct{}

func NewLogEmailProvider() EmailProvider {
	return &LogEmailProvider{}
}

func (p *LogEmailProvider) SendEmail(ctx context.Context, email *InvitationEmail) error {
	log.Printf("invitation for %s: %s", email.To, email.Subject)
	return nil
}

// MockEmailProvider implements EmailProvider for testing
type MockEmailProvider struct {
	SentEmails []InvitationEmail
}

func NewMockEmailProvider() *MockEmailProvider {
	return &MockEmailProvider{SentEmails: make([]InvitationEmail, 0)}
}

func (p *MockEmailProvider) SendEmail(ctx context.Context, email *InvitationEmail) error {
	p.SentEmails = append(p.SentEmails, *email)
	return nil
}
