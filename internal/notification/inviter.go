package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"

	"github.com/pairplan/pairplan-backend/internal/session"
)

const invitationHTMLTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>You have a date!</title></head>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h1>It's a plan, {{.Name}}!</h1>
  <p>You and your partner settled on a spot:</p>
  <h2>{{.VenueName}}</h2>
  {{if .VenueAddress}}<p>{{.VenueAddress}}</p>{{end}}
  {{if .Score}}<p>You two are a {{.Score}}% match on this outing.</p>{{end}}
  {{if .Message}}<blockquote>{{.Message}}</blockquote>{{end}}
  <p>See you there.</p>
</body>
</html>`

// Inviter turns a completed session into invitation emails for both
// participants. It is the session layer's notifier.
type Inviter struct {
	provider  EmailProvider
	directory Directory
	tmpl      *template.Template
}

func NewInviter(provider EmailProvider, directory Directory) *Inviter {
	return &Inviter{
		provider:  provider,
		directory: directory,
		tmpl:      template.Must(template.New("invitation").Parse(invitationHTMLTemplate)),
	}
}

// SendInvitation emails the finalized outing to both participants. One
// failed delivery does not stop the other; all failures are reported.
func (i *Inviter) SendInvitation(ctx context.Context, s *session.Session, venue session.VenueSummary, message string) error {
	var failures []string

	for _, userID := range []int64{s.InitiatorID, s.PartnerID} {
		email, name, err := i.directory.Recipient(ctx, userID)
		if err != nil {
			log.Printf("cannot resolve invitation recipient %d for session %s: %v", userID, s.ID, err)
			failures = append(failures, fmt.Sprintf("recipient %d: %v", userID, err))
			continue
		}

		rendered, err := i.render(name, s, venue, message)
		if err != nil {
			failures = append(failures, fmt.Sprintf("render for %d: %v", userID, err))
			continue
		}
		rendered.To = email

		if err := i.provider.SendEmail(ctx, rendered); err != nil {
			recordInvitation("failed")
			failures = append(failures, fmt.Sprintf("deliver to %d: %v", userID, err))
			continue
		}
		recordInvitation("sent")
	}

	if len(failures) > 0 {
		return fmt.Errorf("invitation delivery incomplete: %s", strings.Join(failures, "; "))
	}
	return nil
}

func (i *Inviter) render(name string, s *session.Session, venue session.VenueSummary, message string) (*InvitationEmail, error) {
	if name == "" {
		name = "there"
	}

	score := 0
	if s.CompatibilityScore != nil {
		score = int(*s.CompatibilityScore * 100)
	}

	data := struct {
		Name         string
		VenueName    string
		VenueAddress string
		Score        int
		Message      string
	}{
		Name:         name,
		VenueName:    venue.Name,
		VenueAddress: venue.Address,
		Score:        score,
		Message:      message,
	}

	var html bytes.Buffer
	if err := i.tmpl.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render invitation: %w", err)
	}

	plain := fmt.Sprintf("It's a plan! You and your partner are going to %s.", venue.Name)
	if venue.Address != "" {
		plain += " " + venue.Address + "."
	}
	if message != "" {
		plain += "\n\n" + message
	}

	return &InvitationEmail{
		Subject:   fmt.Sprintf("You're going to %s!", venue.Name),
		ToName:    name,
		PlainText: plain,
		HTML:      html.String(),
	}, nil
}
