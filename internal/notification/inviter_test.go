package notification

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pairplan/pairplan-backend/internal/session"
)

type stubDirectory struct {
	recipients map[int64][2]string // userID -> {email, name}
}

func (d *stubDirectory) Recipient(ctx context.Context, userID int64) (string, string, error) {
	r, ok := d.recipients[userID]
	if !ok {
		return "", "", ErrRecipientUnknown
	}
	return r[0], r[1], nil
}

func completedSession() *session.Session {
	score := 0.82
	venueID := "v-1"
	return &session.Session{
		ID:                 uuid.New(),
		InitiatorID:        1,
		PartnerID:          2,
		Status:             session.StatusCompleted,
		CompatibilityScore: &score,
		SelectedVenueID:    &venueID,
	}
}

func TestSendInvitationEmailsBothParticipants(t *testing.T) {
	provider := NewMockEmailProvider()
	directory := &stubDirectory{recipients: map[int64][2]string{
		1: {"alex@example.com", "Alex"},
		2: {"sam@example.com", "Sam"},
	}}

	inviter := NewInviter(provider, directory)
	venue := session.VenueSummary{ID: "v-1", Name: "Luigi's Trattoria", Address: "12 Mulberry St"}

	err := inviter.SendInvitation(context.Background(), completedSession(), venue, "Can't wait!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(provider.SentEmails) != 2 {
		t.Fatalf("expected 2 invitations, got %d", len(provider.SentEmails))
	}

	first := provider.SentEmails[0]
	if first.To != "alex@example.com" {
		t.Errorf("expected initiator addressed first, got %s", first.To)
	}
	if !strings.Contains(first.Subject, "Luigi's Trattoria") {
		t.Errorf("expected venue in subject, got %q", first.Subject)
	}
	if !strings.Contains(first.HTML, "Alex") {
		t.Errorf("expected recipient name in body")
	}
	if !strings.Contains(first.HTML, "82% match") {
		t.Errorf("expected compatibility score in body, got %q", first.HTML)
	}
	if !strings.Contains(first.PlainText, "Can't wait!") {
		t.Errorf("expected personal message in plain text body")
	}
}

func TestSendInvitationPartialDeliveryReportsFailure(t *testing.T) {
	provider := NewMockEmailProvider()
	// Only the initiator has an address on record
	directory := &stubDirectory{recipients: map[int64][2]string{
		1: {"alex@example.com", "Alex"},
	}}

	inviter := NewInviter(provider, directory)
	venue := session.VenueSummary{ID: "v-1", Name: "Luigi's Trattoria"}

	err := inviter.SendInvitation(context.Background(), completedSession(), venue, "")
	if err == nil {
		t.Fatal("expected an error when one recipient cannot be resolved")
	}
	if !strings.Contains(err.Error(), "recipient 2") {
		t.Errorf("expected the failing recipient named, got %v", err)
	}

	// The resolvable side is still delivered
	if len(provider.SentEmails) != 1 {
		t.Fatalf("expected the deliverable invitation sent, got %d", len(provider.SentEmails))
	}
	if provider.SentEmails[0].To != "alex@example.com" {
		t.Errorf("wrong recipient: %s", provider.SentEmails[0].To)
	}
}

func TestRenderHandlesMissingName(t *testing.T) {
	inviter := NewInviter(NewMockEmailProvider(), &stubDirectory{})

	rendered, err := inviter.render("", completedSession(), session.VenueSummary{Name: "Blue Note"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rendered.HTML, "there") {
		t.Errorf("expected the generic salutation, got %q", rendered.HTML)
	}
}
