package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrRecipientUnknown means no deliverable address exists for the participant
var ErrRecipientUnknown = errors.New("no email address on record for participant")

// Directory resolves a participant id to a deliverable identity
type Directory interface {
	Recipient(ctx context.Context, userID int64) (email, name string, err error)
}

// PostgresDirectory reads recipient identities from the users table
type PostgresDirectory struct {
	db *sqlx.DB
}

func NewPostgresDirectory(db *sqlx.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Recipient(ctx context.Context, userID int64) (string, string, error) {
	var row struct {
		Email       string         `db:"email"`
		DisplayName sql.NullString `db:"display_name"`
	}

	err := d.db.GetContext(ctx, &row,
		`SELECT email, display_name FROM users WHERE id = $1`, userID)
	if err == sql.ErrNoRows {
		return "", "", ErrRecipientUnknown
	}
	if err != nil {
		return "", "", fmt.Errorf("recipient lookup failed: %w", err)
	}

	return row.Email, row.DisplayName.String, nil
}
