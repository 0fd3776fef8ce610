package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	// GetActiveForPair looks up the active session for an unordered pair of
	// participants; returns (nil, nil) when none exists.
	GetActiveForPair(ctx context.Context, userA, userB int64) (*Session, error)
	// SetPreferences stores one participant's slot and recomputes
	// both_preferences_complete in the same statement.
	SetPreferences(ctx context.Context, id uuid.UUID, role string, prefs json.RawMessage) (*Session, error)
	SetCompatibilityScore(ctx context.Context, id uuid.UUID, score float64) (*Session, error)
	Complete(ctx context.Context, id uuid.UUID, venueID string) (*Session, error)
	// ExpireDue transitions past-deadline active sessions to expired and
	// returns the affected records.
	ExpireDue(ctx context.Context, now time.Time) ([]*Session, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const sessionColumns = `
	id, initiator_id, partner_id, status,
	initiator_preferences_complete, partner_preferences_complete, both_preferences_complete,
	initiator_preferences, partner_preferences,
	compatibility_score, selected_venue_id,
	created_at, updated_at, expires_at
`

func (r *postgresRepository) Create(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO planning_sessions (id, initiator_id, partner_id, status, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	return r.db.QueryRowxContext(
		ctx, query,
		s.ID, s.InitiatorID, s.PartnerID, s.Status, s.ExpiresAt,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	var s Session
	query := `SELECT ` + sessionColumns + ` FROM planning_sessions WHERE id = $1`

	err := r.db.GetContext(ctx, &s, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepository) GetActiveForPair(ctx context.Context, userA, userB int64) (*Session, error) {
	var s Session
	query := `
		SELECT ` + sessionColumns + `
		FROM planning_sessions
		WHERE status = 'active'
		      AND ((initiator_id = $1 AND partner_id = $2)
		        OR (initiator_id = $2 AND partner_id = $1))
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &s, query, userA, userB)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepository) SetPreferences(ctx context.Context, id uuid.UUID, role string, prefs json.RawMessage) (*Session, error) {
	// The derived flag is computed inside the same UPDATE as the slot write,
	// so readers never observe both flags true with the derived field lagging.
	var query string
	switch role {
	case RoleInitiator:
		query = `
			UPDATE planning_sessions
			SET initiator_preferences = $2,
			    initiator_preferences_complete = TRUE,
			    both_preferences_complete = partner_preferences_complete,
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = $1 AND status = 'active'
			RETURNING ` + sessionColumns
	case RolePartner:
		query = `
			UPDATE planning_sessions
			SET partner_preferences = $2,
			    partner_preferences_complete = TRUE,
			    both_preferences_complete = initiator_preferences_complete,
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = $1 AND status = 'active'
			RETURNING ` + sessionColumns
	default:
		return nil, ErrNotParticipant
	}

	var s Session
	err := r.db.GetContext(ctx, &s, query, id, prefs)
	if err == sql.ErrNoRows {
		// Either the session vanished or it is no longer active
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrSessionNotActive
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepository) SetCompatibilityScore(ctx context.Context, id uuid.UUID, score float64) (*Session, error) {
	query := `
		UPDATE planning_sessions
		SET compatibility_score = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'active'
		RETURNING ` + sessionColumns

	var s Session
	err := r.db.GetContext(ctx, &s, query, id, score)
	if err == sql.ErrNoRows {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrSessionNotActive
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepository) Complete(ctx context.Context, id uuid.UUID, venueID string) (*Session, error) {
	// selected_venue_id is only ever written together with the transition to
	// completed; the status guard keeps the transition one-way.
	query := `
		UPDATE planning_sessions
		SET selected_venue_id = $2, status = 'completed', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'active'
		RETURNING ` + sessionColumns

	var s Session
	err := r.db.GetContext(ctx, &s, query, id, venueID)
	if err == sql.ErrNoRows {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrSessionNotActive
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepository) ExpireDue(ctx context.Context, now time.Time) ([]*Session, error) {
	query := `
		UPDATE planning_sessions
		SET status = 'expired', updated_at = CURRENT_TIMESTAMP
		WHERE status = 'active' AND expires_at < $1
		RETURNING ` + sessionColumns

	rows, err := r.db.QueryxContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []*Session
	for rows.Next() {
		var s Session
		if err := rows.StructScan(&s); err != nil {
			return nil, err
		}
		expired = append(expired, &s)
	}
	return expired, rows.Err()
}
