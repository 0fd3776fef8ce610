package session

import "errors"

var (
	ErrSessionNotFound       = errors.New("planning session not found")
	ErrNotParticipant        = errors.New("user is not a participant of this session")
	ErrSameParticipant       = errors.New("cannot start a planning session with yourself")
	ErrSessionNotActive      = errors.New("planning session is no longer active")
	ErrPreferencesIncomplete = errors.New("both participants must submit preferences first")
	ErrInvalidVenueSelection = errors.New("selected venue is not in the current recommendation set")
)
