package attendance

import (
	"fmt"
	"time"
)

// DefaultSessionTTL is how long a minted session accepts check-ins.
const DefaultSessionTTL = 90 * time.Minute

// SessionState is the lifecycle variant of a session at a given instant.
type SessionState int

const (
	SessionActive SessionState = iota
	SessionRevoked
	SessionExpired
)

func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionRevoked:
		return "revoked"
	case SessionExpired:
		return "expired"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// State reports the session's lifecycle state at now. Revocation is terminal
// and wins over expiry regardless of now; a session is expired once now
// reaches ExpiresAt.
func (s Session) State(now time.Time) SessionState {
	if s.RevokedAt != nil {
		return SessionRevoked
	}
	if !now.Before(s.ExpiresAt) {
		return SessionExpired
	}
	return SessionActive
}

// newSession builds a session row for classID created at now.
func newSession(id string, class Class, now time.Time, ttl time.Duration, loc *time.Location) (Session, error) {
	if ttl <= 0 {
		return Session{}, fmt.Errorf("attendance: session ttl must be positive, got %s", ttl)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Session{
		ID:          id,
		ClassID:     class.ID,
		ProfessorID: class.ProfessorID,
		Date:        now.In(loc).Format(time.DateOnly),
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}, nil
}

// validateSession rejects sessions that are not active at now.
func validateSession(s Session, now time.Time) error {
	if s.State(now) != SessionActive {
		return ErrSessionInvalid
	}
	return nil
}
