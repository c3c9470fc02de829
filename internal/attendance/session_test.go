package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionState(t *testing.T) {
	created := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	s := Session{CreatedAt: created, ExpiresAt: created.Add(DefaultSessionTTL)}

	assert.Equal(t, SessionActive, s.State(created))
	assert.Equal(t, SessionActive, s.State(s.ExpiresAt.Add(-time.Nanosecond)))
	assert.Equal(t, SessionExpired, s.State(s.ExpiresAt))

	revoked := created.Add(10 * time.Minute)
	s.RevokedAt = &revoked
	// A revoked session stays revoked even for instants read before the revoke.
	assert.Equal(t, SessionRevoked, s.State(created.Add(5*time.Minute)))
	assert.Equal(t, SessionRevoked, s.State(revoked))
	assert.Equal(t, SessionRevoked, s.State(s.ExpiresAt.Add(time.Hour)))

	assert.Equal(t, "expired", SessionExpired.String())
	assert.ErrorIs(t, validateSession(s, revoked), ErrSessionInvalid)
	assert.ErrorIs(t, validateSession(s, created), ErrSessionInvalid)
	s.RevokedAt = nil
	assert.NoError(t, validateSession(s, created))
}

func TestNewSession(t *testing.T) {
	// 23:30 in UTC is already the next day in UTC+2.
	now := time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC)
	class := Class{ID: "c1", ProfessorID: "p1"}

	s, err := newSession("s1", class, now, time.Hour, time.FixedZone("UTC+2", 2*3600))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", s.Date)
	assert.Equal(t, "p1", s.ProfessorID)
	assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)
	assert.Nil(t, s.RevokedAt)

	s, err = newSession("s1", class, now, time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", s.Date)

	_, err = newSession("s1", class, now, 0, nil)
	assert.Error(t, err)
}
