package attendance

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrForbidden is returned when the principal does not own the class or session.
	ErrForbidden = errors.New("attendance: forbidden")
	// ErrSessionInvalid covers unknown, expired and revoked sessions alike.
	ErrSessionInvalid = errors.New("attendance: invalid or expired session")
	// ErrDuplicateCheckIn is returned when the student already has an event for the session.
	ErrDuplicateCheckIn = errors.New("attendance: already checked in")
	// ErrNotFound is returned by stores when a referenced row does not exist.
	ErrNotFound = errors.New("attendance: not found")
	// ErrSessionTerminal is returned when revoking a session that is no longer active.
	ErrSessionTerminal = errors.New("attendance: session is no longer active")
)

// ValidationError captures missing or malformed input.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) orNil() error {
	if v == nil || len(v.FieldErrors) == 0 {
		return nil
	}
	return v
}

func requireFields(pairs ...string) error {
	var verr ValidationError
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			verr.add(pairs[i], "is required")
		}
	}
	return verr.orNil()
}

// ErrorKind maps domain errors to a stable label for logs and metrics.
func ErrorKind(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "validation"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrSessionInvalid):
		return "invalid_session"
	case errors.Is(err, ErrDuplicateCheckIn):
		return "duplicate"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSessionTerminal):
		return "terminal"
	default:
		return "internal"
	}
}
