package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chompin/internal/logging"
)

// PayloadCodec turns a session into the opaque string carried by the QR code
// and back. Decode must reject payloads it did not produce.
type PayloadCodec interface {
	Encode(sessionID string, expiresAt time.Time) (string, error)
	Decode(payload string) (sessionID string, err error)
}

type plainCodec struct{}

func (plainCodec) Encode(sessionID string, _ time.Time) (string, error) { return sessionID, nil }
func (plainCodec) Decode(payload string) (string, error)                { return payload, nil }

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Clock      Clock
	IDs        IDSource
	Codec      PayloadCodec
	SessionTTL time.Duration
	// LateAfter marks check-ins later than CreatedAt+LateAfter as late. Zero
	// records every check-in as present.
	LateAfter time.Duration
	Location  *time.Location
	Logger    *slog.Logger
}

// Service orchestrates session issuance and check-ins over a Store.
type Service struct {
	store     Store
	clock     Clock
	ids       IDSource
	codec     PayloadCodec
	ttl       time.Duration
	lateAfter time.Duration
	loc       *time.Location
	logger    *slog.Logger
}

// NewService creates a service backed by a store.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:     store,
		clock:     opts.Clock,
		ids:       opts.IDs,
		codec:     opts.Codec,
		ttl:       opts.SessionTTL,
		lateAfter: opts.LateAfter,
		loc:       opts.Location,
		logger:    opts.Logger,
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.ids == nil {
		s.ids = UUIDv7
	}
	if s.codec == nil {
		s.codec = plainCodec{}
	}
	if s.ttl <= 0 {
		s.ttl = DefaultSessionTTL
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Service) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = s.logger
	}
	return logger.With(append([]any{"service", "attendance", "operation", operation}, attrs...)...)
}

// Issued is a freshly minted session with its QR payload URL.
type Issued struct {
	Session    Session
	PayloadURL string
}

// IssueSession mints a session for classID on behalf of professorID and
// bumps total_sessions for every summary row of the class in the same
// transaction.
func (s *Service) IssueSession(ctx context.Context, classID, professorID string) (Issued, error) {
	if err := requireFields("classId", classID); err != nil {
		return Issued{}, err
	}
	if professorID == "" {
		return Issued{}, ErrForbidden
	}
	id, err := s.ids.NewID()
	if err != nil {
		return Issued{}, fmt.Errorf("generate session id: %w", err)
	}
	now := s.clock.Now()

	var out Issued
	err = s.store.InTx(ctx, func(tx Tx) error {
		class, err := tx.LockClass(ctx, classID, true)
		if errors.Is(err, ErrNotFound) {
			return ErrForbidden
		}
		if err != nil {
			return err
		}
		if class.ProfessorID != professorID {
			return ErrForbidden
		}
		sess, err := newSession(id, class, now, s.ttl, s.loc)
		if err != nil {
			return err
		}
		if err := tx.InsertSession(ctx, sess); err != nil {
			return err
		}
		if _, err := tx.IncrementTotalSessions(ctx, classID, now); err != nil {
			return err
		}
		url, err := s.codec.Encode(sess.ID, sess.ExpiresAt)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		out = Issued{Session: sess, PayloadURL: url}
		return nil
	})
	if err != nil {
		return Issued{}, err
	}
	s.log(ctx, "issue_session", "class_id", classID, "session_id", out.Session.ID).
		InfoContext(ctx, "session issued", "expires_at", out.Session.ExpiresAt)
	return out, nil
}

// CheckIn is the result of a recorded scan.
type CheckIn struct {
	Event   Event
	ClassID string
	// Enrolled is true when this check-in auto-enrolled the student.
	Enrolled bool
}

// SubmitCheckIn validates the session referenced by payload and records the
// student's check-in exactly once. Validation, the event append and the
// summary increment commit together or not at all.
func (s *Service) SubmitCheckIn(ctx context.Context, payload, studentID string) (CheckIn, error) {
	if err := requireFields("sessionId", payload); err != nil {
		return CheckIn{}, err
	}
	if studentID == "" {
		return CheckIn{}, ErrForbidden
	}
	sessionID, err := s.codec.Decode(payload)
	if err != nil {
		s.log(ctx, "check_in", "student_id", studentID).DebugContext(ctx, "payload rejected", "error", err)
		return CheckIn{}, ErrSessionInvalid
	}
	now := s.clock.Now()

	var out CheckIn
	err = s.store.InTx(ctx, func(tx Tx) error {
		sess, err := tx.LockSession(ctx, sessionID, false)
		if errors.Is(err, ErrNotFound) {
			return ErrSessionInvalid
		}
		if err != nil {
			return err
		}
		if err := validateSession(sess, now); err != nil {
			return err
		}
		if _, err := tx.LockClass(ctx, sess.ClassID, false); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrSessionInvalid
			}
			return err
		}
		enrolled, err := tx.EnsureEnrollment(ctx, studentID, sess.ClassID, now)
		if err != nil {
			return err
		}
		if err := tx.EnsureSummary(ctx, studentID, sess.ClassID, now); err != nil {
			return err
		}
		evt := Event{
			ID:        uuid.NewString(),
			SessionID: sess.ID,
			StudentID: studentID,
			Status:    s.classify(sess, now),
			When:      now,
		}
		if err := tx.InsertEvent(ctx, evt); err != nil {
			return err
		}
		if err := tx.IncrementStatus(ctx, studentID, sess.ClassID, evt.Status, now); err != nil {
			return err
		}
		out = CheckIn{Event: evt, ClassID: sess.ClassID, Enrolled: enrolled}
		return nil
	})
	if err != nil {
		return CheckIn{}, err
	}
	s.log(ctx, "check_in", "student_id", studentID, "session_id", sessionID).
		InfoContext(ctx, "check-in recorded", "status", out.Event.Status, "auto_enrolled", out.Enrolled)
	return out, nil
}

func (s *Service) classify(sess Session, now time.Time) Status {
	if s.lateAfter > 0 && now.Sub(sess.CreatedAt) > s.lateAfter {
		return StatusLate
	}
	return StatusPresent
}

// RevokeSession ends an active session before its expiry.
func (s *Service) RevokeSession(ctx context.Context, sessionID, professorID string) (Session, error) {
	if err := requireFields("sessionId", sessionID); err != nil {
		return Session{}, err
	}
	now := s.clock.Now()
	var out Session
	err := s.store.InTx(ctx, func(tx Tx) error {
		sess, err := tx.LockSession(ctx, sessionID, true)
		if err != nil {
			return err
		}
		if sess.ProfessorID != professorID {
			return ErrForbidden
		}
		if sess.State(now) != SessionActive {
			return ErrSessionTerminal
		}
		if err := tx.MarkSessionRevoked(ctx, sessionID, now); err != nil {
			return err
		}
		sess.RevokedAt = &now
		out = sess
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	s.log(ctx, "revoke_session", "session_id", sessionID).InfoContext(ctx, "session revoked")
	return out, nil
}

// Session returns a session owned by professorID.
func (s *Service) Session(ctx context.Context, sessionID, professorID string) (Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.ProfessorID != professorID {
		return Session{}, ErrForbidden
	}
	return sess, nil
}

// Now exposes the service clock so callers can report session state
// consistently with validation.
func (s *Service) Now() time.Time { return s.clock.Now() }

// Enroll registers studentID in classID and creates the summary row.
func (s *Service) Enroll(ctx context.Context, classID, professorID, studentID string) (bool, error) {
	if err := requireFields("classId", classID, "studentId", studentID); err != nil {
		return false, err
	}
	now := s.clock.Now()
	var created bool
	err := s.store.InTx(ctx, func(tx Tx) error {
		class, err := tx.LockClass(ctx, classID, false)
		if errors.Is(err, ErrNotFound) {
			return ErrForbidden
		}
		if err != nil {
			return err
		}
		if class.ProfessorID != professorID {
			return ErrForbidden
		}
		created, err = tx.EnsureEnrollment(ctx, studentID, classID, now)
		if err != nil {
			return err
		}
		return tx.EnsureSummary(ctx, studentID, classID, now)
	})
	return created, err
}
