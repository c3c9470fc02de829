package attendance

import (
	"context"
	"time"
)

// Tx is the set of mutations available inside one store transaction. Every
// method either fully applies or leaves the transaction to be rolled back.
type Tx interface {
	// LockClass loads a class and locks it. exclusive serializes against
	// every other locker; shared only against exclusive lockers.
	LockClass(ctx context.Context, classID string, exclusive bool) (Class, error)
	// LockSession loads a session and locks it the same way.
	LockSession(ctx context.Context, sessionID string, exclusive bool) (Session, error)

	InsertSession(ctx context.Context, s Session) error
	MarkSessionRevoked(ctx context.Context, sessionID string, at time.Time) error

	// EnsureEnrollment creates the enrollment if missing and reports whether it did.
	EnsureEnrollment(ctx context.Context, studentID, classID string, at time.Time) (bool, error)
	// EnsureSummary creates the summary row if missing, seeding total_sessions
	// with the class's current session count.
	EnsureSummary(ctx context.Context, studentID, classID string, at time.Time) error
	// IncrementTotalSessions adds one to total_sessions of every summary row
	// of the class and returns the number of rows touched.
	IncrementTotalSessions(ctx context.Context, classID string, at time.Time) (int64, error)

	// InsertEvent appends to the event log. The (session, student) pair is
	// unique at the storage layer; a violation yields ErrDuplicateCheckIn.
	InsertEvent(ctx context.Context, e Event) error
	// IncrementStatus adds one to the counter matching status.
	IncrementStatus(ctx context.Context, studentID, classID string, status Status, at time.Time) error
}

// Reader serves the analytics read paths outside of transactions.
type Reader interface {
	GetSession(ctx context.Context, sessionID string) (Session, error)
	GetClass(ctx context.Context, classID string) (Class, error)
	GetSummary(ctx context.Context, studentID, classID string) (Summary, error)
	ListClassesByProfessor(ctx context.Context, professorID string) ([]ClassSessions, error)
	ListSummariesByClass(ctx context.Context, classID string) ([]Summary, error)
	ListSummariesByProfessor(ctx context.Context, professorID string) ([]Summary, error)
	ListSummariesByStudent(ctx context.Context, studentID string) ([]Summary, error)
	// ListCheckInTimes returns the instants of the student's present or late events.
	ListCheckInTimes(ctx context.Context, studentID string) ([]time.Time, error)
	GetUsers(ctx context.Context, ids []string) (map[string]User, error)
}

// Store is a transactional attendance store.
type Store interface {
	Reader
	// InTx runs fn in a transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
