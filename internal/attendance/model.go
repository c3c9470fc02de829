package attendance

import (
	"strings"
	"time"
)

// Status is the recorded outcome of a check-in.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent:
		return true
	}
	return false
}

// Qualifies reports whether the status counts towards a streak.
func (s Status) Qualifies() bool {
	return s == StatusPresent || s == StatusLate
}

// Class is the slice of a classroom the attendance engine needs.
type Class struct {
	ID          string
	ProfessorID string
	Name        string
}

// RoleStudent is the users.role value of students.
const RoleStudent = "student"

// User is a registered person as seen by the analytics read paths.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Role      string
}

// Name joins first and last name.
func (u User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Session is a minted check-in session for one class occurrence.
type Session struct {
	ID          string
	ClassID     string
	ProfessorID string
	Date        string // YYYY-MM-DD in the service time zone
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
}

// Event is one row of the append-only check-in log.
type Event struct {
	ID        string
	SessionID string
	StudentID string
	Status    Status
	When      time.Time
}

// Summary holds the running counters for one (student, class) pair.
type Summary struct {
	StudentID     string
	ClassID       string
	PresentCount  int64
	LateCount     int64
	AbsentCount   int64
	TotalSessions int64
	UpdatedAt     time.Time
}

// Attended counts sessions with a present or late event.
func (s Summary) Attended() int64 {
	return s.PresentCount + s.LateCount
}

// Rate is the weighted attendance percentage of the row.
func (s Summary) Rate(lateWeight float64) float64 {
	return Rate(s.PresentCount, s.LateCount, s.TotalSessions, lateWeight)
}

// ClassSessions pairs a class with the number of sessions minted for it.
type ClassSessions struct {
	Class
	SessionsCount int64
}
