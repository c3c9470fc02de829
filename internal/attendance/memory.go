package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a map-backed Store for dev/testing. Transactions run one at a
// time under a single mutex against a copy of the state that is swapped in on
// commit, so a failed transaction leaves nothing behind.
type Memory struct {
	mu    sync.Mutex
	state *memState
}

type pairKey struct {
	studentID string
	classID   string
}

type eventKey struct {
	sessionID string
	studentID string
}

type memState struct {
	users       map[string]User
	classes     map[string]Class
	sessions    map[string]Session
	enrollments map[pairKey]time.Time
	summaries   map[pairKey]Summary
	events      []Event
	eventIndex  map[eventKey]int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: &memState{
		users:       make(map[string]User),
		classes:     make(map[string]Class),
		sessions:    make(map[string]Session),
		enrollments: make(map[pairKey]time.Time),
		summaries:   make(map[pairKey]Summary),
		eventIndex:  make(map[eventKey]int),
	}}
}

func (s *memState) clone() *memState {
	out := &memState{
		users:       make(map[string]User, len(s.users)),
		classes:     make(map[string]Class, len(s.classes)),
		sessions:    make(map[string]Session, len(s.sessions)),
		enrollments: make(map[pairKey]time.Time, len(s.enrollments)),
		summaries:   make(map[pairKey]Summary, len(s.summaries)),
		events:      make([]Event, len(s.events)),
		eventIndex:  make(map[eventKey]int, len(s.eventIndex)),
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.classes {
		out.classes[k] = v
	}
	for k, v := range s.sessions {
		out.sessions[k] = v
	}
	for k, v := range s.enrollments {
		out.enrollments[k] = v
	}
	for k, v := range s.summaries {
		out.summaries[k] = v
	}
	copy(out.events, s.events)
	for k, v := range s.eventIndex {
		out.eventIndex[k] = v
	}
	return out
}

// UpsertUser stores a user for the analytics joins.
func (m *Memory) UpsertUser(_ context.Context, u User) error {
	if u.ID == "" {
		return errors.New("user id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.users[u.ID] = u
	return nil
}

// UpsertClass stores a classroom.
func (m *Memory) UpsertClass(_ context.Context, c Class) error {
	if c.ID == "" || c.ProfessorID == "" {
		return errors.New("class id and professor id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.classes[c.ID] = c
	return nil
}

// InTx runs fn against a private copy of the state and commits it on success.
func (m *Memory) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(&memTx{s: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// Events returns a copy of the event log.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.state.events))
	copy(out, m.state.events)
	return out
}

// CountSessions returns the number of sessions minted for the class.
func (m *Memory) CountSessions(classID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.countSessions(classID)
}

func (s *memState) countSessions(classID string) int64 {
	var n int64
	for _, sess := range s.sessions {
		if sess.ClassID == classID {
			n++
		}
	}
	return n
}

func (m *Memory) GetSession(_ context.Context, sessionID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.state.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *Memory) GetClass(_ context.Context, classID string) (Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.classes[classID]
	if !ok {
		return Class{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) GetSummary(_ context.Context, studentID, classID string) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.state.summaries[pairKey{studentID, classID}]
	if !ok {
		return Summary{}, ErrNotFound
	}
	return row, nil
}

func (m *Memory) ListClassesByProfessor(_ context.Context, professorID string) ([]ClassSessions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []ClassSessions
	for _, c := range m.state.classes {
		if c.ProfessorID != professorID {
			continue
		}
		res = append(res, ClassSessions{Class: c, SessionsCount: m.state.countSessions(c.ID)})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Name != res[j].Name {
			return res[i].Name < res[j].Name
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (m *Memory) ListSummariesByClass(_ context.Context, classID string) ([]Summary, error) {
	return m.filterSummaries(func(s Summary) bool { return s.ClassID == classID }), nil
}

func (m *Memory) ListSummariesByProfessor(_ context.Context, professorID string) ([]Summary, error) {
	m.mu.Lock()
	owned := make(map[string]bool)
	for _, c := range m.state.classes {
		if c.ProfessorID == professorID {
			owned[c.ID] = true
		}
	}
	m.mu.Unlock()
	return m.filterSummaries(func(s Summary) bool { return owned[s.ClassID] }), nil
}

func (m *Memory) ListSummariesByStudent(_ context.Context, studentID string) ([]Summary, error) {
	return m.filterSummaries(func(s Summary) bool { return s.StudentID == studentID }), nil
}

func (m *Memory) filterSummaries(keep func(Summary) bool) []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Summary
	for _, s := range m.state.summaries {
		if keep(s) {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].ClassID != res[j].ClassID {
			return res[i].ClassID < res[j].ClassID
		}
		return res[i].StudentID < res[j].StudentID
	})
	return res
}

func (m *Memory) ListCheckInTimes(_ context.Context, studentID string) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []time.Time
	for _, e := range m.state.events {
		if e.StudentID == studentID && e.Status.Qualifies() {
			res = append(res, e.When)
		}
	}
	return res, nil
}

func (m *Memory) GetUsers(_ context.Context, ids []string) (map[string]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make(map[string]User, len(ids))
	for _, id := range ids {
		if u, ok := m.state.users[id]; ok {
			res[id] = u
		}
	}
	return res, nil
}

// memTx applies mutations to a transaction-private state copy. Lock flags are
// meaningless here because InTx already serializes transactions.
type memTx struct {
	s *memState
}

func (t *memTx) LockClass(_ context.Context, classID string, _ bool) (Class, error) {
	c, ok := t.s.classes[classID]
	if !ok {
		return Class{}, ErrNotFound
	}
	return c, nil
}

func (t *memTx) LockSession(_ context.Context, sessionID string, _ bool) (Session, error) {
	sess, ok := t.s.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (t *memTx) InsertSession(_ context.Context, sess Session) error {
	if _, ok := t.s.sessions[sess.ID]; ok {
		return fmt.Errorf("insert session: duplicate id %q", sess.ID)
	}
	if _, ok := t.s.classes[sess.ClassID]; !ok {
		return fmt.Errorf("insert session: %w", ErrNotFound)
	}
	if !sess.ExpiresAt.After(sess.CreatedAt) {
		return errors.New("insert session: expiry must be after creation")
	}
	t.s.sessions[sess.ID] = sess
	return nil
}

func (t *memTx) MarkSessionRevoked(_ context.Context, sessionID string, at time.Time) error {
	sess, ok := t.s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if sess.RevokedAt != nil {
		return ErrSessionTerminal
	}
	sess.RevokedAt = &at
	t.s.sessions[sessionID] = sess
	return nil
}

func (t *memTx) EnsureEnrollment(_ context.Context, studentID, classID string, at time.Time) (bool, error) {
	key := pairKey{studentID, classID}
	if _, ok := t.s.enrollments[key]; ok {
		return false, nil
	}
	t.s.enrollments[key] = at
	return true, nil
}

func (t *memTx) EnsureSummary(_ context.Context, studentID, classID string, at time.Time) error {
	key := pairKey{studentID, classID}
	if _, ok := t.s.summaries[key]; ok {
		return nil
	}
	t.s.summaries[key] = Summary{
		StudentID:     studentID,
		ClassID:       classID,
		TotalSessions: t.s.countSessions(classID),
		UpdatedAt:     at,
	}
	return nil
}

func (t *memTx) IncrementTotalSessions(_ context.Context, classID string, at time.Time) (int64, error) {
	var n int64
	for key, row := range t.s.summaries {
		if row.ClassID != classID {
			continue
		}
		row.TotalSessions++
		row.UpdatedAt = at
		t.s.summaries[key] = row
		n++
	}
	return n, nil
}

func (t *memTx) InsertEvent(_ context.Context, e Event) error {
	if _, ok := t.s.sessions[e.SessionID]; !ok {
		return fmt.Errorf("insert event: %w", ErrNotFound)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("insert event: unknown status %q", e.Status)
	}
	key := eventKey{e.SessionID, e.StudentID}
	if _, ok := t.s.eventIndex[key]; ok {
		return ErrDuplicateCheckIn
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	t.s.eventIndex[key] = len(t.s.events)
	t.s.events = append(t.s.events, e)
	return nil
}

func (t *memTx) IncrementStatus(_ context.Context, studentID, classID string, status Status, at time.Time) error {
	key := pairKey{studentID, classID}
	row, ok := t.s.summaries[key]
	if !ok {
		return fmt.Errorf("increment %s: %w", status, ErrNotFound)
	}
	switch status {
	case StatusPresent:
		row.PresentCount++
	case StatusLate:
		row.LateCount++
	case StatusAbsent:
		row.AbsentCount++
	default:
		return fmt.Errorf("increment status: unknown status %q", status)
	}
	row.UpdatedAt = at
	t.s.summaries[key] = row
	return nil
}
