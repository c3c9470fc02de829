package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InTx runs fn inside a READ COMMITTED transaction. Row locks taken by the
// Tx methods plus atomic increments give the required isolation.
func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&pgTx{q: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpsertUser ensures a user record exists for the analytics joins.
func (r *Repository) UpsertUser(ctx context.Context, u User) error {
	if u.ID == "" {
		return errors.New("user id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			role = EXCLUDED.role
	`, u.ID, u.FirstName, u.LastName, u.Role)
	return err
}

// UpsertClass ensures a classroom record exists.
func (r *Repository) UpsertClass(ctx context.Context, c Class) error {
	if c.ID == "" || c.ProfessorID == "" {
		return errors.New("class id and professor id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO classrooms (id, professor_id, class_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			professor_id = EXCLUDED.professor_id,
			class_name = EXCLUDED.class_name
	`, c.ID, c.ProfessorID, c.Name)
	return err
}

// GetSession returns a single session by id.
func (r *Repository) GetSession(ctx context.Context, sessionID string) (Session, error) {
	return getSession(ctx, r.db, sessionID, "")
}

// GetClass returns a single class by id.
func (r *Repository) GetClass(ctx context.Context, classID string) (Class, error) {
	return getClass(ctx, r.db, classID, "")
}

// GetSummary returns the summary row for the pair.
func (r *Repository) GetSummary(ctx context.Context, studentID, classID string) (Summary, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+summaryColumns+`
		FROM attendance_summary
		WHERE student_id = $1 AND classroom_id = $2
	`, studentID, classID)
	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, ErrNotFound
	}
	return s, err
}

// ListClassesByProfessor returns the professor's classes with their session counts.
func (r *Repository) ListClassesByProfessor(ctx context.Context, professorID string) ([]ClassSessions, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.professor_id, c.class_name,
			(SELECT COUNT(*) FROM sessions s WHERE s.classroom_id = c.id)
		FROM classrooms c
		WHERE c.professor_id = $1
		ORDER BY c.class_name, c.id
	`, professorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ClassSessions
	for rows.Next() {
		var cs ClassSessions
		if err := rows.Scan(&cs.ID, &cs.ProfessorID, &cs.Name, &cs.SessionsCount); err != nil {
			return nil, err
		}
		res = append(res, cs)
	}
	return res, rows.Err()
}

// ListSummariesByClass returns every summary row of the class.
func (r *Repository) ListSummariesByClass(ctx context.Context, classID string) ([]Summary, error) {
	return r.listSummaries(ctx, `WHERE classroom_id = $1`, classID)
}

// ListSummariesByProfessor returns the summary rows of all classes the professor owns.
func (r *Repository) ListSummariesByProfessor(ctx context.Context, professorID string) ([]Summary, error) {
	return r.listSummaries(ctx, `WHERE classroom_id IN (SELECT id FROM classrooms WHERE professor_id = $1)`, professorID)
}

// ListSummariesByStudent returns the student's summary rows across classes.
func (r *Repository) ListSummariesByStudent(ctx context.Context, studentID string) ([]Summary, error) {
	return r.listSummaries(ctx, `WHERE student_id = $1`, studentID)
}

func (r *Repository) listSummaries(ctx context.Context, where string, arg string) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+summaryColumns+` FROM attendance_summary `+where+` ORDER BY classroom_id, student_id`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ListCheckInTimes returns timestamps of the student's qualifying events.
func (r *Repository) ListCheckInTimes(ctx context.Context, studentID string) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT occurred_at FROM attendance
		WHERE student_id = $1 AND status IN ('present', 'late')
		ORDER BY occurred_at
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// GetUsers returns the users found among ids.
func (r *Repository) GetUsers(ctx context.Context, ids []string) (map[string]User, error) {
	res := make(map[string]User, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	args := make([]any, len(ids))
	query := `SELECT id, first_name, last_name, role FROM users WHERE id IN (`
	for i, id := range ids {
		if i > 0 {
			query += ", "
		}
		query += "$" + strconv.Itoa(i+1)
		args[i] = id
	}
	query += ")"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Role); err != nil {
			return nil, err
		}
		res[u.ID] = u
	}
	return res, rows.Err()
}

// pgTx implements Tx on a database/sql transaction.
type pgTx struct {
	q queryer
}

func lockClause(exclusive bool) string {
	if exclusive {
		return " FOR UPDATE"
	}
	return " FOR SHARE"
}

func (t *pgTx) LockClass(ctx context.Context, classID string, exclusive bool) (Class, error) {
	return getClass(ctx, t.q, classID, lockClause(exclusive))
}

func (t *pgTx) LockSession(ctx context.Context, sessionID string, exclusive bool) (Session, error) {
	return getSession(ctx, t.q, sessionID, lockClause(exclusive))
}

func (t *pgTx) InsertSession(ctx context.Context, s Session) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO sessions (session_id, classroom_id, professor_id, session_date, created_at, expires_at)
		VALUES ($1, $2, $3, $4::date, $5, $6)
	`, s.ID, s.ClassID, s.ProfessorID, s.Date, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (t *pgTx) MarkSessionRevoked(ctx context.Context, sessionID string, at time.Time) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = $2
		WHERE session_id = $1 AND revoked_at IS NULL
	`, sessionID, at)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionTerminal
	}
	return nil
}

func (t *pgTx) EnsureEnrollment(ctx context.Context, studentID, classID string, at time.Time) (bool, error) {
	res, err := t.q.ExecContext(ctx, `
		INSERT INTO enrollments (student_id, classroom_id, enrolled_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id, classroom_id) DO NOTHING
	`, studentID, classID, at)
	if err != nil {
		return false, fmt.Errorf("ensure enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *pgTx) EnsureSummary(ctx context.Context, studentID, classID string, at time.Time) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO attendance_summary (student_id, classroom_id, total_sessions, updated_at)
		SELECT $1::text, $2::text, COUNT(*), $3::timestamptz FROM sessions WHERE classroom_id = $2
		ON CONFLICT (student_id, classroom_id) DO NOTHING
	`, studentID, classID, at)
	if err != nil {
		return fmt.Errorf("ensure summary: %w", err)
	}
	return nil
}

func (t *pgTx) IncrementTotalSessions(ctx context.Context, classID string, at time.Time) (int64, error) {
	res, err := t.q.ExecContext(ctx, `
		UPDATE attendance_summary
		SET total_sessions = total_sessions + 1, updated_at = $2
		WHERE classroom_id = $1
	`, classID, at)
	if err != nil {
		return 0, fmt.Errorf("increment total sessions: %w", err)
	}
	return res.RowsAffected()
}

func (t *pgTx) InsertEvent(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO attendance (id, session_id, student_id, status, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.SessionID, e.StudentID, string(e.Status), e.When)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateCheckIn
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (t *pgTx) IncrementStatus(ctx context.Context, studentID, classID string, status Status, at time.Time) error {
	var column string
	switch status {
	case StatusPresent:
		column = "present_count"
	case StatusLate:
		column = "late_count"
	case StatusAbsent:
		column = "absent_count"
	default:
		return fmt.Errorf("increment status: unknown status %q", status)
	}
	res, err := t.q.ExecContext(ctx, `
		UPDATE attendance_summary
		SET `+column+` = `+column+` + 1, updated_at = $3
		WHERE student_id = $1 AND classroom_id = $2
	`, studentID, classID, at)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("increment %s: %w", column, ErrNotFound)
	}
	return nil
}

const sessionColumns = `session_id, classroom_id, professor_id, to_char(session_date, 'YYYY-MM-DD'), created_at, expires_at, revoked_at`

func getSession(ctx context.Context, q queryer, sessionID, lock string) (Session, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1`+lock, sessionID)
	var s Session
	var revoked sql.NullTime
	if err := row.Scan(&s.ID, &s.ClassID, &s.ProfessorID, &s.Date, &s.CreatedAt, &s.ExpiresAt, &revoked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	if revoked.Valid {
		at := revoked.Time
		s.RevokedAt = &at
	}
	return s, nil
}

func getClass(ctx context.Context, q queryer, classID, lock string) (Class, error) {
	row := q.QueryRowContext(ctx, `SELECT id, professor_id, class_name FROM classrooms WHERE id = $1`+lock, classID)
	var c Class
	if err := row.Scan(&c.ID, &c.ProfessorID, &c.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Class{}, ErrNotFound
		}
		return Class{}, err
	}
	return c, nil
}

const summaryColumns = `student_id, classroom_id, present_count, late_count, absent_count, total_sessions, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (Summary, error) {
	var s Summary
	err := row.Scan(&s.StudentID, &s.ClassID, &s.PresentCount, &s.LateCount, &s.AbsentCount, &s.TotalSessions, &s.UpdatedAt)
	return s, err
}
