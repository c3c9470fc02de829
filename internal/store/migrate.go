package store

import (
	"context"
	"fmt"
)

// schema is applied statement by statement; every statement is idempotent.
// users and classrooms are owned by the account and classroom services; only
// the columns the attendance engine reads are declared here.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS classrooms (
		id           TEXT PRIMARY KEY,
		professor_id TEXT NOT NULL,
		class_name   TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_classrooms_professor ON classrooms (professor_id)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id   TEXT PRIMARY KEY,
		classroom_id TEXT NOT NULL REFERENCES classrooms (id),
		professor_id TEXT NOT NULL,
		session_date DATE NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		expires_at   TIMESTAMPTZ NOT NULL,
		revoked_at   TIMESTAMPTZ,
		CONSTRAINT sessions_expiry_after_creation CHECK (expires_at > created_at)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_classroom ON sessions (classroom_id)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		student_id   TEXT NOT NULL,
		classroom_id TEXT NOT NULL REFERENCES classrooms (id),
		enrolled_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (student_id, classroom_id)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL REFERENCES sessions (session_id),
		student_id  TEXT NOT NULL,
		status      TEXT NOT NULL CHECK (status IN ('present', 'late', 'absent')),
		occurred_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT attendance_session_student_key UNIQUE (session_id, student_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance (student_id, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS attendance_summary (
		student_id     TEXT NOT NULL,
		classroom_id   TEXT NOT NULL REFERENCES classrooms (id),
		present_count  BIGINT NOT NULL DEFAULT 0,
		late_count     BIGINT NOT NULL DEFAULT 0,
		absent_count   BIGINT NOT NULL DEFAULT 0,
		total_sessions BIGINT NOT NULL DEFAULT 0,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (student_id, classroom_id),
		CONSTRAINT attendance_summary_counts CHECK (present_count + late_count + absent_count <= total_sessions)
	)`,
}

// Migrate creates the attendance tables, constraints and indexes.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
