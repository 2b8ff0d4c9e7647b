package store

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id            TEXT PRIMARY KEY,
		student_id    TEXT NOT NULL,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		class         TEXT NOT NULL,
		grade_level   INTEGER NOT NULL,
		email         TEXT,
		contact_phone TEXT,
		deleted_at    TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_deleted_at ON students (deleted_at)`,
	`CREATE INDEX IF NOT EXISTS idx_students_class ON students (class)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id         TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students (id),
		date       DATE NOT NULL,
		status     TEXT NOT NULL CHECK (status IN ('present', 'absent', 'late', 'excused')),
		notes      TEXT,
		UNIQUE (student_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_records_date ON attendance_records (date)`,
	`CREATE TABLE IF NOT EXISTS attendance_notifications (
		id                TEXT PRIMARY KEY,
		student_id        TEXT NOT NULL,
		notification_type TEXT NOT NULL,
		notification_date TIMESTAMPTZ NOT NULL,
		message           TEXT NOT NULL,
		success           BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_notifications_student ON attendance_notifications (student_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id            TEXT PRIMARY KEY,
		student_id    TEXT NOT NULL,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		class         TEXT NOT NULL,
		grade_level   INTEGER NOT NULL,
		email         TEXT,
		contact_phone TEXT,
		deleted_at    TIMESTAMP,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_deleted_at ON students (deleted_at)`,
	`CREATE INDEX IF NOT EXISTS idx_students_class ON students (class)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id         TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students (id),
		date       DATE NOT NULL,
		status     TEXT NOT NULL CHECK (status IN ('present', 'absent', 'late', 'excused')),
		notes      TEXT,
		UNIQUE (student_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_records_date ON attendance_records (date)`,
	`CREATE TABLE IF NOT EXISTS attendance_notifications (
		id                TEXT PRIMARY KEY,
		student_id        TEXT NOT NULL,
		notification_type TEXT NOT NULL,
		notification_date TIMESTAMP NOT NULL,
		message           TEXT NOT NULL,
		success           BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_notifications_student ON attendance_notifications (student_id)`,
}

// Migrate creates the tables the service needs when they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := postgresSchema
	if db.DriverName() == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}
