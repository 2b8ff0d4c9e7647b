package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const studentColumns = `id, student_id, first_name, last_name, class, grade_level, email, contact_phone, deleted_at, created_at`

// Repository persists students, attendance and the notification audit trail.
// Queries are written with ? placeholders and rebound for the active driver.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) q(query string) string { return r.db.Rebind(query) }

// CreateStudent inserts one student.
func (r *Repository) CreateStudent(ctx context.Context, s Student) (Student, error) {
	out, err := r.createStudents(ctx, []Student{s})
	if err != nil {
		return Student{}, err
	}
	return out[0], nil
}

// CreateStudents inserts students in a single transaction.
func (r *Repository) CreateStudents(ctx context.Context, students []Student) ([]Student, error) {
	return r.createStudents(ctx, students)
}

func (r *Repository) createStudents(ctx context.Context, students []Student) ([]Student, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin create students")
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	query := tx.Rebind(`
		INSERT INTO students (` + studentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	out := make([]Student, 0, len(students))
	for _, s := range students {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if _, err := tx.ExecContext(ctx, query,
			s.ID, s.StudentID, s.FirstName, s.LastName, s.Class, s.GradeLevel,
			s.Email, s.ContactPhone, s.DeletedAt, s.CreatedAt,
		); err != nil {
			return nil, errors.Wrapf(err, "insert student %s", s.StudentID)
		}
		out = append(out, s)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit create students")
	}
	return out, nil
}

// GetStudent returns a student by id whether active or soft-deleted.
func (r *Repository) GetStudent(ctx context.Context, id string) (Student, error) {
	var s Student
	err := r.db.GetContext(ctx, &s, r.q(`SELECT `+studentColumns+` FROM students WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, errors.Wrap(err, "get student")
	}
	return s, nil
}

// StudentFilter narrows the active roster.
type StudentFilter struct {
	Class string
}

// ListStudents returns the active roster.
func (r *Repository) ListStudents(ctx context.Context, f StudentFilter) ([]Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE deleted_at IS NULL`
	args := []any{}
	if f.Class != "" {
		query += ` AND class = ?`
		args = append(args, f.Class)
	}
	query += ` ORDER BY class, last_name, first_name`

	students := []Student{}
	if err := r.db.SelectContext(ctx, &students, r.q(query), args...); err != nil {
		return nil, errors.Wrap(err, "list students")
	}
	return students, nil
}

// ActiveStudents is ListStudents without a filter.
func (r *Repository) ActiveStudents(ctx context.Context) ([]Student, error) {
	return r.ListStudents(ctx, StudentFilter{})
}

// ListDeleted returns the recycle bin, most recently deleted first.
func (r *Repository) ListDeleted(ctx context.Context) ([]Student, error) {
	students := []Student{}
	err := r.db.SelectContext(ctx, &students, `
		SELECT `+studentColumns+` FROM students
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list deleted students")
	}
	return students, nil
}

// StudentsByIDs returns the active students among ids. Unknown or deleted ids are skipped.
func (r *Repository) StudentsByIDs(ctx context.Context, ids []string) ([]Student, error) {
	if len(ids) == 0 {
		return []Student{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+studentColumns+` FROM students WHERE deleted_at IS NULL AND id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "build students by ids")
	}
	students := []Student{}
	if err := r.db.SelectContext(ctx, &students, r.q(query), args...); err != nil {
		return nil, errors.Wrap(err, "students by ids")
	}
	return students, nil
}

// SoftDeleteStudent moves an active student to the recycle bin.
func (r *Repository) SoftDeleteStudent(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE students SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`), at.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "soft delete student")
	}
	return expectOne(res)
}

// RestoreStudent takes a student out of the recycle bin.
func (r *Repository) RestoreStudent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE students SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL`), id)
	if err != nil {
		return errors.Wrap(err, "restore student")
	}
	return expectOne(res)
}

// HardDeleteStudent removes the student's attendance, then the student.
// The two statements are not atomic: a failure in between leaves the student without attendance.
func (r *Repository) HardDeleteStudent(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, r.q(`DELETE FROM attendance_records WHERE student_id = ?`), id); err != nil {
		return errors.Wrap(err, "delete attendance for student")
	}
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM students WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "delete student")
	}
	return expectOne(res)
}

// EmptyRecycleBin hard-deletes every soft-deleted student and returns their ids.
func (r *Repository) EmptyRecycleBin(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM students WHERE deleted_at IS NOT NULL`); err != nil {
		return nil, errors.Wrap(err, "list recycle bin")
	}
	return r.hardDeleteAll(ctx, ids)
}

// PurgeDeletedBefore hard-deletes students soft-deleted before cutoff.
func (r *Repository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, r.q(`SELECT id FROM students WHERE deleted_at IS NOT NULL AND deleted_at < ?`), cutoff.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "list expired students")
	}
	return r.hardDeleteAll(ctx, ids)
}

func (r *Repository) hardDeleteAll(ctx context.Context, ids []string) ([]string, error) {
	purged := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := r.HardDeleteStudent(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return purged, err
		}
		purged = append(purged, id)
	}
	return purged, nil
}

const upsertRecord = `
	INSERT INTO attendance_records (id, student_id, date, status, notes)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (student_id, date) DO UPDATE SET status = excluded.status, notes = excluded.notes
	RETURNING id
`

// UpsertRecord stores the mark for (student, date), replacing any earlier one.
func (r *Repository) UpsertRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := r.db.QueryRowxContext(ctx, r.q(upsertRecord),
		rec.ID, rec.StudentID, rec.Date, rec.Status, rec.Notes,
	).Scan(&rec.ID); err != nil {
		return Record{}, errors.Wrap(err, "upsert attendance")
	}
	return rec, nil
}

// UpsertRecords stores many marks in one transaction.
func (r *Repository) UpsertRecords(ctx context.Context, recs []Record) ([]Record, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin upsert attendance")
	}
	defer func() { _ = tx.Rollback() }()

	query := tx.Rebind(upsertRecord)
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if err := tx.QueryRowxContext(ctx, query,
			rec.ID, rec.StudentID, rec.Date, rec.Status, rec.Notes,
		).Scan(&rec.ID); err != nil {
			return nil, errors.Wrapf(err, "upsert attendance for %s", rec.StudentID)
		}
		out = append(out, rec)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit upsert attendance")
	}
	return out, nil
}

// RecordsOn returns the marks of active students for one date.
func (r *Repository) RecordsOn(ctx context.Context, date Date) ([]Record, error) {
	recs := []Record{}
	err := r.db.SelectContext(ctx, &recs, r.q(`
		SELECT a.id, a.student_id, a.date, a.status, a.notes
		FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		WHERE a.date = ? AND s.deleted_at IS NULL
		ORDER BY s.class, s.last_name, s.first_name
	`), date)
	if err != nil {
		return nil, errors.Wrap(err, "records on date")
	}
	return recs, nil
}

// RecordsBetween returns active students' marks in [from, to], grouped by
// student and most recent first within each student.
func (r *Repository) RecordsBetween(ctx context.Context, from, to Date) ([]Record, error) {
	recs := []Record{}
	err := r.db.SelectContext(ctx, &recs, r.q(`
		SELECT a.id, a.student_id, a.date, a.status, a.notes
		FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		WHERE a.date >= ? AND a.date <= ? AND s.deleted_at IS NULL
		ORDER BY a.student_id, a.date DESC
	`), from, to)
	if err != nil {
		return nil, errors.Wrap(err, "records between dates")
	}
	return recs, nil
}

// StudentRecords returns one student's marks in [from, to], most recent first.
func (r *Repository) StudentRecords(ctx context.Context, studentID string, from, to Date) ([]Record, error) {
	recs := []Record{}
	err := r.db.SelectContext(ctx, &recs, r.q(`
		SELECT id, student_id, date, status, notes
		FROM attendance_records
		WHERE student_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC
	`), studentID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "student records")
	}
	return recs, nil
}

// Tallies counts every active student's all-time records.
func (r *Repository) Tallies(ctx context.Context) ([]Tally, error) {
	tallies := []Tally{}
	err := r.db.SelectContext(ctx, &tallies, `
		SELECT a.student_id,
			SUM(CASE WHEN a.status IN ('present', 'late') THEN 1 ELSE 0 END) AS present_or_late,
			COUNT(*) AS total
		FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		WHERE s.deleted_at IS NULL
		GROUP BY a.student_id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "attendance tallies")
	}
	return tallies, nil
}

// DistinctDates counts the days that have any attendance recorded.
func (r *Repository) DistinctDates(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(DISTINCT date) FROM attendance_records`); err != nil {
		return 0, errors.Wrap(err, "distinct attendance dates")
	}
	return n, nil
}

// LogNotification appends to the notification audit trail.
func (r *Repository) LogNotification(ctx context.Context, entry NotificationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.NotifiedAt.IsZero() {
		entry.NotifiedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO attendance_notifications (id, student_id, notification_type, notification_date, message, success)
		VALUES (?, ?, ?, ?, ?, ?)
	`), entry.ID, entry.StudentID, entry.Type, entry.NotifiedAt.UTC(), entry.Message, entry.Success)
	return errors.Wrap(err, "log notification")
}

// ListNotifications returns audit rows newest first. An empty studentID lists all.
func (r *Repository) ListNotifications(ctx context.Context, studentID string, limit int) ([]NotificationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, student_id, notification_type, notification_date, message, success FROM attendance_notifications`
	args := []any{}
	if studentID != "" {
		query += ` WHERE student_id = ?`
		args = append(args, studentID)
	}
	query += ` ORDER BY notification_date DESC LIMIT ?`
	args = append(args, limit)

	logs := []NotificationLog{}
	if err := r.db.SelectContext(ctx, &logs, r.q(query), args...); err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	return logs, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
