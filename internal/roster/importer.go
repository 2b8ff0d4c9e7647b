package roster

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"attendtrack/internal/archive"
	"attendtrack/internal/attendance"
	"attendtrack/internal/metrics"
)

// StudentStore persists accepted roster rows.
type StudentStore interface {
	ImportStudents(ctx context.Context, students []attendance.Student) ([]attendance.Student, error)
}

// Report summarizes an import.
type Report struct {
	Imported   int        `json:"imported"`
	Errors     []RowError `json:"errors"`
	ArchiveKey string     `json:"archiveKey,omitempty"`
}

// Importer parses an uploaded roster, archives the original file and stores
// the valid rows.
type Importer struct {
	store   StudentStore
	storage archive.Storage
	log     zerolog.Logger
	now     func() time.Time
}

// NewImporter creates an importer. storage may be nil to skip archiving.
func NewImporter(store StudentStore, storage archive.Storage, log zerolog.Logger) *Importer {
	return &Importer{store: store, storage: storage, log: log, now: time.Now}
}

// Import returns ErrNoValidRows, with the row errors in the report, when
// nothing in the file could be imported.
func (im *Importer) Import(ctx context.Context, filename string, body []byte) (Report, error) {
	res, err := Parse(filename, body)
	if err != nil {
		return Report{}, err
	}
	report := Report{Errors: res.Errors}
	if report.Errors == nil {
		report.Errors = []RowError{}
	}
	metrics.RosterRows.WithLabelValues("rejected").Add(float64(len(res.Errors)))
	if len(res.Students) == 0 {
		return report, ErrNoValidRows
	}

	report.ArchiveKey = im.archive(ctx, filename, body)

	stored, err := im.store.ImportStudents(ctx, res.Students)
	if err != nil {
		return Report{}, err
	}
	report.Imported = len(stored)
	metrics.RosterRows.WithLabelValues("imported").Add(float64(len(stored)))
	im.log.Info().
		Str("file", filename).
		Int("imported", report.Imported).
		Int("rejected", len(report.Errors)).
		Str("archive_key", report.ArchiveKey).
		Msg("roster imported")
	return report, nil
}

// archive uploads the original file. Failures are logged and yield an empty key.
func (im *Importer) archive(ctx context.Context, filename string, body []byte) string {
	if im.storage == nil {
		return ""
	}
	key := archive.RosterKey(im.now(), filename)
	if err := im.storage.Upload(ctx, key, body, archive.ContentType(filename)); err != nil {
		im.log.Warn().Err(err).Str("file", filename).Msg("roster archive upload failed")
		return ""
	}
	return key
}
