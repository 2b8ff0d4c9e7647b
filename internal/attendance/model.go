package attendance

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

// Status is the attendance mark for one student on one day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// Valid returns true when the status is a supported value.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	default:
		return false
	}
}

// Attended reports whether the status counts towards the attendance rate.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

// ParseStatus normalises and validates a status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Date is a calendar day at UTC midnight.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day, read in t's own location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(DateLayout) }

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date { return Date{d.Time.AddDate(0, 0, n)} }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan accepts the shapes drivers hand back for a DATE column.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v.UTC())
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) >= len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as YYYY-MM-DD.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Student is a roster entry. DeletedAt set means the student sits in the recycle bin.
type Student struct {
	ID           string     `db:"id" json:"id"`
	StudentID    string     `db:"student_id" json:"studentId"`
	FirstName    string     `db:"first_name" json:"firstName"`
	LastName     string     `db:"last_name" json:"lastName"`
	Class        string     `db:"class" json:"class"`
	GradeLevel   int        `db:"grade_level" json:"gradeLevel"`
	Email        *string    `db:"email" json:"email,omitempty"`
	ContactPhone *string    `db:"contact_phone" json:"contactPhone,omitempty"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

func (s Student) Active() bool { return s.DeletedAt == nil }

// Phone returns the contact phone, or "" when none is on file.
func (s Student) Phone() string {
	if s.ContactPhone == nil {
		return ""
	}
	return strings.TrimSpace(*s.ContactPhone)
}

// EmailAddress returns the email, or "" when none is on file.
func (s Student) EmailAddress() string {
	if s.Email == nil {
		return ""
	}
	return strings.TrimSpace(*s.Email)
}

// Record is one student's mark for one day.
type Record struct {
	ID        string  `db:"id" json:"id"`
	StudentID string  `db:"student_id" json:"studentId"`
	Date      Date    `db:"date" json:"date"`
	Status    Status  `db:"status" json:"status"`
	Notes     *string `db:"notes" json:"notes,omitempty"`
}

// Tally counts a student's all-time records.
type Tally struct {
	StudentID     string `db:"student_id"`
	PresentOrLate int    `db:"present_or_late"`
	Total         int    `db:"total"`
}

// NotificationLog is one audit row written after a dispatch attempt.
type NotificationLog struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"studentId"`
	Type       string    `db:"notification_type" json:"notificationType"`
	NotifiedAt time.Time `db:"notification_date" json:"notificationDate"`
	Message    string    `db:"message" json:"message"`
	Success    bool      `db:"success" json:"success"`
}

// StringPtr returns nil for blank input.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
