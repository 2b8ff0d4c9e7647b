package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewStudent is the input for a manual roster addition.
type NewStudent struct {
	StudentID    string `json:"studentId" binding:"required"`
	FirstName    string `json:"firstName" binding:"required"`
	LastName     string `json:"lastName" binding:"required"`
	Class        string `json:"class" binding:"required"`
	GradeLevel   int    `json:"gradeLevel" binding:"gte=0"`
	Email        string `json:"email"`
	ContactPhone string `json:"contactPhone"`
}

// Mark is one entry of a bulk attendance submission.
type Mark struct {
	StudentID string  `json:"studentId" binding:"required"`
	Status    Status  `json:"status" binding:"required"`
	Notes     *string `json:"notes"`
}

// Service coordinates roster lifecycle and attendance marking.
type Service struct {
	repo *Repository
	now  func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// AddStudent validates and stores a manually entered student.
func (s *Service) AddStudent(ctx context.Context, in NewStudent) (Student, error) {
	st := Student{
		StudentID:    strings.TrimSpace(in.StudentID),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Class:        strings.TrimSpace(in.Class),
		GradeLevel:   in.GradeLevel,
		Email:        StringPtr(in.Email),
		ContactPhone: StringPtr(in.ContactPhone),
	}
	if err := validateStudent(st); err != nil {
		return Student{}, err
	}
	st.ID = uuid.NewString()
	return s.repo.CreateStudent(ctx, st)
}

// ImportStudents stores parsed roster rows, assigning each a generated id.
func (s *Service) ImportStudents(ctx context.Context, students []Student) ([]Student, error) {
	for i := range students {
		if err := validateStudent(students[i]); err != nil {
			return nil, err
		}
		students[i].ID = uuid.NewString()
		students[i].DeletedAt = nil
	}
	return s.repo.CreateStudents(ctx, students)
}

func validateStudent(st Student) error {
	switch {
	case st.StudentID == "":
		return ValidationError{Field: "studentId", Message: "is required"}
	case st.FirstName == "":
		return ValidationError{Field: "firstName", Message: "is required"}
	case st.LastName == "":
		return ValidationError{Field: "lastName", Message: "is required"}
	case st.Class == "":
		return ValidationError{Field: "class", Message: "is required"}
	}
	return nil
}

// Roster returns active students, optionally limited to one class.
func (s *Service) Roster(ctx context.Context, class string) ([]Student, error) {
	return s.repo.ListStudents(ctx, StudentFilter{Class: class})
}

// Student returns a student in any state.
func (s *Service) Student(ctx context.Context, id string) (Student, error) {
	return s.repo.GetStudent(ctx, id)
}

// DeleteStudent moves a student to the recycle bin.
func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	return s.repo.SoftDeleteStudent(ctx, id, s.now())
}

// RestoreStudent brings a student back from the recycle bin.
func (s *Service) RestoreStudent(ctx context.Context, id string) error {
	return s.repo.RestoreStudent(ctx, id)
}

// PurgeStudent permanently removes a student and their attendance.
func (s *Service) PurgeStudent(ctx context.Context, id string) error {
	return s.repo.HardDeleteStudent(ctx, id)
}

// RecycleBin lists soft-deleted students.
func (s *Service) RecycleBin(ctx context.Context) ([]Student, error) {
	return s.repo.ListDeleted(ctx)
}

// EmptyRecycleBin permanently removes every soft-deleted student.
func (s *Service) EmptyRecycleBin(ctx context.Context) (int, error) {
	ids, err := s.repo.EmptyRecycleBin(ctx)
	return len(ids), err
}

// MarkAttendance upserts one student's mark for a date.
func (s *Service) MarkAttendance(ctx context.Context, studentID string, date Date, status Status, notes *string) (Record, error) {
	if !status.Valid() {
		return Record{}, ErrInvalidStatus
	}
	st, err := s.repo.GetStudent(ctx, studentID)
	if err != nil {
		return Record{}, err
	}
	if !st.Active() {
		return Record{}, ErrNotFound
	}
	return s.repo.UpsertRecord(ctx, Record{StudentID: studentID, Date: date, Status: status, Notes: notes})
}

// MarkClass upserts a batch of marks for one date. Every mark is checked
// before anything is written.
func (s *Service) MarkClass(ctx context.Context, date Date, marks []Mark) ([]Record, error) {
	if len(marks) == 0 {
		return []Record{}, nil
	}
	ids := make([]string, 0, len(marks))
	for _, m := range marks {
		if !m.Status.Valid() {
			return nil, ValidationError{Field: "status", Message: "invalid value " + string(m.Status) + " for student " + m.StudentID}
		}
		ids = append(ids, m.StudentID)
	}
	active, err := s.repo.StudentsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(active))
	for _, st := range active {
		known[st.ID] = true
	}
	recs := make([]Record, 0, len(marks))
	for _, m := range marks {
		if !known[m.StudentID] {
			return nil, fmt.Errorf("%w: %s is not an active student", ErrNotFound, m.StudentID)
		}
		recs = append(recs, Record{StudentID: m.StudentID, Date: date, Status: m.Status, Notes: m.Notes})
	}
	return s.repo.UpsertRecords(ctx, recs)
}

// AttendanceOn returns all marks for a date.
func (s *Service) AttendanceOn(ctx context.Context, date Date) ([]Record, error) {
	return s.repo.RecordsOn(ctx, date)
}
