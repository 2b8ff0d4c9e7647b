package analytics

import (
	"context"
	"sort"
	"time"

	"attendtrack/internal/attendance"
)

// Source is the read side of the attendance store.
type Source interface {
	ActiveStudents(ctx context.Context) ([]attendance.Student, error)
	GetStudent(ctx context.Context, id string) (attendance.Student, error)
	RecordsOn(ctx context.Context, date attendance.Date) ([]attendance.Record, error)
	RecordsBetween(ctx context.Context, from, to attendance.Date) ([]attendance.Record, error)
	StudentRecords(ctx context.Context, studentID string, from, to attendance.Date) ([]attendance.Record, error)
	Tallies(ctx context.Context) ([]attendance.Tally, error)
	DistinctDates(ctx context.Context) (int, error)
}

// AttendanceSummary counts a date's marks. Total is the active roster size,
// so students without a mark are simply not in any bucket.
type AttendanceSummary struct {
	Date    attendance.Date `json:"date"`
	Present int             `json:"present"`
	Absent  int             `json:"absent"`
	Late    int             `json:"late"`
	Excused int             `json:"excused"`
	Total   int             `json:"total"`
}

// ClassSummary aggregates one class label.
type ClassSummary struct {
	ClassName            string  `json:"className"`
	TotalStudents        int     `json:"totalStudents"`
	PresentCount         int     `json:"presentCount"`
	PresentOrLateAllTime int     `json:"presentOrLateAllTime"`
	TotalRecords         int     `json:"totalRecords"`
	AttendanceRate       float64 `json:"attendanceRate"`
}

// Trend is a student's trailing-window summary.
type Trend struct {
	StudentID           string  `json:"studentId"`
	Name                string  `json:"name"`
	Class               string  `json:"class"`
	Present             int     `json:"present"`
	Absent              int     `json:"absent"`
	Late                int     `json:"late"`
	Excused             int     `json:"excused"`
	TotalRecords        int     `json:"totalRecords"`
	AbsenceRate         float64 `json:"absenceRate"`
	ConsecutiveAbsences int     `json:"consecutiveAbsences"`
	CurrentStreak       int     `json:"currentStreak"`
	NeedsAttention      bool    `json:"needsAttention"`
}

// Dashboard is the landing page rollup.
type Dashboard struct {
	TotalStudents    int               `json:"totalStudents"`
	Classes          int               `json:"classes"`
	Today            AttendanceSummary `json:"today"`
	TodayRate        float64           `json:"todayRate"`
	TotalPresences   int               `json:"totalPresences"`
	NeedingAttention int               `json:"needingAttention"`
}

// Service computes read-only aggregates. It never dispatches notifications.
type Service struct {
	src Source
	now func() time.Time
}

// NewService creates an analytics service.
func NewService(src Source) *Service {
	return &Service{src: src, now: time.Now}
}

func (s *Service) today() attendance.Date {
	return attendance.NewDate(s.now())
}

// Window returns the trailing trend window ending today, inclusive.
func (s *Service) Window() (attendance.Date, attendance.Date) {
	to := s.today()
	return to.AddDays(-(WindowDays - 1)), to
}

// Summary counts the marks recorded on date.
func (s *Service) Summary(ctx context.Context, date attendance.Date) (AttendanceSummary, error) {
	students, err := s.src.ActiveStudents(ctx)
	if err != nil {
		return AttendanceSummary{}, err
	}
	recs, err := s.src.RecordsOn(ctx, date)
	if err != nil {
		return AttendanceSummary{}, err
	}
	sum := AttendanceSummary{Date: date, Total: len(students)}
	for _, r := range recs {
		switch r.Status {
		case attendance.StatusPresent:
			sum.Present++
		case attendance.StatusAbsent:
			sum.Absent++
		case attendance.StatusLate:
			sum.Late++
		case attendance.StatusExcused:
			sum.Excused++
		}
	}
	return sum, nil
}

// ClassSummaries groups the active roster by exact class label.
func (s *Service) ClassSummaries(ctx context.Context) ([]ClassSummary, error) {
	students, err := s.src.ActiveStudents(ctx)
	if err != nil {
		return nil, err
	}
	today, err := s.src.RecordsOn(ctx, s.today())
	if err != nil {
		return nil, err
	}
	tallies, err := s.src.Tallies(ctx)
	if err != nil {
		return nil, err
	}
	dates, err := s.src.DistinctDates(ctx)
	if err != nil {
		return nil, err
	}

	attendedToday := make(map[string]bool, len(today))
	for _, r := range today {
		if r.Status.Attended() {
			attendedToday[r.StudentID] = true
		}
	}
	tallyByStudent := make(map[string]attendance.Tally, len(tallies))
	for _, t := range tallies {
		tallyByStudent[t.StudentID] = t
	}

	groups := map[string]*ClassSummary{}
	for _, st := range students {
		g, ok := groups[st.Class]
		if !ok {
			g = &ClassSummary{ClassName: st.Class}
			groups[st.Class] = g
		}
		g.TotalStudents++
		if attendedToday[st.ID] {
			g.PresentCount++
		}
		t := tallyByStudent[st.ID]
		g.PresentOrLateAllTime += t.PresentOrLate
		g.TotalRecords += t.Total
	}

	out := make([]ClassSummary, 0, len(groups))
	for _, g := range groups {
		expected := g.TotalStudents * dates
		if expected == 0 {
			g.AttendanceRate = 100
		} else {
			g.AttendanceRate = Rate(g.PresentOrLateAllTime, expected)
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassName < out[j].ClassName })
	return out, nil
}

// Trends evaluates every active student over the trailing window.
func (s *Service) Trends(ctx context.Context) ([]Trend, error) {
	students, err := s.src.ActiveStudents(ctx)
	if err != nil {
		return nil, err
	}
	from, to := s.Window()
	recs, err := s.src.RecordsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byStudent := make(map[string][]attendance.Record)
	for _, r := range recs {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}
	out := make([]Trend, 0, len(students))
	for _, st := range students {
		out = append(out, BuildTrend(st, byStudent[st.ID]))
	}
	return out, nil
}

// StudentTrend evaluates one active student over the trailing window.
func (s *Service) StudentTrend(ctx context.Context, studentID string) (Trend, error) {
	st, err := s.src.GetStudent(ctx, studentID)
	if err != nil {
		return Trend{}, err
	}
	if !st.Active() {
		return Trend{}, attendance.ErrNotFound
	}
	from, to := s.Window()
	recs, err := s.src.StudentRecords(ctx, studentID, from, to)
	if err != nil {
		return Trend{}, err
	}
	return BuildTrend(st, recs), nil
}

// NeedingAttention returns the flagged subset of Trends.
func (s *Service) NeedingAttention(ctx context.Context) ([]Trend, error) {
	all, err := s.Trends(ctx)
	if err != nil {
		return nil, err
	}
	flagged := make([]Trend, 0)
	for _, t := range all {
		if t.NeedsAttention {
			flagged = append(flagged, t)
		}
	}
	return flagged, nil
}

// Dashboard rolls up today's summary with roster and all-time counts.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	students, err := s.src.ActiveStudents(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	today, err := s.Summary(ctx, s.today())
	if err != nil {
		return Dashboard{}, err
	}
	tallies, err := s.src.Tallies(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	flagged, err := s.NeedingAttention(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	classes := map[string]struct{}{}
	for _, st := range students {
		classes[st.Class] = struct{}{}
	}
	presences := 0
	for _, t := range tallies {
		presences += t.PresentOrLate
	}
	return Dashboard{
		TotalStudents:    len(students),
		Classes:          len(classes),
		Today:            today,
		TodayRate:        Rate(today.Present+today.Late, today.Total),
		TotalPresences:   presences,
		NeedingAttention: len(flagged),
	}, nil
}
