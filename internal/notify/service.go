package notify

import (
	"context"
	"fmt"
	"time"

	"attendtrack/internal/analytics"
	"attendtrack/internal/attendance"
)

// Directory resolves students and a day's marks.
type Directory interface {
	StudentsByIDs(ctx context.Context, ids []string) ([]attendance.Student, error)
	RecordsOn(ctx context.Context, date attendance.Date) ([]attendance.Record, error)
}

// RiskSource reports students whose recent attendance needs follow-up.
type RiskSource interface {
	NeedingAttention(ctx context.Context) ([]analytics.Trend, error)
}

// ReasonStudentNotFound marks ids in a SendRequest that are unknown or not active.
const ReasonStudentNotFound = "student not found"

// SendRequest is the external dispatch request. Date defaults to today and
// Channel to sms.
type SendRequest struct {
	StudentIDs []string `json:"studentIds" binding:"required,min=1"`
	Date       string   `json:"date"`
	Channel    string   `json:"channel"`
	Message    string   `json:"message"`
}

// AbsenteesRequest asks for every student absent on Date to be notified.
type AbsenteesRequest struct {
	Date    string `json:"date"`
	Channel string `json:"channel"`
}

// Service turns student ids, absences and risk flags into dispatches.
type Service struct {
	dir        Directory
	risk       RiskSource
	dispatcher *Dispatcher
	now        func() time.Time
}

func NewService(dir Directory, risk RiskSource, dispatcher *Dispatcher) *Service {
	return &Service{dir: dir, risk: risk, dispatcher: dispatcher, now: time.Now}
}

func (s *Service) date(raw string) (attendance.Date, error) {
	if raw == "" {
		return attendance.NewDate(s.now()), nil
	}
	return attendance.ParseDate(raw)
}

// Send notifies the given students. Ids that are unknown or not active come
// back as failed results in their original position.
func (s *Service) Send(ctx context.Context, req SendRequest) (BatchResult, error) {
	ch, err := ParseChannel(req.Channel)
	if err != nil {
		return BatchResult{}, err
	}
	date, err := s.date(req.Date)
	if err != nil {
		return BatchResult{}, err
	}
	students, err := s.dir.StudentsByIDs(ctx, req.StudentIDs)
	if err != nil {
		return BatchResult{}, err
	}
	byID := make(map[string]attendance.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}

	reqs := make([]Request, 0, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		if st, ok := byID[id]; ok {
			reqs = append(reqs, Request{Student: st, Date: date, Channel: ch, Message: req.Message})
		}
	}
	sent := s.dispatcher.NotifyBatch(ctx, reqs)

	out := BatchResult{Results: make([]Result, 0, len(req.StudentIDs))}
	next := 0
	for _, id := range req.StudentIDs {
		if _, ok := byID[id]; !ok {
			out.add(Result{StudentID: id, Channel: ch, Reason: ReasonStudentNotFound})
			continue
		}
		out.add(sent.Results[next])
		next++
	}
	return out, nil
}

// NotifyAbsentees notifies every active student marked absent on date.
func (s *Service) NotifyAbsentees(ctx context.Context, req AbsenteesRequest) (BatchResult, error) {
	ch, err := ParseChannel(req.Channel)
	if err != nil {
		return BatchResult{}, err
	}
	date, err := s.date(req.Date)
	if err != nil {
		return BatchResult{}, err
	}
	recs, err := s.dir.RecordsOn(ctx, date)
	if err != nil {
		return BatchResult{}, err
	}
	var ids []string
	for _, r := range recs {
		if r.Status == attendance.StatusAbsent {
			ids = append(ids, r.StudentID)
		}
	}
	students, err := s.dir.StudentsByIDs(ctx, ids)
	if err != nil {
		return BatchResult{}, err
	}
	reqs := make([]Request, 0, len(students))
	for _, st := range students {
		reqs = append(reqs, Request{Student: st, Date: date, Channel: ch})
	}
	return s.dispatcher.NotifyBatch(ctx, reqs), nil
}

// NotifyAtRisk notifies the guardians of every student flagged by the trend
// evaluation, with a message describing the pattern.
func (s *Service) NotifyAtRisk(ctx context.Context, channel string) (BatchResult, error) {
	ch, err := ParseChannel(channel)
	if err != nil {
		return BatchResult{}, err
	}
	if s.risk == nil {
		return BatchResult{Results: []Result{}}, nil
	}
	flagged, err := s.risk.NeedingAttention(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	trends := make(map[string]analytics.Trend, len(flagged))
	ids := make([]string, 0, len(flagged))
	for _, t := range flagged {
		trends[t.StudentID] = t
		ids = append(ids, t.StudentID)
	}
	students, err := s.dir.StudentsByIDs(ctx, ids)
	if err != nil {
		return BatchResult{}, err
	}
	today := attendance.NewDate(s.now())
	reqs := make([]Request, 0, len(students))
	for _, st := range students {
		reqs = append(reqs, Request{
			Student: st,
			Date:    today,
			Channel: ch,
			Message: s.riskMessage(st, trends[st.ID]),
		})
	}
	return s.dispatcher.NotifyBatch(ctx, reqs), nil
}

func (s *Service) riskMessage(st attendance.Student, t analytics.Trend) string {
	return fmt.Sprintf("Dear parent/guardian, %s has been absent %d times in the last %d days, with up to %d consecutive absences. Please contact %s.",
		st.FullName(), t.Absent, analytics.WindowDays, t.ConsecutiveAbsences, s.dispatcher.opts.SchoolName)
}
