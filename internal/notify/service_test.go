package notify

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/analytics"
	"attendtrack/internal/attendance"
)

type fakeDirectory struct {
	students []attendance.Student
	records  []attendance.Record
}

func (f *fakeDirectory) StudentsByIDs(_ context.Context, ids []string) ([]attendance.Student, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []attendance.Student
	for _, st := range f.students {
		if want[st.ID] && st.Active() {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeDirectory) RecordsOn(_ context.Context, date attendance.Date) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, r := range f.records {
		if r.Date.Equal(date.Time) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeRisk []analytics.Trend

func (f fakeRisk) NeedingAttention(context.Context) ([]analytics.Trend, error) { return f, nil }

func newTestService(dir *fakeDirectory, risk RiskSource) (*Service, *fakeSender, *fakeSender) {
	sms, email := &fakeSender{}, &fakeSender{}
	d := NewDispatcher(Senders{ChannelSMS: sms, ChannelEmail: email}, nil, Options{SchoolName: "Royal College"}, zerolog.Nop())
	svc := NewService(dir, risk, d)
	svc.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }
	return svc, sms, email
}

func TestService_SendReportsUnknownStudents(t *testing.T) {
	deleted := time.Now()
	gone := student("gone", "52341234", "")
	gone.DeletedAt = &deleted
	dir := &fakeDirectory{students: []attendance.Student{student("a", "52341234", ""), gone}}
	svc, sms, _ := newTestService(dir, nil)

	out, err := svc.Send(context.Background(), SendRequest{StudentIDs: []string{"missing", "a", "gone"}})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 1, out.Succeeded)
	assert.Equal(t, 2, out.Failed)
	assert.Equal(t, "missing", out.Results[0].StudentID)
	assert.Equal(t, "student not found", out.Results[0].Reason)
	assert.Equal(t, "a", out.Results[1].StudentID)
	assert.True(t, out.Results[1].Success)
	assert.Equal(t, "gone", out.Results[2].StudentID)

	require.Len(t, sms.calls(), 1)
	assert.Contains(t, sms.calls()[0].Body, "2026-10-16")
}

func TestService_SendValidates(t *testing.T) {
	svc, _, _ := newTestService(&fakeDirectory{}, nil)
	_, err := svc.Send(context.Background(), SendRequest{StudentIDs: []string{"a"}, Channel: "fax"})
	assert.ErrorIs(t, err, ErrInvalidChannel)
	_, err = svc.Send(context.Background(), SendRequest{StudentIDs: []string{"a"}, Date: "16/10/2026"})
	assert.Error(t, err)
}

func TestService_NotifyAbsentees(t *testing.T) {
	d, _ := attendance.ParseDate("2026-10-15")
	dir := &fakeDirectory{
		students: []attendance.Student{student("a", "52341234", ""), student("b", "", "b@example.com"), student("c", "52341235", "")},
		records: []attendance.Record{
			{StudentID: "a", Date: d, Status: attendance.StatusAbsent},
			{StudentID: "b", Date: d, Status: attendance.StatusAbsent},
			{StudentID: "c", Date: d, Status: attendance.StatusPresent},
		},
	}
	svc, sms, email := newTestService(dir, nil)

	out, err := svc.NotifyAbsentees(context.Background(), AbsenteesRequest{Date: "2026-10-15"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Succeeded)
	assert.Len(t, sms.calls(), 1)
	assert.Len(t, email.calls(), 1)
	assert.Contains(t, email.calls()[0].Body, "2026-10-15")
}

func TestService_NotifyAtRisk(t *testing.T) {
	dir := &fakeDirectory{students: []attendance.Student{student("a", "52341234", ""), student("b", "52341235", "")}}
	risk := fakeRisk{{StudentID: "a", Absent: 6, ConsecutiveAbsences: 4, NeedsAttention: true}}
	svc, sms, _ := newTestService(dir, risk)

	out, err := svc.NotifyAtRisk(context.Background(), "sms")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
	require.Len(t, sms.calls(), 1)
	body := sms.calls()[0].Body
	assert.Contains(t, body, "absent 6 times")
	assert.Contains(t, body, "4 consecutive")
}
