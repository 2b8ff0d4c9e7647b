package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"attendtrack/internal/attendance"
)

func seq(statuses ...attendance.Status) []attendance.Record {
	out := make([]attendance.Record, len(statuses))
	for i, s := range statuses {
		out[i] = attendance.Record{Status: s}
	}
	return out
}

const (
	P = attendance.StatusPresent
	A = attendance.StatusAbsent
	L = attendance.StatusLate
	E = attendance.StatusExcused
)

func TestConsecutiveAbsences(t *testing.T) {
	tests := []struct {
		name string
		recs []attendance.Record
		want int
	}{
		{"empty", nil, 0},
		{"no absences", seq(P, L, E), 0},
		{"longest run is older", seq(A, A, P, A, A, A), 3},
		{"leading run", seq(A, A, A, A, P), 4},
		{"late breaks a run", seq(A, L, A), 1},
		{"excused breaks a run", seq(A, A, E, A, A), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConsecutiveAbsences(tt.recs))
		})
	}
}

func TestCurrentStreak(t *testing.T) {
	assert.Equal(t, 2, CurrentStreak(seq(A, A, P, A, A, A)))
	assert.Equal(t, 0, CurrentStreak(seq(P, A, A, A)))
	assert.Equal(t, 0, CurrentStreak(nil))
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		consecutive int
		rate        float64
		total       int
		want        bool
	}{
		{"streak alone", 3, 10, 30, true},
		{"streak with tiny sample", 3, 100, 3, true},
		{"rate with enough records", 1, 25, 5, true},
		{"rate exactly at threshold", 2, 20, 10, false},
		{"rate without enough records", 2, 50, 4, false},
		{"nothing", 2, 10, 20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.consecutive, tt.rate, tt.total))
		})
	}
}

func TestRate(t *testing.T) {
	assert.Equal(t, 0.0, Rate(3, 0))
	assert.Equal(t, 25.0, Rate(1, 4))
}

func TestBuildTrend(t *testing.T) {
	st := attendance.Student{ID: "s1", FirstName: "Asha", LastName: "Ramdin", Class: "7A"}

	tr := BuildTrend(st, seq(P, A, P, L, P, P))
	assert.Equal(t, "Asha Ramdin", tr.Name)
	assert.Equal(t, 6, tr.TotalRecords)
	assert.Equal(t, 4, tr.Present)
	assert.Equal(t, 1, tr.Late)
	assert.Equal(t, 1, tr.Absent)
	assert.InDelta(t, 16.67, tr.AbsenceRate, 0.01)
	assert.False(t, tr.NeedsAttention)

	empty := BuildTrend(st, nil)
	assert.Equal(t, 0.0, empty.AbsenceRate)
	assert.False(t, empty.NeedsAttention)

	flagged := BuildTrend(st, seq(P, A, P, A, P, P))
	assert.InDelta(t, 33.33, flagged.AbsenceRate, 0.01)
	assert.Equal(t, 1, flagged.ConsecutiveAbsences)
	assert.True(t, flagged.NeedsAttention)
}
