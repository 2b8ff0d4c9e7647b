package analytics

import "attendtrack/internal/attendance"

// Trend thresholds.
const (
	WindowDays           = 30
	StreakThreshold      = 3
	AbsenceRateThreshold = 20.0
	MinSampleSize        = 5
)

// ConsecutiveAbsences returns the longest unbroken run of absences in recs,
// which are expected most-recent-first. A run anywhere in the slice counts,
// not only one touching the latest record.
func ConsecutiveAbsences(recs []attendance.Record) int {
	longest, run := 0, 0
	for _, r := range recs {
		if r.Status == attendance.StatusAbsent {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	return longest
}

// CurrentStreak counts absences from the most recent record back to the
// first non-absence.
func CurrentStreak(recs []attendance.Record) int {
	n := 0
	for _, r := range recs {
		if r.Status != attendance.StatusAbsent {
			break
		}
		n++
	}
	return n
}

// Rate returns part/whole as a percentage, 0 for an empty whole.
func Rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Evaluate reports whether an absence pattern warrants follow-up.
func Evaluate(consecutive int, absenceRate float64, total int) bool {
	return consecutive >= StreakThreshold || (absenceRate > AbsenceRateThreshold && total >= MinSampleSize)
}

// BuildTrend folds one student's window records (most-recent-first) into a Trend.
func BuildTrend(st attendance.Student, recs []attendance.Record) Trend {
	t := Trend{
		StudentID:    st.ID,
		Name:         st.FullName(),
		Class:        st.Class,
		TotalRecords: len(recs),
	}
	for _, r := range recs {
		switch r.Status {
		case attendance.StatusPresent:
			t.Present++
		case attendance.StatusAbsent:
			t.Absent++
		case attendance.StatusLate:
			t.Late++
		case attendance.StatusExcused:
			t.Excused++
		}
	}
	t.AbsenceRate = Rate(t.Absent, t.TotalRecords)
	t.ConsecutiveAbsences = ConsecutiveAbsences(recs)
	t.CurrentStreak = CurrentStreak(recs)
	t.NeedsAttention = Evaluate(t.ConsecutiveAbsences, t.AbsenceRate, t.TotalRecords)
	return t
}
