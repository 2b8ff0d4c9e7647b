package attendance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_AddStudent(t *testing.T) {
	svc := NewService(newTestRepo(t))
	ctx := context.Background()

	st, err := svc.AddStudent(ctx, NewStudent{
		StudentID: " S9 ", FirstName: "Dev", LastName: "Patel", Class: "8B", GradeLevel: 8,
		Email: "parent@example.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, "S9", st.StudentID)
	assert.Equal(t, "parent@example.com", st.EmailAddress())
	assert.Nil(t, st.ContactPhone)

	_, err = svc.AddStudent(ctx, NewStudent{StudentID: "S10", FirstName: "X", LastName: "Y"})
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "class", verr.Field)
}

func TestService_ImportAssignsIDs(t *testing.T) {
	svc := NewService(newTestRepo(t))
	ctx := context.Background()

	out, err := svc.ImportStudents(ctx, []Student{
		{StudentID: "S1", FirstName: "A", LastName: "B", Class: "7A", GradeLevel: 7},
		{StudentID: "S2", FirstName: "C", LastName: "D", Class: "7A", GradeLevel: 7},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotEqual(t, out[0].ID, out[1].ID)

	roster, err := svc.Roster(ctx, "")
	require.NoError(t, err)
	assert.Len(t, roster, 2)
}

func TestService_MarkAttendance(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewService(repo)
	svc.now = fixedClock("2026-10-16T09:00:00Z")
	ctx := context.Background()
	st := seedStudent(t, repo, "S1", "Asha", "Ramdin", "7A")
	d := day("2026-10-16")

	_, err := svc.MarkAttendance(ctx, st.ID, d, Status("sick"), nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.MarkAttendance(ctx, "missing", d, StatusPresent, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := svc.MarkAttendance(ctx, st.ID, d, StatusAbsent, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusAbsent, rec.Status)

	require.NoError(t, svc.DeleteStudent(ctx, st.ID))
	_, err = svc.MarkAttendance(ctx, st.ID, d, StatusPresent, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	bin, err := svc.RecycleBin(ctx)
	require.NoError(t, err)
	require.Len(t, bin, 1)
	assert.Equal(t, "2026-10-16T09:00:00Z", bin[0].DeletedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
}

func TestService_MarkClassValidatesBeforeWriting(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewService(repo)
	ctx := context.Background()
	a := seedStudent(t, repo, "S1", "Asha", "Ramdin", "7A")
	d := day("2026-10-16")

	_, err := svc.MarkClass(ctx, d, []Mark{
		{StudentID: a.ID, Status: StatusPresent},
		{StudentID: "ghost", Status: StatusAbsent},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.MarkClass(ctx, d, []Mark{{StudentID: a.ID, Status: "nope"}})
	var verr ValidationError
	assert.True(t, errors.As(err, &verr))

	recs, err := svc.AttendanceOn(ctx, d)
	require.NoError(t, err)
	assert.Empty(t, recs)

	out, err := svc.MarkClass(ctx, d, []Mark{{StudentID: a.ID, Status: StatusLate}})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestService_RecycleBinLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewService(repo)
	ctx := context.Background()
	a := seedStudent(t, repo, "S1", "Asha", "Ramdin", "7A")
	b := seedStudent(t, repo, "S2", "Bilal", "Khan", "7A")

	require.NoError(t, svc.DeleteStudent(ctx, a.ID))
	require.NoError(t, svc.DeleteStudent(ctx, b.ID))
	require.NoError(t, svc.RestoreStudent(ctx, a.ID))

	n, err := svc.EmptyRecycleBin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.Student(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := svc.Student(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Active())

	require.NoError(t, svc.PurgeStudent(ctx, a.ID))
	assert.ErrorIs(t, svc.PurgeStudent(ctx, a.ID), ErrNotFound)
}
