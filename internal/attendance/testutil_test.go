package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"attendtrack/internal/store"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := store.NewDB(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db.Client))
	return NewRepository(db.Client)
}

func seedStudent(t *testing.T, repo *Repository, sid, first, last, class string) Student {
	t.Helper()
	st, err := repo.CreateStudent(context.Background(), Student{
		StudentID:  sid,
		FirstName:  first,
		LastName:   last,
		Class:      class,
		GradeLevel: 7,
	})
	require.NoError(t, err)
	return st
}

func day(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedClock(s string) func() time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}
