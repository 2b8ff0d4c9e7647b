package roster

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/attendance"
)

type fakeStore struct {
	got []attendance.Student
	err error
}

func (f *fakeStore) ImportStudents(_ context.Context, students []attendance.Student) ([]attendance.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.got = append(f.got, students...)
	return students, nil
}

type fakeStorage struct {
	uploads map[string][]byte
	err     error
}

func (f *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.uploads[key] = data
	return nil
}

func (f *fakeStorage) Download(context.Context, string) (io.ReadCloser, error) { return nil, nil }
func (f *fakeStorage) Delete(context.Context, string) error                    { return nil }
func (f *fakeStorage) Exists(context.Context, string) (bool, error)            { return false, nil }

const roster = "studentId,firstName,lastName,class,gradeLevel\n" +
	"S1,Asha,Ramdin,7A,7\n" +
	"S2,Bilal,Khan,7A,abc\n"

func TestImporter_Import(t *testing.T) {
	store := &fakeStore{}
	storage := &fakeStorage{uploads: map[string][]byte{}}
	im := NewImporter(store, storage, zerolog.Nop())
	im.now = func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) }

	rep, err := im.Import(context.Background(), "7a.csv", []byte(roster))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Imported)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, 3, rep.Errors[0].Line)
	assert.Regexp(t, `^rosters/2026/10/16/.+-7a\.csv$`, rep.ArchiveKey)
	assert.Equal(t, []byte(roster), storage.uploads[rep.ArchiveKey])
	require.Len(t, store.got, 1)
	assert.Equal(t, "S1", store.got[0].StudentID)
}

func TestImporter_ArchiveFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{}
	im := NewImporter(store, &fakeStorage{err: errors.New("bucket gone")}, zerolog.Nop())

	rep, err := im.Import(context.Background(), "7a.csv", []byte(roster))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Imported)
	assert.Empty(t, rep.ArchiveKey)
}

func TestImporter_NoValidRows(t *testing.T) {
	store := &fakeStore{}
	im := NewImporter(store, nil, zerolog.Nop())

	rep, err := im.Import(context.Background(), "bad.csv", []byte("studentId,firstName,lastName,class,gradeLevel\nS1,A,B,7A,x\n"))
	assert.ErrorIs(t, err, ErrNoValidRows)
	assert.Len(t, rep.Errors, 1)
	assert.Empty(t, store.got)
}

func TestImporter_MissingHeaders(t *testing.T) {
	im := NewImporter(&fakeStore{}, nil, zerolog.Nop())
	_, err := im.Import(context.Background(), "bad.csv", []byte("studentId,firstName,lastName,class\nS1,A,B,7A\n"))
	var mh MissingHeadersError
	assert.True(t, errors.As(err, &mh))
}

func TestImporter_StoreError(t *testing.T) {
	im := NewImporter(&fakeStore{err: errors.New("db down")}, nil, zerolog.Nop())
	_, err := im.Import(context.Background(), "7a.csv", []byte(roster))
	assert.EqualError(t, err, "db down")
}
