package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/archive"
	"attendtrack/internal/attendance"
	"attendtrack/internal/config"
	"attendtrack/internal/notify"
	"attendtrack/internal/queue"
)

func TestNewWithSQLiteAndMemoryQueue(t *testing.T) {
	cfg := config.App{DBDriver: "sqlite3", DatabaseURL: ":memory:", QueueBackend: "memory"}
	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &queue.InMemory{}, a.Queue)
	assert.Nil(t, a.Redis)
	assert.True(t, a.DB.Healthy(context.Background()))

	students, err := a.Students.Roster(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.App{DBDriver: "oracle"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSendersFallBackToConsole(t *testing.T) {
	s := Senders(config.Notify{}, zerolog.Nop())
	assert.IsType(t, &notify.ConsoleSender{}, s[notify.ChannelSMS])
	assert.IsType(t, &notify.ConsoleSender{}, s[notify.ChannelEmail])

	s = Senders(config.Notify{TwilioSID: "AC1", TwilioToken: "tok", SendGridKey: "SG.key"}, zerolog.Nop())
	assert.IsType(t, &notify.TwilioSender{}, s[notify.ChannelWhatsApp])
	assert.IsType(t, &notify.SendGridSender{}, s[notify.ChannelEmail])
}

func TestArchiveSelection(t *testing.T) {
	s, err := Archive(config.Archive{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Archive(config.Archive{Backend: "cloudinary", CloudinaryCloudName: "demo", CloudinaryAPIKey: "k", CloudinaryAPISecret: "s"})
	require.NoError(t, err)
	assert.IsType(t, &archive.CloudinaryStorage{}, s)

	_, err = Archive(config.Archive{Backend: "cloudinary"})
	assert.Error(t, err)
	_, err = Archive(config.Archive{Backend: "ftp"})
	assert.Error(t, err)
}

func TestNewRejectsBadRetentionSchedule(t *testing.T) {
	cfg := config.App{DBDriver: "sqlite3", DatabaseURL: ":memory:", QueueBackend: "memory"}
	cfg.Retention.Schedule = "whenever"
	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func newMemoryApp(t *testing.T) (*App, attendance.Student) {
	t.Helper()
	ctx := context.Background()
	a, err := New(ctx, config.App{DBDriver: "sqlite3", DatabaseURL: ":memory:", QueueBackend: "memory"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	st, err := a.Students.AddStudent(ctx, attendance.NewStudent{
		StudentID: "S1", FirstName: "Ana", LastName: "Li", Class: "7A", Email: "parent@example.com",
	})
	require.NoError(t, err)
	return a, st
}

func TestDrainDispatchesJobs(t *testing.T) {
	a, st := newMemoryApp(t)
	ctx := context.Background()

	good, err := queue.NewMessage(queue.TypeNotify, notify.SendRequest{StudentIDs: []string{st.ID}, Channel: "email"})
	require.NoError(t, err)
	ch := make(chan queue.Message, 2)
	ch <- queue.Message{Type: "reindex"}
	ch <- good
	close(ch)
	Drain(ctx, ch, a.Notify, zerolog.Nop())

	logs, err := a.Repo.ListNotifications(ctx, st.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Equal(t, "email", logs[0].Type)
}

func TestStartConsumerDispatchesEnqueuedJobs(t *testing.T) {
	a, st := newMemoryApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.StartConsumer(ctx, zerolog.Nop()))

	// more jobs than the in-memory buffer holds; none may block
	for i := 0; i < 80; i++ {
		msg, err := queue.NewMessage(queue.TypeNotify, notify.SendRequest{StudentIDs: []string{st.ID}, Channel: "email"})
		require.NoError(t, err)
		pubCtx, pubCancel := context.WithTimeout(ctx, 5*time.Second)
		require.NoError(t, a.Queue.Publish(pubCtx, msg))
		pubCancel()
	}

	assert.Eventually(t, func() bool {
		logs, err := a.Repo.ListNotifications(context.Background(), st.ID, 100)
		return err == nil && len(logs) == 80
	}, 10*time.Second, 20*time.Millisecond)
}

func TestStartConsumerWithoutQueue(t *testing.T) {
	a := &App{}
	assert.NoError(t, a.StartConsumer(context.Background(), zerolog.Nop()))
}
