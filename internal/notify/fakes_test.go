package notify

import (
	"context"
	"errors"
	"sync"

	"attendtrack/internal/attendance"
)

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []Message
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeSender) calls() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

type fakeAudit struct {
	mu      sync.Mutex
	err     error
	entries []attendance.NotificationLog
}

func (f *fakeAudit) LogNotification(_ context.Context, e attendance.NotificationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) rows() []attendance.NotificationLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]attendance.NotificationLog(nil), f.entries...)
}

var errProvider = errors.New("provider rejected request")

func student(id, phone, email string) attendance.Student {
	return attendance.Student{
		ID:           id,
		FirstName:    "Student",
		LastName:     id,
		Class:        "7A",
		ContactPhone: attendance.StringPtr(phone),
		Email:        attendance.StringPtr(email),
	}
}
