package notify

import (
	"context"
	"fmt"

	"attendtrack/internal/queue"
)

// HandleJob runs a queued notification message.
func (s *Service) HandleJob(ctx context.Context, msg queue.Message) (BatchResult, error) {
	switch msg.Type {
	case queue.TypeNotify:
		var req SendRequest
		if err := msg.Decode(&req); err != nil {
			return BatchResult{}, fmt.Errorf("decode %s job: %w", msg.Type, err)
		}
		return s.Send(ctx, req)
	case queue.TypeNotifyAbsentees:
		var req AbsenteesRequest
		if err := msg.Decode(&req); err != nil {
			return BatchResult{}, fmt.Errorf("decode %s job: %w", msg.Type, err)
		}
		return s.NotifyAbsentees(ctx, req)
	default:
		return BatchResult{}, fmt.Errorf("unknown job type %q", msg.Type)
	}
}
