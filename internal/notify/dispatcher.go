package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"attendtrack/internal/attendance"
	"attendtrack/internal/metrics"
)

// AuditLog stores the outcome of each dispatch attempt.
type AuditLog interface {
	LogNotification(ctx context.Context, entry attendance.NotificationLog) error
}

// Request asks for one student to be notified. An empty Message selects the
// default absence template.
type Request struct {
	Student attendance.Student
	Date    attendance.Date
	Channel Channel
	Message string
}

// Result is the per-student outcome. Channel is the one last attempted.
type Result struct {
	StudentID string  `json:"studentId"`
	Name      string  `json:"name,omitempty"`
	Success   bool    `json:"success"`
	Channel   Channel `json:"channel,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	NoContact bool    `json:"noContact,omitempty"`
}

// BatchResult aggregates a batch. Failed excludes NoContact outcomes.
type BatchResult struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	NoContact int      `json:"noContact"`
	Results   []Result `json:"results"`
}

func (b *BatchResult) add(r Result) {
	b.Total++
	switch {
	case r.Success:
		b.Succeeded++
	case r.NoContact:
		b.NoContact++
	default:
		b.Failed++
	}
	b.Results = append(b.Results, r)
}

// Options tunes a Dispatcher.
type Options struct {
	CountryCode string
	Concurrency int
	SchoolName  string
}

// Dispatcher picks a channel per student, sends with fallback to email and
// records an audit row. It never retries.
type Dispatcher struct {
	senders Senders
	audit   AuditLog
	opts    Options
	log     zerolog.Logger
}

// NewDispatcher wires senders and an optional audit log.
func NewDispatcher(senders Senders, audit AuditLog, opts Options, log zerolog.Logger) *Dispatcher {
	if opts.CountryCode == "" {
		opts.CountryCode = "230"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.SchoolName == "" {
		opts.SchoolName = "the school"
	}
	return &Dispatcher{senders: senders, audit: audit, opts: opts, log: log}
}

// DefaultMessage renders the absence notice for a student and date.
func (d *Dispatcher) DefaultMessage(st attendance.Student, date attendance.Date) string {
	return fmt.Sprintf("Dear parent/guardian, %s was marked absent on %s. Please contact %s if you have any questions.",
		st.FullName(), date.String(), d.opts.SchoolName)
}

type attempt struct {
	channel Channel
	to      string
}

// plan lists the channels to try in order. Phone channels fall back to email;
// email never falls back to a phone channel.
func (d *Dispatcher) plan(st attendance.Student, requested Channel) []attempt {
	phone := NormalizePhone(st.Phone(), d.opts.CountryCode)
	email := st.EmailAddress()

	var out []attempt
	if requested.UsesPhone() && phone != "" {
		out = append(out, attempt{channel: requested, to: phone})
	}
	if email != "" {
		out = append(out, attempt{channel: ChannelEmail, to: email})
	}
	return out
}

// Notify dispatches one request.
func (d *Dispatcher) Notify(ctx context.Context, req Request) Result {
	st := req.Student
	if req.Channel == "" {
		req.Channel = ChannelSMS
	}
	res := Result{StudentID: st.ID, Name: st.FullName(), Channel: req.Channel}

	attempts := d.plan(st, req.Channel)
	if len(attempts) == 0 {
		res.NoContact = true
		res.Reason = ErrNoContact.Error()
		metrics.Notifications.WithLabelValues(string(req.Channel), metrics.OutcomeNoContact).Inc()
		return res
	}

	body := req.Message
	if body == "" {
		body = d.DefaultMessage(st, req.Date)
	}

	for _, a := range attempts {
		res.Channel = a.channel
		err := d.send(ctx, Message{
			Channel:   a.channel,
			To:        a.to,
			Subject:   "Attendance notice: " + st.FullName(),
			Body:      body,
			StudentID: st.ID,
		})
		if err == nil {
			res.Success = true
			res.Reason = ""
			metrics.Notifications.WithLabelValues(string(a.channel), metrics.OutcomeSent).Inc()
			break
		}
		res.Reason = err.Error()
		metrics.Notifications.WithLabelValues(string(a.channel), metrics.OutcomeFailed).Inc()
		d.log.Warn().Err(err).Str("student_id", st.ID).Str("channel", string(a.channel)).Msg("notification attempt failed")
	}

	d.record(ctx, res, body)
	return res
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	sender, ok := d.senders[msg.Channel]
	if !ok || sender == nil {
		return fmt.Errorf("no sender configured for %s", msg.Channel)
	}
	return sender.Send(ctx, msg)
}

// record writes the audit row. Failures are logged and never change the result.
func (d *Dispatcher) record(ctx context.Context, res Result, body string) {
	if d.audit == nil {
		return
	}
	err := d.audit.LogNotification(context.WithoutCancel(ctx), attendance.NotificationLog{
		StudentID: res.StudentID,
		Type:      string(res.Channel),
		Message:   body,
		Success:   res.Success,
	})
	if err != nil {
		d.log.Warn().Err(err).Str("student_id", res.StudentID).Msg("notification audit write failed")
	}
}

// NotifyBatch dispatches every request with bounded concurrency. Results keep
// the input order and one failure never stops the rest.
func (d *Dispatcher) NotifyBatch(ctx context.Context, reqs []Request) BatchResult {
	results := make([]Result, len(reqs))
	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for i := range reqs {
		i := i
		g.Go(func() error {
			results[i] = d.Notify(ctx, reqs[i])
			return nil
		})
	}
	_ = g.Wait()

	out := BatchResult{Results: make([]Result, 0, len(results))}
	for _, r := range results {
		out.add(r)
	}
	return out
}
