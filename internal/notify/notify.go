package notify

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"jobportal/pkg/domain"
)

// Event carries the finalized job and attachment list of one submission.
type Event struct {
	Job         domain.Job
	Attachments []domain.Attachment
	PortalLink  string
}

// Sink is one external notification channel. Absence of configuration is
// not an error: an unconfigured sink is skipped with a log line.
type Sink interface {
	Name() string
	IsConfigured() bool
	Notify(ctx context.Context, ev Event) error
}

// Notifier fans an event out to every configured sink concurrently.
// Delivery is best effort: failures are logged, never retried, and never
// surfaced to the submitter.
type Notifier struct {
	sinks []Sink
}

// New builds a notifier over the given sinks.
func New(sinks ...Sink) *Notifier {
	return &Notifier{sinks: sinks}
}

// Dispatch delivers the event to all configured sinks and waits for them to
// finish. A nil notifier is a no-op.
func (n *Notifier) Dispatch(ctx context.Context, ev Event) {
	if n == nil {
		return
	}
	var g errgroup.Group
	for _, sink := range n.sinks {
		if !sink.IsConfigured() {
			slog.Info("notification sink not configured, skipping",
				"sink", sink.Name(), "job_id", ev.Job.ID)
			continue
		}
		sink := sink
		g.Go(func() error {
			if err := sink.Notify(ctx, ev); err != nil {
				slog.Error("notification failed",
					"sink", sink.Name(), "job_id", ev.Job.ID, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
