package audit

import (
	"context"
	"log/slog"
	"time"
)

// Sink receives audit events. Implementations must tolerate being called
// from the worker goroutine only.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher hands events to a channel-fed worker so emitting never blocks a
// provisioning operation. A full inbox drops the event with a warning; an
// audit trail failure is never allowed to fail the operation it records.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a Publisher with a bounded inbox.
func NewPublisher(logger *slog.Logger, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit enqueues the event. It never returns an error to the caller's
// workflow; losing an event under backpressure is an observability gap to
// log, not an operation failure.
func (p *Publisher) Emit(ctx context.Context, base Event) {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- base:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			slog.String("action", base.Action),
			slog.String("domain", base.Domain))
	}
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
