// Package notify delivers best-effort status notifications to subjects and
// broadcasts to observer rooms. Delivery never blocks or fails the caller.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/logger"
	"github.com/Shivanand-hulikatti/event-participation/internal/metrics"
)

// AdminRoom receives every status change, for observer dashboards.
const AdminRoom = "admin"

// UserRoom is the real-time room of one subject.
func UserRoom(subjectID string) string { return "user:" + subjectID }

// Message is a notification addressed to one subject.
type Message struct {
	SubjectID string    `json:"subject_id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Event     string    `json:"event"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Data      any       `json:"data,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// Sink delivers a message over one channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Broadcaster publishes an event to a room.
type Broadcaster interface {
	Publish(ctx context.Context, room, event string, payload any) error
}

// Dispatcher fans messages out to sinks on background goroutines. Each
// delivery gets its own timeout and is detached from the caller's
// cancellation. A nil *Dispatcher drops everything.
type Dispatcher struct {
	sinks       []Sink
	broadcaster Broadcaster
	timeout     time.Duration
	log         *slog.Logger
	wg          sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher. broadcaster may be nil.
func NewDispatcher(timeout time.Duration, broadcaster Broadcaster, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:       sinks,
		broadcaster: broadcaster,
		timeout:     timeout,
		log:         logger.WithComponent("notify"),
	}
}

// Notify delivers msg to every sink.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	if d == nil {
		return
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	for _, s := range d.sinks {
		d.run(ctx, s.Name(), func(ctx context.Context) error { return s.Deliver(ctx, msg) },
			"subject_id", msg.SubjectID, "event", msg.Event)
	}
}

// Broadcast publishes event to room.
func (d *Dispatcher) Broadcast(ctx context.Context, room, event string, payload any) {
	if d == nil || d.broadcaster == nil {
		return
	}
	d.run(ctx, "broadcast", func(ctx context.Context) error {
		return d.broadcaster.Publish(ctx, room, event, payload)
	}, "room", room, "event", event)
}

func (d *Dispatcher) run(ctx context.Context, sink string, fn func(context.Context) error, args ...any) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			metrics.Notifications.WithLabelValues(sink, "failed").Inc()
			d.log.Warn("notification delivery failed", append(args, "sink", sink, "error", err)...)
			return
		}
		metrics.Notifications.WithLabelValues(sink, "delivered").Inc()
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
