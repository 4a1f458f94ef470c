// Package watch provides the live case-change feed. Case writes publish a
// change event to a Redis channel; in-process listeners (the plan
// reconciler) receive each event asynchronously. This replaces polling
// with push the same way the rest of the platform moves state changes.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fieldverify-platform/caseflow/internal/model"
)

// CaseEvent is one published case change.
type CaseEvent struct {
	CaseID     string           `json:"case_id"`
	AssignedTo string           `json:"assigned_to,omitempty"`
	Status     model.CaseStatus `json:"status"`
	Action     string           `json:"action"` // created, updated, assigned, submitted, reverted, completed
	Actor      string           `json:"actor,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Listener receives case events. Listeners run sequentially on the
// feed's delivery goroutine: a slow listener delays later events but
// never blocks publishers, and events for a case are delivered in
// publish order.
type Listener func(ctx context.Context, ev *CaseEvent)

// Feed publishes and subscribes to case-change events over Redis pub/sub.
type Feed struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger

	mu        sync.RWMutex
	listeners []Listener

	cancel context.CancelFunc
	done   chan struct{}
}

// NewFeed creates a feed bound to the given Redis client and channel.
func NewFeed(client redis.UniversalClient, channel string, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Publish emits a case event. Publish failures are logged and swallowed:
// the write that triggered the event has already committed, and the feed
// is a best-effort accelerant, not a source of truth.
func (f *Feed) Publish(ctx context.Context, ev *CaseEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		f.logger.Warn("failed to marshal case event", "case_id", ev.CaseID, "error", err)
		return
	}

	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		f.logger.Warn("failed to publish case event", "case_id", ev.CaseID, "error", err)
	}
}

// Subscribe registers a listener for all subsequent events.
func (f *Feed) Subscribe(l Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, l)
}

// Start begins delivering events to listeners until Stop is called.
func (f *Feed) Start(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, f.channel)

	// Confirm the subscription before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to case feed: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	go func() {
		defer close(f.done)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				f.dispatch(runCtx, msg.Payload)
			}
		}
	}()

	return nil
}

// Stop unsubscribes and waits for the delivery loop to exit.
func (f *Feed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	if f.done != nil {
		<-f.done
	}
}

func (f *Feed) dispatch(ctx context.Context, payload string) {
	var ev CaseEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		f.logger.Warn("failed to decode case event", "error", err)
		return
	}

	f.mu.RLock()
	listeners := make([]Listener, len(f.listeners))
	copy(listeners, f.listeners)
	f.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, &ev)
	}
}
