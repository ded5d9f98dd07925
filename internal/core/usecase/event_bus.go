package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atviroplatforma/appcore/internal/core/domain"
)

const defaultSubscriberTimeout = 30 * time.Second

// EventBus is the in-process publish/subscribe registry. One instance is
// constructed at startup and injected into the dispatcher; there is no
// package-level registry.
//
// Delivery is fire-and-forget: Publish returns without waiting for any
// subscriber, each subscriber runs on its own goroutine behind a fault
// boundary, and a failing or panicking subscriber is logged without
// affecting its siblings or the publisher. Events are not persisted; an
// event still in flight when the process exits is lost.
type EventBus struct {
	logger  zerolog.Logger
	timeout time.Duration

	mu          sync.RWMutex
	subscribers []domain.Subscriber

	inflight sync.WaitGroup
}

func NewEventBus(logger zerolog.Logger) *EventBus {
	return &EventBus{logger: logger, timeout: defaultSubscriberTimeout}
}

// SetSubscriberTimeout bounds each subscriber invocation. Past the deadline
// the subscriber's context is cancelled and the invocation is treated as
// failed; nothing else is affected.
func (b *EventBus) SetSubscriberTimeout(d time.Duration) {
	if d > 0 {
		b.timeout = d
	}
}

// Subscribe registers a reaction. Duplicate (event type, name) pairs are
// allowed and every copy is invoked; the bus does not deduplicate.
func (b *EventBus) Subscribe(sub domain.Subscriber) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()
	return nil
}

// Publish fans the event out to every subscriber with a matching exact type
// and every wildcard subscriber, then returns immediately. Subscribers run
// in registration order as a best-effort hint only; nothing may rely on
// inter-subscriber ordering.
func (b *EventBus) Publish(event domain.Event) {
	b.mu.RLock()
	matched := make([]domain.Subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		if sub.Matches(event.Type) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		b.inflight.Add(1)
		go b.deliver(sub, event)
	}
}

// Drain blocks until every delivery started so far has finished. Intended
// for shutdown and tests; Publish callers never wait.
func (b *EventBus) Drain() {
	b.inflight.Wait()
}

func (b *EventBus) deliver(sub domain.Subscriber, event domain.Event) {
	defer b.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("subscriber", sub.Name).
				Str("event_type", event.Type).
				Any("panic", r).
				Msg("subscriber panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	if err := sub.Handler(ctx, event); err != nil {
		b.logger.Error().
			Err(err).
			Str("subscriber", sub.Name).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Msg("subscriber failed")
	}
}
