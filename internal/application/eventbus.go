package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
)

type Handler func(ctx context.Context, event domain.Event) error

type BusStats struct {
	Dispatched           int
	SuppressedByCooldown int
}

// EventBus is a typed publish/subscribe channel with a per-type cooldown.
// Cooldown bookkeeping lives in the session's AwarenessState so that it is
// replaced together with the rest of the session.
type EventBus struct {
	mu        sync.Mutex
	awareness *domain.AwarenessState
	cooldowns map[domain.EventType]time.Duration
	clock     ports.Clock
	logger    *slog.Logger
	handlers  map[domain.EventType][]subscription
	nextID    int
	stats     BusStats
}

type subscription struct {
	id      int
	handler Handler
}

func NewEventBus(awareness *domain.AwarenessState, cooldowns map[domain.EventType]time.Duration, clock ports.Clock, logger *slog.Logger) *EventBus {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	copied := make(map[domain.EventType]time.Duration, len(cooldowns))
	for eventType, cooldown := range cooldowns {
		copied[eventType] = cooldown
	}

	return &EventBus{
		awareness: awareness,
		cooldowns: copied,
		clock:     clock,
		logger:    logger,
		handlers:  map[domain.EventType][]subscription{},
	}
}

// Subscribe registers handler for eventType and returns its unsubscribe
// function. Unknown types are logged and get a no-op unsubscribe.
func (b *EventBus) Subscribe(eventType domain.EventType, handler Handler) func() {
	if !eventType.Known() {
		b.logger.Warn("ignoring subscription", "event_type", eventType, "error", domain.ErrUnknownEventType)
		return func() {}
	}
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subs := b.handlers[eventType]
			kept := make([]subscription, 0, len(subs))
			for _, sub := range subs {
				if sub.id != id {
					kept = append(kept, sub)
				}
			}
			b.handlers[eventType] = kept
		})
	}
}

// Emit dispatches payload to every handler of eventType unless the type is
// still cooling down. It reports whether handlers were invoked. The last
// reaction time is stamped before any handler runs, so a handler that emits
// the same type again is swallowed by the cooldown.
func (b *EventBus) Emit(ctx context.Context, eventType domain.EventType, payload domain.Payload) bool {
	if !eventType.Known() {
		b.logger.Warn("dropping emission", "event_type", eventType, "error", domain.ErrUnknownEventType)
		return false
	}

	b.mu.Lock()
	now := b.clock.Now()
	if last, ok := b.awareness.LastReaction[eventType]; ok {
		if cooldown := b.cooldowns[eventType]; cooldown > 0 && now.Sub(last) < cooldown {
			b.stats.SuppressedByCooldown++
			b.mu.Unlock()
			b.logger.Debug("event cooling down", "event_type", eventType, "remaining", cooldown-now.Sub(last))
			return false
		}
	}
	b.awareness.MarkReaction(eventType, now)
	subs := append([]subscription(nil), b.handlers[eventType]...)
	b.stats.Dispatched++
	b.mu.Unlock()

	event := domain.Event{Type: eventType, Payload: payload, Timestamp: now}
	for _, sub := range subs {
		b.dispatch(ctx, sub.handler, event)
	}

	return true
}

func (b *EventBus) Stats() BusStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *EventBus) dispatch(ctx context.Context, handler Handler, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event_type", event.Type, "error", fmt.Errorf("panic: %v", r))
		}
	}()

	if err := handler(ctx, event); err != nil {
		b.logger.Warn("event handler failed", "event_type", event.Type, "error", err)
	}
}

// DefaultCooldowns spaces out the noisier event types.
func DefaultCooldowns() map[domain.EventType]time.Duration {
	return map[domain.EventType]time.Duration{
		domain.EventRoll:            0,
		domain.EventRapidRolls:      90 * time.Second,
		domain.EventUnluckyStreak:   2 * time.Minute,
		domain.EventCursed:          2 * time.Minute,
		domain.EventVitalsChange:    20 * time.Second,
		domain.EventLocationChange:  time.Minute,
		domain.EventTimeShift:       10 * time.Minute,
		domain.EventCaseDelta:       30 * time.Second,
		domain.EventCompartmentOpen: 0,
		domain.EventAbsenceReturn:   5 * time.Minute,
	}
}
