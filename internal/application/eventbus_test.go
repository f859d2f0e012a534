package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(clock *manualClock, cooldowns map[domain.EventType]time.Duration) (*EventBus, *domain.AwarenessState) {
	awareness := domain.NewAwarenessState(clock.Now())
	return NewEventBus(awareness, cooldowns, clock, discardLogger()), awareness
}

func TestEventBusCooldownSwallowsRepeats(t *testing.T) {
	t.Parallel()

	clock := newManualClock(noon)
	bus, awareness := newTestBus(clock, map[domain.EventType]time.Duration{domain.EventVitalsChange: 20 * time.Second})

	calls := 0
	bus.Subscribe(domain.EventVitalsChange, func(context.Context, domain.Event) error {
		calls++
		return nil
	})

	assert.True(t, bus.Emit(context.Background(), domain.EventVitalsChange, domain.Payload{}))
	clock.Advance(10 * time.Second)
	assert.False(t, bus.Emit(context.Background(), domain.EventVitalsChange, domain.Payload{}))
	clock.Advance(10 * time.Second)
	assert.True(t, bus.Emit(context.Background(), domain.EventVitalsChange, domain.Payload{}))

	assert.Equal(t, 2, calls)
	assert.Equal(t, BusStats{Dispatched: 2, SuppressedByCooldown: 1}, bus.Stats())
	assert.Equal(t, noon.Add(20*time.Second), awareness.LastReaction[domain.EventVitalsChange])
}

func TestEventBusDispatchesNeverCloserThanCooldown(t *testing.T) {
	t.Parallel()

	clock := newManualClock(noon)
	cooldown := 20 * time.Second
	bus, _ := newTestBus(clock, map[domain.EventType]time.Duration{domain.EventLocationChange: cooldown})

	var seen []time.Time
	bus.Subscribe(domain.EventLocationChange, func(_ context.Context, event domain.Event) error {
		seen = append(seen, event.Timestamp)
		return nil
	})

	steps := []time.Duration{time.Second, 7 * time.Second, 3 * time.Second, 13 * time.Second, 500 * time.Millisecond}
	for i := 0; i < 100; i++ {
		bus.Emit(context.Background(), domain.EventLocationChange, domain.Payload{})
		clock.Advance(steps[i%len(steps)])
	}

	require.Greater(t, len(seen), 1)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].Sub(seen[i-1]), cooldown)
	}
}

func TestEventBusHandlerFailuresDoNotStopOthers(t *testing.T) {
	t.Parallel()

	bus, _ := newTestBus(newManualClock(noon), DefaultCooldowns())

	var order []string
	bus.Subscribe(domain.EventRoll, func(context.Context, domain.Event) error {
		order = append(order, "panics")
		panic("boom")
	})
	bus.Subscribe(domain.EventRoll, func(context.Context, domain.Event) error {
		order = append(order, "fails")
		return errors.New("nope")
	})
	bus.Subscribe(domain.EventRoll, func(context.Context, domain.Event) error {
		order = append(order, "works")
		return nil
	})

	assert.True(t, bus.Emit(context.Background(), domain.EventRoll, domain.Payload{}))
	assert.Equal(t, []string{"panics", "fails", "works"}, order)
}

func TestEventBusUnknownTypes(t *testing.T) {
	t.Parallel()

	bus, _ := newTestBus(newManualClock(noon), DefaultCooldowns())

	unsubscribe := bus.Subscribe("weather", func(context.Context, domain.Event) error {
		t.Fatal("handler for unknown type must not run")
		return nil
	})
	require.NotNil(t, unsubscribe)
	unsubscribe()

	assert.False(t, bus.Emit(context.Background(), "weather", domain.Payload{}))
	assert.Equal(t, BusStats{}, bus.Stats())
}

func TestEventBusUnsubscribe(t *testing.T) {
	t.Parallel()

	bus, _ := newTestBus(newManualClock(noon), DefaultCooldowns())

	first, second := 0, 0
	unsubscribe := bus.Subscribe(domain.EventRoll, func(context.Context, domain.Event) error {
		first++
		return nil
	})
	bus.Subscribe(domain.EventRoll, func(context.Context, domain.Event) error {
		second++
		return nil
	})

	bus.Emit(context.Background(), domain.EventRoll, domain.Payload{})
	unsubscribe()
	unsubscribe()
	bus.Emit(context.Background(), domain.EventRoll, domain.Payload{})

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestEventBusReentrantEmit(t *testing.T) {
	t.Parallel()

	bus, _ := newTestBus(newManualClock(noon), DefaultCooldowns())

	locations, cases := 0, 0
	bus.Subscribe(domain.EventLocationChange, func(ctx context.Context, _ domain.Event) error {
		locations++
		bus.Emit(ctx, domain.EventCaseDelta, domain.Payload{})
		bus.Emit(ctx, domain.EventLocationChange, domain.Payload{})
		return nil
	})
	bus.Subscribe(domain.EventCaseDelta, func(context.Context, domain.Event) error {
		cases++
		return nil
	})

	assert.True(t, bus.Emit(context.Background(), domain.EventLocationChange, domain.Payload{}))
	assert.Equal(t, 1, locations)
	assert.Equal(t, 1, cases)
	assert.Equal(t, 1, bus.Stats().SuppressedByCooldown)
}
