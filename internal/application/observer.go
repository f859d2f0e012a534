package application

import (
	"context"
	"log/slog"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
)

// Observer turns raw host readings into change events. It compares every
// reading with the last one kept in the session's AwarenessState; the first
// reading of each kind only seeds the state.
type Observer struct {
	awareness *domain.AwarenessState
	bus       *EventBus
	clock     ports.Clock
	logger    *slog.Logger
}

func NewObserver(awareness *domain.AwarenessState, bus *EventBus, clock ports.Clock, logger *slog.Logger) *Observer {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Observer{awareness: awareness, bus: bus, clock: clock, logger: logger}
}

// ObserveVitals reports whether a vitals event was emitted.
func (o *Observer) ObserveVitals(ctx context.Context, current, maximum int) bool {
	previous := o.awareness.Vitals
	o.awareness.Vitals = &domain.VitalsSnapshot{Current: current, Max: maximum}
	if previous == nil || previous.Current == current {
		return false
	}

	change := domain.VitalsChange{
		ChangeType: domain.VitalsDamage,
		Amount:     previous.Current - current,
		Current:    current,
		Max:        maximum,
		IsCritical: maximum > 0 && current*4 <= maximum,
	}
	if current > previous.Current {
		change.ChangeType = domain.VitalsHeal
		change.Amount = current - previous.Current
	}

	return o.bus.Emit(ctx, domain.EventVitalsChange, domain.Payload{Vitals: &change})
}

func (o *Observer) ObserveLocation(ctx context.Context, to string) bool {
	from := o.awareness.Location
	o.awareness.Location = to
	if from == "" || from == to {
		return false
	}

	return o.bus.Emit(ctx, domain.EventLocationChange, domain.Payload{Location: &domain.LocationChange{From: from, To: to}})
}

func (o *Observer) ObserveCaseCount(ctx context.Context, count int) bool {
	previous := o.awareness.OpenCases
	current := count
	o.awareness.OpenCases = &current
	if previous == nil || *previous == count {
		return false
	}

	return o.bus.Emit(ctx, domain.EventCaseDelta, domain.Payload{Cases: &domain.CaseDelta{Previous: *previous, Current: count}})
}

// ObserveClock emits a time shift when the wall clock entered a new period
// since the last observation.
func (o *Observer) ObserveClock(ctx context.Context) bool {
	now := domain.PeriodAt(o.clock.Now())
	previous := o.awareness.LastPeriod
	o.awareness.LastPeriod = now
	if previous == "" || previous == now {
		return false
	}

	o.logger.Debug("period changed", "from", previous, "to", now)
	return o.bus.Emit(ctx, domain.EventTimeShift, domain.Payload{TimeShift: &domain.TimeShift{From: previous, To: now}})
}

// SetFortune replaces the pending fortune. An empty text clears it.
func (o *Observer) SetFortune(text string) {
	if text == "" {
		o.awareness.PendingFortune = nil
		return
	}
	o.awareness.PendingFortune = &domain.Fortune{Text: text, DrawnAt: o.clock.Now()}
}

// ConsumeFortune takes the pending fortune out of the session.
func (o *Observer) ConsumeFortune() *domain.Fortune {
	return o.awareness.TakeFortune()
}
