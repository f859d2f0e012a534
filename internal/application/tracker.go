package application

import (
	"context"
	"time"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
)

type TrackerConfig struct {
	AbsenceThreshold time.Duration
	PatternWindow    int // recent history entries the roll patterns look at
	RapidGap         time.Duration
	RapidCount       int
	UnluckyCount     int
	LowRollCeiling   int
	CursedCount      int
}

func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		AbsenceThreshold: 30 * time.Minute,
		PatternWindow:    5,
		RapidGap:         10 * time.Second,
		RapidCount:       3,
		UnluckyCount:     3,
		LowRollCeiling:   4,
		CursedCount:      2,
	}
}

// Tracker records interactions for one session and turns roll history into
// fidget events.
type Tracker struct {
	awareness *domain.AwarenessState
	engine    *domain.EngineState
	bus       *EventBus
	clock     ports.Clock
	cfg       TrackerConfig
}

func NewTracker(awareness *domain.AwarenessState, engine *domain.EngineState, bus *EventBus, clock ports.Clock, cfg TrackerConfig) *Tracker {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Tracker{awareness: awareness, engine: engine, bus: bus, clock: clock, cfg: cfg}
}

// RecordInteraction stamps the last interaction and, the first time it is
// called for this engine, the engagement start.
func (t *Tracker) RecordInteraction() {
	now := t.clock.Now()
	t.awareness.LastInteraction = now
	t.awareness.InteractionCount++
	if !t.engine.Engaged() {
		t.engine.EngagedAt = now
	}
}

// CheckAbsence returns nil when there is no previous interaction or the gap
// is shorter than the configured threshold.
func (t *Tracker) CheckAbsence() *domain.Absence {
	last := t.awareness.LastInteraction
	if last.IsZero() {
		return nil
	}

	now := t.clock.Now()
	elapsed := now.Sub(last)
	if elapsed < t.cfg.AbsenceThreshold {
		return nil
	}

	return &domain.Absence{
		Minutes:   int(elapsed / time.Minute),
		Formatted: domain.FormatDuration(elapsed),
		Deep:      domain.PeriodAt(now).IsDeep(),
	}
}

// RecordRoll appends outcome to the history and emits the most severe
// pattern found in the recent window in place of the plain roll. The roll
// itself is emitted when there is no pattern or the pattern is still
// cooling down. The detected pattern is returned either way.
func (t *Tracker) RecordRoll(ctx context.Context, outcome domain.RollOutcome) *domain.RollPattern {
	t.RecordInteraction()
	t.awareness.AppendInteraction(domain.Interaction{At: t.awareness.LastInteraction, Roll: outcome})

	roll := outcome
	pattern := t.detectPattern()
	if pattern != nil && t.bus.Emit(ctx, pattern.Kind, domain.Payload{Roll: &roll, Pattern: pattern}) {
		return pattern
	}

	t.bus.Emit(ctx, domain.EventRoll, domain.Payload{Roll: &roll})
	return pattern
}

func (t *Tracker) detectPattern() *domain.RollPattern {
	window := t.recentWindow()
	if len(window) == 0 {
		return nil
	}

	if worst := countWorst(window); worst >= t.cfg.CursedCount {
		return &domain.RollPattern{Kind: domain.EventCursed, Count: worst, Window: span(window)}
	}

	if streak := t.trailingLowStreak(window); streak >= t.cfg.UnluckyCount {
		return &domain.RollPattern{Kind: domain.EventUnluckyStreak, Count: streak, Window: span(window[len(window)-streak:])}
	}

	if run := t.trailingRapidRun(window); run >= t.cfg.RapidCount {
		return &domain.RollPattern{Kind: domain.EventRapidRolls, Count: run, Window: span(window[len(window)-run:])}
	}

	return nil
}

func (t *Tracker) recentWindow() []domain.Interaction {
	history := t.awareness.History
	size := t.cfg.PatternWindow
	if size <= 0 || size > len(history) {
		size = len(history)
	}
	return history[len(history)-size:]
}

func (t *Tracker) isLow(outcome domain.RollOutcome) bool {
	if outcome.IsWorstCase {
		return true
	}
	return outcome.Total > 0 && outcome.Total <= t.cfg.LowRollCeiling
}

func (t *Tracker) trailingLowStreak(window []domain.Interaction) int {
	streak := 0
	for i := len(window) - 1; i >= 0; i-- {
		if !t.isLow(window[i].Roll) {
			break
		}
		streak++
	}
	return streak
}

func (t *Tracker) trailingRapidRun(window []domain.Interaction) int {
	run := 1
	for i := len(window) - 1; i > 0; i-- {
		if window[i].At.Sub(window[i-1].At) > t.cfg.RapidGap {
			break
		}
		run++
	}
	return run
}

func countWorst(window []domain.Interaction) int {
	worst := 0
	for _, entry := range window {
		if entry.Roll.IsWorstCase {
			worst++
		}
	}
	return worst
}

func span(window []domain.Interaction) time.Duration {
	if len(window) < 2 {
		return 0
	}
	return window[len(window)-1].At.Sub(window[0].At)
}
