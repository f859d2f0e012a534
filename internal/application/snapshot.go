package application

import (
	"time"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
)

// Snapshot is a point-in-time view of a session used for decisions and
// prompts. It holds copies, never references into the live state.
type Snapshot struct {
	Now              time.Time
	Volume           int
	Level            domain.VolumeLevel
	Period           domain.Period
	SessionAge       time.Duration
	InteractionCount int
	RecentRolls      []domain.RollOutcome
	Vitals           *domain.VitalsSnapshot
	Location         string
	OpenCases        *int
	Fortune          *domain.Fortune
}

type SnapshotBuilder struct {
	awareness  *domain.AwarenessState
	engine     *domain.EngineState
	clock      ports.Clock
	escalation domain.EscalationConfig
}

func NewSnapshotBuilder(awareness *domain.AwarenessState, engine *domain.EngineState, clock ports.Clock, escalation domain.EscalationConfig) *SnapshotBuilder {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SnapshotBuilder{awareness: awareness, engine: engine, clock: clock, escalation: escalation}
}

func (b *SnapshotBuilder) Build() Snapshot {
	return b.BuildAt(b.clock.Now())
}

func (b *SnapshotBuilder) BuildAt(now time.Time) Snapshot {
	volume := b.VolumeAt(now)

	snapshot := Snapshot{
		Now:              now,
		Volume:           volume,
		Level:            domain.LevelFor(volume),
		Period:           domain.PeriodAt(now),
		InteractionCount: b.awareness.InteractionCount,
		Location:         b.awareness.Location,
	}
	if b.engine.Engaged() {
		snapshot.SessionAge = now.Sub(b.engine.EngagedAt)
	}

	snapshot.RecentRolls = make([]domain.RollOutcome, 0, len(b.awareness.History))
	for _, entry := range b.awareness.History {
		snapshot.RecentRolls = append(snapshot.RecentRolls, entry.Roll)
	}
	if b.awareness.Vitals != nil {
		vitals := *b.awareness.Vitals
		snapshot.Vitals = &vitals
	}
	if b.awareness.OpenCases != nil {
		cases := *b.awareness.OpenCases
		snapshot.OpenCases = &cases
	}

	return snapshot
}

// VolumeAt recomputes the escalation level; it is never cached.
func (b *SnapshotBuilder) VolumeAt(now time.Time) int {
	return domain.CalculateVolume(b.engine.EngagedAt, b.awareness.InteractionCount, now, b.escalation)
}
