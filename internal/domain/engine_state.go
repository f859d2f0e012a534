package domain

import "time"

type Counters struct {
	Generated  int
	Fallback   int
	Suppressed int
}

// EngineState tracks the narrator's own decisions for one conversation.
// Volume is derived on demand and deliberately absent here.
type EngineState struct {
	// EngagedAt is the first qualifying interaction; zero until then.
	EngagedAt   time.Time
	InFlight    bool
	LastAttempt time.Time
	Counters    Counters
}

func NewEngineState() *EngineState {
	return &EngineState{}
}

func (s *EngineState) Engaged() bool {
	return !s.EngagedAt.IsZero()
}

type Origin string

const (
	OriginGenerated Origin = "generated"
	OriginFallback  Origin = "fallback"
)

type GenerationResult struct {
	Text    string
	Persona Persona
	Origin  Origin
	Trigger EventType
	// Cause is why a fallback line was used; nil for generated lines.
	Cause error
}
