package application

import (
	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
)

type PersonaSelector struct {
	rng ports.Random
}

func NewPersonaSelector(rng ports.Random) *PersonaSelector {
	if rng == nil {
		rng = ports.NewSeededRandom(1)
	}
	return &PersonaSelector{rng: rng}
}

// Select applies the contextual overrides first and otherwise draws from the
// volume's persona weights.
func (s *PersonaSelector) Select(trigger domain.EventType, payload domain.Payload, volume int) domain.PersonaID {
	if id, ok := contextualOverride(trigger, payload); ok {
		return id
	}
	return s.weighted(domain.LevelFor(volume))
}

func contextualOverride(trigger domain.EventType, payload domain.Payload) (domain.PersonaID, bool) {
	switch trigger {
	case domain.EventRoll:
		if payload.Roll == nil {
			return "", false
		}
		if payload.Roll.IsWorstCase && payload.Roll.IsDouble {
			return domain.PersonaShade, true
		}
		if payload.Roll.IsBestCase {
			return domain.PersonaJester, true
		}
	case domain.EventVitalsChange:
		if payload.Vitals != nil && payload.Vitals.IsCritical {
			return domain.PersonaShade, true
		}
	case domain.EventCursed:
		return domain.PersonaShade, true
	case domain.EventRapidRolls:
		return domain.PersonaJester, true
	case domain.EventAbsenceReturn:
		if payload.Absence != nil && payload.Absence.Deep {
			return domain.PersonaArchivist, true
		}
	}
	return "", false
}

func (s *PersonaSelector) weighted(level domain.VolumeLevel) domain.PersonaID {
	candidates := domain.Personas()

	total := 0
	for _, persona := range candidates {
		total += level.Weights[persona.ID]
	}
	if total <= 0 {
		return candidates[0].ID
	}

	pick := s.rng.Intn(total)
	for _, persona := range candidates {
		weight := level.Weights[persona.ID]
		if pick < weight {
			return persona.ID
		}
		pick -= weight
	}

	return candidates[len(candidates)-1].ID
}
