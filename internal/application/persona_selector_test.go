package application

import (
	"testing"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
	"github.com/stretchr/testify/assert"
)

func TestPersonaSelectorOverrides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		trigger domain.EventType
		payload domain.Payload
		want    domain.PersonaID
	}{
		{name: "worst double", trigger: domain.EventRoll, payload: domain.Payload{Roll: &domain.RollOutcome{IsWorstCase: true, IsDouble: true}}, want: domain.PersonaShade},
		{name: "best roll", trigger: domain.EventRoll, payload: domain.Payload{Roll: &domain.RollOutcome{IsBestCase: true}}, want: domain.PersonaJester},
		{name: "critical vitals", trigger: domain.EventVitalsChange, payload: domain.Payload{Vitals: &domain.VitalsChange{IsCritical: true}}, want: domain.PersonaShade},
		{name: "cursed", trigger: domain.EventCursed, want: domain.PersonaShade},
		{name: "rapid", trigger: domain.EventRapidRolls, want: domain.PersonaJester},
		{name: "deep absence", trigger: domain.EventAbsenceReturn, payload: domain.Payload{Absence: &domain.Absence{Deep: true}}, want: domain.PersonaArchivist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			selector := NewPersonaSelector(ports.NewSeededRandom(7))
			for volume := 0; volume <= domain.MaxVolume; volume++ {
				assert.Equal(t, tt.want, selector.Select(tt.trigger, tt.payload, volume))
			}
		})
	}
}

func TestPersonaSelectorWeightsShiftWithVolume(t *testing.T) {
	t.Parallel()

	counts := func(volume int) map[domain.PersonaID]int {
		selector := NewPersonaSelector(ports.NewSeededRandom(42))
		out := map[domain.PersonaID]int{}
		for i := 0; i < 2000; i++ {
			out[selector.Select(domain.EventLocationChange, domain.Payload{}, volume)]++
		}
		return out
	}

	quiet := counts(0)
	loud := counts(domain.MaxVolume)

	assert.Greater(t, quiet[domain.PersonaArchivist], quiet[domain.PersonaShade])
	assert.Greater(t, loud[domain.PersonaShade], loud[domain.PersonaArchivist])
	assert.Greater(t, loud[domain.PersonaShade], quiet[domain.PersonaShade])
}

func TestPersonaSelectorIsDeterministicForSeed(t *testing.T) {
	t.Parallel()

	a := NewPersonaSelector(ports.NewSeededRandom(99))
	b := NewPersonaSelector(ports.NewSeededRandom(99))
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Select(domain.EventCaseDelta, domain.Payload{}, i%6), b.Select(domain.EventCaseDelta, domain.Payload{}, i%6))
	}
}

func TestPersonaSelectorWeightedBoundaries(t *testing.T) {
	t.Parallel()

	// Level 3 weights are 40/30/30 over archivist, jester, shade.
	rng := &scriptedRandom{ints: []int{0, 39, 40, 69, 70, 99}}
	selector := NewPersonaSelector(rng)

	var got []domain.PersonaID
	for i := 0; i < 6; i++ {
		got = append(got, selector.Select(domain.EventLocationChange, domain.Payload{}, 3))
	}

	assert.Equal(t, []domain.PersonaID{
		domain.PersonaArchivist, domain.PersonaArchivist,
		domain.PersonaJester, domain.PersonaJester,
		domain.PersonaShade, domain.PersonaShade,
	}, got)
}
