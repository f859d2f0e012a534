package domain

type PersonaID string

const (
	PersonaArchivist PersonaID = "archivist"
	PersonaJester    PersonaID = "jester"
	PersonaShade     PersonaID = "shade"
)

// Persona is immutable data; behavior differences live in prompts and pools.
type Persona struct {
	ID              PersonaID
	DisplayName     string
	ToneDescription string
	// Token is the color/tone token handed to the display surface.
	Token string
}

var personas = []Persona{
	{
		ID:              PersonaArchivist,
		DisplayName:     "The Archivist",
		ToneDescription: "measured, dry and precise; notes what happened as if filing it away, never raises its voice",
		Token:           "slate",
	},
	{
		ID:              PersonaJester,
		DisplayName:     "The Jester",
		ToneDescription: "quick, mocking and playful; delights in bad luck and good luck alike, speaks in jabs",
		Token:           "amber",
	},
	{
		ID:              PersonaShade,
		DisplayName:     "The Shade",
		ToneDescription: "low, intimate and ominous; speaks as something that has been watching for a long time",
		Token:           "crimson",
	},
}

// Personas returns the fixed persona set in a stable order.
func Personas() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}

func PersonaByID(id PersonaID) (Persona, bool) {
	for _, p := range personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}
