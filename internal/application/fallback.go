package application

import (
	"strconv"
	"strings"

	"github.com/bnema/ambient-narrator/internal/domain"
)

// FallbackPools are the static lines used whenever generation is slow,
// failing or unusable, keyed by trigger and persona.
type FallbackPools map[domain.EventType]map[domain.PersonaID][]string

// Lines returns the pool for trigger and persona, falling back to the
// persona's generic pool. The result is never empty.
func (p FallbackPools) Lines(trigger domain.EventType, persona domain.PersonaID) []string {
	if lines := p[trigger][persona]; len(lines) > 0 {
		return lines
	}
	if lines := genericLines[persona]; len(lines) > 0 {
		return lines
	}
	return genericLines[domain.PersonaArchivist]
}

var genericLines = map[domain.PersonaID][]string{
	domain.PersonaArchivist: {
		"Noted, at {time}.",
		"Another entry for the ledger.",
	},
	domain.PersonaJester: {
		"Oh, this is going well.",
		"I saw that. Everyone saw that.",
	},
	domain.PersonaShade: {
		"I am still here.",
		"Keep going. I am listening.",
	},
}

func DefaultFallbackPools() FallbackPools {
	return FallbackPools{
		domain.EventRoll: {
			domain.PersonaArchivist: {"A {total}. Recorded.", "The dice settle on {total}."},
			domain.PersonaJester:    {"A {total}! Frame it.", "{total}? Bold choice."},
			domain.PersonaShade:     {"{total}. The dice remember.", "They landed on {total}. Of course they did."},
		},
		domain.EventRapidRolls: {
			domain.PersonaArchivist: {"Several rolls in quick succession. Impatience noted.", "The pace is quickening."},
			domain.PersonaJester:    {"Roll faster, maybe that helps.", "Shake harder, that always works."},
			domain.PersonaShade:     {"So eager. So very eager.", "Hurry, then. I can wait."},
		},
		domain.EventUnluckyStreak: {
			domain.PersonaArchivist: {"Three low results in a row. A pattern is forming.", "The record shows a run of poor fortune."},
			domain.PersonaJester:    {"Is it the dice, or is it you?", "A streak! Not the good kind."},
			domain.PersonaShade:     {"Luck has turned its face away.", "Low, and lower still."},
		},
		domain.EventCursed: {
			domain.PersonaArchivist: {"Two worst outcomes in a short span. Statistically unkind.", "The worst result, again. Filed under curses."},
			domain.PersonaJester:    {"Cursed dice! Wonderful!", "Someone hexed those bones."},
			domain.PersonaShade:     {"You are marked now.", "The dice have chosen. Not you."},
		},
		domain.EventVitalsChange: {
			domain.PersonaArchivist: {"Condition updated.", "A change in vitals, logged at {time}."},
			domain.PersonaJester:    {"That looked like it hurt.", "Walk it off."},
			domain.PersonaShade:     {"I can hear your heartbeat from here.", "Fragile thing."},
		},
		domain.EventLocationChange: {
			domain.PersonaArchivist: {"New location: {location}.", "Arrived at {location}."},
			domain.PersonaJester:    {"{location}? Fancy.", "Oh, {location}. Lovely this time of year."},
			domain.PersonaShade:     {"{location} has been waiting for you.", "Something followed you to {location}."},
		},
		domain.EventTimeShift: {
			domain.PersonaArchivist: {"The hour turns. It is {time}.", "Time moves on."},
			domain.PersonaJester:    {"Look at the clock. Go on, look.", "{time} already? Time flies when you are failing."},
			domain.PersonaShade:     {"The light is changing.", "{time}. The hour grows thin."},
		},
		domain.EventCaseDelta: {
			domain.PersonaArchivist: {"The casebook changes.", "Open matters updated."},
			domain.PersonaJester:    {"More homework!", "Another loose end. Collect them all."},
			domain.PersonaShade:     {"Every thread leads somewhere dark.", "The list grows."},
		},
		domain.EventCompartmentOpen: {
			domain.PersonaArchivist: {"Welcome back.", "The ledger is open."},
			domain.PersonaJester:    {"Oh good, it's you.", "Back for more?"},
			domain.PersonaShade:     {"There you are.", "I wondered when you would look."},
		},
		domain.EventAbsenceReturn: {
			domain.PersonaArchivist: {"You were away for {duration}.", "It has been {duration} since your last entry."},
			domain.PersonaJester:    {"Gone for {duration}! I nearly got bored.", "Gone {duration} and not even a postcard."},
			domain.PersonaShade:     {"{duration} in the dark. I counted.", "You left me alone for {duration}."},
		},
	}
}

// fillPlaceholders substitutes {time}, {duration}, {location} and {total}.
func fillPlaceholders(line string, payload domain.Payload, snapshot Snapshot) string {
	duration := domain.FormatDuration(snapshot.SessionAge)
	if payload.Absence != nil {
		duration = payload.Absence.Formatted
	}

	location := snapshot.Location
	if payload.Location != nil && payload.Location.To != "" {
		location = payload.Location.To
	}
	if location == "" {
		location = "here"
	}

	total := "nothing"
	if payload.Roll != nil {
		total = strconv.Itoa(payload.Roll.Total)
	}

	return strings.NewReplacer(
		"{time}", snapshot.Now.Format("15:04"),
		"{duration}", duration,
		"{location}", location,
		"{total}", total,
	).Replace(line)
}
