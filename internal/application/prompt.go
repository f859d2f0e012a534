package application

import (
	"fmt"
	"strings"

	"github.com/bnema/ambient-narrator/internal/domain"
)

type Prompt struct {
	System          string
	User            string
	MaxOutputLength int
}

// BuildPrompt renders the two-part prompt for one line.
func BuildPrompt(persona domain.Persona, trigger domain.EventType, payload domain.Payload, snapshot Snapshot) Prompt {
	level := snapshot.Level
	if level.MaxOutputLength == 0 {
		level = domain.LevelFor(1)
	}

	var system strings.Builder
	fmt.Fprintf(&system, "You are %s, an ambient narrator watching over a roleplay session. ", persona.DisplayName)
	fmt.Fprintf(&system, "Voice: %s. ", persona.ToneDescription)
	fmt.Fprintf(&system, "Length: %s. ", level.Verbosity)
	fmt.Fprintf(&system, "It is %s (%s). ", snapshot.Period.Describe(), snapshot.Now.Format("15:04"))
	if snapshot.SessionAge > 0 {
		fmt.Fprintf(&system, "The session has been running for %s. ", domain.FormatDuration(snapshot.SessionAge))
	}
	if snapshot.Fortune != nil {
		fmt.Fprintf(&system, "Earlier you foretold: %q. Weave it in if it fits. ", snapshot.Fortune.Text)
	}
	system.WriteString("Reply with the spoken line only: no quotes, no name, no signature.")

	return Prompt{
		System:          system.String(),
		User:            describeEvent(trigger, payload, snapshot),
		MaxOutputLength: level.MaxOutputLength,
	}
}

func describeEvent(trigger domain.EventType, payload domain.Payload, snapshot Snapshot) string {
	switch trigger {
	case domain.EventRoll:
		if roll := payload.Roll; roll != nil {
			desc := fmt.Sprintf("The player rolled %s for a total of %d.", joinInts(roll.Values), roll.Total)
			switch {
			case roll.IsWorstCase && roll.IsDouble:
				desc += " It is the worst possible double."
			case roll.IsWorstCase:
				desc += " It is the worst possible result."
			case roll.IsBestCase:
				desc += " It is the best possible result."
			case roll.IsDouble:
				desc += " It is a double."
			}
			return desc
		}
		return "The player rolled the dice."
	case domain.EventRapidRolls:
		return fmt.Sprintf("The player rolled %s in quick succession.", patternCount(payload))
	case domain.EventUnluckyStreak:
		return fmt.Sprintf("The player has rolled low %s in a row.", patternCount(payload))
	case domain.EventCursed:
		return fmt.Sprintf("The worst possible result came up %s in the last few rolls.", patternCount(payload))
	case domain.EventVitalsChange:
		if v := payload.Vitals; v != nil {
			desc := fmt.Sprintf("The character took %d %s and is now at %d of %d.", v.Amount, v.ChangeType, v.Current, v.Max)
			if v.IsCritical {
				desc += " This is critical."
			}
			return desc
		}
		return "The character's condition changed."
	case domain.EventLocationChange:
		if l := payload.Location; l != nil {
			if l.From == "" {
				return fmt.Sprintf("The scene is now %s.", l.To)
			}
			return fmt.Sprintf("The scene moved from %s to %s.", l.From, l.To)
		}
		return "The scene moved somewhere new."
	case domain.EventTimeShift:
		if s := payload.TimeShift; s != nil {
			return fmt.Sprintf("The real-world hour has turned from %s to %s.", s.From.Describe(), s.To.Describe())
		}
		return fmt.Sprintf("It is now %s.", snapshot.Period.Describe())
	case domain.EventCaseDelta:
		if c := payload.Cases; c != nil {
			if c.Delta() > 0 {
				return fmt.Sprintf("%d new open case(s); %d open in total.", c.Delta(), c.Current)
			}
			return fmt.Sprintf("%d case(s) closed; %d still open.", -c.Delta(), c.Current)
		}
		return "The list of open cases changed."
	case domain.EventAbsenceReturn:
		if a := payload.Absence; a != nil {
			return fmt.Sprintf("The player opened the panel again after being away for %s.", a.Formatted)
		}
		return "The player came back after a long absence."
	case domain.EventCompartmentOpen:
		return "The player opened the narrator's panel."
	default:
		return fmt.Sprintf("Something happened: %s.", trigger)
	}
}

func patternCount(payload domain.Payload) string {
	if payload.Pattern == nil || payload.Pattern.Count <= 0 {
		return "several times"
	}
	return fmt.Sprintf("%d times", payload.Pattern.Count)
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return "dice"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " and ")
}
