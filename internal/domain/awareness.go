package domain

import (
	"fmt"
	"time"
)

const DefaultHistoryLimit = 10

type Interaction struct {
	At   time.Time
	Roll RollOutcome
}

type VitalsSnapshot struct {
	Current int
	Max     int
}

// Fortune is the single cross-cutting payload that can wait for a later line.
type Fortune struct {
	Text    string
	DrawnAt time.Time
}

type Absence struct {
	Minutes   int
	Formatted string
	// Deep is set when the return happens in the deep time-of-day window.
	Deep bool
}

// AwarenessState is what the narrator knows about one conversation. It is
// owned by exactly one session and replaced wholesale on session switch.
type AwarenessState struct {
	SessionStart     time.Time
	LastInteraction  time.Time
	LastPeriod       Period
	History          []Interaction
	HistoryLimit     int
	InteractionCount int
	LastReaction     map[EventType]time.Time

	Vitals         *VitalsSnapshot
	Location       string
	OpenCases      *int
	PendingFortune *Fortune
}

func NewAwarenessState(now time.Time) *AwarenessState {
	return &AwarenessState{
		SessionStart: now,
		HistoryLimit: DefaultHistoryLimit,
		LastReaction: map[EventType]time.Time{},
	}
}

// AppendInteraction adds entry to the history, evicting the oldest entries
// beyond HistoryLimit.
func (s *AwarenessState) AppendInteraction(entry Interaction) {
	limit := s.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	s.History = append(s.History, entry)
	if overflow := len(s.History) - limit; overflow > 0 {
		s.History = append([]Interaction(nil), s.History[overflow:]...)
	}
}

// MarkReaction records a reaction for eventType without ever moving the
// stored timestamp backwards.
func (s *AwarenessState) MarkReaction(eventType EventType, at time.Time) {
	if s.LastReaction == nil {
		s.LastReaction = map[EventType]time.Time{}
	}
	if previous, ok := s.LastReaction[eventType]; ok && at.Before(previous) {
		return
	}
	s.LastReaction[eventType] = at
}

// TakeFortune returns the pending fortune, if any, and clears it.
func (s *AwarenessState) TakeFortune() *Fortune {
	fortune := s.PendingFortune
	s.PendingFortune = nil
	return fortune
}

// Persisted returns the narrow subset that survives process restarts.
func (s *AwarenessState) Persisted() PersistedAwareness {
	persisted := PersistedAwareness{
		LastInteraction: s.LastInteraction,
		LastPeriod:      s.LastPeriod,
		Location:        s.Location,
	}
	if s.Vitals != nil {
		vitals := *s.Vitals
		persisted.Vitals = &vitals
	}
	if s.OpenCases != nil {
		cases := *s.OpenCases
		persisted.OpenCases = &cases
	}
	if s.PendingFortune != nil {
		fortune := *s.PendingFortune
		persisted.PendingFortune = &fortune
	}
	return persisted
}

// Restore seeds a fresh state from a persisted subset.
func (s *AwarenessState) Restore(persisted PersistedAwareness) {
	s.LastInteraction = persisted.LastInteraction
	s.LastPeriod = persisted.LastPeriod
	s.Location = persisted.Location
	s.Vitals = persisted.Vitals
	s.OpenCases = persisted.OpenCases
	s.PendingFortune = persisted.PendingFortune
}

// PersistedAwareness is keyed by conversation identity in a session repository.
type PersistedAwareness struct {
	ConversationID  string
	LastInteraction time.Time
	LastPeriod      Period
	Vitals          *VitalsSnapshot
	Location        string
	OpenCases       *int
	PendingFortune  *Fortune
	UpdatedAt       time.Time
}

// FormatDuration renders d as "2 hours 5 minutes", "1 day 3 hours" or
// "45 minutes".
func FormatDuration(d time.Duration) string {
	minutes := int(d / time.Minute)
	if minutes < 1 {
		return "moments"
	}

	days := minutes / (24 * 60)
	hours := (minutes % (24 * 60)) / 60
	mins := minutes % 60

	switch {
	case days > 0:
		if hours == 0 {
			return plural(days, "day")
		}
		return plural(days, "day") + " " + plural(hours, "hour")
	case hours > 0:
		if mins == 0 {
			return plural(hours, "hour")
		}
		return plural(hours, "hour") + " " + plural(mins, "minute")
	default:
		return plural(mins, "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
