package domain

import "time"

type EventType string

const (
	EventRoll            EventType = "roll"
	EventRapidRolls      EventType = "fidget.rapid"
	EventUnluckyStreak   EventType = "fidget.unlucky"
	EventCursed          EventType = "fidget.cursed"
	EventVitalsChange    EventType = "vitals"
	EventLocationChange  EventType = "location"
	EventTimeShift       EventType = "time.shift"
	EventCaseDelta       EventType = "cases"
	EventCompartmentOpen EventType = "compartment.open"
	EventAbsenceReturn   EventType = "compartment.absence"
)

// KnownEventTypes lists every type the bus accepts, in a stable order.
func KnownEventTypes() []EventType {
	return []EventType{
		EventRoll,
		EventRapidRolls,
		EventUnluckyStreak,
		EventCursed,
		EventVitalsChange,
		EventLocationChange,
		EventTimeShift,
		EventCaseDelta,
		EventCompartmentOpen,
		EventAbsenceReturn,
	}
}

func (t EventType) Known() bool {
	for _, known := range KnownEventTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Event is ephemeral; only the per-type last reaction time outlives dispatch.
type Event struct {
	Type      EventType
	Payload   Payload
	Timestamp time.Time
}

// Payload carries the typed data of a single event. At most one member is set.
type Payload struct {
	Roll      *RollOutcome
	Vitals    *VitalsChange
	Location  *LocationChange
	TimeShift *TimeShift
	Absence   *Absence
	Cases     *CaseDelta
	Pattern   *RollPattern
}

type RollOutcome struct {
	Values      []int
	Total       int
	IsWorstCase bool
	IsBestCase  bool
	IsDouble    bool
}

type VitalsChangeType string

const (
	VitalsDamage VitalsChangeType = "damage"
	VitalsHeal   VitalsChangeType = "heal"
)

type VitalsChange struct {
	ChangeType VitalsChangeType
	Amount     int
	Current    int
	Max        int
	IsCritical bool
}

type LocationChange struct {
	From string
	To   string
}

type TimeShift struct {
	From Period
	To   Period
}

type CaseDelta struct {
	Previous int
	Current  int
}

func (d CaseDelta) Delta() int {
	return d.Current - d.Previous
}

// RollPattern describes the recent-roll window that produced a fidget event.
type RollPattern struct {
	Kind   EventType
	Count  int
	Window time.Duration
}
