package domain

import "time"

type Period string

const (
	PeriodWitching  Period = "witching"
	PeriodDawn      Period = "dawn"
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
	PeriodNight     Period = "night"
)

// PeriodAt buckets the wall-clock hour of t into a time-of-day period.
func PeriodAt(t time.Time) Period {
	switch hour := t.Hour(); {
	case hour < 5:
		return PeriodWitching
	case hour < 8:
		return PeriodDawn
	case hour < 12:
		return PeriodMorning
	case hour < 17:
		return PeriodAfternoon
	case hour < 22:
		return PeriodEvening
	default:
		return PeriodNight
	}
}

// IsLate reports whether the period falls in the 22:00-05:00 window that
// raises the escalation volume.
func (p Period) IsLate() bool {
	return p == PeriodNight || p == PeriodWitching
}

// IsDeep reports whether the period is the 00:00-05:00 window used to flavor
// absence returns.
func (p Period) IsDeep() bool {
	return p == PeriodWitching
}

func (p Period) Describe() string {
	switch p {
	case PeriodWitching:
		return "the dead hours after midnight"
	case PeriodDawn:
		return "early dawn"
	case PeriodMorning:
		return "morning"
	case PeriodAfternoon:
		return "afternoon"
	case PeriodEvening:
		return "evening"
	case PeriodNight:
		return "late night"
	default:
		return string(p)
	}
}
