package domain

import "time"

const MaxVolume = 5

// VolumeLevel is the behavior profile attached to one escalation level.
type VolumeLevel struct {
	Level           int
	ResponseChance  float64
	Verbosity       string
	MaxOutputLength int
	Weights         map[PersonaID]int
}

var volumeLevels = [MaxVolume + 1]VolumeLevel{
	{
		Level:           0,
		ResponseChance:  0,
		Verbosity:       "say nothing at all",
		MaxOutputLength: 0,
		Weights:         map[PersonaID]int{PersonaArchivist: 70, PersonaJester: 25, PersonaShade: 5},
	},
	{
		Level:           1,
		ResponseChance:  0.15,
		Verbosity:       "a fragment of a few words",
		MaxOutputLength: 40,
		Weights:         map[PersonaID]int{PersonaArchivist: 60, PersonaJester: 30, PersonaShade: 10},
	},
	{
		Level:           2,
		ResponseChance:  0.3,
		Verbosity:       "one short sentence",
		MaxOutputLength: 60,
		Weights:         map[PersonaID]int{PersonaArchivist: 50, PersonaJester: 30, PersonaShade: 20},
	},
	{
		Level:           3,
		ResponseChance:  0.5,
		Verbosity:       "one sentence",
		MaxOutputLength: 90,
		Weights:         map[PersonaID]int{PersonaArchivist: 40, PersonaJester: 30, PersonaShade: 30},
	},
	{
		Level:           4,
		ResponseChance:  0.75,
		Verbosity:       "one or two sentences",
		MaxOutputLength: 120,
		Weights:         map[PersonaID]int{PersonaArchivist: 30, PersonaJester: 30, PersonaShade: 40},
	},
	{
		Level:           5,
		ResponseChance:  1,
		Verbosity:       "two or three sentences, unrestrained",
		MaxOutputLength: 160,
		Weights:         map[PersonaID]int{PersonaArchivist: 20, PersonaJester: 25, PersonaShade: 55},
	},
}

// LevelFor returns the profile for volume, clamped to [0, MaxVolume].
func LevelFor(volume int) VolumeLevel {
	return volumeLevels[clampVolume(volume)]
}

type EscalationConfig struct {
	// Breakpoints are the exclusive upper bounds of session age for levels
	// 0 through len-1; anything older maps to len(Breakpoints).
	Breakpoints      []time.Duration
	DensityThreshold int
}

func DefaultEscalationConfig() EscalationConfig {
	return EscalationConfig{
		Breakpoints: []time.Duration{
			2 * time.Minute,
			10 * time.Minute,
			30 * time.Minute,
			60 * time.Minute,
			120 * time.Minute,
		},
		DensityThreshold: 25,
	}
}

// CalculateVolume maps session age, interaction density and time of day to
// a level in [0, MaxVolume]. It is 0 until engagedAt is set. Modifiers only
// apply once the age-based level is above 0 and can only push upward, so for
// a fixed engagedAt and non-decreasing interactionCount the result never
// decreases as now advances.
func CalculateVolume(engagedAt time.Time, interactionCount int, now time.Time, cfg EscalationConfig) int {
	if engagedAt.IsZero() {
		return 0
	}

	elapsed := now.Sub(engagedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	volume := len(cfg.Breakpoints)
	for i, bound := range cfg.Breakpoints {
		if elapsed < bound {
			volume = i
			break
		}
	}
	if volume == 0 {
		return 0
	}

	if interactionCount > cfg.DensityThreshold {
		volume++
	}
	if touchedLateWindow(engagedAt, now) {
		volume++
	}

	return clampVolume(volume)
}

// touchedLateWindow reports whether any instant in [from, to] falls in a late
// period. Looking at the whole span rather than only at to keeps the
// modifier from dropping back off when the clock leaves the window.
func touchedLateWindow(from, to time.Time) bool {
	if !to.After(from) {
		return PeriodAt(from).IsLate()
	}
	if to.Sub(from) >= 24*time.Hour {
		return true
	}

	for t := from; !t.After(to); t = t.Truncate(time.Hour).Add(time.Hour) {
		if PeriodAt(t).IsLate() {
			return true
		}
	}
	return PeriodAt(to).IsLate()
}

func clampVolume(volume int) int {
	if volume < 0 {
		return 0
	}
	if volume > MaxVolume {
		return MaxVolume
	}
	return volume
}
