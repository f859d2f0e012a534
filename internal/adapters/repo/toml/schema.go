package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported sessions schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ConversationID  string         `toml:"conversation_id"`
	LastInteraction string         `toml:"last_interaction,omitempty"`
	LastPeriod      string         `toml:"last_period,omitempty"`
	Location        string         `toml:"location,omitempty"`
	OpenCases       *int           `toml:"open_cases,omitempty"`
	UpdatedAt       string         `toml:"updated_at"`
	Vitals          *vitalsSchema  `toml:"vitals,omitempty"`
	Fortune         *fortuneSchema `toml:"fortune,omitempty"`
}

type vitalsSchema struct {
	Current int `toml:"current"`
	Max     int `toml:"max"`
}

type fortuneSchema struct {
	Text    string `toml:"text"`
	DrawnAt string `toml:"drawn_at"`
}
