// Package config resolves narrator settings from defaults, the config file
// and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/ambient-narrator/internal/application"
	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".narrator"

	BackendTOML   = "toml"
	BackendSQLite = "sqlite"
)

// Env holds the variables that override the config file.
type Env struct {
	APIKey         string        `env:"NARRATOR_API_KEY"`
	BaseURL        string        `env:"NARRATOR_BASE_URL"`
	Model          string        `env:"NARRATOR_MODEL"`
	Deadline       time.Duration `env:"NARRATOR_DEADLINE"`
	OTelEndpoint   string        `env:"NARRATOR_OTEL_ENDPOINT"`
	SessionBackend string        `env:"NARRATOR_SESSION_BACKEND"`
}

type Generation struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Sessions struct {
	Backend    string
	SQLitePath string
}

type Config struct {
	// Viper is the resolved settings tree, handed to adapters that read
	// their own keys.
	Viper      *viper.Viper
	Dir        string
	Generation Generation
	Sessions   Sessions
	OTel       string
	Engine     application.Config
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads configFile, or config.toml from the narrator directory when
// configFile is empty. A missing default file is not an error.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(homeDir, configDir)

	setDefaults(v, dir)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var overrides Env
	if err := ParseEnv(&overrides); err != nil {
		return Config{}, err
	}
	applyEnv(v, overrides)

	cfg := Config{
		Viper: v,
		Dir:   dir,
		Generation: Generation{
			APIKey:  v.GetString("generation.api_key"),
			BaseURL: v.GetString("generation.base_url"),
			Model:   v.GetString("generation.model"),
		},
		Sessions: Sessions{
			Backend:    strings.ToLower(strings.TrimSpace(v.GetString("sessions.backend"))),
			SQLitePath: v.GetString("sessions.sqlite_path"),
		},
		OTel:   v.GetString("telemetry.endpoint"),
		Engine: engineConfig(v),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	defaults := application.DefaultConfig()

	v.SetDefault("generation.model", "gpt-4o-mini")
	v.SetDefault("generation.deadline", defaults.Orchestrator.Deadline)
	v.SetDefault("generation.call_timeout", defaults.Orchestrator.CallTimeout)
	v.SetDefault("generation.min_length", defaults.Orchestrator.MinLength)
	v.SetDefault("engine.cooldown", defaults.Engine.Cooldown)
	v.SetDefault("engine.density_threshold", defaults.Engine.Escalation.DensityThreshold)
	v.SetDefault("tracker.absence_threshold", defaults.Tracker.AbsenceThreshold)
	v.SetDefault("tracker.pattern_window", defaults.Tracker.PatternWindow)
	v.SetDefault("tracker.rapid_gap", defaults.Tracker.RapidGap)
	v.SetDefault("display.notify_threshold", defaults.Display.NotifyThreshold)
	v.SetDefault("display.base_duration", defaults.Display.BaseDuration)
	v.SetDefault("display.per_level_duration", defaults.Display.PerLevelDuration)
	v.SetDefault("sessions.backend", BackendTOML)
	v.SetDefault("sessions.path", filepath.Join(dir, "sessions.toml"))
	v.SetDefault("sessions.sqlite_path", filepath.Join(dir, "sessions.db"))
}

func applyEnv(v *viper.Viper, overrides Env) {
	set := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			v.Set(key, value)
		}
	}

	set("generation.api_key", overrides.APIKey)
	set("generation.base_url", overrides.BaseURL)
	set("generation.model", overrides.Model)
	set("telemetry.endpoint", overrides.OTelEndpoint)
	set("sessions.backend", overrides.SessionBackend)
	if overrides.Deadline > 0 {
		v.Set("generation.deadline", overrides.Deadline)
	}
}

func engineConfig(v *viper.Viper) application.Config {
	cfg := application.DefaultConfig()

	cfg.Orchestrator.Deadline = v.GetDuration("generation.deadline")
	cfg.Orchestrator.CallTimeout = v.GetDuration("generation.call_timeout")
	cfg.Orchestrator.MinLength = v.GetInt("generation.min_length")
	cfg.Engine.Cooldown = v.GetDuration("engine.cooldown")
	cfg.Engine.Escalation.DensityThreshold = v.GetInt("engine.density_threshold")
	cfg.Tracker.AbsenceThreshold = v.GetDuration("tracker.absence_threshold")
	cfg.Tracker.PatternWindow = v.GetInt("tracker.pattern_window")
	cfg.Tracker.RapidGap = v.GetDuration("tracker.rapid_gap")
	cfg.Display.NotifyThreshold = v.GetInt("display.notify_threshold")
	cfg.Display.BaseDuration = v.GetDuration("display.base_duration")
	cfg.Display.PerLevelDuration = v.GetDuration("display.per_level_duration")

	// Event types contain dots, so [cooldowns.fidget] rapid = "90s" lands on
	// the key cooldowns.fidget.rapid.
	for _, eventType := range domain.KnownEventTypes() {
		key := "cooldowns." + string(eventType)
		if v.IsSet(key) {
			cfg.Cooldowns[eventType] = v.GetDuration(key)
		}
	}

	return cfg
}

func (c Config) validate() error {
	switch c.Sessions.Backend {
	case BackendTOML, BackendSQLite:
	default:
		return fmt.Errorf("unsupported session backend %q", c.Sessions.Backend)
	}
	if c.Engine.Orchestrator.Deadline <= 0 {
		return fmt.Errorf("generation deadline must be positive")
	}
	if c.Engine.Engine.Cooldown < 0 {
		return fmt.Errorf("engine cooldown must not be negative")
	}
	return nil
}
