package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
)

type DisplayConfig struct {
	// Delays hold the choreography pause per trigger, so a line does not
	// land before the effect it comments on.
	Delays           map[domain.EventType]time.Duration
	NotifyThreshold  int
	BaseDuration     time.Duration
	PerLevelDuration time.Duration
}

func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Delays: map[domain.EventType]time.Duration{
			domain.EventRoll:          1200 * time.Millisecond,
			domain.EventCursed:        800 * time.Millisecond,
			domain.EventVitalsChange:  400 * time.Millisecond,
			domain.EventUnluckyStreak: 800 * time.Millisecond,
		},
		NotifyThreshold:  3,
		BaseDuration:     3 * time.Second,
		PerLevelDuration: time.Second,
	}
}

type DisplayOptions struct {
	Force bool
}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type DisplayCoordinator struct {
	surface ports.Display
	cfg     DisplayConfig
	wait    WaitFunc
	logger  *slog.Logger
}

func NewDisplayCoordinator(surface ports.Display, cfg DisplayConfig, wait WaitFunc, logger *slog.Logger) *DisplayCoordinator {
	if surface == nil {
		surface = ports.NopDisplay{}
	}
	if wait == nil {
		wait = sleepContext
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DisplayCoordinator{surface: surface, cfg: cfg, wait: wait, logger: logger}
}

// Display waits the trigger's choreography delay, updates the persistent
// slot and, when loud enough or forced, raises a transient notification.
func (c *DisplayCoordinator) Display(ctx context.Context, result domain.GenerationResult, volume int, opts DisplayOptions) error {
	if err := c.wait(ctx, c.cfg.Delays[result.Trigger]); err != nil {
		return fmt.Errorf("wait choreography delay: %w", err)
	}

	var errs error
	if err := c.surface.SetPersistentSlot(result.Text, result.Persona.Token); err != nil {
		errs = errors.Join(errs, fmt.Errorf("set persistent slot: %w", err))
	}

	if opts.Force || volume >= c.cfg.NotifyThreshold {
		duration := c.NotificationDuration(volume)
		if err := c.surface.RaiseNotification(result.Text, result.Persona.DisplayName, duration); err != nil {
			errs = errors.Join(errs, fmt.Errorf("raise notification: %w", err))
		}
	}

	return errs
}

// NotificationDuration grows linearly with volume.
func (c *DisplayCoordinator) NotificationDuration(volume int) time.Duration {
	if volume < 0 {
		volume = 0
	}
	if volume > domain.MaxVolume {
		volume = domain.MaxVolume
	}
	return c.cfg.BaseDuration + time.Duration(volume)*c.cfg.PerLevelDuration
}
