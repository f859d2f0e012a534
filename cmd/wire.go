package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	generationdisabled "github.com/bnema/ambient-narrator/internal/adapters/generation/disabled"
	generationopenai "github.com/bnema/ambient-narrator/internal/adapters/generation/openai"
	statusadapter "github.com/bnema/ambient-narrator/internal/adapters/render/status"
	sqliterepo "github.com/bnema/ambient-narrator/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/ambient-narrator/internal/adapters/repo/toml"
	"github.com/bnema/ambient-narrator/internal/adapters/telemetry"
	"github.com/bnema/ambient-narrator/internal/application"
	"github.com/bnema/ambient-narrator/internal/config"
	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
	"github.com/bnema/ambient-narrator/internal/version"
	"github.com/spf13/viper"
)

const serviceName = "narrator"

// sessionStore is what the commands need from either backend.
type sessionStore interface {
	ports.SessionRepository
	ports.SessionCatalog
}

type app struct {
	cfg             config.Config
	logger          *slog.Logger
	sessions        sessionStore
	generator       ports.Generator
	statusRenderer  func([]domain.PersistedAwareness, statusadapter.RenderOptions) (string, error)
	summaryRenderer func(statusadapter.Summary) (string, error)
	now             func() time.Time
	closers         []func(context.Context) error
}

func wireApp(ctx context.Context, configFile string, logger *slog.Logger) (*app, error) {
	cfg, err := config.Load(viper.New(), configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{
		cfg:             cfg,
		logger:          logger,
		statusRenderer:  statusadapter.Render,
		summaryRenderer: statusadapter.RenderSummary,
		now:             time.Now,
	}

	switch cfg.Sessions.Backend {
	case config.BackendSQLite:
		store, err := sqliterepo.Open(cfg.Sessions.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("wire sqlite session store: %w", err)
		}
		a.sessions = store
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	default:
		repo, err := tomlrepo.NewRepository(cfg.Viper)
		if err != nil {
			return nil, fmt.Errorf("wire toml session repository: %w", err)
		}
		a.sessions = repo
	}

	if cfg.Generation.APIKey == "" {
		logger.Debug("no api key configured, narrator will use static lines")
		a.generator = generationdisabled.Generator{}
	} else {
		generator, err := generationopenai.New(generationopenai.Config{
			APIKey:  cfg.Generation.APIKey,
			BaseURL: cfg.Generation.BaseURL,
			Model:   cfg.Generation.Model,
			Timeout: cfg.Engine.Orchestrator.CallTimeout,
		}, logger)
		if err != nil {
			_ = a.close(ctx)
			return nil, fmt.Errorf("wire generator: %w", err)
		}
		a.generator = generator
	}

	shutdown, err := telemetry.Setup(ctx, serviceName, cfg.OTel, version.Version)
	if err != nil {
		_ = a.close(ctx)
		return nil, fmt.Errorf("wire telemetry: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	return a, nil
}

// newManager builds a session manager around one display surface. Commands
// pick the clock and the choreography wait.
func (a *app) newManager(display ports.Display, clock ports.Clock, random ports.Random, wait application.WaitFunc) *application.SessionManager {
	return application.NewSessionManager(application.Dependencies{
		Generator:  a.generator,
		Display:    display,
		Repository: a.sessions,
		Clock:      clock,
		Random:     random,
		Logger:     a.logger,
		Wait:       wait,
	}, a.cfg.Engine)
}

func (a *app) close(ctx context.Context) error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = errors.Join(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errs
}
