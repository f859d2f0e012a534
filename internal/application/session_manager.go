package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
)

type Dependencies struct {
	Generator  ports.Generator
	Display    ports.Display
	Repository ports.SessionRepository
	Clock      ports.Clock
	Random     ports.Random
	Logger     *slog.Logger
	// Wait replaces the choreography sleep, mostly in tests and replays.
	Wait WaitFunc
}

type Config struct {
	Engine       EngineConfig
	Tracker      TrackerConfig
	Orchestrator OrchestratorConfig
	Display      DisplayConfig
	Cooldowns    map[domain.EventType]time.Duration
	Pools        FallbackPools
}

func DefaultConfig() Config {
	return Config{
		Engine:       DefaultEngineConfig(),
		Tracker:      DefaultTrackerConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
		Display:      DefaultDisplayConfig(),
		Cooldowns:    DefaultCooldowns(),
		Pools:        DefaultFallbackPools(),
	}
}

// Session is everything the narrator holds for one conversation.
type Session struct {
	ConversationID string
	Awareness      *domain.AwarenessState
	State          *domain.EngineState
	Bus            *EventBus
	Tracker        *Tracker
	Observer       *Observer
	Engine         *Engine

	detach func()
}

// OpenCompartment is the host telling the narrator its panel was opened.
// The absence is measured before the open counts as an interaction. A long
// absence is emitted as its own event; while that event cools down the open
// goes out as a plain one.
func (s *Session) OpenCompartment(ctx context.Context) bool {
	absence := s.Tracker.CheckAbsence()
	s.Tracker.RecordInteraction()
	if absence != nil && s.Bus.Emit(ctx, domain.EventAbsenceReturn, domain.Payload{Absence: absence}) {
		return true
	}
	return s.Bus.Emit(ctx, domain.EventCompartmentOpen, domain.Payload{})
}

// Close unsubscribes the engine and waits for lines still being produced.
func (s *Session) Close() {
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
	s.Engine.Wait()
}

type SessionManager struct {
	deps   Dependencies
	cfg    Config
	orch   *Orchestrator
	screen *DisplayCoordinator
}

func NewSessionManager(deps Dependencies, cfg Config) *SessionManager {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Random == nil {
		deps.Random = ports.NewSeededRandom(time.Now().UnixNano())
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Repository == nil {
		deps.Repository = ports.NopSessionRepository{}
	}
	if cfg.Cooldowns == nil {
		cfg.Cooldowns = DefaultCooldowns()
	}

	return &SessionManager{
		deps:   deps,
		cfg:    cfg,
		orch:   NewOrchestrator(deps.Generator, cfg.Pools, deps.Random, cfg.Orchestrator, deps.Logger),
		screen: NewDisplayCoordinator(deps.Display, cfg.Display, deps.Wait, deps.Logger),
	}
}

// Open builds a fresh session for conversationID, seeded from the persisted
// subset when the repository has one. A broken store never prevents a
// session from opening.
func (m *SessionManager) Open(ctx context.Context, conversationID string) (*Session, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, fmt.Errorf("open session: conversation id is required")
	}

	now := m.deps.Clock.Now()
	awareness := domain.NewAwarenessState(now)
	state := domain.NewEngineState()
	logger := m.deps.Logger.With("conversation_id", conversationID)

	persisted, err := m.deps.Repository.Load(ctx, conversationID)
	switch {
	case err == nil:
		awareness.Restore(persisted)
		logger.Debug("restored session", "last_interaction", persisted.LastInteraction)
	case errors.Is(err, domain.ErrSessionNotFound):
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("load session, starting fresh", "error", err)
	}

	bus := NewEventBus(awareness, m.cfg.Cooldowns, m.deps.Clock, logger)
	tracker := NewTracker(awareness, state, bus, m.deps.Clock, m.cfg.Tracker)
	engine := NewEngine(EngineDeps{
		Awareness:    awareness,
		State:        state,
		Tracker:      tracker,
		Selector:     NewPersonaSelector(m.deps.Random),
		Orchestrator: m.orch,
		Display:      m.screen,
		Random:       m.deps.Random,
		Clock:        m.deps.Clock,
		Logger:       logger,
	}, m.cfg.Engine)

	return &Session{
		ConversationID: conversationID,
		Awareness:      awareness,
		State:          state,
		Bus:            bus,
		Tracker:        tracker,
		Observer:       NewObserver(awareness, bus, m.deps.Clock, logger),
		Engine:         engine,
		detach:         engine.Attach(bus),
	}, nil
}

func (m *SessionManager) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}

	persisted := session.Awareness.Persisted()
	persisted.ConversationID = session.ConversationID
	persisted.UpdatedAt = m.deps.Clock.Now()

	if err := m.deps.Repository.Save(ctx, persisted); err != nil {
		return fmt.Errorf("save session %s: %w", session.ConversationID, err)
	}
	return nil
}

// Switch closes and saves current, then opens nextID with entirely new
// state. Nothing of current leaks into the returned session.
func (m *SessionManager) Switch(ctx context.Context, current *Session, nextID string) (*Session, error) {
	if current != nil {
		current.Close()
		if err := m.Save(ctx, current); err != nil {
			m.deps.Logger.Warn("save session before switch", "conversation_id", current.ConversationID, "error", err)
		}
	}

	return m.Open(ctx, nextID)
}
