package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
)

type EngineConfig struct {
	// Cooldown is the minimum spacing between two generation attempts,
	// successful or not.
	Cooldown   time.Duration
	Escalation domain.EscalationConfig
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Cooldown:   15 * time.Second,
		Escalation: domain.DefaultEscalationConfig(),
	}
}

type SpeakOptions struct {
	// Force skips the volume gate and the response roll and always raises a
	// notification. Single-flight and the attempt cooldown still apply.
	Force bool
}

type OutcomeStatus string

const (
	OutcomeSilent     OutcomeStatus = "silent"
	OutcomeSuppressed OutcomeStatus = "suppressed"
	OutcomePending    OutcomeStatus = "pending"
	OutcomeSpoken     OutcomeStatus = "spoken"
	OutcomeFailed     OutcomeStatus = "failed"
)

type Outcome struct {
	Status  OutcomeStatus
	Trigger domain.EventType
	Volume  int
	// Reason explains a suppressed or failed outcome.
	Reason error
	Result *domain.GenerationResult
}

type EngineStats struct {
	Counters domain.Counters
	Volume   int
	InFlight bool
}

// Engine is the single entry point deciding whether, who and what to speak
// for one session.
type Engine struct {
	mu           sync.Mutex
	awareness    *domain.AwarenessState
	state        *domain.EngineState
	tracker      *Tracker
	snapshots    *SnapshotBuilder
	selector     *PersonaSelector
	orchestrator *Orchestrator
	display      *DisplayCoordinator
	rng          ports.Random
	clock        ports.Clock
	cfg          EngineConfig
	logger       *slog.Logger
	background   sync.WaitGroup
}

type EngineDeps struct {
	Awareness    *domain.AwarenessState
	State        *domain.EngineState
	Tracker      *Tracker
	Selector     *PersonaSelector
	Orchestrator *Orchestrator
	Display      *DisplayCoordinator
	Random       ports.Random
	Clock        ports.Clock
	Logger       *slog.Logger
}

func NewEngine(deps EngineDeps, cfg EngineConfig) *Engine {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Random == nil {
		deps.Random = ports.NewSeededRandom(1)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Selector == nil {
		deps.Selector = NewPersonaSelector(deps.Random)
	}
	if deps.Orchestrator == nil {
		deps.Orchestrator = NewOrchestrator(nil, nil, deps.Random, DefaultOrchestratorConfig(), deps.Logger)
	}
	if deps.Display == nil {
		deps.Display = NewDisplayCoordinator(nil, DefaultDisplayConfig(), nil, deps.Logger)
	}

	return &Engine{
		awareness:    deps.Awareness,
		state:        deps.State,
		tracker:      deps.Tracker,
		snapshots:    NewSnapshotBuilder(deps.Awareness, deps.State, deps.Clock, cfg.Escalation),
		selector:     deps.Selector,
		orchestrator: deps.Orchestrator,
		display:      deps.Display,
		rng:          deps.Random,
		clock:        deps.Clock,
		cfg:          cfg,
		logger:       deps.Logger,
	}
}

type speakJob struct {
	trigger  domain.EventType
	payload  domain.Payload
	persona  domain.Persona
	snapshot Snapshot
	force    bool
}

// Speak decides, generates and displays synchronously. It never returns an
// error: every failure is folded into the outcome.
func (e *Engine) Speak(ctx context.Context, trigger domain.EventType, payload domain.Payload, opts SpeakOptions) Outcome {
	job, outcome := e.decide(trigger, payload, opts)
	if job == nil {
		return outcome
	}
	return e.run(ctx, *job)
}

// SpeakAsync takes the decision synchronously and runs generation and
// display in the background. Wait joins the background work.
func (e *Engine) SpeakAsync(ctx context.Context, trigger domain.EventType, payload domain.Payload, opts SpeakOptions) Outcome {
	job, outcome := e.decide(trigger, payload, opts)
	if job == nil {
		return outcome
	}

	e.background.Add(1)
	go func() {
		defer e.background.Done()
		e.run(ctx, *job)
	}()

	return Outcome{Status: OutcomePending, Trigger: job.trigger, Volume: job.snapshot.Volume}
}

func (e *Engine) Wait() {
	e.background.Wait()
}

// Attach subscribes the engine to every event type on bus.
func (e *Engine) Attach(bus *EventBus) (detach func()) {
	unsubscribers := make([]func(), 0, len(domain.KnownEventTypes()))
	for _, eventType := range domain.KnownEventTypes() {
		unsubscribers = append(unsubscribers, bus.Subscribe(eventType, func(ctx context.Context, event domain.Event) error {
			e.SpeakAsync(ctx, event.Type, event.Payload, SpeakOptions{})
			return nil
		}))
	}

	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return EngineStats{
		Counters: e.state.Counters,
		Volume:   e.snapshots.VolumeAt(e.clock.Now()),
		InFlight: e.state.InFlight,
	}
}

func (e *Engine) decide(trigger domain.EventType, payload domain.Payload, opts SpeakOptions) (*speakJob, Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()

	trigger, payload = e.route(trigger, payload)

	if e.state.InFlight {
		return nil, e.suppress(trigger, domain.ErrAlreadyGenerating)
	}

	now := e.clock.Now()
	if !e.state.LastAttempt.IsZero() && now.Sub(e.state.LastAttempt) < e.cfg.Cooldown {
		return nil, e.suppress(trigger, domain.ErrCooldownActive)
	}

	snapshot := e.snapshots.BuildAt(now)
	if snapshot.Volume == 0 && !opts.Force {
		return nil, Outcome{Status: OutcomeSilent, Trigger: trigger}
	}

	if !opts.Force {
		if roll := e.rng.Float64(); roll >= snapshot.Level.ResponseChance {
			outcome := e.suppress(trigger, domain.ErrResponseRollMissed)
			outcome.Volume = snapshot.Volume
			return nil, outcome
		}
	}

	e.state.InFlight = true
	e.state.LastAttempt = now

	persona, ok := domain.PersonaByID(e.selector.Select(trigger, payload, snapshot.Volume))
	if !ok {
		persona = domain.Personas()[0]
	}
	snapshot.Fortune = e.awareness.TakeFortune()

	return &speakJob{
		trigger:  trigger,
		payload:  payload,
		persona:  persona,
		snapshot: snapshot,
		force:    opts.Force,
	}, Outcome{}
}

// route turns a plain compartment open into an absence return when the
// player has been away long enough.
func (e *Engine) route(trigger domain.EventType, payload domain.Payload) (domain.EventType, domain.Payload) {
	if trigger != domain.EventCompartmentOpen {
		return trigger, payload
	}
	if payload.Absence == nil && e.tracker != nil {
		payload.Absence = e.tracker.CheckAbsence()
	}
	if payload.Absence != nil {
		return domain.EventAbsenceReturn, payload
	}
	return trigger, payload
}

func (e *Engine) suppress(trigger domain.EventType, reason error) Outcome {
	e.state.Counters.Suppressed++
	e.logger.Debug("speak suppressed", "trigger", trigger, "reason", reason)
	return Outcome{Status: OutcomeSuppressed, Trigger: trigger, Reason: reason}
}

func (e *Engine) run(ctx context.Context, job speakJob) (outcome Outcome) {
	outcome = Outcome{Status: OutcomeSpoken, Trigger: job.trigger, Volume: job.snapshot.Volume}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("speak panicked", "trigger", job.trigger, "panic", r)
			outcome = Outcome{Status: OutcomeFailed, Trigger: job.trigger, Volume: job.snapshot.Volume, Reason: fmt.Errorf("speak panicked: %v", r)}
		}
		e.mu.Lock()
		e.state.InFlight = false
		e.mu.Unlock()
	}()

	result := e.orchestrator.GenerateLine(ctx, LineRequest{
		Trigger:  job.trigger,
		Payload:  job.payload,
		Persona:  job.persona,
		Snapshot: job.snapshot,
	})

	e.mu.Lock()
	if result.Origin == domain.OriginGenerated {
		e.state.Counters.Generated++
	} else {
		e.state.Counters.Fallback++
	}
	e.mu.Unlock()

	if err := e.display.Display(ctx, result, job.snapshot.Volume, DisplayOptions{Force: job.force}); err != nil {
		e.logger.Warn("display line", "trigger", job.trigger, "error", err)
	}

	outcome.Result = &result
	return outcome
}
