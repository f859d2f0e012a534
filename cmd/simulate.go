package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	statusadapter "github.com/bnema/ambient-narrator/internal/adapters/render/status"
	"github.com/bnema/ambient-narrator/internal/adapters/render/terminal"
	"github.com/bnema/ambient-narrator/internal/application"
	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

const (
	actionRoll     = "roll"
	actionVitals   = "vitals"
	actionLocation = "location"
	actionCases    = "cases"
	actionOpen     = "open"
	actionAdvance  = "advance"
	actionFortune  = "fortune"
)

// script is a replayable session. Steps run in order against a virtual
// clock that only moves on advance steps.
type script struct {
	Conversation string       `toml:"conversation"`
	Start        time.Time    `toml:"start"`
	Steps        []scriptStep `toml:"steps"`
}

type scriptStep struct {
	Action   string `toml:"action"`
	Dice     []int  `toml:"dice"`
	Sides    int    `toml:"sides"`
	Current  int    `toml:"current"`
	Max      int    `toml:"max"`
	To       string `toml:"to"`
	Count    int    `toml:"count"`
	Duration string `toml:"duration"`
	Text     string `toml:"text"`
}

type scriptClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *scriptClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *scriptClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSimulateCmd(rt *rootState) *cobra.Command {
	var (
		scriptPath     string
		conversationID string
		seed           int64
		fast           bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a scripted session against a virtual clock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := loadScript(scriptPath)
			if err != nil {
				return err
			}

			if conversationID == "" {
				conversationID = sc.Conversation
			}
			if conversationID == "" {
				conversationID = uuid.NewString()
			}

			start := sc.Start
			if start.IsZero() {
				start = rt.app.now()
			}
			clock := &scriptClock{now: start}

			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}

			var wait application.WaitFunc
			if fast {
				wait = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
			}

			display := terminal.New(cmd.OutOrStdout(), clock)
			manager := rt.app.newManager(display, clock, ports.NewSeededRandom(seed), wait)

			return runScript(cmd.Context(), cmd, rt.app, manager, clock, conversationID, sc.Steps)
		},
	}

	cmd.Flags().StringVar(&scriptPath, "script", "", "TOML script to replay")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation id (default from script, else random)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for persona and fallback picks")
	cmd.Flags().BoolVar(&fast, "fast", false, "Skip choreography delays")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func loadScript(path string) (script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return script{}, fmt.Errorf("read script: %w", err)
	}

	var sc script
	if err := toml.Unmarshal(data, &sc); err != nil {
		return script{}, fmt.Errorf("decode script %s: %w", path, err)
	}

	for i := range sc.Steps {
		if err := sc.Steps[i].validate(); err != nil {
			return script{}, fmt.Errorf("script step %d: %w", i+1, err)
		}
	}

	return sc, nil
}

func (s *scriptStep) validate() error {
	s.Action = strings.ToLower(strings.TrimSpace(s.Action))

	switch s.Action {
	case actionRoll:
		if len(s.Dice) == 0 {
			return fmt.Errorf("roll needs dice")
		}
		if s.Sides <= 0 {
			s.Sides = 6
		}
		for _, value := range s.Dice {
			if value < 1 || value > s.Sides {
				return fmt.Errorf("die value %d outside 1..%d", value, s.Sides)
			}
		}
	case actionVitals:
		if s.Max <= 0 {
			return fmt.Errorf("vitals needs a positive max")
		}
	case actionLocation:
		if strings.TrimSpace(s.To) == "" {
			return fmt.Errorf("location needs a destination")
		}
	case actionCases:
		if s.Count < 0 {
			return fmt.Errorf("cases count must not be negative")
		}
	case actionAdvance:
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return fmt.Errorf("parse advance duration: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("advance duration must not be negative")
		}
	case actionOpen, actionFortune:
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}

	return nil
}

func runScript(ctx context.Context, cmd *cobra.Command, app *app, manager *application.SessionManager, clock *scriptClock, conversationID string, steps []scriptStep) error {
	session, err := manager.Open(ctx, conversationID)
	if err != nil {
		return err
	}

	for _, step := range steps {
		applyStep(ctx, session, clock, step)
		// Each step settles before the next so lines print in script order.
		session.Engine.Wait()
	}

	session.Close()
	if err := manager.Save(ctx, session); err != nil {
		return err
	}

	rendered, err := app.summaryRenderer(statusadapter.Summary{
		ConversationID: session.ConversationID,
		Engine:         session.Engine.Stats(),
		Bus:            session.Bus.Stats(),
	})
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func applyStep(ctx context.Context, session *application.Session, clock *scriptClock, step scriptStep) {
	switch step.Action {
	case actionRoll:
		session.Tracker.RecordRoll(ctx, rollOutcome(step.Dice, step.Sides))
	case actionVitals:
		session.Observer.ObserveVitals(ctx, step.Current, step.Max)
	case actionLocation:
		session.Observer.ObserveLocation(ctx, strings.TrimSpace(step.To))
	case actionCases:
		session.Observer.ObserveCaseCount(ctx, step.Count)
	case actionOpen:
		session.OpenCompartment(ctx)
	case actionAdvance:
		d, _ := time.ParseDuration(step.Duration)
		clock.Advance(d)
		session.Observer.ObserveClock(ctx)
	case actionFortune:
		session.Observer.SetFortune(step.Text)
	}
}

func rollOutcome(values []int, sides int) domain.RollOutcome {
	outcome := domain.RollOutcome{
		Values:      append([]int(nil), values...),
		IsWorstCase: true,
		IsBestCase:  true,
	}

	for _, value := range values {
		outcome.Total += value
		if value != 1 {
			outcome.IsWorstCase = false
		}
		if value != sides {
			outcome.IsBestCase = false
		}
	}
	outcome.IsDouble = len(values) == 2 && values[0] == values[1]

	return outcome
}
