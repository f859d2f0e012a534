package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bnema/ambient-narrator/internal/application"
	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type outcomeMsg struct {
	outcome application.Outcome
}

// thinkingModel animates while the engine decides and generates, showing
// the trigger and the time spent so far.
type thinkingModel struct {
	spinner spinner.Model
	trigger domain.EventType
	started time.Time
	elapsed time.Duration
	speak   tea.Cmd
	outcome application.Outcome
	settled bool
}

func newThinkingModel(trigger domain.EventType, speak tea.Cmd) thinkingModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("214"))),
	)

	return thinkingModel{
		spinner: s,
		trigger: trigger,
		started: time.Now(),
		speak:   speak,
	}
}

func (m thinkingModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.speak)
}

func (m thinkingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.elapsed = time.Since(m.started)
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case outcomeMsg:
		m.settled = true
		m.elapsed = time.Since(m.started)
		m.outcome = msg.outcome
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m thinkingModel) View() string {
	if m.settled {
		return ""
	}

	return fmt.Sprintf("%s The narrator weighs the %s... %s", m.spinner.View(), m.trigger, m.elapsed.Round(100*time.Millisecond))
}

// runThinkingSpinner animates on output while speak runs and returns its
// outcome once the engine has settled.
func runThinkingSpinner(ctx context.Context, output io.Writer, trigger domain.EventType, speak func(context.Context) application.Outcome) (application.Outcome, error) {
	speakCmd := func() tea.Msg {
		return outcomeMsg{outcome: speak(ctx)}
	}

	p := tea.NewProgram(
		newThinkingModel(trigger, speakCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return application.Outcome{}, err
	}

	result, ok := finalModel.(thinkingModel)
	if !ok {
		return application.Outcome{}, fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.outcome, nil
}
