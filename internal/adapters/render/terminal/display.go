// Package terminal prints narrator lines to a terminal stream.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bnema/ambient-narrator/internal/ports"
	"github.com/charmbracelet/lipgloss"
)

// Display writes the persistent slot as a single status line and each
// notification as a bordered card.
type Display struct {
	mu     sync.Mutex
	out    io.Writer
	clock  ports.Clock
	styles styles
	slot   string
	token  string
}

var _ ports.Display = (*Display)(nil)

func New(out io.Writer, clock ports.Clock) *Display {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Display{out: out, clock: clock, styles: newStyles()}
}

func (d *Display) SetPersistentSlot(text, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.slot = text
	d.token = token

	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.styles.stamp.Render(d.clock.Now().Format("15:04:05")),
		" ",
		d.styles.marker.Foreground(tokenColor(token)).Render("▌"),
		" ",
		d.styles.slot.Foreground(tokenColor(token)).Render(text),
	)
	if _, err := fmt.Fprintln(d.out, line); err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	return nil
}

func (d *Display) RaiseNotification(text, title string, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	header := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.styles.title.Render(title),
		" ",
		d.styles.meta.Render(fmt.Sprintf("(%s)", duration.Round(time.Second))),
	)
	card := d.styles.card.BorderForeground(tokenColor(d.token)).Render(lipgloss.JoinVertical(lipgloss.Left, header, text))

	if _, err := fmt.Fprintln(d.out, card); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

// Slot returns the text currently held by the persistent slot.
func (d *Display) Slot() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.slot
}

func tokenColor(token string) lipgloss.Color {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "slate":
		return lipgloss.Color("67")
	case "amber":
		return lipgloss.Color("214")
	case "crimson":
		return lipgloss.Color("160")
	default:
		return lipgloss.Color("252")
	}
}
