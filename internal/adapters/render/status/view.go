package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/ambient-narrator/internal/application"
	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

type RenderOptions struct {
	Now time.Time
	// AwayAfter flags sessions whose player has been gone at least this long.
	AwayAfter time.Duration
}

// Summary is the end-of-run view of one live session.
type Summary struct {
	ConversationID string
	Engine         application.EngineStats
	Bus            application.BusStats
}

// Render draws the persisted state of every session.
func Render(sessions []domain.PersistedAwareness, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderView(sessions, opts, s)
	})
}

func RenderSummary(summary Summary) (string, error) {
	return run(func(s styles) string {
		return renderSummary(summary, s)
	})
}

func renderView(sessions []domain.PersistedAwareness, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Narrator Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d", len(sessions))),
	}

	if len(sessions) == 0 {
		lines = append(lines, s.empty.Render("No saved sessions."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, session := range sessions {
		lines = append(lines, s.section.Render(renderSession(session, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(session domain.PersistedAwareness, opts RenderOptions, s styles) string {
	parts := []string{
		s.session.Render(session.ConversationID),
		lastSeenLine(session.LastInteraction, opts, s),
	}

	if session.LastPeriod != "" {
		parts = append(parts, s.detail.Render(fmt.Sprintf("period: %s", session.LastPeriod.Describe())))
	}
	if strings.TrimSpace(session.Location) != "" {
		parts = append(parts, s.detail.Render(fmt.Sprintf("location: %s", session.Location)))
	}
	if session.OpenCases != nil {
		parts = append(parts, s.detail.Render(fmt.Sprintf("open cases: %d", *session.OpenCases)))
	}
	if session.Vitals != nil {
		parts = append(parts, vitalsLine(*session.Vitals, s))
	}
	if session.PendingFortune != nil {
		parts = append(parts, s.fortune.Render(fmt.Sprintf("pending fortune: %q", session.PendingFortune.Text)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func lastSeenLine(last time.Time, opts RenderOptions, s styles) string {
	label := s.key.Render("last seen:")
	if last.IsZero() {
		return label + " " + s.empty.Render("never")
	}

	now := opts.Now
	if now.IsZero() {
		return label + " " + s.meta.Render(last.Format(time.RFC3339))
	}

	line := label + " " + s.meta.Render(fmt.Sprintf("%s (%s)", humanize.RelTime(last, now, "ago", "from now"), formatClock(last, now)))
	if opts.AwayAfter > 0 && now.Sub(last) >= opts.AwayAfter {
		line += " " + s.warning.Render("[away]")
	}

	return line
}

func vitalsLine(vitals domain.VitalsSnapshot, s styles) string {
	percent := 0.0
	if vitals.Max > 0 {
		percent = float64(vitals.Current) / float64(vitals.Max) * 100
	}

	meta := lipgloss.NewStyle().Foreground(interpolateColor(percent, 0, 100)).Render(fmt.Sprintf("%d/%d", vitals.Current, vitals.Max))
	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render("vitals:"),
		" ",
		renderProgressBar(percent, 20, s),
		" ",
		meta,
	)

	if vitals.Max > 0 && vitals.Current*4 <= vitals.Max {
		line += " " + s.warning.Render("[critical]")
	}

	return line
}

func renderSummary(summary Summary, s styles) string {
	counters := summary.Engine.Counters
	lines := []string{
		s.title.Render("Narrator Summary"),
		s.session.Render(summary.ConversationID),
		s.detail.Render(fmt.Sprintf("volume: %d/%d", summary.Engine.Volume, domain.MaxVolume)),
		s.detail.Render(fmt.Sprintf("lines: %d generated, %d fallback", counters.Generated, counters.Fallback)),
		s.detail.Render(fmt.Sprintf("suppressed: %d by engine, %d by event cooldown", counters.Suppressed, summary.Bus.SuppressedByCooldown)),
		s.meta.Render(fmt.Sprintf("events dispatched: %d", summary.Bus.Dispatched)),
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatClock(at, now time.Time) string {
	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04")
	}

	return at.Format("15:04 on 02 Jan")
}

// interpolateColor maps value onto the 240..255 greyscale ramp.
func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	return lipgloss.Color(fmt.Sprintf("%d", int(240.0+15.0*normalized)))
}
