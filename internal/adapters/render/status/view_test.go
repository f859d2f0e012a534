package status

import (
	"testing"
	"time"

	"github.com/bnema/ambient-narrator/internal/application"
	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSingleSession(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	cases := 2

	output, err := Render([]domain.PersistedAwareness{
		{
			ConversationID:  "chat-1",
			LastInteraction: now.Add(-2 * time.Hour),
			LastPeriod:      domain.PeriodMorning,
			Location:        "the lighthouse",
			OpenCases:       &cases,
			Vitals:          &domain.VitalsSnapshot{Current: 4, Max: 20},
			PendingFortune:  &domain.Fortune{Text: "the tide turns"},
		},
	}, RenderOptions{Now: now, AwayAfter: 30 * time.Minute})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 1")
	assert.Contains(t, output, "chat-1")
	assert.Contains(t, output, "last seen: 2 hours ago (10:00)")
	assert.Contains(t, output, "[away]")
	assert.Contains(t, output, "location: the lighthouse")
	assert.Contains(t, output, "open cases: 2")
	assert.Contains(t, output, "vitals: [====----------------] 4/20 [critical]")
	assert.Contains(t, output, `pending fortune: "the tide turns"`)
}

func TestRenderRecentSessionIsNotAway(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	output, err := Render([]domain.PersistedAwareness{
		{ConversationID: "chat-2", LastInteraction: now.Add(-5 * time.Minute)},
		{ConversationID: "chat-3"},
	}, RenderOptions{Now: now, AwayAfter: 30 * time.Minute})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 2")
	assert.Contains(t, output, "5 minutes ago")
	assert.Contains(t, output, "last seen: never")
	assert.NotContains(t, output, "[away]")
	assert.NotContains(t, output, "vitals:")
}

func TestRenderNoSessions(t *testing.T) {
	output, err := Render(nil, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 0")
	assert.Contains(t, output, "No saved sessions.")
}

func TestRenderSummary(t *testing.T) {
	output, err := RenderSummary(Summary{
		ConversationID: "chat-1",
		Engine: application.EngineStats{
			Counters: domain.Counters{Generated: 2, Fallback: 3, Suppressed: 4},
			Volume:   3,
		},
		Bus: application.BusStats{Dispatched: 12, SuppressedByCooldown: 5},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "volume: 3/5")
	assert.Contains(t, output, "lines: 2 generated, 3 fallback")
	assert.Contains(t, output, "suppressed: 4 by engine, 5 by event cooldown")
	assert.Contains(t, output, "events dispatched: 12")
}

func TestRenderProgressBarBounds(t *testing.T) {
	s := newStyles()

	assert.Equal(t, "[----------]", renderProgressBar(-20, 10, s))
	assert.Equal(t, "[==========]", renderProgressBar(150, 10, s))
	assert.Equal(t, "", renderProgressBar(50, 0, s))
}
