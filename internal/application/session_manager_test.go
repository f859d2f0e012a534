package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
	"github.com/bnema/ambient-narrator/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestManager(repo ports.SessionRepository, clock ports.Clock) (*SessionManager, *recordingDisplay) {
	display := &recordingDisplay{}
	manager := NewSessionManager(Dependencies{
		Display:    display,
		Repository: repo,
		Clock:      clock,
		Random:     ports.NewSeededRandom(3),
		Logger:     discardLogger(),
		Wait:       noWait,
	}, DefaultConfig())
	return manager, display
}

func TestSessionManagerOpenRequiresConversationID(t *testing.T) {
	t.Parallel()

	manager, _ := newTestManager(newMemoryRepository(), fixedClock{now: noon})
	_, err := manager.Open(context.Background(), "  ")
	require.Error(t, err)
}

func TestSessionManagerOpenRestoresPersistedSubset(t *testing.T) {
	t.Parallel()

	cases := 2
	repo := newMemoryRepository()
	repo.sessions["chat-1"] = domain.PersistedAwareness{
		ConversationID:  "chat-1",
		LastInteraction: noon.Add(-90 * time.Minute),
		LastPeriod:      domain.PeriodMorning,
		Location:        "the lighthouse",
		OpenCases:       &cases,
	}

	manager, _ := newTestManager(repo, fixedClock{now: noon})
	session, err := manager.Open(context.Background(), "chat-1")
	require.NoError(t, err)
	t.Cleanup(session.Close)

	assert.Equal(t, "the lighthouse", session.Awareness.Location)
	assert.Equal(t, domain.PeriodMorning, session.Awareness.LastPeriod)
	require.NotNil(t, session.Awareness.OpenCases)
	assert.Equal(t, 2, *session.Awareness.OpenCases)
	assert.False(t, session.State.Engaged())

	absence := session.Tracker.CheckAbsence()
	require.NotNil(t, absence)
	assert.Equal(t, 90, absence.Minutes)
}

func TestSessionManagerOpenSurvivesBrokenStore(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	repo.loadErr = errors.New("disk on fire")

	manager, _ := newTestManager(repo, fixedClock{now: noon})
	session, err := manager.Open(context.Background(), "chat-1")
	require.NoError(t, err)
	t.Cleanup(session.Close)

	assert.True(t, session.Awareness.LastInteraction.IsZero())
}

func TestSessionManagerSaveStampsIdentity(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockSessionRepository(t)
	repo.On("Load", mock.Anything, "chat-9").Return(domain.PersistedAwareness{}, domain.ErrSessionNotFound).Once()
	repo.On("Save", mock.Anything, mock.MatchedBy(func(p domain.PersistedAwareness) bool {
		return p.ConversationID == "chat-9" && p.Location == "the crypt" && p.UpdatedAt.Equal(noon)
	})).Return(nil).Once()

	manager, _ := newTestManager(repo, fixedClock{now: noon})
	session, err := manager.Open(context.Background(), "chat-9")
	require.NoError(t, err)
	defer session.Close()

	session.Observer.ObserveLocation(context.Background(), "the crypt")
	require.NoError(t, manager.Save(context.Background(), session))
}

func TestSessionManagerSwitchReplacesEverything(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newManualClock(noon)
	repo := newMemoryRepository()
	manager, _ := newTestManager(repo, clock)

	first, err := manager.Open(ctx, "chat-a")
	require.NoError(t, err)
	first.Observer.ObserveLocation(ctx, "the inn")
	for i := 0; i < 3; i++ {
		first.Tracker.RecordRoll(ctx, worstRoll())
		clock.Advance(3 * time.Second)
	}
	require.True(t, first.State.Engaged())

	second, err := manager.Switch(ctx, first, "chat-b")
	require.NoError(t, err)
	t.Cleanup(second.Close)

	assert.Equal(t, "chat-b", second.ConversationID)
	assert.Empty(t, second.Awareness.History)
	assert.Empty(t, second.Awareness.LastReaction)
	assert.Zero(t, second.Awareness.InteractionCount)
	assert.False(t, second.State.Engaged())
	assert.Equal(t, domain.Counters{}, second.Engine.Stats().Counters)
	assert.Empty(t, second.Awareness.Location)

	saved, ok := repo.sessions["chat-a"]
	require.True(t, ok)
	assert.Equal(t, "the inn", saved.Location)

	reopened, err := manager.Switch(ctx, second, "chat-a")
	require.NoError(t, err)
	t.Cleanup(reopened.Close)
	assert.Equal(t, "the inn", reopened.Awareness.Location)
	assert.Empty(t, reopened.Awareness.History)
}

func TestSessionOpenCompartmentAfterLongAbsence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemoryRepository()
	repo.sessions["chat-1"] = domain.PersistedAwareness{ConversationID: "chat-1", LastInteraction: noon.Add(-2 * time.Hour)}

	manager, display := newTestManager(repo, fixedClock{now: noon})
	session, err := manager.Open(ctx, "chat-1")
	require.NoError(t, err)

	assert.True(t, session.OpenCompartment(ctx))
	session.Close()

	assert.Equal(t, noon, session.Awareness.LastInteraction)
	assert.True(t, session.State.Engaged())
	assert.Equal(t, domain.Counters{}, session.Engine.Stats().Counters, "volume is zero right after engagement")
	assert.Empty(t, display.Slots())
}

func TestSessionOpenCompartmentEmitsAbsenceReturnWithCooldown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newManualClock(noon)
	manager, _ := newTestManager(newMemoryRepository(), clock)
	session, err := manager.Open(ctx, "chat-1")
	require.NoError(t, err)
	t.Cleanup(session.Close)

	emitted := map[domain.EventType][]domain.Payload{}
	for _, eventType := range []domain.EventType{domain.EventAbsenceReturn, domain.EventCompartmentOpen} {
		session.Bus.Subscribe(eventType, func(_ context.Context, event domain.Event) error {
			emitted[event.Type] = append(emitted[event.Type], event.Payload)
			return nil
		})
	}

	session.Awareness.LastInteraction = noon.Add(-2 * time.Hour)
	require.True(t, session.OpenCompartment(ctx))
	session.Engine.Wait()
	require.Len(t, emitted[domain.EventAbsenceReturn], 1)
	require.NotNil(t, emitted[domain.EventAbsenceReturn][0].Absence)
	assert.Equal(t, "2 hours", emitted[domain.EventAbsenceReturn][0].Absence.Formatted)
	assert.Empty(t, emitted[domain.EventCompartmentOpen])

	clock.Advance(time.Minute)
	session.Awareness.LastInteraction = clock.Now().Add(-time.Hour)
	require.True(t, session.OpenCompartment(ctx))
	session.Engine.Wait()
	assert.Len(t, emitted[domain.EventAbsenceReturn], 1, "absence return is still cooling down")
	require.Len(t, emitted[domain.EventCompartmentOpen], 1)
	assert.Nil(t, emitted[domain.EventCompartmentOpen][0].Absence)
	assert.Equal(t, 1, session.Bus.Stats().SuppressedByCooldown)
}

func TestSessionPatternTakesTheSpeakingSlotFromTheRoll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newManualClock(noon)
	manager, display := newTestManager(newMemoryRepository(), clock)
	session, err := manager.Open(ctx, "chat-1")
	require.NoError(t, err)
	t.Cleanup(session.Close)
	session.State.EngagedAt = noon.Add(-3 * time.Hour)

	session.Tracker.RecordRoll(ctx, worstRoll())
	session.Engine.Wait()
	clock.Advance(20 * time.Second)
	pattern := session.Tracker.RecordRoll(ctx, worstRoll())
	session.Engine.Wait()

	require.NotNil(t, pattern)
	assert.Equal(t, domain.EventCursed, pattern.Kind)

	slots := display.Slots()
	require.Len(t, slots, 2)
	cursedLines := DefaultFallbackPools()[domain.EventCursed][domain.PersonaShade]
	assert.Contains(t, cursedLines, slots[1])
	assert.Equal(t, domain.Counters{Fallback: 2}, session.Engine.Stats().Counters)
}
