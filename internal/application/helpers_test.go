package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/ambient-narrator/internal/domain"
)

var noon = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedRandom replays fixed values and then keeps returning zero.
type scriptedRandom struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
}

func (r *scriptedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

type stubGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (g *stubGenerator) Generate(context.Context, string, string, int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.text, g.err
}

func (g *stubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// blockingGenerator holds every call until release is closed or the call
// context ends.
type blockingGenerator struct {
	text    string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingGenerator(text string) *blockingGenerator {
	return &blockingGenerator{text: text, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *blockingGenerator) Generate(ctx context.Context, _, _ string, _ int) (string, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return g.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type recordingDisplay struct {
	mu            sync.Mutex
	slots         []string
	notifications []string
}

func (d *recordingDisplay) SetPersistentSlot(text, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slots = append(d.slots, text)
	return nil
}

func (d *recordingDisplay) RaiseNotification(text, _ string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, text)
	return nil
}

func (d *recordingDisplay) Slots() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.slots...)
}

type memoryRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.PersistedAwareness
	loadErr  error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{sessions: map[string]domain.PersistedAwareness{}}
}

func (r *memoryRepository) Load(_ context.Context, conversationID string) (domain.PersistedAwareness, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return domain.PersistedAwareness{}, r.loadErr
	}
	persisted, ok := r.sessions[conversationID]
	if !ok {
		return domain.PersistedAwareness{}, domain.ErrSessionNotFound
	}
	return persisted, nil
}

func (r *memoryRepository) Save(_ context.Context, awareness domain.PersistedAwareness) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[awareness.ConversationID] = awareness
	return nil
}

func noWait(context.Context, time.Duration) error {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func worstRoll() domain.RollOutcome {
	return domain.RollOutcome{Values: []int{1, 1}, Total: 2, IsWorstCase: true, IsDouble: true}
}
