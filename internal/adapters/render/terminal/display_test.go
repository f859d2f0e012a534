package terminal

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

func TestDisplayWritesSlotLine(t *testing.T) {
	var out bytes.Buffer
	display := New(&out, fixedClock{now: time.Date(2026, 3, 14, 21, 5, 9, 0, time.UTC)})

	require.NoError(t, display.SetPersistentSlot("The dice remember.", "crimson"))

	assert.Equal(t, "The dice remember.", display.Slot())
	assert.Contains(t, out.String(), "21:05:09")
	assert.Contains(t, out.String(), "The dice remember.")
}

func TestDisplayWritesNotificationCard(t *testing.T) {
	var out bytes.Buffer
	display := New(&out, fixedClock{now: time.Date(2026, 3, 14, 21, 5, 9, 0, time.UTC)})

	require.NoError(t, display.SetPersistentSlot("Welcome back.", "slate"))
	out.Reset()
	require.NoError(t, display.RaiseNotification("Welcome back.", "The Archivist", 6*time.Second))

	output := out.String()
	assert.Contains(t, output, "The Archivist (6s)")
	assert.Contains(t, output, "Welcome back.")
	assert.Contains(t, output, "╭")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed pipe")
}

func TestDisplayReportsWriteErrors(t *testing.T) {
	display := New(failingWriter{}, nil)

	assert.ErrorContains(t, display.SetPersistentSlot("Hello there.", "amber"), "write slot")
	assert.ErrorContains(t, display.RaiseNotification("Hello there.", "The Jester", time.Second), "write notification")
}
