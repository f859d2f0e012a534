package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioScript = `conversation = "chat-1"
start = 2026-03-14T20:00:00Z

[[steps]]
action = "location"
to = "The Docks"

[[steps]]
action = "location"
to = "The Lighthouse"

[[steps]]
action = "cases"
count = 2

[[steps]]
action = "vitals"
current = 20
max = 20

[[steps]]
action = "vitals"
current = 4
max = 20

[[steps]]
action = "roll"
dice = [1, 1]

[[steps]]
action = "roll"
dice = [1, 1]

[[steps]]
action = "fortune"
text = "The tide keeps what it takes."

[[steps]]
action = "advance"
duration = "90m"

[[steps]]
action = "open"
`

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestSimulateRequiresScriptFlag(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "simulate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"script\" not set")
}

func TestSimulateRejectsUnknownAction(t *testing.T) {
	home := t.TempDir()
	path := writeScript(t, home, `
[[steps]]
action = "dance"
`)

	_, _, err := executeCLI(t, home, "simulate", "--script", path, "--fast")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `script step 1: unknown action "dance"`)
}

func TestSimulateRejectsImpossibleDie(t *testing.T) {
	home := t.TempDir()
	path := writeScript(t, home, `
[[steps]]
action = "roll"
dice = [7]
`)

	_, _, err := executeCLI(t, home, "simulate", "--script", path, "--fast")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "die value 7 outside 1..6")
}

func TestSimulatePrintsSummaryAndPersistsSession(t *testing.T) {
	home := t.TempDir()
	path := writeScript(t, home, scenarioScript)

	stdout, _, err := executeCLI(t, home, "simulate", "--script", path, "--fast", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Narrator Summary")
	assert.Contains(t, stdout, "chat-1")
	assert.Contains(t, stdout, "0 generated")
	assert.Contains(t, stdout, "events dispatched:")

	_, err = os.Stat(filepath.Join(home, ".narrator", "sessions.toml"))
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "status", "--conversation", "chat-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sessions: 1")
	assert.Contains(t, stdout, "chat-1")
	assert.Contains(t, stdout, "The Lighthouse")
}

func TestSimulateConversationFlagOverridesScript(t *testing.T) {
	home := t.TempDir()
	path := writeScript(t, home, scenarioScript)

	_, _, err := executeCLI(t, home, "simulate", "--script", path, "--fast", "--conversation", "chat-2")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "status", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, `"ConversationID": "chat-2"`)
	assert.NotContains(t, stdout, `"chat-1"`)
}

func TestSimulateWithSQLiteBackend(t *testing.T) {
	home := t.TempDir()
	t.Setenv("NARRATOR_SESSION_BACKEND", "sqlite")
	path := writeScript(t, home, scenarioScript)

	_, _, err := executeCLI(t, home, "simulate", "--script", path, "--fast")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(home, ".narrator", "sessions.db"))
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "status", "--conversation", "chat-1", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"Location": "The Lighthouse"`)
}

func TestStatusWithoutSessions(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sessions: 0")
	assert.Contains(t, stdout, "No saved sessions.")
}

func TestStatusUnknownConversation(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "status", "--conversation", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load session nope: session not found")
}

func TestSpeakRejectsUnknownTrigger(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "speak", "--trigger", "sneeze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown trigger "sneeze"`)
	assert.Contains(t, err.Error(), "compartment.open")
}

func TestSpeakForcedFallsBackWithoutAPIKey(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "speak", "--trigger", "compartment.open", "--force", "--quiet", "--conversation", "chat-9")
	require.NoError(t, err)
	assert.Contains(t, stdout, "▌")
	assert.Regexp(t, `The (Archivist|Jester|Shade)`, stdout)

	stdout, _, err = executeCLI(t, home, "status", "--conversation", "chat-9")
	require.NoError(t, err)
	assert.Contains(t, stdout, "chat-9")
}

func TestSpeakUnforcedStaysSilentOnFreshSession(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "speak", "--trigger", "compartment.open", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, stdout, "The narrator stays silent (volume 0).")
}

func TestSpeakWithSpinner(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "speak", "--trigger", "compartment.open", "--force")
	require.NoError(t, err)
}

func TestMalformedConfigFileFails(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".narrator")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("engine = ["), 0o600))

	_, _, err := executeCLI(t, home, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("NARRATOR_API_KEY", "")
	t.Setenv("NARRATOR_OTEL_ENDPOINT", "")
	if _, ok := os.LookupEnv("NARRATOR_SESSION_BACKEND"); !ok {
		t.Setenv("NARRATOR_SESSION_BACKEND", "")
	}

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeScript(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "script.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
