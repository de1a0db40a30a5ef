package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/agenda/internal/fakeapi"
)

// testEnv is a fake remote API plus a config file pointing at it
type testEnv struct {
	backend    *fakeapi.Server
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := fakeapi.New(fakeapi.Config{})
	ts := httptest.NewServer(backend.Router())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	config := fmt.Sprintf(`base_url: %s
timeout: 5s
storage:
  driver: sqlite
  path: %s
`, ts.URL, filepath.Join(dir, "agenda.db"))

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o600))

	return &testEnv{backend: backend, configPath: configPath}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", e.configPath}, args...)
	code := Execute(t.Context(), args, strings.NewReader(stdin), &stdout, &stderr)

	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// login signs in as a fresh account and returns its email
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	e.backend.AddUser("Ada", "Lovelace", "ada@example.com", "secret")

	res := e.run(t, "secret\n", "login", "--email", "ada@example.com", "--password-stdin")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	return "ada@example.com"
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeEnvelope(t *testing.T, raw string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env), raw)
	return env
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(nil)
	require.NotNil(t, cmd)
	assert.Equal(t, "agenda", cmd.Use)
	assert.True(t, cmd.SilenceErrors)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(nil)
	commands := [][]string{
		{"login"}, {"signup"}, {"logout"}, {"whoami"},
		{"events", "list"}, {"events", "create"}, {"events", "update"}, {"events", "delete"},
		{"locations", "list"}, {"locations", "create"}, {"locations", "update"}, {"locations", "delete"},
		{"users", "list"}, {"serve"}, {"mock-api"},
	}

	for _, path := range commands {
		name := strings.Join(path, " ")
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %s should exist", name)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestCommandRoutes(t *testing.T) {
	cmd := NewRootCommand(nil)
	tests := map[string]string{
		"login":            "login",
		"signup":           "signup",
		"logout":           "home",
		"whoami":           "home",
		"events list":      "events",
		"events create":    "events",
		"events update":    "event",
		"events delete":    "event",
		"locations list":   "locations",
		"locations delete": "locations",
		"users list":       "users",
	}

	for path, route := range tests {
		t.Run(path, func(t *testing.T) {
			subCmd, _, err := cmd.Find(strings.Fields(path))
			require.NoError(t, err)
			assert.Equal(t, route, subCmd.Annotations[routeAnnotation])
		})
	}

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotContains(t, serve.Annotations, routeAnnotation, "serve is not gated")
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(nil)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, "", "--format", "yaml", "whoami")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "invalid format")
}

func TestMissingConfigFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(t.Context(), []string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "whoami"},
		strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), "invalid configuration")
}
