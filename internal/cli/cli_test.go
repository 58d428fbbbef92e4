package cli_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/mediconnect/internal/cli"
)

// isolate points config and storage at a temp dir and clears credentials.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MEDICONNECT_STORAGE__BACKEND", "file")
	t.Setenv("MEDICONNECT_STORAGE__DIR", dir)
	t.Setenv("MEDICONNECT_NOTIFY__TERMINAL", "false")
	t.Setenv("MEDICONNECT_LOG__LEVEL", "error")
	for _, name := range []string{"GROQ_API_KEY", "GROQ_KEY", "API_KEY", "GROQ", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID"} {
		t.Setenv(name, "")
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmdForTest()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandsExist(t *testing.T) {
	for _, args := range [][]string{
		{"--help"},
		{"serve", "--help"},
		{"ask", "--help"},
		{"reminders", "--help"},
		{"reminders", "watch", "--help"},
		{"reminders", "shell", "--help"},
	} {
		_, err := run(t, args...)
		assert.NoError(t, err, "%v", args)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mediconnect dev")
}

func TestReminders_Lifecycle(t *testing.T) {
	dir := isolate(t)

	out, err := run(t, "reminders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No reminders yet.")

	out, err = run(t, "reminders", "add", "Vitamin", "D", "21:30")
	require.NoError(t, err)
	assert.Contains(t, out, "⏰ Reminder set for Vitamin D at 21:30.")

	raw, err := os.ReadFile(filepath.Join(dir, "medReminders.json"))
	require.NoError(t, err)
	var stored []struct {
		ID       int64  `json:"id"`
		Medicine string `json:"medicine"`
	}
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, "Vitamin D", stored[0].Medicine)
	id := strconv.FormatInt(stored[0].ID, 10)

	out, err = run(t, "reminders", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "Vitamin D at 21:30")

	out, err = run(t, "reminders", "take", id)
	require.NoError(t, err)
	assert.Contains(t, out, "marked as taken")

	out, err = run(t, "reminders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "✅ Vitamin D at 21:30")

	_, err = run(t, "reminders", "rm", id)
	require.NoError(t, err)

	_, err = run(t, "reminders", "take", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	out, err = run(t, "reminders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No reminders yet.")
}

func TestReminders_AddValidation(t *testing.T) {
	isolate(t)

	_, err := run(t, "reminders", "add", "Aspirin", "8am")
	require.Error(t, err)

	_, err = run(t, "reminders", "take", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reminder id")
}

func TestConfig_Invalid(t *testing.T) {
	isolate(t)
	t.Setenv("MEDICONNECT_REMINDERS__INTERVAL", "60")

	_, err := run(t, "reminders", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestAsk_MissingCredential(t *testing.T) {
	isolate(t)

	_, err := run(t, "ask", "Is", "ibuprofen", "safe?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing Groq API key")
}

func TestAsk(t *testing.T) {
	isolate(t)

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Rest and hydrate.  "},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":5}}`))
	}))
	defer srv.Close()

	t.Setenv("MEDICONNECT_GROQ__BASE_URL", srv.URL)
	t.Setenv("GROQ_API_KEY", "test-key")

	out, err := run(t, "ask", "-q", "I", "have", "a", "cold")
	require.NoError(t, err)
	assert.Equal(t, "Groq:\nRest and hydrate.\n", out)

	assert.Equal(t, "llama-3.1-8b-instant", got["model"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "I have a cold", messages[1].(map[string]any)["content"])
}
