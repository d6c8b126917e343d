package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momento-app/momento/internal/client"
	"github.com/momento-app/momento/internal/config"
	"github.com/momento-app/momento/internal/journal"
)

func loadTestConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func startApp(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	a, err := newApp(context.Background(), cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	ts := httptest.NewServer(a.handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestNewAppServesWiredRoutes(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{
		"MOMENTO_STORE_DRIVER":      "memory",
		"MOMENTO_COMPLETION_MODE":   "mock",
		"MOMENTO_DEFAULT_USER_NAME": "Robin",
	})
	ts := startApp(t, cfg)

	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	var health map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&health))
	assert.Equal(t, "memory", health["store_mode"])
	assert.Equal(t, "mock", health["completion_mode"])

	c := client.New(ts.URL, 5*time.Second)
	ctx := context.Background()
	_, err = c.CreateMemory(ctx, journal.CreateRequest{Content: "First entry", Mood: "calm"})
	require.NoError(t, err)

	p, err := c.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Robin", p.Profile.Name)
	assert.EqualValues(t, 1, p.Profile.StreakCount)

	ex, err := c.SendChat(ctx, "hello")
	require.NoError(t, err)
	assert.False(t, ex.Fallback)
	assert.Equal(t, "I hear you: hello ✨", ex.AssistantMessage.Content)
}

func TestNewAppCreatesSQLiteDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "momento.db")
	cfg := loadTestConfig(t, map[string]string{
		"MOMENTO_STORE_DRIVER":    "sqlite",
		"MOMENTO_SQLITE_PATH":     path,
		"MOMENTO_COMPLETION_MODE": "mock",
	})
	ts := startApp(t, cfg)

	_, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)

	memories, err := client.New(ts.URL, 5*time.Second).ListMemories(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestNewAppRejectsUnusableCompletionMode(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{
		"MOMENTO_STORE_DRIVER":    "memory",
		"MOMENTO_COMPLETION_MODE": "http",
	})
	_, err := newApp(context.Background(), cfg, zerolog.Nop(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COMPLETION_HTTP_URL")
}
