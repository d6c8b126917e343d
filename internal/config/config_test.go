package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaultsToMemoryStore(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreDriver != DriverMemory {
		t.Fatalf("StoreDriver = %q, want %q", cfg.StoreDriver, DriverMemory)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want :8080", cfg.BindAddr)
	}
	if cfg.ChatContextTurns != MaxChatContextTurns {
		t.Fatalf("ChatContextTurns = %d, want %d", cfg.ChatContextTurns, MaxChatContextTurns)
	}
	if cfg.CompletionTimeout != 30*time.Second {
		t.Fatalf("CompletionTimeout = %v, want 30s", cfg.CompletionTimeout)
	}
}

func TestLoadAutoPrefersPostgresWhenDatabaseURLSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOMENTO_DATABASE_URL", "postgres://localhost/momento")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Fatalf("StoreDriver = %q, want %q", cfg.StoreDriver, DriverPostgres)
	}
}

func TestLoadAutoUsesHostedWhenOnlyHostedURLSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOMENTO_HOSTED_URL", "https://records.example.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreDriver != DriverHosted {
		t.Fatalf("StoreDriver = %q, want %q", cfg.StoreDriver, DriverHosted)
	}
}

func TestLoadRejectsPostgresWithoutURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOMENTO_STORE_DRIVER", "postgres")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for postgres without DATABASE_URL")
	}
}

func TestLoadRejectsOversizedContextWindow(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOMENTO_CHAT_CONTEXT_TURNS", "11")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for CHAT_CONTEXT_TURNS > %d", MaxChatContextTurns)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOMENTO_STORE_DRIVER", "mongo")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for unknown driver")
	}
}

func TestLoadReadsUnprefixedOpenAIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Fatalf("OpenAIAPIKey = %q, want sk-test", cfg.OpenAIAPIKey)
	}
}

// clearEnv unsets every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"BIND_ADDR", "SHUTDOWN_TIMEOUT", "METRICS_NAMESPACE", "LOG_LEVEL", "ALLOW_ANY_ORIGIN",
		"STORE_DRIVER", "DATABASE_URL", "SQLITE_PATH", "HOSTED_URL", "HOSTED_PROJECT_ID",
		"HOSTED_PUBLIC_KEY", "HOSTED_TIMEOUT", "HOSTED_MAX_RETRIES", "PAGE_LIMIT",
		"COMPLETION_MODE", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
		"COMPLETION_HTTP_URL", "COMPLETION_TIMEOUT", "CHAT_CONTEXT_TURNS", "CHAT_MEMORY_CONTEXT",
		"SEED_DEFAULT_USER", "DEFAULT_USER_NAME", "DEFAULT_USER_EMAIL",
	}
	for _, key := range keys {
		for _, name := range []string{EnvPrefix + "_" + key, key} {
			t.Setenv(name, "")
			if err := os.Unsetenv(name); err != nil {
				t.Fatalf("unset %s: %v", name, err)
			}
		}
	}
}
