package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestResolveAPIKeyPrefersPlatformSecret(t *testing.T) {
	secrets := MapSecrets{APIKeyName: "A"}
	env := envLookup(map[string]string{APIKeyName: "B"})

	if got := ResolveAPIKey(secrets, env); got != "A" {
		t.Fatalf("expected platform secret A, got %q", got)
	}
}

func TestResolveAPIKeyFallsBackToEnv(t *testing.T) {
	env := envLookup(map[string]string{APIKeyName: "B"})

	if got := ResolveAPIKey(MapSecrets{}, env); got != "B" {
		t.Fatalf("expected env value B, got %q", got)
	}
	if got := ResolveAPIKey(MapSecrets{APIKeyName: "  "}, env); got != "B" {
		t.Fatalf("blank secret must not shadow env, got %q", got)
	}
}

func TestResolveAPIKeyEmptyWhenUnset(t *testing.T) {
	if got := ResolveAPIKey(MapSecrets{}, envLookup(nil)); got != "" {
		t.Fatalf("expected empty key, got %q", got)
	}
	if got := ResolveAPIKey(nil, nil); got != "" {
		t.Fatalf("expected empty key, got %q", got)
	}
}

func TestLoadSecretsFileMissingIsEmpty(t *testing.T) {
	secrets, err := LoadSecretsFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadSecretsFile err: %v", err)
	}
	if len(secrets) != 0 {
		t.Fatalf("expected empty secrets, got %v", secrets)
	}
}

func TestLoadSecretsFileParsesToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	content := "OPENROUTER_API_KEY = \"sk-or-test\"\nretries = 3\n\n[other]\nname = \"x\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}

	secrets, err := LoadSecretsFile(path)
	if err != nil {
		t.Fatalf("LoadSecretsFile err: %v", err)
	}
	if got, _ := secrets.Get(APIKeyName); got != "sk-or-test" {
		t.Fatalf("unexpected key %q", got)
	}
	if _, ok := secrets.Get("retries"); ok {
		t.Fatal("non-string values must be ignored")
	}
}

func TestParseSecretsRejectsMalformed(t *testing.T) {
	if _, err := ParseSecrets([]byte("OPENROUTER_API_KEY = ")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SECRETS_FILE", filepath.Join(t.TempDir(), "absent.toml"))
	t.Setenv(APIKeyName, "env-key")
	t.Setenv("PORT", "")
	t.Setenv("OPENROUTER_TIMEOUT", "")
	t.Setenv("OPENROUTER_BASE_URL", "")
	t.Setenv("CHAT_DEFAULT_TEMPERATURE", "")
	t.Setenv("CHAT_SYSTEM_PROMPT", "")
	t.Setenv("SESSION_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.OpenRouter.APIKey != "env-key" || !cfg.OpenRouter.Enabled() {
		t.Fatalf("unexpected api key %q", cfg.OpenRouter.APIKey)
	}
	if cfg.OpenRouter.Endpoint != DefaultEndpoint {
		t.Fatalf("unexpected endpoint %q", cfg.OpenRouter.Endpoint)
	}
	if cfg.OpenRouter.Timeout != 60*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.OpenRouter.Timeout)
	}
	if cfg.Chat.DefaultTemperature != 0.7 {
		t.Fatalf("unexpected temperature %v", cfg.Chat.DefaultTemperature)
	}
	if cfg.Chat.SystemPrompt != "You are a helpful assistant." {
		t.Fatalf("unexpected system prompt %q", cfg.Chat.SystemPrompt)
	}
}

func TestLoadSecretsFileWinsOverEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	if err := os.WriteFile(path, []byte(`OPENROUTER_API_KEY = "A"`), 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}
	t.Setenv("SECRETS_FILE", path)
	t.Setenv(APIKeyName, "B")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.OpenRouter.APIKey != "A" {
		t.Fatalf("expected secrets file to win, got %q", cfg.OpenRouter.APIKey)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                     "80 80",
		"OPENROUTER_TIMEOUT":       "-1",
		"CHAT_DEFAULT_TEMPERATURE": "1.5",
		"SESSION_TTL":              "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("SECRETS_FILE", filepath.Join(t.TempDir(), "absent.toml"))
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
