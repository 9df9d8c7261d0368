package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv unsets every variable the loader reads so host settings do not
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		for _, e := range s.envs {
			t.Setenv(e, "")
		}
	}
}

func writeTempConfig(t *testing.T, content string) *fileBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return newFileBackend(path)
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(writeTempConfig(t, `{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Addr() != "0.0.0.0:3000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if !strings.HasSuffix(cfg.Storage.DataDir, "ltgate") {
		t.Errorf("Storage.DataDir = %q, want an ltgate directory", cfg.Storage.DataDir)
	}
	if cfg.Completion.Provider != "gemini" {
		t.Errorf("Completion.Provider = %q, want gemini", cfg.Completion.Provider)
	}
	if cfg.Completion.Model != "" {
		t.Errorf("Completion.Model = %q, want empty (provider default)", cfg.Completion.Model)
	}
	if cfg.Completion.Temperature != 0.7 {
		t.Errorf("Completion.Temperature = %v, want 0.7", cfg.Completion.Temperature)
	}
	if cfg.Completion.MaxOutputTokens != 1000 {
		t.Errorf("Completion.MaxOutputTokens = %d, want 1000", cfg.Completion.MaxOutputTokens)
	}
	if cfg.Intake.TimeZone != "Europe/Prague" {
		t.Errorf("Intake.TimeZone = %q, want Europe/Prague", cfg.Intake.TimeZone)
	}
}

// TestMissingAPIKeyIsNotFatal verifies config loads without a completion key.
func TestMissingAPIKeyIsNotFatal(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(writeTempConfig(t, `{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Completion.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.Completion.APIKey)
	}
}

// TestFileParsing verifies that fields are read from the JSON config file.
func TestFileParsing(t *testing.T) {
	clearEnv(t)

	b := writeTempConfig(t, `{
  "server.port": 8080,
  "server.host": "127.0.0.1",
  "log.level": "debug",
  "storage.data_dir": "/tmp/ltgate-test",
  "completion.provider": "openai",
  "completion.model": "gpt-4o-mini",
  "completion.temperature": 0.2,
  "completion.max_output_tokens": "256",
  "intake.time_zone": "UTC"
}`)

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q", cfg.Server.Host)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Storage.DataDir != "/tmp/ltgate-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Completion.Provider != "openai" || cfg.Completion.Model != "gpt-4o-mini" {
		t.Errorf("Completion = %+v", cfg.Completion)
	}
	if cfg.Completion.Temperature != 0.2 {
		t.Errorf("Completion.Temperature = %v", cfg.Completion.Temperature)
	}
	if cfg.Completion.MaxOutputTokens != 256 {
		t.Errorf("Completion.MaxOutputTokens = %d", cfg.Completion.MaxOutputTokens)
	}
	if cfg.Intake.TimeZone != "UTC" {
		t.Errorf("Intake.TimeZone = %q", cfg.Intake.TimeZone)
	}
}

// TestSecretsIgnoredInFile verifies secrets are only read from the environment.
func TestSecretsIgnoredInFile(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(writeTempConfig(t, `{"completion.api_key": "file-key"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Completion.APIKey != "" {
		t.Errorf("APIKey = %q, want it ignored from file", cfg.Completion.APIKey)
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("LTGATE_SERVER_PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("LTGATE_COMPLETION_TEMPERATURE", "0.3")

	cfg, err := loadWith(writeTempConfig(t, `{"server.port": 8080}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Completion.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Completion.APIKey)
	}
	if cfg.Completion.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", cfg.Completion.Temperature)
	}
}

// TestEnvAliasPrecedence verifies the LTGATE_ names win over their aliases.
func TestEnvAliasPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "4000")
	t.Setenv("GEMINI_API_KEY", "alias-key")

	cfg, err := loadWith(writeTempConfig(t, `{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4000 || cfg.Completion.APIKey != "alias-key" {
		t.Errorf("aliases not applied: port=%d key=%q", cfg.Server.Port, cfg.Completion.APIKey)
	}

	t.Setenv("LTGATE_SERVER_PORT", "5000")
	t.Setenv("LTGATE_COMPLETION_API_KEY", "primary-key")

	cfg, err = loadWith(writeTempConfig(t, `{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 || cfg.Completion.APIKey != "primary-key" {
		t.Errorf("primary names did not win: port=%d key=%q", cfg.Server.Port, cfg.Completion.APIKey)
	}
}

// TestInvalidEnvKeepsDefault verifies an unparsable env value is ignored.
func TestInvalidEnvKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("LTGATE_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(writeTempConfig(t, `{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want default 3000", cfg.Server.Port)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{"postgres without url", `{"storage.driver": "postgres"}`, nil, "storage.database_url"},
		{"postgres with url", `{"storage.driver": "postgres"}`, map[string]string{"DATABASE_URL": "postgres://localhost/ltgate"}, ""},
		{"unknown driver", `{"storage.driver": "mongo"}`, nil, "invalid storage.driver"},
		{"unknown provider", `{"completion.provider": "ollama"}`, nil, "invalid completion.provider"},
		{"port out of range", `{"server.port": 70000}`, nil, "invalid server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadWith(writeTempConfig(t, tt.file))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := defaults()
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.String() != "Europe/Prague" {
		t.Errorf("Location = %s", loc)
	}

	cfg.Intake.TimeZone = "Mars/Olympus"
	if _, err := cfg.Location(); err == nil {
		t.Error("expected error for unknown time zone")
	}
}

func TestSetKeyAndShowAll(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{}`)

	if err := setKey(b, "server.port", "8088"); err != nil {
		t.Fatalf("setKey: %v", err)
	}
	if err := setKey(b, "completion.temperature", "0.4"); err != nil {
		t.Fatalf("setKey: %v", err)
	}
	if err := setKey(b, "completion.api_key", "nope"); err == nil {
		t.Error("expected error setting a secret")
	}
	if err := setKey(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKey(b, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}

	// Reload from disk to check persistence.
	cfg, err := loadWith(newFileBackend(b.path))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 8088 || cfg.Completion.Temperature != 0.4 {
		t.Errorf("persisted config = %+v", cfg)
	}

	cfg.Completion.APIKey = "super-secret"
	for _, ki := range ShowAll(cfg) {
		if strings.Contains(ki.Value, "super-secret") {
			t.Errorf("ShowAll leaks secret for %s", ki.Key)
		}
		if ki.Key == "completion.api_key" && ki.Value != "(set)" {
			t.Errorf("api key shown as %q, want (set)", ki.Value)
		}
	}
}

func TestFileBackendLookup(t *testing.T) {
	b := writeTempConfig(t, `{"a": 8080, "b": "8080", "c": null, "d": 0.25, "e": "text"}`)

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"a", "8080", true},
		{"b", "8080", true},
		{"c", "", false},
		{"d", "0.25", true},
		{"e", "text", true},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := b.Lookup(tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Lookup(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestUnparsableFileValueKeepsDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(writeTempConfig(t, `{"server.port": "eighty", "completion.temperature": "warm"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 3000 || cfg.Completion.Temperature != 0.7 {
		t.Errorf("port = %d temperature = %v, want defaults", cfg.Server.Port, cfg.Completion.Temperature)
	}
}
