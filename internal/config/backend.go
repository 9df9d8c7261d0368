package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigBackend is the persistent layer under defaults and environment.
// Lookup returns the stored value as text; typing happens in the key specs.
type ConfigBackend interface {
	Lookup(key string) (raw string, ok bool)
	Set(key string, value any) error
}

// fileBackend keeps config as one flat JSON object keyed by dotted names.
type fileBackend struct {
	path   string
	values map[string]json.RawMessage
}

func newFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, values: map[string]json.RawMessage{}}
	if err := b.read(); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] %v. Using default values.\n", err)
	}
	return b
}

func (b *fileBackend) read() error {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not read config file %s: %w", b.path, err)
	}
	if err := json.Unmarshal(data, &b.values); err != nil {
		return fmt.Errorf("could not parse config file %s: %w", b.path, err)
	}
	return nil
}

// Lookup unquotes JSON strings and returns any other value as its literal,
// so 8080 and "8080" read the same.
func (b *fileBackend) Lookup(key string) (string, bool) {
	raw, ok := b.values[key]
	if !ok {
		return "", false
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}

func (b *fileBackend) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	b.values[key] = raw

	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	out, err := json.MarshalIndent(b.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, append(out, '\n'), 0o600)
}
