package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Storage    StorageConfig
	Completion CompletionConfig
	Intake     IntakeConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LogConfig struct {
	Level string
}

type StorageConfig struct {
	Driver      string
	DataDir     string
	DatabaseURL string
}

type CompletionConfig struct {
	Provider        string
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     float64
	MaxOutputTokens int
}

type IntakeConfig struct {
	TimeZone string
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Location resolves the intake time zone used for display dates.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Intake.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", c.Intake.TimeZone, err)
	}
	return loc, nil
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			Driver:  "sqlite",
			DataDir: defaultDataDir(),
		},
		Completion: CompletionConfig{
			Provider:        "gemini",
			Temperature:     0.7,
			MaxOutputTokens: 1000,
		},
		Intake: IntakeConfig{
			TimeZone: "Europe/Prague",
		},
	}
}

// Load reads configuration from a .env file in the working directory (if
// any), the JSON config file at $XDG_CONFIG_HOME/ltgate/config.json and
// environment variables, in increasing order of precedence.
//
// Secrets (the completion API key and the database URL) are read from the
// environment only. A missing completion API key is not an error: the chat
// endpoint answers with a configuration error instead.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "[WARN] could not load .env: %v\n", err)
	}
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	applyBackend(&cfg, b)
	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("missing required config: storage.database_url must be set for the postgres driver. " +
				"Set it via environment variable LTGATE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return fmt.Errorf("invalid storage.driver %q (want sqlite or postgres)", c.Storage.Driver)
	}

	switch strings.ToLower(c.Completion.Provider) {
	case "gemini", "openai":
	default:
		return fmt.Errorf("invalid completion.provider %q (want gemini or openai)", c.Completion.Provider)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "ltgate-data"
		}
	}
	return filepath.Join(dir, "ltgate")
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "ltgate", "config.json")
}
