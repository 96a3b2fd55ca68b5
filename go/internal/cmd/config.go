package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mcdev12/livedraft/go/internal/draft"
	"github.com/mcdev12/livedraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/livedraft/go/internal/draft/relay"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	Port            string        `yaml:"port" env:"PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	StoreDriver  string `yaml:"store_driver" env:"STORE_DRIVER"`
	FixturesPath string `yaml:"fixtures_path" env:"FIXTURES_PATH"`

	Draft        draft.Config  `yaml:"draft"`
	TickInterval time.Duration `yaml:"tick_interval" env:"DRAFT_TICK_INTERVAL"`

	// NATS is disabled when its URL is empty.
	NATS  relay.JetStreamConfig `yaml:"nats"`
	Relay relay.Config          `yaml:"relay"`
}

func defaultConfig() Config {
	nats := relay.DefaultJetStreamConfig()
	nats.URL = ""
	return Config{
		Port:            "8080",
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		StoreDriver:     StoreDriverMemory,
		Draft:           draft.DefaultConfig(),
		TickInterval:    orchestrator.DefaultTickInterval,
		NATS:            nats,
		Relay:           relay.DefaultConfig(),
	}
}

// loadConfig layers the YAML file at path and then the environment over the
// defaults. A missing file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", path).Msg("config file not found, using defaults and environment")
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.Relay.SubjectPrefix = cfg.NATS.SubjectPrefix

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if err := c.Draft.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", c.TickInterval))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	switch c.StoreDriver {
	case StoreDriverMemory, StoreDriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}
	if c.NATSEnabled() && c.NATS.StreamName == "" {
		errs = append(errs, errors.New("nats stream name is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) NATSEnabled() bool {
	return c.NATS.URL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
