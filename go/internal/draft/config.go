package draft

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultRoundCount   = 8
	DefaultTurnDuration = 15 * time.Second
)

// Config holds the draft rules and the persistence retry policy.
type Config struct {
	RoundCount   int           `yaml:"round_count" env:"DRAFT_ROUND_COUNT"`
	TurnDuration time.Duration `yaml:"turn_duration" env:"DRAFT_TURN_DURATION"`
	Retry        RetryConfig   `yaml:"retry"`
}

// RetryConfig bounds retries of failed persistence round trips.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" env:"DRAFT_RETRY_MAX_ATTEMPTS"`
	InitialInterval time.Duration `yaml:"initial_interval" env:"DRAFT_RETRY_INITIAL_INTERVAL"`
	MaxInterval     time.Duration `yaml:"max_interval" env:"DRAFT_RETRY_MAX_INTERVAL"`
}

// DefaultConfig returns the standard draft rules: 8 rounds, 15s per turn.
func DefaultConfig() Config {
	return Config{
		RoundCount:   DefaultRoundCount,
		TurnDuration: DefaultTurnDuration,
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		},
	}
}

// Validate checks that the rules can produce a playable draft.
func (c Config) Validate() error {
	var errs []error
	if c.RoundCount < 1 {
		errs = append(errs, fmt.Errorf("round count must be at least 1, got %d", c.RoundCount))
	}
	if c.TurnDuration < time.Second {
		errs = append(errs, fmt.Errorf("turn duration must be at least 1s, got %s", c.TurnDuration))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.InitialInterval <= 0 {
		errs = append(errs, fmt.Errorf("retry initial interval must be positive, got %s", c.Retry.InitialInterval))
	}
	if c.Retry.MaxInterval < c.Retry.InitialInterval {
		errs = append(errs, fmt.Errorf("retry max interval %s is below initial interval %s", c.Retry.MaxInterval, c.Retry.InitialInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}
