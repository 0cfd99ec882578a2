package stream

import (
	"log/slog"
	"time"

	"github.com/jamesprial/go-reddit-stream/pkg/errors"
)

const (
	// DefaultMaxLimit is the largest page size a stream requests.
	DefaultMaxLimit = 100
	// DefaultBasePollInterval is the delay between polls after a successful fetch.
	DefaultBasePollInterval = 5 * time.Second
	// DefaultMaxPollInterval caps the backoff delay after failed fetches.
	DefaultMaxPollInterval = 50 * time.Second
	// DefaultBackoffFactor multiplies the delay after each failed fetch.
	DefaultBackoffFactor = 2.0
	// DefaultJitterFactor spreads each delay uniformly over [d*(1-J), d*(1+J)].
	DefaultJitterFactor = 0.4
	// DefaultMemory is the number of identities remembered for deduplication.
	DefaultMemory = 2000
	// DefaultTargetLimitMultiplier scales the observed new-item count into the
	// next requested page size.
	DefaultTargetLimitMultiplier = 1.2
	// DefaultBacktrackDepth bounds how many new items may be drained behind the
	// live edge before the paginator is forced back to the newest position.
	DefaultBacktrackDepth = 300
	// DefaultDrainInterval is the short delay used while a backlog is still
	// immediately available.
	DefaultDrainInterval = time.Second
)

// Config tunes a Stream. Start from DefaultConfig and override fields: zero
// is a usable value for the intervals, JitterFactor, Memory and
// BacktrackDepth. Only MaxLimit, BackoffFactor and TargetLimitMultiplier,
// which cannot be zero, fall back to their defaults when unset.
type Config struct {
	// Name labels the stream in logs. A random UUID is used when empty.
	Name string

	MaxLimit              int
	BasePollInterval      time.Duration
	MaxPollInterval       time.Duration
	BackoffFactor         float64
	JitterFactor          float64
	Memory                int
	TargetLimitMultiplier float64
	BacktrackDepth        int
	DrainInterval         time.Duration

	// Logger for structured diagnostics. Optional.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with every tunable set to its default.
func DefaultConfig() *Config {
	return &Config{
		MaxLimit:              DefaultMaxLimit,
		BasePollInterval:      DefaultBasePollInterval,
		MaxPollInterval:       DefaultMaxPollInterval,
		BackoffFactor:         DefaultBackoffFactor,
		JitterFactor:          DefaultJitterFactor,
		Memory:                DefaultMemory,
		TargetLimitMultiplier: DefaultTargetLimitMultiplier,
		BacktrackDepth:        DefaultBacktrackDepth,
		DrainInterval:         DefaultDrainInterval,
	}
}

// withDefaults returns a copy of c with its unset non-zero tunables filled in.
func (c Config) withDefaults() Config {
	if c.MaxLimit == 0 {
		c.MaxLimit = DefaultMaxLimit
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = DefaultBackoffFactor
	}
	if c.TargetLimitMultiplier == 0 {
		c.TargetLimitMultiplier = DefaultTargetLimitMultiplier
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.MaxLimit < 1:
		return &errors.ArgumentError{Argument: "MaxLimit", Message: "must be at least 1"}
	case c.BasePollInterval < 0:
		return &errors.ArgumentError{Argument: "BasePollInterval", Message: "must not be negative"}
	case c.MaxPollInterval < c.BasePollInterval:
		return &errors.ArgumentError{Argument: "MaxPollInterval", Message: "must not be below BasePollInterval"}
	case c.BackoffFactor < 1:
		return &errors.ArgumentError{Argument: "BackoffFactor", Message: "must be at least 1"}
	case c.JitterFactor < 0 || c.JitterFactor >= 1:
		return &errors.ArgumentError{Argument: "JitterFactor", Message: "must be in [0, 1)"}
	case c.Memory < 0:
		return &errors.ArgumentError{Argument: "Memory", Message: "must not be negative"}
	case c.TargetLimitMultiplier <= 0:
		return &errors.ArgumentError{Argument: "TargetLimitMultiplier", Message: "must be positive"}
	case c.BacktrackDepth < 0:
		return &errors.ArgumentError{Argument: "BacktrackDepth", Message: "must not be negative"}
	case c.DrainInterval < 0:
		return &errors.ArgumentError{Argument: "DrainInterval", Message: "must not be negative"}
	}
	return nil
}
