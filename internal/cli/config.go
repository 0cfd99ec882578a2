package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	graw "github.com/jamesprial/go-reddit-stream"
	"github.com/jamesprial/go-reddit-stream/pkg/stream"
)

// Configuration keys. Every key can also be set through the environment with
// a REDDIT_ prefix, dots replaced by underscores (REDDIT_STREAM_MEMORY).
const (
	keyClientID     = "client_id"
	keyClientSecret = "client_secret"
	keyUsername     = "username"
	keyPassword     = "password"
	keyUserAgent    = "user_agent"
	keyBaseURL      = "base_url"
	keyAuthURL      = "auth_url"

	keyRequestsPerMinute = "rate_limit.requests_per_minute"
	keyBurst             = "rate_limit.burst"

	keyMaxLimit         = "stream.max_limit"
	keyBasePollInterval = "stream.base_poll_interval"
	keyMaxPollInterval  = "stream.max_poll_interval"
	keyMemory           = "stream.memory"
	keyBacktrackDepth   = "stream.backtrack_depth"
	keyDrainInterval    = "stream.drain_interval"
	keyJitterFactor     = "stream.jitter_factor"

	envPrefix = "REDDIT"
)

// Settings is the resolved CLI configuration.
type Settings struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
	BaseURL      string
	AuthURL      string

	RateLimit graw.RateLimitConfig
	Stream    stream.Config
}

// LoadSettings reads the YAML file at path, if any, then overlays REDDIT_*
// environment variables.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyUserAgent, graw.DefaultUserAgent)
	v.SetDefault(keyBaseURL, graw.DefaultBaseURL)
	v.SetDefault(keyAuthURL, graw.DefaultAuthURL)
	v.SetDefault(keyMaxLimit, stream.DefaultMaxLimit)
	v.SetDefault(keyBasePollInterval, stream.DefaultBasePollInterval)
	v.SetDefault(keyMaxPollInterval, stream.DefaultMaxPollInterval)
	v.SetDefault(keyMemory, stream.DefaultMemory)
	v.SetDefault(keyBacktrackDepth, stream.DefaultBacktrackDepth)
	v.SetDefault(keyDrainInterval, stream.DefaultDrainInterval)
	v.SetDefault(keyJitterFactor, stream.DefaultJitterFactor)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Settings{
		ClientID:     v.GetString(keyClientID),
		ClientSecret: v.GetString(keyClientSecret),
		Username:     v.GetString(keyUsername),
		Password:     v.GetString(keyPassword),
		UserAgent:    v.GetString(keyUserAgent),
		BaseURL:      v.GetString(keyBaseURL),
		AuthURL:      v.GetString(keyAuthURL),
		RateLimit: graw.RateLimitConfig{
			RequestsPerMinute: v.GetFloat64(keyRequestsPerMinute),
			Burst:             v.GetInt(keyBurst),
		},
		Stream: stream.Config{
			MaxLimit:         v.GetInt(keyMaxLimit),
			BasePollInterval: v.GetDuration(keyBasePollInterval),
			MaxPollInterval:  v.GetDuration(keyMaxPollInterval),
			Memory:           v.GetInt(keyMemory),
			BacktrackDepth:   v.GetInt(keyBacktrackDepth),
			DrainInterval:    v.GetDuration(keyDrainInterval),
			JitterFactor:     v.GetFloat64(keyJitterFactor),
		},
	}, nil
}

// ClientConfig builds the client configuration.
func (s *Settings) ClientConfig(logger *slog.Logger) *graw.Config {
	rate := s.RateLimit
	return &graw.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		Username:     s.Username,
		Password:     s.Password,
		UserAgent:    s.UserAgent,
		BaseURL:      s.BaseURL,
		AuthURL:      s.AuthURL,
		Logger:       logger,
		RateLimit:    &rate,
	}
}

// StreamConfig returns a copy of the stream settings.
func (s *Settings) StreamConfig() *stream.Config {
	cfg := s.Stream
	return &cfg
}

// newLogger returns a text logger at the named level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
