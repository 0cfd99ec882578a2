package graw

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jamesprial/go-reddit-stream/internal"
	pkgerrs "github.com/jamesprial/go-reddit-stream/pkg/errors"
	"github.com/jamesprial/go-reddit-stream/pkg/types"
)

const (
	// DefaultBaseURL is the default Reddit API base URL
	DefaultBaseURL = "https://oauth.reddit.com/"
	// DefaultAuthURL is the default Reddit OAuth base URL
	DefaultAuthURL = "https://www.reddit.com/"
	// DefaultUserAgent is the default user agent string
	DefaultUserAgent = "go-reddit-stream/0.1"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// MaxPageLimit is the largest page Reddit serves for a listing.
	MaxPageLimit = internal.MaxPageLimit
	// MaxInfoFullnames is the largest batch GetInfo accepts.
	MaxInfoFullnames = internal.MaxInfoFullnames
)

// RateLimitConfig controls client-side request throttling.
type RateLimitConfig = internal.RateLimitConfig

// BreakerConfig controls the circuit breaker around API requests.
type BreakerConfig = internal.BreakerConfig

// Config holds the configuration for the Reddit client.
//
// For application-only authentication provide ClientID and ClientSecret.
// For user authentication additionally provide Username and Password.
//
//	config := &Config{
//		ClientID:     "your-client-id",
//		ClientSecret: "your-client-secret",
//		UserAgent:    "linux:myapp:1.0 (by /u/yourusername)",
//	}
type Config struct {
	// Username and Password select the password grant. Leave both empty for
	// app-only authentication.
	Username string
	Password string

	// ClientID and ClientSecret identify the OAuth2 application. Required.
	ClientID     string
	ClientSecret string

	// UserAgent identifies your application to Reddit.
	// Should follow format: "platform:app-name:version (by /u/username)"
	UserAgent string

	// BaseURL for the Reddit API. Defaults to DefaultBaseURL.
	BaseURL string

	// AuthURL for Reddit OAuth authentication. Defaults to DefaultAuthURL.
	AuthURL string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	HTTPClient *http.Client

	// Logger for structured diagnostics. Streams created by the client log
	// through it unless their own config names another logger.
	Logger *slog.Logger

	// RateLimit overrides the default request throttling.
	RateLimit *RateLimitConfig

	// Breaker overrides the default circuit breaker settings.
	Breaker *BreakerConfig
}

// Client is the Reddit API client. It fetches listing pages and builds the
// paginators and streams layered on top of them.
//
// API methods connect lazily, so calling Connect first is optional; doing so
// surfaces credential problems early.
type Client struct {
	config    Config
	auth      *internal.Authenticator
	parser    *internal.Parser
	validator *internal.Validator
	logger    *slog.Logger

	conn   *internal.ConnectionManager
	client *internal.Client
}

// NewClient creates a new Reddit client with the provided configuration. It
// validates the configuration and sets up authentication but does not
// contact Reddit.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &pkgerrs.ConfigError{Message: "config cannot be nil"}
	}

	cfg := *config
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, &pkgerrs.ConfigError{Field: "ClientID", Message: "ClientID and ClientSecret are required"}
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	validator := internal.NewValidator()
	if err := validator.ValidateUserAgent(cfg.UserAgent); err != nil {
		return nil, err
	}

	auth, err := internal.NewAuthenticator(internal.AuthConfig{
		HTTPClient:   cfg.HTTPClient,
		Username:     cfg.Username,
		Password:     cfg.Password,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		UserAgent:    cfg.UserAgent,
		AuthURL:      cfg.AuthURL,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		config:    cfg,
		auth:      auth,
		parser:    internal.NewParser(),
		validator: validator,
		logger:    cfg.Logger,
		conn:      internal.NewConnectionManager(),
	}, nil
}

// Connect authenticates with Reddit and initializes the internal HTTP client.
// Once it succeeds further calls are no-ops; after a failure the next call
// tries again.
func (c *Client) Connect(ctx context.Context) error {
	return c.conn.Initialize(ctx, c.initialize)
}

// initialize performs the underlying connection setup work.
func (c *Client) initialize(ctx context.Context) error {
	if _, err := c.auth.GetToken(ctx); err != nil {
		return err
	}

	client, err := internal.NewClient(internal.ClientConfig{
		HTTPClient: c.config.HTTPClient,
		Tokens:     c.auth,
		BaseURL:    c.config.BaseURL,
		UserAgent:  c.config.UserAgent,
		RateLimit:  c.config.RateLimit,
		Breaker:    c.config.Breaker,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	c.client = client
	c.logger.Debug("connected to reddit", "grant_type", c.auth.GrantType(), "base_url", c.config.BaseURL)
	return nil
}

// IsConnected returns true if the client is authenticated and ready to make requests.
func (c *Client) IsConnected() bool {
	return c.conn.IsInitialized()
}

// Me returns the account the client is authenticated as. App-only tokens
// have no account and Reddit answers with an error.
func (c *Client) Me(ctx context.Context) (*types.AccountData, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	req, err := c.client.NewRequest(ctx, http.MethodGet, "api/v1/me", nil)
	if err != nil {
		return nil, err
	}

	var account types.AccountData
	if _, err := c.client.Do(req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetNew retrieves one page of new posts from a subreddit, or from the front
// page when the request is nil or names no subreddit. Posts are newest first.
func (c *Client) GetNew(ctx context.Context, request *types.PostsRequest) (*types.PostsResponse, error) {
	var (
		subreddit  string
		pagination types.Pagination
	)
	if request != nil {
		subreddit = request.Subreddit
		pagination = request.Pagination
	}

	thing, err := c.getListing(ctx, subreddit, "new", pagination)
	if err != nil {
		return nil, err
	}
	return c.parser.ParsePostListing(thing)
}

// GetNewComments retrieves one page of the newest comments across a
// subreddit, or across all of Reddit when the request names no subreddit.
func (c *Client) GetNewComments(ctx context.Context, request *types.CommentsRequest) (*types.CommentsResponse, error) {
	var (
		subreddit  string
		pagination types.Pagination
	)
	if request != nil {
		subreddit = request.Subreddit
		pagination = request.Pagination
	}

	thing, err := c.getListing(ctx, subreddit, "comments", pagination)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseCommentListing(thing)
}

// GetInfo looks up things by fullname in a single request. At most
// MaxInfoFullnames names may be passed; use InfoIterator for more.
// Names Reddit does not know are missing from the result.
func (c *Client) GetInfo(ctx context.Context, fullnames []string) ([]*types.Thing, error) {
	if len(fullnames) == 0 {
		return nil, nil
	}
	if err := c.validator.ValidateFullnames(fullnames); err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	req, err := c.client.NewRequest(ctx, http.MethodGet, "api/info", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("id", strings.Join(fullnames, ","))
	q.Set("raw_json", "1")
	req.URL.RawQuery = q.Encode()

	var result types.Thing
	if _, err := c.client.Do(req, &result); err != nil {
		return nil, err
	}
	return c.parser.ExtractThings(&result)
}

// getListing fetches r/{subreddit}/{endpoint}, or {endpoint} without a
// subreddit, and returns the raw listing envelope.
func (c *Client) getListing(ctx context.Context, subreddit, endpoint string, pagination types.Pagination) (*types.Thing, error) {
	path := endpoint
	if subreddit != "" {
		if err := c.validator.ValidateSubredditName(subreddit); err != nil {
			return nil, err
		}
		path = "r/" + subreddit + "/" + endpoint
	}
	if err := c.validator.ValidatePagination(&pagination); err != nil {
		return nil, err
	}

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	req, err := c.client.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	if pagination.Limit > 0 {
		q.Set("limit", strconv.Itoa(pagination.Limit))
	}
	if pagination.After != "" {
		q.Set("after", pagination.After)
	}
	if pagination.Before != "" {
		q.Set("before", pagination.Before)
	}
	q.Set("raw_json", "1")
	req.URL.RawQuery = q.Encode()

	var result types.Thing
	if _, err := c.client.Do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BreakerState reports the state of the request circuit breaker as
// gobreaker names it, or "disabled". A client that has not connected yet
// reports "closed".
func (c *Client) BreakerState() string {
	if !c.IsConnected() {
		return "closed"
	}
	return c.client.BreakerState()
}
