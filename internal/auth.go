package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	pkgerrs "github.com/jamesprial/go-reddit-stream/pkg/errors"
)

const defaultTokenEndpointPath = "api/v1/access_token"

// TokenProvider returns a bearer token for API requests.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// AuthConfig configures an Authenticator. Username and Password select the
// password grant; without them the client credentials grant is used.
type AuthConfig struct {
	HTTPClient   *http.Client
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	UserAgent    string
	// AuthURL is the base of the token endpoint, e.g. https://www.reddit.com/.
	AuthURL string
	// TokenPath overrides the token endpoint path relative to AuthURL.
	TokenPath string
}

// Authenticator obtains access tokens from Reddit and caches them until they
// are about to expire.
type Authenticator struct {
	client   *http.Client
	tokenURL string

	password *oauth2.Config
	username string
	secret   string
	appOnly  *clientcredentials.Config

	mu    sync.Mutex
	token *oauth2.Token
}

// NewAuthenticator creates a new authenticator.
func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	parsedURL, err := url.Parse(cfg.AuthURL)
	if err != nil {
		return nil, &pkgerrs.AuthError{Message: "failed to parse auth URL", Err: err}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		tokenPath = defaultTokenEndpointPath
	}
	tokenURL, err := parsedURL.Parse(tokenPath)
	if err != nil {
		return nil, &pkgerrs.AuthError{Message: "failed to parse token endpoint path", Err: err}
	}

	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	// Reddit rejects token requests without a descriptive User-Agent.
	client := *base
	client.Transport = &userAgentTransport{base: base.Transport, userAgent: cfg.UserAgent}

	a := &Authenticator{
		client:   &client,
		tokenURL: tokenURL.String(),
	}

	endpoint := oauth2.Endpoint{TokenURL: a.tokenURL, AuthStyle: oauth2.AuthStyleInHeader}
	if cfg.Username != "" && cfg.Password != "" {
		a.password = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
		}
		a.username = cfg.Username
		a.secret = cfg.Password
	} else {
		a.appOnly = &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     a.tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
	}
	return a, nil
}

// GrantType reports which OAuth2 grant the authenticator uses.
func (a *Authenticator) GrantType() string {
	if a.password != nil {
		return "password"
	}
	return "client_credentials"
}

// GetToken returns a cached access token, requesting a new one when none is
// held or the current one is about to expire.
func (a *Authenticator) GetToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token.Valid() {
		return a.token.AccessToken, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)

	var (
		tok *oauth2.Token
		err error
	)
	if a.password != nil {
		tok, err = a.password.PasswordCredentialsToken(ctx, a.username, a.secret)
	} else {
		tok, err = a.appOnly.Token(ctx)
	}
	if err != nil {
		return "", wrapTokenError(err)
	}

	a.token = tok
	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next GetToken requests a new one.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	a.token = nil
	a.mu.Unlock()
}

func wrapTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		msg := retrieveErr.ErrorCode
		if msg == "" {
			msg = fmt.Sprintf("token request rejected: %s", strings.TrimSpace(string(retrieveErr.Body)))
		}
		return &pkgerrs.AuthError{
			StatusCode: retrieveErr.Response.StatusCode,
			Message:    msg,
			Err:        err,
		}
	}
	return &pkgerrs.AuthError{Message: "failed to obtain access token", Err: err}
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.userAgent == "" {
		return base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return base.RoundTrip(req)
}
