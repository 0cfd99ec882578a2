package internal

import (
	"fmt"
	"strings"

	pkgerrs "github.com/jamesprial/go-reddit-stream/pkg/errors"
	"github.com/jamesprial/go-reddit-stream/pkg/types"
)

const (
	// Subreddit name constraints
	minSubredditLength = 3
	maxSubredditLength = 21

	// MaxPageLimit is the largest page size Reddit serves.
	MaxPageLimit = 100

	// MaxInfoFullnames is the largest batch /api/info accepts.
	MaxInfoFullnames  = 100
	maxFullnameLength = 100

	// User agent constraints
	maxUserAgentLength = 256
)

// Validator provides validation operations for Reddit API parameters.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateSubredditName checks a subreddit name against Reddit's naming
// rules. Several names joined with '+' select a combined listing; each part
// is checked on its own.
func (v *Validator) ValidateSubredditName(name string) error {
	if name == "" {
		return &pkgerrs.ConfigError{Field: "subreddit", Message: "subreddit name cannot be empty"}
	}
	for _, part := range strings.Split(name, "+") {
		if err := validateSubredditPart(part); err != nil {
			return err
		}
	}
	return nil
}

func validateSubredditPart(name string) error {
	if name == "" {
		return &pkgerrs.ConfigError{Field: "subreddit", Message: "subreddit name cannot contain an empty part"}
	}
	if len(name) < minSubredditLength {
		return &pkgerrs.ConfigError{Field: "subreddit", Message: fmt.Sprintf("subreddit name must be at least %d characters", minSubredditLength)}
	}
	if len(name) > maxSubredditLength {
		return &pkgerrs.ConfigError{Field: "subreddit", Message: fmt.Sprintf("subreddit name cannot exceed %d characters", maxSubredditLength)}
	}
	if name[0] == '_' || name[len(name)-1] == '_' {
		return &pkgerrs.ConfigError{Field: "subreddit", Message: "subreddit name cannot start or end with underscore"}
	}

	prevWasUnderscore := false
	for i, ch := range name {
		if !isAlphanumeric(ch) && ch != '_' {
			return &pkgerrs.ConfigError{Field: "subreddit", Message: fmt.Sprintf("subreddit name contains invalid character '%c' at position %d", ch, i)}
		}
		if ch == '_' && prevWasUnderscore {
			return &pkgerrs.ConfigError{Field: "subreddit", Message: "subreddit name cannot contain consecutive underscores"}
		}
		prevWasUnderscore = ch == '_'
	}
	return nil
}

// ValidatePagination checks if pagination parameters are valid.
func (v *Validator) ValidatePagination(pagination *types.Pagination) error {
	if pagination == nil {
		return nil
	}
	// Reddit API doesn't allow both After and Before to be set
	if pagination.After != "" && pagination.Before != "" {
		return &pkgerrs.ConfigError{Field: "pagination", Message: "cannot set both After and Before pagination parameters"}
	}
	if pagination.Limit < 0 {
		return &pkgerrs.ConfigError{Field: "pagination.Limit", Message: "limit cannot be negative"}
	}
	if pagination.Limit > MaxPageLimit {
		return &pkgerrs.ConfigError{Field: "pagination.Limit", Message: fmt.Sprintf("limit cannot exceed %d", MaxPageLimit)}
	}
	for field, cursor := range map[string]string{"pagination.After": pagination.After, "pagination.Before": pagination.Before} {
		if cursor == "" {
			continue
		}
		if err := validateFullname(cursor); err != nil {
			return &pkgerrs.ConfigError{Field: field, Message: err.Error()}
		}
	}
	return nil
}

// ValidateFullnames checks a batch of fullnames for /api/info.
func (v *Validator) ValidateFullnames(fullnames []string) error {
	if len(fullnames) > MaxInfoFullnames {
		return &pkgerrs.ConfigError{Field: "fullnames", Message: fmt.Sprintf("cannot request more than %d fullnames at once (got %d)", MaxInfoFullnames, len(fullnames))}
	}

	for i, name := range fullnames {
		if err := validateFullname(name); err != nil {
			return &pkgerrs.ConfigError{
				Field:   fmt.Sprintf("fullnames[%d]", i),
				Message: fmt.Sprintf("invalid fullname at index %d: %v", i, err),
			}
		}
	}
	return nil
}

// ValidateUserAgent validates the User-Agent string to prevent header injection attacks.
func (v *Validator) ValidateUserAgent(ua string) error {
	if len(ua) == 0 {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot be empty"}
	}
	if strings.ContainsAny(ua, "\r\n") {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot contain newline characters"}
	}
	if len(ua) > maxUserAgentLength {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: fmt.Sprintf("user agent too long (max %d characters)", maxUserAgentLength)}
	}
	return nil
}

// validateFullname checks the "t<digit>_<base36 id>" shape.
func validateFullname(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("fullname cannot be empty")
	}
	if len(name) > maxFullnameLength {
		return fmt.Errorf("fullname too long (max %d characters)", maxFullnameLength)
	}

	kind, id, ok := strings.Cut(name, "_")
	if !ok || len(kind) != 2 || kind[0] != 't' || kind[1] < '1' || kind[1] > '6' {
		return fmt.Errorf("fullname %q must start with a kind prefix such as t3_", name)
	}
	if id == "" {
		return fmt.Errorf("fullname %q has no ID", name)
	}
	for _, ch := range id {
		if !isAlphanumeric(ch) {
			return fmt.Errorf("fullname contains invalid character: %c (only alphanumeric allowed)", ch)
		}
	}
	return nil
}

func isAlphanumeric(ch rune) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
