// Package config loads and validates the pipe configuration from the
// process environment and optional YAML parameter files.
package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthScheme selects how requests to the source-control host are authenticated.
type AuthScheme int

const (
	// AuthBearer authenticates with an access token in the Authorization header.
	AuthBearer AuthScheme = iota
	// AuthBasic authenticates with a username and app password pair.
	AuthBasic
)

// String returns a human-readable name for the scheme.
func (s AuthScheme) String() string {
	switch s {
	case AuthBearer:
		return "bearer"
	case AuthBasic:
		return "basic"
	default:
		return "unknown"
	}
}

// Credentials is the resolved host credential. The scheme is decided once at
// load time; call sites never inspect which environment variables were set.
type Credentials struct {
	Scheme      AuthScheme
	Token       string
	Username    string
	AppPassword string
}

// AIConfig holds everything needed to call the completion endpoint.
type AIConfig struct {
	APIKey       string
	BaseURL      string
	Organization string
	Model        string

	// SystemMessage is an optional extra system instruction appended after
	// the built-in review prompt.
	SystemMessage string

	// MaxPromptTokens caps the estimated prompt size. Zero means unlimited.
	MaxPromptTokens int

	// CompletionParams are merged verbatim into the completion request body.
	// Values here override anything the client would set from the environment.
	CompletionParams map[string]any
}

// Config is the immutable pipe configuration, built once at startup.
type Config struct {
	Workspace     string
	RepoSlug      string
	PullRequestID int
	Credentials   Credentials
	AI            AIConfig

	// FilesToReview restricts the diff to the listed paths when non-empty.
	FilesToReview []string

	// HTTPTimeout bounds every outbound request.
	HTTPTimeout time.Duration
}

// Error reports invalid or missing configuration. It is always produced
// before any network call is attempted.
type Error struct {
	Missing []string
	Reason  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("config error: missing %s", strings.Join(e.Missing, ", "))
	}
	return "config error: " + e.Reason
}

// Validate checks that the configuration is complete enough to run.
func (c Config) Validate() error {
	var missing []string

	if c.PullRequestID <= 0 {
		missing = append(missing, "BITBUCKET_PR_ID")
	}
	if c.Workspace == "" {
		missing = append(missing, "BITBUCKET_WORKSPACE")
	}
	if c.RepoSlug == "" {
		missing = append(missing, "BITBUCKET_REPO_SLUG")
	}
	if c.AI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.AI.Model == "" {
		missing = append(missing, "MODEL")
	}
	if len(missing) > 0 {
		return &Error{Missing: missing}
	}

	hasToken := c.Credentials.Token != ""
	hasBasic := c.Credentials.Username != "" && c.Credentials.AppPassword != ""
	if !hasToken && !hasBasic {
		return &Error{Reason: "authentication missing: provide BITBUCKET_ACCESS_TOKEN or both BITBUCKET_USERNAME and BITBUCKET_APP_PASSWORD"}
	}

	return nil
}

// Redacted returns the effective configuration as loggable fields with
// secrets reduced to their last four characters.
func (c Config) Redacted() map[string]any {
	return map[string]any{
		"workspace":       c.Workspace,
		"repo_slug":       c.RepoSlug,
		"pull_request_id": c.PullRequestID,
		"auth_scheme":     c.Credentials.Scheme.String(),
		"model":           c.AI.Model,
		"base_url":        c.AI.BaseURL,
		"api_key":         redactSecret(c.AI.APIKey),
		"max_tokens":      c.AI.MaxPromptTokens,
		"files_filter":    strings.Join(c.FilesToReview, ","),
		"http_timeout":    c.HTTPTimeout.String(),
	}
}

func redactSecret(secret string) string {
	if len(secret) <= 4 {
		return "[REDACTED]"
	}
	return fmt.Sprintf("[REDACTED-%s]", secret[len(secret)-4:])
}
