// Package bitbucket is an HTTP client for the Bitbucket Cloud pull request
// API: fetching a PR diff and creating comments.
package bitbucket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	llmhttp "github.com/reviewpipe/reviewpipe/internal/adapter/llm/http"
	"github.com/reviewpipe/reviewpipe/internal/config"
)

const (
	providerName   = "bitbucket"
	defaultBaseURL = "https://api.bitbucket.org/2.0"
	defaultTimeout = 30 * time.Second
)

// Client is an HTTP client for the Bitbucket Cloud REST API.
type Client struct {
	creds      config.Credentials
	workspace  string
	repoSlug   string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Bitbucket client scoped to one repository.
func NewClient(creds config.Credentials, workspace, repoSlug string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		creds:      creds,
		workspace:  workspace,
		repoSlug:   repoSlug,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// PullRequestDiff fetches the raw diff text for a pull request. The response
// is plain text, not JSON: the diff contains symbols the host will not embed
// in a JSON envelope.
func (c *Client) PullRequestDiff(ctx context.Context, pullRequestID int) (string, error) {
	url := fmt.Sprintf("%s/repositories/%s/%s/pullrequests/%d/diff",
		c.baseURL, c.workspace, c.repoSlug, pullRequestID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create diff request: %w", err)
	}
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", mapTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read diff response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", llmhttp.NewStatusError(providerName, resp.StatusCode, body)
	}

	return string(body), nil
}

// CreateComment posts one comment on the pull request.
func (c *Client) CreateComment(ctx context.Context, pullRequestID int, comment Comment) error {
	url := fmt.Sprintf("%s/repositories/%s/%s/pullrequests/%d/comments",
		c.baseURL, c.workspace, c.repoSlug, pullRequestID)

	jsonData, err := json.Marshal(comment)
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create comment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return llmhttp.NewStatusError(providerName, resp.StatusCode, body)
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// PullRequestURL returns the human-facing URL of the pull request.
func (c *Client) PullRequestURL(pullRequestID int) string {
	return fmt.Sprintf("https://bitbucket.org/%s/%s/pull-requests/%d",
		c.workspace, c.repoSlug, pullRequestID)
}

// applyAuth sets the Authorization header per the resolved credential scheme.
func (c *Client) applyAuth(req *http.Request) {
	switch c.creds.Scheme {
	case config.AuthBasic:
		req.SetBasicAuth(c.creds.Username, c.creds.AppPassword)
	default:
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	}
}

// mapTransportError distinguishes timeouts from other transport failures.
func mapTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return llmhttp.NewTimeoutError(providerName, err.Error())
	}
	return &llmhttp.Error{
		Type:     llmhttp.ErrTypeUnknown,
		Message:  err.Error(),
		Provider: providerName,
	}
}
