package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/reviewpipe/reviewpipe/internal/adapter/bitbucket"
	"github.com/reviewpipe/reviewpipe/internal/adapter/cli"
	"github.com/reviewpipe/reviewpipe/internal/adapter/llm"
	llmhttp "github.com/reviewpipe/reviewpipe/internal/adapter/llm/http"
	"github.com/reviewpipe/reviewpipe/internal/adapter/llm/openai"
	"github.com/reviewpipe/reviewpipe/internal/config"
	"github.com/reviewpipe/reviewpipe/internal/domain"
	"github.com/reviewpipe/reviewpipe/internal/usecase/review"
	"github.com/reviewpipe/reviewpipe/internal/version"
)

func main() {
	if err := run(); err != nil {
		// Redact API keys from URLs in error messages before logging
		log.Println(llmhttp.RedactURLSecrets(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := buildLogger()
	logger.LogInfo(ctx, "effective configuration", cfg.Redacted())

	bbClient := bitbucket.NewClient(cfg.Credentials, cfg.Workspace, cfg.RepoSlug, cfg.HTTPTimeout)

	aiClient := openai.NewHTTPClient(cfg.AI.APIKey, cfg.AI.Model, openai.Options{
		BaseURL:      cfg.AI.BaseURL,
		Organization: cfg.AI.Organization,
		Timeout:      cfg.HTTPTimeout,
	})
	aiClient.SetLogger(logger)

	orchestrator := review.NewOrchestrator(review.Deps{
		Config:         cfg,
		Fetcher:        bbClient,
		Completer:      &completerAdapter{client: aiClient},
		Poster:         &posterAdapter{client: bbClient, pullRequestID: cfg.PullRequestID},
		TokenCounter:   llm.EstimateTokens,
		Logger:         logger,
		PullRequestURL: bbClient.PullRequestURL(cfg.PullRequestID),
	})

	root := cli.NewRootCommand(cli.Dependencies{
		Runner:  orchestrator,
		Version: version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return err
	}
	return nil
}

// buildLogger picks the human format on a terminal and JSON in pipelines.
func buildLogger() *llmhttp.DefaultLogger {
	format := llmhttp.LogFormatJSON
	if term.IsTerminal(int(os.Stderr.Fd())) {
		format = llmhttp.LogFormatHuman
	}
	return llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, format, true)
}

// completerAdapter bridges the usecase Completer port to the OpenAI client.
type completerAdapter struct {
	client *openai.HTTPClient
}

func (a *completerAdapter) Complete(ctx context.Context, messages []review.ChatMessage, overrides map[string]any) (string, error) {
	converted := make([]openai.Message, len(messages))
	for i, msg := range messages {
		converted[i] = openai.Message{Role: msg.Role, Content: msg.Content}
	}
	resp, err := a.client.CreateCompletion(ctx, converted, overrides)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// posterAdapter bridges the usecase Poster port to the Bitbucket client.
type posterAdapter struct {
	client        *bitbucket.Client
	pullRequestID int
}

func (a *posterAdapter) PostSummary(ctx context.Context, body string) error {
	return a.client.CreateComment(ctx, a.pullRequestID, bitbucket.NewSummaryComment(body))
}

func (a *posterAdapter) PostSuggestion(ctx context.Context, suggestion domain.Suggestion) error {
	comment := bitbucket.NewInlineComment(suggestion.File, suggestion.Line, suggestion.Message)
	return a.client.CreateComment(ctx, a.pullRequestID, comment)
}

// Compile-time interface compliance checks
var _ review.DiffFetcher = (*bitbucket.Client)(nil)
var _ review.Completer = (*completerAdapter)(nil)
var _ review.Poster = (*posterAdapter)(nil)
var _ review.Logger = (*llmhttp.DefaultLogger)(nil)
