package review

import (
	"context"
	"time"

	"github.com/reviewpipe/reviewpipe/internal/config"
	"github.com/reviewpipe/reviewpipe/internal/diff"
	"github.com/reviewpipe/reviewpipe/internal/domain"
)

// DiffFetcher is the outbound port for retrieving a pull request diff.
type DiffFetcher interface {
	PullRequestDiff(ctx context.Context, pullRequestID int) (string, error)
}

// Completer is the outbound port for the completion endpoint. Overrides are
// merged into the request body last.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, overrides map[string]any) (string, error)
}

// Logger is the structured logging port for the orchestrator stages.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]any)
	LogWarning(ctx context.Context, message string, fields map[string]any)
}

// Deps captures the orchestrator's collaborators.
type Deps struct {
	Config       config.Config
	Fetcher      DiffFetcher
	Completer    Completer
	Poster       Poster
	TokenCounter TokenCounter
	Logger       Logger

	// PullRequestURL is the human-facing PR link included in the final log.
	PullRequestURL string
}

// Orchestrator executes the four review stages once, strictly in sequence.
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator wires the orchestrator with its dependencies.
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Result summarises one completed run.
type Result struct {
	FilesDiffed        int
	FilesTruncated     int
	SuggestionsParsed  int
	SuggestionsPosted  int
	SuggestionsDropped int
	Elapsed            time.Duration
}

// Run executes the pipe once: fetch diff, build prompt, call the model,
// post comments. The returned error is fatal except *PartialPostError,
// which still carries a populated Result.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	cfg := o.deps.Config

	raw, err := o.deps.Fetcher.PullRequestDiff(ctx, cfg.PullRequestID)
	if err != nil {
		return Result{}, err
	}

	entries := diff.Filter(diff.Split(raw), cfg.FilesToReview)
	if len(entries) == 0 {
		return Result{}, &diff.EmptyError{Filter: cfg.FilesToReview}
	}

	added, removed := 0, 0
	for _, entry := range entries {
		stats := diff.ParseStats(entry.Patch)
		added += stats.Added
		removed += stats.Removed
	}
	o.deps.Logger.LogInfo(ctx, "fetched pull request diff", map[string]any{
		"pull_request_id": cfg.PullRequestID,
		"files":           len(entries),
		"lines_added":     added,
		"lines_removed":   removed,
	})

	prompt, err := BuildPrompt(entries, cfg.AI.SystemMessage, cfg.AI.MaxPromptTokens, o.deps.TokenCounter)
	if err != nil {
		return Result{}, err
	}
	if prompt.Truncated > 0 {
		o.deps.Logger.LogWarning(ctx, "diff truncated to fit token budget", map[string]any{
			"budget":        cfg.AI.MaxPromptTokens,
			"files_dropped": prompt.Truncated,
			"files_kept":    len(prompt.Kept),
		})
	}

	text, err := o.deps.Completer.Complete(ctx, prompt.Messages, cfg.AI.CompletionParams)
	if err != nil {
		return Result{}, err
	}

	parsed, err := ParseReview(text)
	if err != nil {
		return Result{}, err
	}

	if parsed.Summary != "" {
		body := BuildSummaryComment(cfg.RepoSlug, cfg.AI.Model, parsed.Summary)
		if err := o.deps.Poster.PostSummary(ctx, body); err != nil {
			o.deps.Logger.LogWarning(ctx, "failed to post summary comment", map[string]any{
				"error": err.Error(),
			})
		}
	}

	postResult, postErr := PostSuggestions(ctx, o.deps.Poster, domain.NewDiffSet(entries), parsed.Suggestions)

	result := Result{
		FilesDiffed:        len(entries),
		FilesTruncated:     prompt.Truncated,
		SuggestionsParsed:  len(parsed.Suggestions),
		SuggestionsPosted:  postResult.Posted,
		SuggestionsDropped: postResult.Dropped,
		Elapsed:            time.Since(start),
	}

	o.deps.Logger.LogInfo(ctx, "review complete", map[string]any{
		"files_diffed":        result.FilesDiffed,
		"suggestions_parsed":  result.SuggestionsParsed,
		"suggestions_posted":  result.SuggestionsPosted,
		"suggestions_dropped": result.SuggestionsDropped,
		"elapsed":             result.Elapsed.Round(time.Millisecond).String(),
		"pull_request":        o.deps.PullRequestURL,
	})

	return result, postErr
}
