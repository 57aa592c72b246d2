package review_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpipe/reviewpipe/internal/config"
	"github.com/reviewpipe/reviewpipe/internal/diff"
	"github.com/reviewpipe/reviewpipe/internal/usecase/review"
)

const twoFileDiff = `diff --git a/a.py b/a.py
index 1111111..2222222 100644
--- a/a.py
+++ b/a.py
@@ -1,2 +1,3 @@
 import os
+import sys
 main()
diff --git a/b.py b/b.py
index 3333333..4444444 100644
--- a/b.py
+++ b/b.py
@@ -1 +1,2 @@
 helper()
+cleanup()
`

type fakeFetcher struct {
	diff string
	err  error
}

func (f *fakeFetcher) PullRequestDiff(ctx context.Context, pullRequestID int) (string, error) {
	return f.diff, f.err
}

type fakeCompleter struct {
	response     string
	err          error
	gotMessages  []review.ChatMessage
	gotOverrides map[string]any
}

func (c *fakeCompleter) Complete(ctx context.Context, messages []review.ChatMessage, overrides map[string]any) (string, error) {
	c.gotMessages = messages
	c.gotOverrides = overrides
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

type fakeLogger struct {
	infos    []string
	warnings []string
}

func (l *fakeLogger) LogInfo(ctx context.Context, message string, fields map[string]any) {
	l.infos = append(l.infos, message)
}

func (l *fakeLogger) LogWarning(ctx context.Context, message string, fields map[string]any) {
	l.warnings = append(l.warnings, message)
}

func testConfig() config.Config {
	return config.Config{
		Workspace:     "acme",
		RepoSlug:      "widgets",
		PullRequestID: 42,
		Credentials:   config.Credentials{Scheme: config.AuthBearer, Token: "t"},
		AI: config.AIConfig{
			APIKey: "sk-test",
			Model:  "gpt-4o-mini",
		},
	}
}

func newOrchestrator(cfg config.Config, fetcher *fakeFetcher, completer *fakeCompleter, poster *fakePoster, logger *fakeLogger) *review.Orchestrator {
	return review.NewOrchestrator(review.Deps{
		Config:         cfg,
		Fetcher:        fetcher,
		Completer:      completer,
		Poster:         poster,
		TokenCounter:   func(text string) int { return len(text) / 4 },
		Logger:         logger,
		PullRequestURL: "https://bitbucket.org/acme/widgets/pull-requests/42",
	})
}

func TestRunPostsOnlySuggestionsInsideDiff(t *testing.T) {
	fetcher := &fakeFetcher{diff: twoFileDiff}
	completer := &fakeCompleter{response: `[
		{"file": "a.py", "line": 2, "message": "Import sys only where needed."},
		{"file": "c.py", "line": 9, "message": "This file is not in the diff."}
	]`}
	poster := &fakePoster{}
	logger := &fakeLogger{}

	result, err := newOrchestrator(testConfig(), fetcher, completer, poster, logger).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesDiffed)
	assert.Equal(t, 2, result.SuggestionsParsed)
	assert.Equal(t, 1, result.SuggestionsPosted)
	assert.Equal(t, 1, result.SuggestionsDropped)
	assert.Zero(t, result.FilesTruncated)

	require.Len(t, poster.posted, 1)
	assert.Equal(t, "a.py", poster.posted[0].File)
	assert.Empty(t, poster.summaries)
}

func TestRunPostsSummaryFromEnvelope(t *testing.T) {
	fetcher := &fakeFetcher{diff: twoFileDiff}
	completer := &fakeCompleter{response: `{
		"summary": "Adds a sys import and a cleanup call.",
		"suggestions": [{"file": "b.py", "line": 2, "message": "Name the cleanup step."}]
	}`}
	poster := &fakePoster{}
	logger := &fakeLogger{}

	result, err := newOrchestrator(testConfig(), fetcher, completer, poster, logger).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, poster.summaries, 1)
	assert.Contains(t, poster.summaries[0], "Adds a sys import")
	assert.Contains(t, poster.summaries[0], "Widgets Code Review")
	assert.Equal(t, 1, result.SuggestionsPosted)
}

func TestRunSummaryPostFailureIsNotFatal(t *testing.T) {
	fetcher := &fakeFetcher{diff: twoFileDiff}
	completer := &fakeCompleter{response: `{
		"summary": "Fine overall.",
		"suggestions": [{"file": "a.py", "line": 2, "message": "ok"}]
	}`}
	poster := &fakePoster{failSummary: errors.New("403 from host")}
	logger := &fakeLogger{}

	result, err := newOrchestrator(testConfig(), fetcher, completer, poster, logger).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuggestionsPosted)
	assert.Contains(t, logger.warnings, "failed to post summary comment")
}

func TestRunEmptyDiff(t *testing.T) {
	fetcher := &fakeFetcher{diff: ""}
	poster := &fakePoster{}
	logger := &fakeLogger{}

	_, err := newOrchestrator(testConfig(), fetcher, &fakeCompleter{}, poster, logger).Run(context.Background())
	require.Error(t, err)

	var emptyErr *diff.EmptyError
	assert.ErrorAs(t, err, &emptyErr)
}

func TestRunFilterExcludesEverything(t *testing.T) {
	cfg := testConfig()
	cfg.FilesToReview = []string{"z.py"}

	fetcher := &fakeFetcher{diff: twoFileDiff}

	_, err := newOrchestrator(cfg, fetcher, &fakeCompleter{}, &fakePoster{}, &fakeLogger{}).Run(context.Background())
	require.Error(t, err)

	var emptyErr *diff.EmptyError
	require.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, []string{"z.py"}, emptyErr.Filter)
}

func TestRunFileFilterNarrowsPromptAndDiffSet(t *testing.T) {
	cfg := testConfig()
	cfg.FilesToReview = []string{"b.py"}

	fetcher := &fakeFetcher{diff: twoFileDiff}
	completer := &fakeCompleter{response: `[
		{"file": "a.py", "line": 2, "message": "a.py is filtered out"},
		{"file": "b.py", "line": 2, "message": "keep"}
	]`}
	poster := &fakePoster{}

	result, err := newOrchestrator(cfg, fetcher, completer, poster, &fakeLogger{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesDiffed)
	assert.Equal(t, 1, result.SuggestionsPosted)
	assert.Equal(t, 1, result.SuggestionsDropped)

	// The prompt only carries the filtered file.
	userMsg := completer.gotMessages[len(completer.gotMessages)-1]
	assert.Contains(t, userMsg.Content, "b.py")
	assert.NotContains(t, userMsg.Content, "a.py")
}

func TestRunCompletionParamsPassedThrough(t *testing.T) {
	cfg := testConfig()
	cfg.AI.CompletionParams = map[string]any{"temperature": 0.1}

	fetcher := &fakeFetcher{diff: twoFileDiff}
	completer := &fakeCompleter{response: `[]`}

	_, err := newOrchestrator(cfg, fetcher, completer, &fakePoster{}, &fakeLogger{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"temperature": 0.1}, completer.gotOverrides)
}

func TestRunParseFailureIsFatal(t *testing.T) {
	fetcher := &fakeFetcher{diff: twoFileDiff}
	completer := &fakeCompleter{response: "I could not produce JSON, sorry."}
	poster := &fakePoster{}

	_, err := newOrchestrator(testConfig(), fetcher, completer, poster, &fakeLogger{}).Run(context.Background())
	require.Error(t, err)

	var parseErr *review.ResponseParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Empty(t, poster.posted)
	assert.Empty(t, poster.summaries)
}

func TestRunPartialPostSurfacesError(t *testing.T) {
	fetcher := &fakeFetcher{diff: twoFileDiff}
	completer := &fakeCompleter{response: `[
		{"file": "a.py", "line": 2, "message": "one"},
		{"file": "b.py", "line": 2, "message": "two"}
	]`}
	poster := &fakePoster{failFiles: map[string]error{"a.py": errors.New("502")}}
	logger := &fakeLogger{}

	result, err := newOrchestrator(testConfig(), fetcher, completer, poster, logger).Run(context.Background())
	require.Error(t, err)

	var partial *review.PartialPostError
	require.ErrorAs(t, err, &partial)

	// The result still reflects the completed pass.
	assert.Equal(t, 1, result.SuggestionsPosted)
	assert.Equal(t, 2, result.SuggestionsParsed)
	assert.Contains(t, logger.infos, "review complete")
}

func TestRunFetchErrorIsFatal(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("network down")}

	_, err := newOrchestrator(testConfig(), fetcher, &fakeCompleter{}, &fakePoster{}, &fakeLogger{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}
