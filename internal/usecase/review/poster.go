package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/reviewpipe/reviewpipe/internal/domain"
)

// Poster is the outbound port for writing comments back to the host.
type Poster interface {
	PostSummary(ctx context.Context, body string) error
	PostSuggestion(ctx context.Context, suggestion domain.Suggestion) error
}

// PostFailure records one suggestion that could not be posted.
type PostFailure struct {
	Suggestion domain.Suggestion
	Err        error
}

// PartialPostError aggregates individual comment post failures. Remaining
// suggestions are still attempted; the process exits non-zero to signal
// incomplete posting.
type PartialPostError struct {
	Posted   int
	Failures []PostFailure
}

// Error implements the error interface, naming every failed suggestion.
func (e *PartialPostError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%d of %d comments failed to post:", len(e.Failures), e.Posted+len(e.Failures))
	for _, failure := range e.Failures {
		fmt.Fprintf(&builder, " %s:%d (%v);", failure.Suggestion.File, failure.Suggestion.Line, failure.Err)
	}
	return strings.TrimSuffix(builder.String(), ";")
}

// PostResult summarises a posting pass.
type PostResult struct {
	Posted  int
	Dropped int
}

// PostSuggestions posts one inline comment per suggestion, sequentially.
// Suggestions referencing files outside the diff set are silently dropped.
// A failed post does not stop the pass; failures are aggregated into a
// *PartialPostError returned after all attempts.
func PostSuggestions(ctx context.Context, poster Poster, diffSet domain.DiffSet, suggestions []domain.Suggestion) (PostResult, error) {
	result := PostResult{}
	var failures []PostFailure

	for _, suggestion := range suggestions {
		if !diffSet.Contains(suggestion.File) {
			result.Dropped++
			continue
		}

		if err := poster.PostSuggestion(ctx, suggestion); err != nil {
			failures = append(failures, PostFailure{Suggestion: suggestion, Err: err})
			continue
		}
		result.Posted++
	}

	if len(failures) > 0 {
		return result, &PartialPostError{Posted: result.Posted, Failures: failures}
	}
	return result, nil
}
