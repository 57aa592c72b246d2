package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reviewpipe/reviewpipe/internal/domain"
)

// ResponseParseError indicates the model output is not valid JSON or does
// not match the expected suggestion shape. Partial lists are never salvaged.
type ResponseParseError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ResponseParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("response parse error: %s: %v", e.Reason, e.Cause)
	}
	return "response parse error: " + e.Reason
}

// Unwrap returns the underlying cause.
func (e *ResponseParseError) Unwrap() error {
	return e.Cause
}

// wireSuggestion uses pointer fields so missing keys are detectable.
type wireSuggestion struct {
	File    *string `json:"file"`
	Line    *int    `json:"line"`
	Message *string `json:"message"`
}

// wireEnvelope is the object form of a response: an optional summary plus
// the suggestion array.
type wireEnvelope struct {
	Summary     string           `json:"summary"`
	Suggestions []wireSuggestion `json:"suggestions"`
}

// ParseReview parses the model's response text. Two shapes are accepted:
// a bare JSON array of suggestions, or an object wrapping the array with a
// "summary" string. Every element must carry file, line, and message; a
// single malformed element rejects the whole response.
func ParseReview(text string) (domain.Review, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Review{}, &ResponseParseError{Reason: "empty response"}
	}

	switch trimmed[0] {
	case '[':
		var wire []wireSuggestion
		if err := json.Unmarshal([]byte(trimmed), &wire); err != nil {
			return domain.Review{}, &ResponseParseError{Reason: "invalid JSON array", Cause: err}
		}
		suggestions, err := convertSuggestions(wire)
		if err != nil {
			return domain.Review{}, err
		}
		return domain.Review{Suggestions: suggestions}, nil

	case '{':
		var envelope wireEnvelope
		if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
			return domain.Review{}, &ResponseParseError{Reason: "invalid JSON object", Cause: err}
		}
		suggestions, err := convertSuggestions(envelope.Suggestions)
		if err != nil {
			return domain.Review{}, err
		}
		return domain.Review{Summary: envelope.Summary, Suggestions: suggestions}, nil

	default:
		return domain.Review{}, &ResponseParseError{Reason: "response is not a JSON array or object"}
	}
}

func convertSuggestions(wire []wireSuggestion) ([]domain.Suggestion, error) {
	suggestions := make([]domain.Suggestion, 0, len(wire))
	for i, ws := range wire {
		switch {
		case ws.File == nil || *ws.File == "":
			return nil, &ResponseParseError{Reason: fmt.Sprintf("suggestion %d is missing the file field", i)}
		case ws.Line == nil || *ws.Line <= 0:
			return nil, &ResponseParseError{Reason: fmt.Sprintf("suggestion %d has no valid line number", i)}
		case ws.Message == nil || *ws.Message == "":
			return nil, &ResponseParseError{Reason: fmt.Sprintf("suggestion %d is missing the message field", i)}
		}
		suggestions = append(suggestions, domain.Suggestion{
			File:    *ws.File,
			Line:    *ws.Line,
			Message: *ws.Message,
		})
	}
	return suggestions, nil
}
