// Package review orchestrates the single-pass pull request review:
// fetch diff, build prompt, call the completion endpoint, post comments.
package review

import (
	"fmt"

	"github.com/reviewpipe/reviewpipe/internal/domain"
)

// DefaultSystemPrompt instructs the model to review the diff and answer in
// the JSON shape the parser expects.
const DefaultSystemPrompt = `Review the git diff of a set of changes made to source code on a pull request. ` +
	`Follow software development principles: SOLID, DRY, KISS, YAGNI. Skip compliments. Propose corrections. ` +
	`You are a helpful assistant designed to output JSON. ` +
	`The response must be a JSON object with a "summary" string describing the pull request and a "suggestions" array. ` +
	`Each suggestion must have the shape {"file": "<path exactly as in the diff>", "line": <line number in the new file>, "message": "<feedback for that line>"}.`

// Token overhead constants from the OpenAI token-counting guide: every chat
// message carries framing tokens and every reply is primed.
const (
	tokensPerMessage  = 4
	tokensReplyPrimer = 2
)

// ChatMessage is one prompt message sent to the completion endpoint.
type ChatMessage struct {
	Role    string
	Content string
}

// TokenCounter estimates the token count of a text fragment.
type TokenCounter func(text string) int

// TokenLimitError indicates the prompt cannot be reduced under the budget
// while retaining at least one full file's diff.
type TokenLimitError struct {
	Tokens int
	Budget int
	File   string
}

// Error implements the error interface.
func (e *TokenLimitError) Error() string {
	return fmt.Sprintf("token limit exceeded: prompt is ~%d tokens with only %s retained, budget is %d", e.Tokens, e.File, e.Budget)
}

// Prompt is the assembled request payload plus what survived truncation.
type Prompt struct {
	Messages []ChatMessage
	Kept     []domain.DiffEntry
	// Truncated counts the whole files dropped to fit the budget.
	Truncated int
}

// BuildPrompt assembles the chat messages for the given diff entries.
// The system instruction comes first, then the optional extra instruction,
// then the concatenated diff text as the user message.
//
// A non-zero budget drops whole files from the end of the entry list until
// the estimated token count fits; a file's patch text is never split. When
// even the first file alone exceeds the budget the build fails with a
// *TokenLimitError. A zero budget disables truncation entirely.
func BuildPrompt(entries []domain.DiffEntry, extraSystem string, budget int, counter TokenCounter) (Prompt, error) {
	kept := entries
	for {
		messages := assembleMessages(kept, extraSystem)
		if budget == 0 {
			return Prompt{Messages: messages, Kept: kept}, nil
		}

		tokens := estimateMessages(messages, counter)
		if tokens <= budget {
			return Prompt{
				Messages:  messages,
				Kept:      kept,
				Truncated: len(entries) - len(kept),
			}, nil
		}

		if len(kept) <= 1 {
			file := ""
			if len(kept) == 1 {
				file = kept[0].Path
			}
			return Prompt{}, &TokenLimitError{Tokens: tokens, Budget: budget, File: file}
		}
		kept = kept[:len(kept)-1]
	}
}

func assembleMessages(entries []domain.DiffEntry, extraSystem string) []ChatMessage {
	messages := []ChatMessage{{Role: "system", Content: DefaultSystemPrompt}}
	if extraSystem != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: extraSystem})
	}

	diffText := ""
	for _, entry := range entries {
		diffText += entry.Patch
	}
	return append(messages, ChatMessage{Role: "user", Content: diffText})
}

func estimateMessages(messages []ChatMessage, counter TokenCounter) int {
	tokens := tokensReplyPrimer
	for _, msg := range messages {
		tokens += tokensPerMessage + counter(msg.Content)
	}
	return tokens
}
