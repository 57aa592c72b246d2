package review

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BuildSummaryComment renders the model's summary as the top-level pull
// request comment, with a heading derived from the repository slug.
func BuildSummaryComment(repoSlug, model, summary string) string {
	caser := cases.Title(language.English)
	display := strings.NewReplacer("-", " ", "_", " ").Replace(repoSlug)
	if display == "" {
		display = "Pull Request"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("# %s Code Review\n\n", caser.String(display)))
	builder.WriteString(fmt.Sprintf("Reviewed by `%s`.\n\n", model))
	builder.WriteString(summary)
	builder.WriteString("\n")
	return builder.String()
}
