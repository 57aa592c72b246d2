package bitbucket

// Comment is the create-comment request payload. Inline is omitted for
// top-level summary comments.
type Comment struct {
	Content Content `json:"content"`
	Inline  *Inline `json:"inline,omitempty"`
}

// Content carries the raw comment text.
type Content struct {
	Raw string `json:"raw"`
}

// Inline anchors a comment to a line in the new version of a file.
type Inline struct {
	To   int    `json:"to"`
	Path string `json:"path"`
}

// NewInlineComment builds a comment anchored to a file and line.
func NewInlineComment(path string, line int, body string) Comment {
	return Comment{
		Content: Content{Raw: body},
		Inline:  &Inline{To: line, Path: path},
	}
}

// NewSummaryComment builds a top-level pull request comment.
func NewSummaryComment(body string) Comment {
	return Comment{Content: Content{Raw: body}}
}
