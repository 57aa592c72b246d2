// Package domain holds the core types shared across the review pipe.
package domain

// DiffEntry captures one changed file's patch within a pull request diff.
type DiffEntry struct {
	Path  string
	Patch string
}

// Suggestion is a single review comment proposed by the model,
// anchored to a line in a changed file.
type Suggestion struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Review is the parsed model output for one pull request.
// Summary is optional; when present it is posted as a top-level comment.
type Review struct {
	Summary     string
	Suggestions []Suggestion
}

// DiffSet provides O(1) membership checks for the files present in a diff.
type DiffSet map[string]bool

// NewDiffSet builds a DiffSet from a slice of diff entries.
func NewDiffSet(entries []DiffEntry) DiffSet {
	set := make(DiffSet, len(entries))
	for _, entry := range entries {
		set[entry.Path] = true
	}
	return set
}

// Contains reports whether the given path is part of the diff.
func (s DiffSet) Contains(path string) bool {
	return s[path]
}
