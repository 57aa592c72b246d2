// Package diff splits a raw pull request diff into per-file entries and
// provides hunk-level helpers for the unified diff format.
package diff

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/reviewpipe/reviewpipe/internal/domain"
)

// Delimiter starts every per-file section in a git-style diff.
const Delimiter = "diff --git a/"

// pathPattern extracts the file path from a "diff --git a/<path> b/<path>" header.
var pathPattern = regexp.MustCompile(`^diff --git a/(.*?) b/`)

// EmptyError indicates there is nothing to review, either because the pull
// request has no changed files or the configured filter excluded all of them.
type EmptyError struct {
	Filter []string
}

// Error implements the error interface.
func (e *EmptyError) Error() string {
	if len(e.Filter) > 0 {
		return fmt.Sprintf("empty diff: no changed files match FILES_TO_REVIEW (%s)", strings.Join(e.Filter, ","))
	}
	return "empty diff: pull request has no changed files"
}

// Split breaks the raw diff text into one entry per changed file, preserving
// the order of the raw diff. Sections whose header cannot be parsed are
// skipped.
func Split(raw string) []domain.DiffEntry {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var entries []domain.DiffEntry
	for _, section := range strings.Split(raw, Delimiter) {
		if strings.TrimSpace(section) == "" {
			continue
		}
		patch := Delimiter + section
		match := pathPattern.FindStringSubmatch(patch)
		if match == nil {
			continue
		}
		entries = append(entries, domain.DiffEntry{
			Path:  match[1],
			Patch: patch,
		})
	}
	return entries
}

// Filter returns the intersection of entries with the given path list,
// order-preserving by the original diff order. A nil or empty filter keeps
// every entry.
func Filter(entries []domain.DiffEntry, files []string) []domain.DiffEntry {
	if len(files) == 0 {
		return entries
	}

	wanted := make(map[string]bool, len(files))
	for _, file := range files {
		wanted[file] = true
	}

	var filtered []domain.DiffEntry
	for _, entry := range entries {
		if wanted[entry.Path] {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}
