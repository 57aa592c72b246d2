package diff

import (
	"strconv"
	"strings"
)

// Hunk represents a single @@ section in a unified diff.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
}

// Stats summarises the line changes of one file's patch.
type Stats struct {
	Added   int
	Removed int
	Hunks   []Hunk
}

// ParseStats walks a single file's patch text and counts added and removed
// lines, collecting the hunk ranges along the way. File headers and
// "\ No newline" markers are ignored.
func ParseStats(patch string) Stats {
	stats := Stats{}
	inHunk := false

	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			if hunk, ok := parseHunkHeader(line); ok {
				stats.Hunks = append(stats.Hunks, hunk)
				inHunk = true
			}
		case !inHunk:
			// Still in the file header (diff --git, index, ---, +++).
		case strings.HasPrefix(line, "+"):
			stats.Added++
		case strings.HasPrefix(line, "-"):
			stats.Removed++
		}
	}

	return stats
}

// parseHunkHeader parses a header like "@@ -10,7 +10,8 @@ optional context".
func parseHunkHeader(line string) (Hunk, bool) {
	parts := strings.Split(line, "@@")
	if len(parts) < 2 {
		return Hunk{}, false
	}

	hunk := Hunk{}
	seen := false
	for _, field := range strings.Fields(strings.TrimSpace(parts[1])) {
		switch {
		case strings.HasPrefix(field, "-"):
			hunk.OldStart, hunk.OldLines = parseRange(strings.TrimPrefix(field, "-"))
			seen = true
		case strings.HasPrefix(field, "+"):
			hunk.NewStart, hunk.NewLines = parseRange(strings.TrimPrefix(field, "+"))
			seen = true
		}
	}
	return hunk, seen
}

// parseRange parses "start,count" or the single-line "start" form.
func parseRange(s string) (start, count int) {
	if idx := strings.Index(s, ","); idx >= 0 {
		start, _ = strconv.Atoi(s[:idx])
		count, _ = strconv.Atoi(s[idx+1:])
	} else {
		start, _ = strconv.Atoi(s)
		count = 1
	}
	return
}
