package extract

import (
	"regexp"
	"strings"
)

var (
	hyphenBreakRe = regexp.MustCompile(`(\p{L})-\n(\p{L})`)
	spaceRunRe    = regexp.MustCompile(`[ \t]{2,}`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
	pageNumberRe  = regexp.MustCompile(`^\s*\d{1,4}\s*$`)
	pageOfRe      = regexp.MustCompile(`(?i)^\s*page\s+\d+(\s+of\s+\d+)?\s*$`)
)

// Clean normalizes raw extracted text: line endings, hyphen-broken words,
// whitespace runs, blank-line runs, standalone page markers, and form feeds
// (which become paragraph breaks).
func Clean(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n\n")

	// Rejoin words broken across line wraps ("exam-\nple" -> "example").
	s = hyphenBreakRe.ReplaceAllString(s, "$1$2")

	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if pageNumberRe.MatchString(line) || pageOfRe.MatchString(line) {
			continue
		}
		line = spaceRunRe.ReplaceAllString(line, " ")
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	s = strings.Join(kept, "\n")

	// At most one consecutive blank line.
	s = blankRunRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// CleanMarkdown trims whitespace without disturbing Markdown structure:
// fenced code blocks are kept verbatim and heading spacing survives.
func CleanMarkdown(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			out = append(out, line)
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	s = strings.Join(out, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
