package textproc

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	pipeRuns     = regexp.MustCompile(`\|+`)
	ruledLines   = regexp.MustCompile(`[_-]{3,}`)
	disallowed   = regexp.MustCompile(`[^\w\s\p{Cyrillic}.,;:!?()\[\]№%/-]`)
	spaceRuns    = regexp.MustCompile(`\s+`)
	leadingNoise = regexp.MustCompile(`(?m)^\s*[.\-|]+\s*`)
	blankLines   = regexp.MustCompile(`\n\s*\n`)
)

// Clean strips scanning artifacts from raw OCR output: column rules drawn
// as pipe runs, ruled lines drawn as underscore/hyphen runs, characters
// outside the allowlist, and leftover noise lines of one or two characters.
// Always returns a string, possibly empty.
func Clean(raw string) string {
	text := pipeRuns.ReplaceAllString(raw, " ")
	text = ruledLines.ReplaceAllString(text, " ")
	text = disallowed.ReplaceAllString(text, " ")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = leadingNoise.ReplaceAllString(text, "")
	text = blankLines.ReplaceAllString(text, "\n")

	lines := strings.Split(text, "\n")
	clean := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > 2 {
			clean = append(clean, line)
		}
	}
	return strings.Join(clean, "\n")
}
