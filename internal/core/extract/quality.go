package extract

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// englishStopWords is a small fixed list used by the language heuristic.
var englishStopWords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "to": {}, "in": {}, "is": {}, "that": {},
	"it": {}, "for": {}, "on": {}, "with": {}, "as": {}, "was": {}, "are": {},
	"this": {}, "be": {}, "at": {}, "by": {}, "an": {}, "a": {},
}

// languageSampleLen bounds how much text the language heuristic inspects.
const languageSampleLen = 1000

// languageHitThreshold is the minimum stop-word hit count to call text English.
const languageHitThreshold = 3

// scoreQuality rates extracted text on [0,1]. Scoring starts at 1.0 and applies
// fixed deductions; every deduction appends a human-readable warning. The same
// input always produces the same score and warnings.
func scoreQuality(text string) (float64, []string) {
	confidence := 1.0
	var warnings []string

	runes := []rune(text)
	if len(runes) == 0 {
		return 0, []string{"no text extracted"}
	}

	garbage := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		garbage++
	}
	if ratio := float64(garbage) / float64(len(runes)); ratio > 0.05 {
		confidence -= 0.3
		warnings = append(warnings, "high ratio of unrecognized characters; source may be scanned or encoded oddly")
	}

	words := strings.Fields(text)
	if len(words) > 0 {
		single := 0
		for _, w := range words {
			if len([]rune(w)) == 1 {
				single++
			}
		}
		if float64(single)/float64(len(words)) > 0.10 {
			confidence -= 0.2
			warnings = append(warnings, "many single-character words; text layout may have been shredded during extraction")
		}
	}

	sentences := 0
	for _, s := range sentenceSplitRe.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences > 0 {
		avg := float64(len(words)) / float64(sentences)
		if avg < 5 || avg > 50 {
			confidence -= 0.1
			warnings = append(warnings, "unusual average sentence length; structure may be degraded")
		}
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return math.Round(confidence*100) / 100, warnings
}

// detectLanguage is a cheap keyword-frequency heuristic over the head of the
// text. It only distinguishes English from everything else.
func detectLanguage(text string) string {
	runes := []rune(text)
	if len(runes) > languageSampleLen {
		runes = runes[:languageSampleLen]
	}

	hits := 0
	for _, w := range strings.Fields(strings.ToLower(string(runes))) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if _, ok := englishStopWords[w]; ok {
			hits++
		}
	}
	if hits >= languageHitThreshold {
		return "en"
	}
	return "unknown"
}
