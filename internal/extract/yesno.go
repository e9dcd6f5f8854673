package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// yesNoMaxLen caps a yes/no answer that could not be normalized.
const yesNoMaxLen = 50

var auxiliaryPrefix = regexp.MustCompile(
	`^(is|are|does|do|did|was|were|has|have|had|can|could|will|would|should|must|may|might)\s+`,
)

var yesNoPhrases = []string{" yes or no", " true or false", " correct or incorrect"}

// IsYesNoQuestion reports whether question asks for a yes/no answer: it opens
// with an auxiliary verb, or it names the two options explicitly.
func IsYesNoQuestion(question string) bool {
	q := strings.ToLower(strings.TrimSpace(question))
	if auxiliaryPrefix.MatchString(q) {
		return true
	}
	for _, p := range yesNoPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

func extractFreeform(raw string, d Freeform) Result {
	text := strings.TrimSpace(raw)
	if !d.YesNo {
		return Result{Text: truncateRunes(text, d.MaxLen), Tier: TierVerbatim}
	}

	lower := strings.ToLower(text)
	if lower == "yes" || lower == "no" {
		return Result{Text: lower, Tier: TierYesNo}
	}
	if fields := strings.Fields(lower); len(fields) > 0 {
		first := strings.TrimFunc(fields[0], func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if first == "yes" || first == "no" {
			return Result{Text: first, Tier: TierYesNo}
		}
	}
	return Result{Text: truncateRunes(text, yesNoMaxLen), Tier: TierVerbatim}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
