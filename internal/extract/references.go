package extract

import (
	"strings"

	"github.com/dpp-comply/dpp-engine/internal/corpus"
	"github.com/dpp-comply/dpp-engine/internal/passport"
)

// referenceKeywords are the topics that tie supplier text to regulatory
// articles. An article is cited when a keyword occurs in both the input
// text and the article text.
var referenceKeywords = []string{"material", "recycled", "co2", "repair", "recycling"}

// References returns the ids of corpus entries topically related to text,
// deduplicated, sorted, and capped at passport.MaxReferences. Matching is
// case-insensitive substring containment on both sides.
func References(text string, entries []corpus.Entry) []string {
	lowerText := strings.ToLower(text)

	var refs []string
	for _, kw := range referenceKeywords {
		if !strings.Contains(lowerText, kw) {
			continue
		}
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.Text), kw) {
				refs = append(refs, e.ID)
			}
		}
	}

	return passport.NormalizeReferences(refs)
}
