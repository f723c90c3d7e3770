package extract

import (
	"regexp"
	"strconv"
)

var (
	recycledPattern = regexp.MustCompile(`(?i)(recycled|post-consumer).{0,10}?(\d{1,3})\s*%`)

	co2Pattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:kg\s*CO2e?|CO2)`)
	// bareNumberPattern is the last-resort CO2 fallback. It happily grabs
	// unrelated figures ("Repair score 7/10" reads as 7 kg); that quirk is
	// pinned by tests and kept until suppliers report units consistently.
	bareNumberPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)
)

// RecycledContent extracts a recycled-content percentage from text,
// clamped to [0, 100]. Returns 0 when nothing matches.
func RecycledContent(text string) float64 {
	m := recycledPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	pct, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0
	}
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// CO2Footprint extracts a CO2 figure in kilograms from text. A unit-tagged
// figure wins; otherwise the first bare number is taken. Returns 0 when
// nothing matches.
func CO2Footprint(text string) float64 {
	if m := co2Pattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}
	if m := bareNumberPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}
	return 0
}
