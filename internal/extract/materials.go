// Package extract implements the heuristic field extractors that pull
// sustainability signals out of free-form supplier text. The heuristics
// are intentionally shallow: regular expressions and keyword scans, no
// language models. Each extractor is a pure function of its input.
package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dpp-comply/dpp-engine/internal/passport"
)

// materialPattern captures "<name> <pct>%" pairs. The name group is lazy
// so that "Cotton 60% Polyester 40%" splits cleanly at each percentage.
var materialPattern = regexp.MustCompile(`([A-Za-z ]+?)\s*(\d{1,3})\s*%`)

// materialKeywords is the fallback vocabulary scanned when no explicit
// percentage pairs are present. Matches are recorded with percentage 0.
var materialKeywords = []string{
	"Cotton", "Polyester", "Nylon", "Wool", "Steel",
	"Aluminium", "Glass", "ABS", "Copper",
}

// Materials extracts a material composition from text. Percentage pairs
// win over keyword mentions; when the extracted percentages sum to
// something plausibly near 100 (within [80, 120]) they are rescaled to
// exactly 100. The result is capped at passport.MaxMaterials entries.
func Materials(text string) []passport.Material {
	var materials []passport.Material

	for _, m := range materialPattern.FindAllStringSubmatch(text, -1) {
		name := titleCase(strings.ToLower(strings.TrimSpace(m[1])))
		pct, err := strconv.ParseFloat(m[2], 64)
		if err != nil || pct < 0 || pct > 100 {
			continue
		}
		materials = append(materials, passport.Material{Name: name, Percentage: pct})
	}

	if len(materials) == 0 {
		lower := strings.ToLower(text)
		for _, kw := range materialKeywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				materials = append(materials, passport.Material{Name: kw, Percentage: 0})
			}
		}
	}

	total := 0.0
	for _, m := range materials {
		total += m.Percentage
	}
	if total > 0 && total >= 80 && total <= 120 {
		for i := range materials {
			materials[i].Percentage = round2(materials[i].Percentage / total * 100)
		}
	}

	if len(materials) > passport.MaxMaterials {
		materials = materials[:passport.MaxMaterials]
	}
	return materials
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
