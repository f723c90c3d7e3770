// Package insight produces a human-readable sustainability summary and
// a 0..100 score for a Digital Product Passport. An external completer,
// when configured, may write the summary instead; its output is accepted
// only when it is a well-formed JSON object carrying both fields, and
// anything less falls through to the rule-based composer.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dpp-comply/dpp-engine/internal/llm"
	"github.com/dpp-comply/dpp-engine/internal/observability"
	"github.com/dpp-comply/dpp-engine/internal/passport"
)

// Insights is the generated summary plus score.
type Insights struct {
	Summary string  `json:"summary"`
	Score   float64 `json:"score"`
}

// Generator builds insights for passports.
type Generator struct {
	logger    *observability.Logger
	completer llm.Completer
	timeout   time.Duration
}

// New creates a rule-based Generator.
func New(logger *observability.Logger) *Generator {
	return &Generator{logger: logger}
}

// WithCompleter enables the external summary path.
func (g *Generator) WithCompleter(c llm.Completer, timeout time.Duration) *Generator {
	g.completer = c
	g.timeout = timeout
	return g
}

// Generate returns insights for dpp. It never fails: the rule-based
// composer covers every case the external path cannot.
func (g *Generator) Generate(ctx context.Context, dpp *passport.DigitalProductPassport) Insights {
	if g.completer != nil {
		if out, ok := g.external(ctx, dpp); ok {
			return out
		}
	}
	return ruleBased(dpp)
}

func (g *Generator) external(ctx context.Context, dpp *passport.DigitalProductPassport) (Insights, bool) {
	dppJSON, err := json.Marshal(dpp)
	if err != nil {
		return Insights{}, false
	}

	prompt := fmt.Sprintf("Generate a concise compliance-oriented summary and a 0..100 score for this Digital Product Passport.\n"+
		"Return JSON with keys: summary (string, 4-6 sentences), score (number 0..100).\n\n"+
		"DPP JSON:\n%s", dppJSON)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	content, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		g.logger.Debug().Err(err).Msg("external insight unavailable, using rules")
		return Insights{}, false
	}

	objJSON := llm.ExtractJSONObject(content)
	if objJSON == "" {
		return Insights{}, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(objJSON), &obj); err != nil {
		return Insights{}, false
	}

	summary, okSummary := obj["summary"].(string)
	score, okScore := obj["score"].(float64)
	if !okSummary || !okScore {
		return Insights{}, false
	}

	return Insights{Summary: summary, Score: clampScore(score)}, true
}

func ruleBased(dpp *passport.DigitalProductPassport) Insights {
	summary := composeSummary(dpp)

	score := 70.0
	if dpp.RecycledContentPercentage < 20 {
		score -= 10
	}
	if dpp.CO2FootprintKg == 0 {
		score -= 10
	}
	if dpp.RecyclingInstructions == "" {
		score -= 10
	}

	return Insights{Summary: summary, Score: clampScore(score)}
}

func composeSummary(dpp *passport.DigitalProductPassport) string {
	mats := dpp.MaterialsComposition
	if len(mats) > 4 {
		mats = mats[:4]
	}
	parts := make([]string, 0, len(mats))
	for _, m := range mats {
		parts = append(parts, fmt.Sprintf("%s %v%%", m.Name, m.Percentage))
	}
	topMats := strings.Join(parts, ", ")
	if topMats == "" {
		topMats = "not specified"
	}

	var hints []string
	if dpp.RecycledContentPercentage < 20 {
		hints = append(hints, "Recycled content below typical targets (≥20–30%). Consider supplier update.")
	}
	if dpp.CO2FootprintKg == 0 {
		hints = append(hints, "CO₂ footprint not reported; add methodology and kg CO₂e.")
	}
	if dpp.RepairScore == passport.RepairScoreUnknown || dpp.RepairScore == "" {
		hints = append(hints, "Repair score missing; include iFixit-style or internal metric.")
	}
	if dpp.RecyclingInstructions == "" {
		hints = append(hints, "Add clear end-of-life recycling guidance.")
	}

	bullets := "- No immediate issues detected."
	if len(hints) > 0 {
		for i, h := range hints {
			hints[i] = "- " + h
		}
		bullets = strings.Join(hints, "\n")
	}

	return fmt.Sprintf(
		"Product: %s (Manufacturer: %s)\n"+
			"Materials: %s\n"+
			"Recycled content: %.1f%%\n"+
			"CO₂ footprint: %.2f kg CO₂e\n"+
			"Repair score: %s\n"+
			"Compliance status: %s\n\n"+
			"Recommendations:\n%s",
		dpp.ProductName, dpp.Manufacturer, topMats,
		dpp.RecycledContentPercentage, dpp.CO2FootprintKg,
		dpp.RepairScore, dpp.ComplianceStatus, bullets,
	)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
