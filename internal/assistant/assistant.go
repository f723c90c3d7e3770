// Package assistant answers free-text questions about a single Digital
// Product Passport. The rule-based router matches question keywords in a
// fixed priority order; "recycle" is checked first and therefore also
// captures questions about recycled content, which is the long-standing
// routing behavior callers depend on.
package assistant

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

// deflection is returned when no keyword matches the question.
const deflection = "Based on the DPP, the requested detail isn't explicitly reported. Consider updating supplier data."

// Assistant answers questions about passports.
type Assistant struct {
	logger    *observability.Logger
	completer llm.Completer
	timeout   time.Duration
}

// New creates a rule-based Assistant.
func New(logger *observability.Logger) *Assistant {
	return &Assistant{logger: logger}
}

// WithCompleter enables the external answering path.
func (a *Assistant) WithCompleter(c llm.Completer, timeout time.Duration) *Assistant {
	a.completer = c
	a.timeout = timeout
	return a
}

// Answer responds to a question about dpp. It never fails: external-path
// errors fall through to the keyword router.
func (a *Assistant) Answer(ctx context.Context, dpp *passport.DigitalProductPassport, question string) string {
	if a.completer != nil {
		if answer, ok := a.external(ctx, dpp, question); ok {
			return answer
		}
	}
	return ruleBased(dpp, question)
}

func (a *Assistant) external(ctx context.Context, dpp *passport.DigitalProductPassport, question string) (string, bool) {
	dppJSON, err := json.Marshal(dpp)
	if err != nil {
		return "", false
	}

	prompt := fmt.Sprintf("Answer the question using ONLY the provided DPP JSON context. "+
		"If unknown, say so briefly. Keep answer under 6 sentences.\n\n"+
		"DPP:\n%s\n\nQuestion: %s", dppJSON, question)

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	content, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		a.logger.Debug().Err(err).Msg("external answer unavailable, using rules")
		return "", false
	}
	return strings.TrimSpace(content), true
}

func ruleBased(dpp *passport.DigitalProductPassport, question string) string {
	mats := materialsList(dpp)
	q := strings.ToLower(question)

	switch {
	case strings.Contains(q, "recycle"):
		instructions := dpp.RecyclingInstructions
		if instructions == "" {
			instructions = "not provided"
		}
		return fmt.Sprintf("Recycling guidance: %s. Materials: %s.", instructions, mats)
	case strings.Contains(q, "co2"), strings.Contains(q, "footprint"):
		return fmt.Sprintf("Reported CO₂ footprint: %v kg CO₂e.", dpp.CO2FootprintKg)
	case strings.Contains(q, "materials"), strings.Contains(q, "composition"):
		return fmt.Sprintf("Materials composition: %s.", mats)
	case strings.Contains(q, "recycled"):
		return fmt.Sprintf("Recycled content: %.1f%%.", dpp.RecycledContentPercentage)
	default:
		return deflection
	}
}

func materialsList(dpp *passport.DigitalProductPassport) string {
	if len(dpp.MaterialsComposition) == 0 {
		return "not specified"
	}
	parts := make([]string, 0, len(dpp.MaterialsComposition))
	for _, m := range dpp.MaterialsComposition {
		parts = append(parts, fmt.Sprintf("%s %v%%", m.Name, m.Percentage))
	}
	return strings.Join(parts, ", ")
}
