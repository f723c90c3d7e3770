// Package passport defines the Digital Product Passport data model.
package passport

import (
	"errors"
	"fmt"
	"sort"
)

// Compliance status values.
const (
	StatusUnknown            = "unknown"
	StatusCompliant          = "compliant"
	StatusPartiallyCompliant = "partially_compliant"
	StatusNonCompliant       = "non_compliant"
)

// Caps enforced on every passport record.
const (
	MaxMaterials  = 10
	MaxReferences = 5
)

// RepairScoreUnknown is the sentinel for an unreported repair score.
const RepairScoreUnknown = "N/A"

// Material is one constituent of a product's composition. It is created
// by extraction and never mutated after normalization.
type Material struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// DigitalProductPassport is the canonical standardized record describing
// a product's sustainability attributes.
type DigitalProductPassport struct {
	ProductID                 string     `json:"product_id"`
	ProductName               string     `json:"product_name"`
	Manufacturer              string     `json:"manufacturer"`
	MaterialsComposition      []Material `json:"materials_composition"`
	RecycledContentPercentage float64    `json:"recycled_content_percentage"`
	CO2FootprintKg            float64    `json:"co2_footprint_kg"`
	RepairScore               string     `json:"repair_score"`
	RecyclingInstructions     string     `json:"recycling_instructions"`
	SupplyChainPartners       []string   `json:"supply_chain_partners"`
	ComplianceStatus          string     `json:"compliance_status"`
	ESPRArticleReferences     []string   `json:"espr_article_references"`
}

// ValidationError reports a raw-input field that could not be coerced
// into an invariant-respecting value. It is the only extraction-path
// error surfaced to callers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Normalize enforces the record invariants in place: percentages clamped
// to [0,100], CO2 non-negative, at most MaxMaterials materials, and a
// deduplicated, sorted reference list capped at MaxReferences.
func (d *DigitalProductPassport) Normalize() {
	for i := range d.MaterialsComposition {
		d.MaterialsComposition[i].Percentage = clampPercent(d.MaterialsComposition[i].Percentage)
	}
	if len(d.MaterialsComposition) > MaxMaterials {
		d.MaterialsComposition = d.MaterialsComposition[:MaxMaterials]
	}

	d.RecycledContentPercentage = clampPercent(d.RecycledContentPercentage)
	if d.CO2FootprintKg < 0 {
		d.CO2FootprintKg = 0
	}

	d.ESPRArticleReferences = NormalizeReferences(d.ESPRArticleReferences)

	switch d.ComplianceStatus {
	case StatusUnknown, StatusCompliant, StatusPartiallyCompliant, StatusNonCompliant:
	default:
		d.ComplianceStatus = StatusUnknown
	}
}

// Validate checks that the required identity field survived construction.
func (d *DigitalProductPassport) Validate() error {
	if d.ProductID == "" {
		return &ValidationError{Field: "product_id", Reason: "required"}
	}
	return nil
}

// NormalizeReferences deduplicates, sorts, and caps a reference id list.
func NormalizeReferences(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	if len(out) > MaxReferences {
		out = out[:MaxReferences]
	}
	return out
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
