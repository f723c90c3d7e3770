package standardize

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpp-comply/dpp-engine/internal/corpus"
	"github.com/dpp-comply/dpp-engine/internal/llm"
	"github.com/dpp-comply/dpp-engine/internal/observability"
	"github.com/dpp-comply/dpp-engine/internal/passport"
)

func newTestStandardizer() *Standardizer {
	return New(observability.Nop(), corpus.Builtin())
}

func TestStandardizeRuleBased(t *testing.T) {
	s := newTestStandardizer()

	raw := map[string]any{
		"product_id":   "ecophone-x1",
		"product_name": "EcoPhone X1",
		"manufacturer": "GreenTech",
		"description":  "Body: Aluminium 60% Glass 40%. Contains recycled content: 25%. Footprint 2.4 kg CO2e.",
	}

	dpp, err := s.Standardize(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "ecophone-x1", dpp.ProductID)
	assert.Equal(t, "EcoPhone X1", dpp.ProductName)
	assert.Equal(t, "GreenTech", dpp.Manufacturer)

	// The recycled figure also matches the material pattern with an empty
	// name; the 125% total is outside the rescale tolerance so the stated
	// percentages survive untouched.
	require.Len(t, dpp.MaterialsComposition, 3)
	assert.Equal(t, passport.Material{Name: "Aluminium", Percentage: 60}, dpp.MaterialsComposition[0])
	assert.Equal(t, passport.Material{Name: "Glass", Percentage: 40}, dpp.MaterialsComposition[1])
	assert.Equal(t, passport.Material{Name: "", Percentage: 25}, dpp.MaterialsComposition[2])

	assert.Equal(t, 25.0, dpp.RecycledContentPercentage)
	assert.Equal(t, 2.4, dpp.CO2FootprintKg)
	assert.Equal(t, passport.RepairScoreUnknown, dpp.RepairScore)
	assert.Equal(t, defaultRecyclingInstructions, dpp.RecyclingInstructions)
	assert.Equal(t, passport.StatusUnknown, dpp.ComplianceStatus)
	assert.Equal(t, []string{"ESPR_Article_1", "ESPR_Article_2"}, dpp.ESPRArticleReferences)
}

func TestStandardizeDefaults(t *testing.T) {
	s := newTestStandardizer()

	dpp, err := s.Standardize(context.Background(), map[string]any{})
	require.NoError(t, err)

	_, parseErr := uuid.Parse(dpp.ProductID)
	assert.NoError(t, parseErr, "generated product_id should be a uuid")
	assert.Equal(t, "Unknown Product", dpp.ProductName)
	assert.Equal(t, "Unknown Manufacturer", dpp.Manufacturer)
	assert.Empty(t, dpp.MaterialsComposition)
	assert.Equal(t, 0.0, dpp.RecycledContentPercentage)
	assert.Equal(t, 0.0, dpp.CO2FootprintKg)
	assert.Equal(t, "N/A", dpp.RepairScore)
	assert.Equal(t, defaultRecyclingInstructions, dpp.RecyclingInstructions)
	assert.Equal(t, []string{}, dpp.SupplyChainPartners)
	assert.Equal(t, passport.StatusUnknown, dpp.ComplianceStatus)

	// Empty blob probes the corpus with all topic keywords.
	assert.Equal(t, []string{"ESPR_Article_1", "ESPR_Article_2", "ESPR_Article_3"}, dpp.ESPRArticleReferences)
}

func TestStandardizeEmptyCorpusFallsBackToDefaultReferences(t *testing.T) {
	s := New(observability.Nop(), nil)

	dpp, err := s.Standardize(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ESPR_Article_1", "ESPR_Article_2"}, dpp.ESPRArticleReferences)
}

func TestStandardizeAliases(t *testing.T) {
	s := newTestStandardizer()

	dpp, err := s.Standardize(context.Background(), map[string]any{
		"name":      "Chair",
		"brand":     "WoodCo",
		"suppliers": []any{"MillA", "MillB"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Chair", dpp.ProductName)
	assert.Equal(t, "WoodCo", dpp.Manufacturer)
	assert.Equal(t, []string{"MillA", "MillB"}, dpp.SupplyChainPartners)
}

func TestStandardizeRepairScoreCoercion(t *testing.T) {
	s := newTestStandardizer()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "absent", value: nil, want: "N/A"},
		{name: "string passthrough", value: "7/10", want: "7/10"},
		{name: "number stringified", value: 7.5, want: "7.5"},
		{name: "whole number stringified", value: float64(8), want: "8"},
		{name: "zero means unreported", value: float64(0), want: "N/A"},
		{name: "empty string means unreported", value: "", want: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]any{}
			if tt.value != nil {
				raw["repair_score"] = tt.value
			}
			dpp, err := s.Standardize(context.Background(), raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dpp.RepairScore)
		})
	}
}

func TestStandardizeValidationErrors(t *testing.T) {
	s := newTestStandardizer()

	tests := []struct {
		name string
		raw  map[string]any
	}{
		{name: "non-string product_id", raw: map[string]any{"product_id": 42.0}},
		{name: "non-string manufacturer", raw: map[string]any{"manufacturer": true}},
		{name: "non-list partners", raw: map[string]any{"supply_chain_partners": "MillA"}},
		{name: "non-string partner entries", raw: map[string]any{"suppliers": []any{"MillA", 3.0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Standardize(context.Background(), tt.raw)
			require.Error(t, err)
			assert.True(t, passport.IsValidationError(err))
		})
	}
}

func TestStandardizeAssisted(t *testing.T) {
	mock := &llm.MockCompleter{
		Response: `Here is the passport:
{"product_id": "p-1", "product_name": "EcoPhone", "manufacturer": "GreenTech",
 "materials_composition": [{"name": "Aluminium", "percentage": 70}],
 "recycled_content_percentage": 30, "co2_footprint_kg": 2.4,
 "repair_score": "8/10", "recycling_instructions": "Disassemble.",
 "supply_chain_partners": ["MillA"], "compliance_status": "unknown",
 "espr_article_references": ["ESPR_Article_2", "ESPR_Article_1"],
 "notes": "assumed aluminium from description"}`,
	}
	s := newTestStandardizer().WithCompleter(mock, 0)

	dpp, err := s.Standardize(context.Background(), map[string]any{"description": "messy"})
	require.NoError(t, err)

	assert.Equal(t, "p-1", dpp.ProductID)
	assert.Equal(t, 30.0, dpp.RecycledContentPercentage)
	assert.Equal(t, "8/10", dpp.RepairScore)
	assert.Equal(t, []string{"ESPR_Article_1", "ESPR_Article_2"}, dpp.ESPRArticleReferences)
	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "messy")
}

func TestStandardizeAssistedFallsBackOnError(t *testing.T) {
	mock := &llm.MockCompleter{Err: errors.New("boom")}
	s := newTestStandardizer().WithCompleter(mock, 0)

	dpp, err := s.Standardize(context.Background(), map[string]any{"product_name": "Chair"})
	require.NoError(t, err)
	assert.Equal(t, "Chair", dpp.ProductName)
}

func TestStandardizeAssistedFallsBackOnNonJSON(t *testing.T) {
	mock := &llm.MockCompleter{Response: "I cannot help with that."}
	s := newTestStandardizer().WithCompleter(mock, 0)

	dpp, err := s.Standardize(context.Background(), map[string]any{"product_name": "Chair"})
	require.NoError(t, err)
	assert.Equal(t, "Chair", dpp.ProductName)
}

func TestStandardizeAssistedContractViolationSurfaces(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "missing required field", response: `{"product_name": "X", "manufacturer": "Y"}`},
		{name: "wrong type", response: `{"product_id": "p", "product_name": "X", "manufacturer": "Y", "repair_score": 7}`},
		{name: "percentage out of range", response: `{"product_id": "p", "product_name": "X", "manufacturer": "Y", "materials_composition": [{"name": "A", "percentage": 140}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStandardizer().WithCompleter(&llm.MockCompleter{Response: tt.response}, 0)
			_, err := s.Standardize(context.Background(), map[string]any{})
			require.Error(t, err)
			assert.True(t, passport.IsValidationError(err))
		})
	}
}
