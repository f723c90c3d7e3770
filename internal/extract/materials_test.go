package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpp-comply/dpp-engine/internal/passport"
)

func TestMaterials(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []passport.Material
	}{
		{
			name: "percentage pairs summing to 100",
			text: "Cotton 60% Polyester 40%",
			want: []passport.Material{
				{Name: "Cotton", Percentage: 60},
				{Name: "Polyester", Percentage: 40},
			},
		},
		{
			name: "near-100 total rescaled",
			text: "Cotton 50% Polyester 30%",
			want: []passport.Material{
				{Name: "Cotton", Percentage: 62.5},
				{Name: "Polyester", Percentage: 37.5},
			},
		},
		{
			name: "total outside tolerance kept verbatim",
			text: "Cotton 30% Polyester 20%",
			want: []passport.Material{
				{Name: "Cotton", Percentage: 30},
				{Name: "Polyester", Percentage: 20},
			},
		},
		{
			name: "keyword fallback without percentages",
			text: "Made with wool and steel components",
			want: []passport.Material{
				{Name: "Wool", Percentage: 0},
				{Name: "Steel", Percentage: 0},
			},
		},
		{
			name: "out-of-range percentage rejected, keyword fallback applies",
			text: "Cotton 150%",
			want: []passport.Material{
				{Name: "Cotton", Percentage: 0},
			},
		},
		{
			name: "parenthesized name degrades to empty",
			text: "Plastics (ABS) 30%",
			want: []passport.Material{
				{Name: "", Percentage: 30},
			},
		},
		{
			name: "no signal at all",
			text: "A lovely product.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Materials(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaterialsCap(t *testing.T) {
	text := "A 1% B 2% C 3% D 4% E 5% F 6% G 7% H 8% I 9% J 10% K 11% L 12%"
	got := Materials(text)
	require.Len(t, got, passport.MaxMaterials)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "J", got[len(got)-1].Name)
}

func TestMaterialsNamesAreTitleCased(t *testing.T) {
	got := Materials("recycled polyester 100%")
	require.Len(t, got, 1)
	assert.Equal(t, "Recycled Polyester", got[0].Name)
	assert.Equal(t, 100.0, got[0].Percentage)
}
