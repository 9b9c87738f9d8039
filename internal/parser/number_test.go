package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
		ok       bool
	}{
		{
			name:     "Grouped thousands with comma decimal",
			text:     "3.900,00 TL",
			expected: 3900.00,
			ok:       true,
		},
		{
			name:     "Comma decimal without thousands separator",
			text:     "3900,00 TL",
			expected: 3900.00,
			ok:       true,
		},
		{
			name:     "Plain integer",
			text:     "3900",
			expected: 3900,
			ok:       true,
		},
		{
			name:     "Small integer with currency suffix",
			text:     "45 TL",
			expected: 45,
			ok:       true,
		},
		{
			name:     "Lira symbol prefix",
			text:     "₺1.250,50",
			expected: 1250.50,
			ok:       true,
		},
		{
			name:     "Dot decimal",
			text:     "39.90 TL",
			expected: 39.90,
			ok:       true,
		},
		{
			name: "Zero rejected below sanity band",
			text: "₺0.00",
			ok:   false,
		},
		{
			name: "Rejected above sanity band",
			text: "999999 TL",
			ok:   false,
		},
		{
			name: "No digits at all",
			text: "fiyat bilgisi yok",
			ok:   false,
		},
		{
			name: "Empty string",
			text: "",
			ok:   false,
		},
		{
			name:     "Highest candidate wins",
			text:     "4.5 yıldız - 1.299,00 TL - 12 adet",
			expected: 1299.00,
			ok:       true,
		},
		{
			name:     "Currency marker not required",
			text:     "price: 249,90",
			expected: 249.90,
			ok:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := Parse(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, value, 0.001)
			}
		})
	}
}

func TestParseAll(t *testing.T) {
	candidates := ParseAll("eski fiyat 2.100,00 TL yeni fiyat 1.850,00 TL")
	assert.Equal(t, []float64{2100, 1850}, candidates)
}

func TestParseAllFiltersBand(t *testing.T) {
	// Values at or beyond the band edges are dropped, survivors kept in order.
	candidates := ParseAll("stok 0, liste 150000 TL, kampanya 950,00 TL")
	assert.Equal(t, []float64{950}, candidates)
}
