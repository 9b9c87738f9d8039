package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Prices below or above this band are discarded as noise: element indices,
// years, phone-number fragments and the like that the token regex may
// accidentally capture.
const (
	MinPrice = 0.01
	MaxPrice = 100000
)

var currencyMarkers = []string{"₺", "TL", "tl", "TRY"}

// numberPattern matches Turkish-formatted amounts. Alternation order matters:
// grouped thousands first ("3.900,00"), then plain comma decimals ("3900,00"),
// then bare integers or dot decimals.
var numberPattern = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?|\d+,\d{1,2}|\d+(?:\.\d{1,2})?`)

var groupedThousands = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)

// Parse extracts a single price from raw text. When the text holds several
// numeric candidates the highest surviving one is returned; higher numbers are
// more often the actual sale price than incidental small ones like ratings or
// quantities. The second return is false when no candidate survives
// filtering, which is an expected outcome, not an error.
func Parse(text string) (float64, bool) {
	candidates := ParseAll(text)
	if len(candidates) == 0 {
		return 0, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c > best {
			best = c
		}
	}
	return best, true
}

// ParseAll returns every numeric candidate in text that survives the sanity
// band, in order of appearance.
func ParseAll(text string) []float64 {
	for _, marker := range currencyMarkers {
		text = strings.ReplaceAll(text, marker, " ")
	}

	var out []float64
	for _, token := range numberPattern.FindAllString(text, -1) {
		value, err := strconv.ParseFloat(normalize(token), 64)
		if err != nil {
			continue
		}
		if value <= MinPrice || value >= MaxPrice {
			continue
		}
		out = append(out, value)
	}
	return out
}

// normalize rewrites a Turkish-formatted token into strconv form. A comma is
// always the decimal separator when present; a lone dot followed by exactly
// three digits per group is a thousands separator, not a decimal point.
func normalize(token string) string {
	if strings.Contains(token, ",") {
		token = strings.ReplaceAll(token, ".", "")
		return strings.Replace(token, ",", ".", 1)
	}
	if groupedThousands.MatchString(token) {
		return strings.ReplaceAll(token, ".", "")
	}
	return token
}
