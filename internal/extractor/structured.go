package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/suatklnc/alcpn-sub000/internal/parser"
)

// fromStructuredData parses application/ld+json script blocks and searches
// them recursively for price-shaped fields (price, offers.price, lowPrice and
// friends), descending through nested objects and arrays.
func (e *Extractor) fromStructuredData(doc *goquery.Document, _ string, debug *Debug) []candidate {
	var out []candidate
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		debug.JSONLDBlocks++
		for _, value := range searchPrices(data) {
			out = append(out, candidate{value: value, strategy: "structured"})
		}
	})
	return out
}

// searchPrices walks arbitrary decoded JSON collecting values under
// price-shaped keys.
func searchPrices(data interface{}) []float64 {
	var out []float64
	switch v := data.(type) {
	case map[string]interface{}:
		for _, key := range priceJSONKeys {
			if raw, ok := v[key]; ok {
				if value, ok := asPrice(raw); ok {
					out = append(out, value)
				}
			}
		}
		for _, nested := range v {
			switch nested.(type) {
			case map[string]interface{}, []interface{}:
				out = append(out, searchPrices(nested)...)
			}
		}
	case []interface{}:
		for _, item := range v {
			out = append(out, searchPrices(item)...)
		}
	}
	return out
}

// asPrice coerces a JSON price field into a float, applying the same sanity
// band as text parsing. Structured data usually carries machine-formatted
// numbers, but Turkish sites sometimes emit display strings here too.
func asPrice(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		if v > parser.MinPrice && v < parser.MaxPrice {
			return v, true
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			if f > parser.MinPrice && f < parser.MaxPrice {
				return f, true
			}
			return 0, false
		}
		if f, ok := parser.Parse(trimmed); ok {
			return f, true
		}
	}
	return 0, false
}
