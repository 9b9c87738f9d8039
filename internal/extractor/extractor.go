// Package extractor resolves operator-supplied selector expressions against
// fetched HTML and picks a price from an ordered list of fallback strategies:
// explicit selector, common-selector catalog, meta tags, structured data.
package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/suatklnc/alcpn-sub000/internal/parser"
)

// Mode controls how far the strategy chain runs.
type Mode int

const (
	// BestEffort gathers candidates from every strategy before choosing.
	// Used by scheduled and batch runs.
	BestEffort Mode = iota
	// Fast stops at the first strategy that yields a surviving candidate.
	// Used by interactive single-URL tests.
	Fast
)

// Result is the outcome of one extraction. Price is nil when no numeric
// candidate survived; title, availability and image are best-effort and their
// absence is not an error.
type Result struct {
	Price        *float64
	Strategy     string
	Title        string
	Availability string
	ImageURL     string
	Debug        *Debug
}

// Debug is the operator-facing snapshot returned with interactive tests to
// help fix a selector that matches nothing.
type Debug struct {
	SelectorCounts map[string]int `json:"selector_counts"`
	MetaTagsFound  []string       `json:"meta_tags_found"`
	JSONLDBlocks   int            `json:"jsonld_blocks"`
	Candidates     int            `json:"candidates"`
}

type candidate struct {
	value    float64
	strategy string
}

// Extractor is a pure function of (html, selector); it holds no state beyond
// the fixed selector catalogs.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract parses html and runs the strategy chain. selector is a
// comma-separated list of CSS selector expressions tried in order; it may be
// empty, in which case only the fallback strategies run.
func (e *Extractor) Extract(html, selector string, mode Mode) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	debug := &Debug{SelectorCounts: make(map[string]int)}

	var candidates []candidate
	strategies := []func(*goquery.Document, string, *Debug) []candidate{
		e.fromSelector,
		e.fromCatalog,
		e.fromMetaTags,
		e.fromStructuredData,
	}

	for _, strategy := range strategies {
		found := strategy(doc, selector, debug)
		candidates = append(candidates, found...)
		if mode == Fast && len(candidates) > 0 {
			break
		}
	}
	debug.Candidates = len(candidates)

	result := &Result{
		Title:        firstText(doc, titleSelectors),
		Availability: firstText(doc, availabilitySelectors),
		ImageURL:     firstAttr(doc, imageSelectors, "src", "content", "href"),
		Debug:        debug,
	}

	if best, ok := pickHighest(candidates); ok {
		result.Price = &best.value
		result.Strategy = best.strategy
	}
	return result, nil
}

// pickHighest prefers the highest surviving value. Higher numbers are more
// often the actual sale price than incidental small numbers like ratings or
// quantities; downstream pricing depends on this exact tie-break.
func pickHighest(candidates []candidate) (candidate, bool) {
	if len(candidates) == 0 {
		return candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.value > best.value {
			best = c
		}
	}
	return best, true
}

// fromSelector splits the operator selector on commas, queries each fragment
// and concatenates all matched element texts before number parsing.
func (e *Extractor) fromSelector(doc *goquery.Document, selector string, debug *Debug) []candidate {
	var out []candidate
	for _, fragment := range strings.Split(selector, ",") {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}

		sel := doc.Find(fragment)
		debug.SelectorCounts[fragment] = sel.Length()

		var parts []string
		sel.Each(func(_ int, s *goquery.Selection) {
			parts = append(parts, s.Text())
			for _, attr := range priceAttributes {
				if v, ok := s.Attr(attr); ok {
					parts = append(parts, v)
				}
			}
		})

		for _, value := range parser.ParseAll(strings.Join(parts, " ")) {
			out = append(out, candidate{value: value, strategy: "selector"})
		}
	}
	return out
}

func (e *Extractor) fromCatalog(doc *goquery.Document, _ string, _ *Debug) []candidate {
	var out []candidate
	for _, sel := range commonPriceSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text == "" {
			if v, ok := doc.Find(sel).First().Attr("content"); ok {
				text = v
			}
		}
		if text == "" {
			continue
		}
		for _, value := range parser.ParseAll(text) {
			out = append(out, candidate{value: value, strategy: "catalog"})
		}
	}
	return out
}

func (e *Extractor) fromMetaTags(doc *goquery.Document, _ string, debug *Debug) []candidate {
	for _, name := range priceMetaTags {
		query := fmt.Sprintf(`meta[property="%s"], meta[name="%s"]`, name, name)
		content, ok := doc.Find(query).First().Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}
		debug.MetaTagsFound = append(debug.MetaTagsFound, name)

		var out []candidate
		for _, value := range parser.ParseAll(content) {
			out = append(out, candidate{value: value, strategy: "meta"})
		}
		if len(out) > 0 {
			// First non-empty meta tag wins this category.
			return out
		}
	}
	return nil
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(doc *goquery.Document, selectors []string, attrs ...string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		for _, attr := range attrs {
			if v, ok := node.Attr(attr); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}
