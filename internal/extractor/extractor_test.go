package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractExplicitSelector(t *testing.T) {
	e := New()

	html := `<html><body><span class="price">1.250,00 TL</span></body></html>`
	res, err := e.Extract(html, ".price", Fast)
	require.NoError(t, err)
	require.NotNil(t, res.Price)
	assert.InDelta(t, 1250.00, *res.Price, 0.001)
	assert.Equal(t, "selector", res.Strategy)
}

func TestExtractCommaSeparatedSelectors(t *testing.T) {
	e := New()

	html := `<html><body><div id="yeni-fiyat">3.900,00 TL</div></body></html>`
	res, err := e.Extract(html, ".eski-fiyat, #yeni-fiyat", Fast)
	require.NoError(t, err)
	require.NotNil(t, res.Price)
	assert.InDelta(t, 3900.00, *res.Price, 0.001)
}

func TestExtractFallsBackToMetaTag(t *testing.T) {
	e := New()

	// Explicit selector matches nothing; the meta tag must win.
	html := `<html><head>
		<meta property="product:price:amount" content="549.90">
	</head><body><div>no price here</div></body></html>`

	res, err := e.Extract(html, ".does-not-exist", BestEffort)
	require.NoError(t, err)
	require.NotNil(t, res.Price)
	assert.InDelta(t, 549.90, *res.Price, 0.001)
	assert.Equal(t, "meta", res.Strategy)
}

func TestExtractBestEffortPrefersHighest(t *testing.T) {
	e := New()

	// Both the explicit selector and a catalog selector match; best-effort
	// mode must return the higher value regardless of which strategy found it.
	html := `<html><body>
		<span class="hedef">120,00 TL</span>
		<span class="fiyat">890,00 TL</span>
	</body></html>`

	res, err := e.Extract(html, ".hedef", BestEffort)
	require.NoError(t, err)
	require.NotNil(t, res.Price)
	assert.InDelta(t, 890.00, *res.Price, 0.001)
}

func TestExtractFastModeStopsAtFirstStrategy(t *testing.T) {
	e := New()

	html := `<html><body>
		<span class="hedef">120,00 TL</span>
		<span class="fiyat">890,00 TL</span>
	</body></html>`

	res, err := e.Extract(html, ".hedef", Fast)
	require.NoError(t, err)
	require.NotNil(t, res.Price)
	assert.InDelta(t, 120.00, *res.Price, 0.001)
	assert.Equal(t, "selector", res.Strategy)
}

func TestExtractStructuredData(t *testing.T) {
	e := New()

	html := `<html><head><script type="application/ld+json">
	{
		"@type": "Product",
		"name": "Alçıpan 12.5mm",
		"offers": {"@type": "Offer", "price": "245.50", "priceCurrency": "TRY"}
	}
	</script></head><body></body></html>`

	res, err := e.Extract(html, "", BestEffort)
	require.NoError(t, err)
	require.NotNil(t, res.Price)
	assert.InDelta(t, 245.50, *res.Price, 0.001)
	assert.Equal(t, "structured", res.Strategy)
	assert.Equal(t, 1, res.Debug.JSONLDBlocks)
}

func TestExtractStructuredDataArray(t *testing.T) {
	e := New()

	html := `<html><head><script type="application/ld+json">
	[{"@type": "Product", "offers": [{"lowPrice": 199.0, "highPrice": 299.0}]}]
	</script></head><body></body></html>`

	res, err := e.Extract(html, "", BestEffort)
	require.NoError(t, err)
	require.NotNil(t, res.Price)
	assert.InDelta(t, 299.0, *res.Price, 0.001)
}

func TestExtractNoPrice(t *testing.T) {
	e := New()

	html := `<html><body><p>stokta yok</p></body></html>`
	res, err := e.Extract(html, ".fiyat", BestEffort)
	require.NoError(t, err)
	assert.Nil(t, res.Price)
	assert.Equal(t, 0, res.Debug.Candidates)
}

func TestExtractMalformedSelectorDegrades(t *testing.T) {
	e := New()

	// An unparsable selector behaves like one that matches nothing: no hard
	// error, zero matches reported, and the fallback strategies still run.
	html := `<html><head>
		<meta property="product:price:amount" content="549.90">
	</head><body></body></html>`

	res, err := e.Extract(html, "[unclosed", BestEffort)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Debug.SelectorCounts["[unclosed"])
	require.NotNil(t, res.Price)
	assert.InDelta(t, 549.90, *res.Price, 0.001)
	assert.Equal(t, "meta", res.Strategy)

	bare, err := e.Extract(`<html><body><p>stokta yok</p></body></html>`, "[unclosed", BestEffort)
	require.NoError(t, err)
	assert.Nil(t, bare.Price)
}

func TestExtractBestEffortFields(t *testing.T) {
	e := New()

	html := `<html><body>
		<h1 class="urun-adi">Alçıpan Levha</h1>
		<div class="stok-durumu">Stokta</div>
		<img class="urun-resim" src="https://example.com/levha.jpg">
		<span class="fiyat">145,00 TL</span>
	</body></html>`

	res, err := e.Extract(html, "", BestEffort)
	require.NoError(t, err)
	assert.Equal(t, "Alçıpan Levha", res.Title)
	assert.Equal(t, "Stokta", res.Availability)
	assert.Equal(t, "https://example.com/levha.jpg", res.ImageURL)
	require.NotNil(t, res.Price)
	assert.InDelta(t, 145.00, *res.Price, 0.001)
}

func TestExtractDebugSelectorCounts(t *testing.T) {
	e := New()

	html := `<html><body><span class="a">45 TL</span><span class="a">50 TL</span></body></html>`
	res, err := e.Extract(html, ".a, .b", Fast)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Debug.SelectorCounts[".a"])
	assert.Equal(t, 0, res.Debug.SelectorCounts[".b"])
}
