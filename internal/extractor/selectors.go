package extractor

// commonPriceSelectors is the fixed catalog of generic price-ish selectors
// tried in order when the explicit selector yields nothing. Turkish
// marketplace conventions first, generic English patterns after.
var commonPriceSelectors = []string{
	".fiyat",
	".urun-fiyat",
	".urun-fiyati",
	".satis-fiyati",
	"#fiyat",
	"[data-fiyat]",
	".price",
	".product-price",
	".current-price",
	".sale-price",
	".price-current",
	".price__current",
	".price-value",
	"#price",
	"[data-price]",
	"[itemprop=price]",
	".a-price-whole",
	".money",
	".amount",
}

// priceMetaTags lists known price meta tag names/properties; the first
// non-empty content wins.
var priceMetaTags = []string{
	"product:price:amount",
	"og:price:amount",
	"twitter:data1",
	"price",
}

// priceAttributes are attributes that may carry the numeric value directly on
// a matched element.
var priceAttributes = []string{"content", "data-price", "data-fiyat"}

// priceJSONKeys are the price-shaped field names searched for inside
// structured-data blocks.
var priceJSONKeys = []string{"price", "lowPrice", "highPrice", "priceAmount"}

var titleSelectors = []string{
	"h1.product-title",
	"h1.urun-adi",
	"h1[itemprop=name]",
	".product-name h1",
	"#productTitle",
	"h1",
}

var availabilitySelectors = []string{
	".stok-durumu",
	".availability",
	".stock-status",
	"[itemprop=availability]",
	".in-stock",
}

var imageSelectors = []string{
	"img.product-image",
	"img.urun-resim",
	"[itemprop=image]",
	"#landingImage",
	".product-media img",
}
