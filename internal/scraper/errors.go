package scraper

import "errors"

// ErrNoPriceFound means HTML was obtained but no numeric candidate survived
// extraction. A scrape without a price is always a failure here: price is the
// only field anything downstream relies on, even when title or availability
// were recovered. The message is fixed so operators and history queries can
// match on it.
var ErrNoPriceFound = errors.New("no price found for selector")
