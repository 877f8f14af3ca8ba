package billing

import "strconv"

// ProductSummary is the normalized, caller-facing projection of a product.
// Field names follow the legacy contract.
type ProductSummary struct {
	ProductID      string  `json:"productId"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Price          string  `json:"price"`
	Currency       string  `json:"currency"`
	PriceAsDecimal *string `json:"priceAsDecimal"` // null when the platform omits micros
	Type           string  `json:"type"`
}

// catalog caches the most recently queried product metadata, keyed by product
// id. A query replaces the cache wholesale; lookups never mutate it. All
// methods run on the service loop.
type catalog struct {
	products map[string]ProductDetails
}

func newCatalog() *catalog {
	return &catalog{products: make(map[string]ProductDetails)}
}

// replaceAll rebuilds the cache from a query response, dropping every prior
// entry, and returns the normalized summaries. Non-one-time products are
// skipped.
func (c *catalog) replaceAll(details []ProductDetails) []ProductSummary {
	c.products = make(map[string]ProductDetails, len(details))
	out := make([]ProductSummary, 0, len(details))
	for _, pd := range details {
		if pd.Type != "" && pd.Type != ProductTypeInApp {
			continue
		}
		c.products[pd.ProductID] = pd
		out = append(out, summarize(pd))
	}
	return out
}

// lookup returns the cached product, if any. Pure; never queries the service.
func (c *catalog) lookup(id string) (ProductDetails, bool) {
	pd, ok := c.products[id]
	return pd, ok
}

func summarize(pd ProductDetails) ProductSummary {
	s := ProductSummary{
		ProductID:   pd.ProductID,
		Title:       pd.Title,
		Description: pd.Description,
		Price:       pd.FormattedPrice,
		Currency:    pd.CurrencyCode,
		Type:        ProductTypeInApp,
	}
	if pd.PriceMicros != nil {
		d := decimalPrice(*pd.PriceMicros)
		s.PriceAsDecimal = &d
	}
	return s
}

// decimalPrice converts a micro-denominated price to its decimal string,
// e.g. 990000 -> "0.99". When micros are absent the caller keeps the decimal
// price null rather than guessing.
func decimalPrice(micros int64) string {
	return strconv.FormatFloat(float64(micros)/1_000_000, 'f', -1, 64)
}
