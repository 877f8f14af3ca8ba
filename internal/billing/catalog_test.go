package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalPrice(t *testing.T) {
	assert.Equal(t, "0.99", decimalPrice(990000))
	assert.Equal(t, "1", decimalPrice(1000000))
	assert.Equal(t, "12.5", decimalPrice(12500000))
	assert.Equal(t, "0", decimalPrice(0))
}

func TestCatalogSkipsNonOneTimeProducts(t *testing.T) {
	sub := coinProduct()
	sub.ProductID = "premium_monthly"
	sub.Type = "subs"

	c := newCatalog()
	out := c.replaceAll([]ProductDetails{coinProduct(), sub})
	require.Len(t, out, 1)
	assert.Equal(t, "coin_100", out[0].ProductID)

	_, ok := c.lookup("premium_monthly")
	assert.False(t, ok)
}

func TestCatalogLookupIsPure(t *testing.T) {
	c := newCatalog()
	c.replaceAll([]ProductDetails{coinProduct()})

	for i := 0; i < 3; i++ {
		pd, ok := c.lookup("coin_100")
		require.True(t, ok)
		assert.Equal(t, "coin_100", pd.ProductID)
	}
	_, ok := c.lookup("nope")
	assert.False(t, ok)
}
