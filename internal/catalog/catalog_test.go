package catalog

import (
	"context"
	"testing"

	"foodcourt/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCatalog(t *testing.T) {
	cat := NewStaticCatalog()
	cat.Seed(ProductSnapshot{
		ProductID:      "prod-1",
		RestaurantID:   "rest-1",
		Available:      true,
		BasePriceMinor: 750,
		VariantPriceModifiers: map[string]int64{
			"large": 200,
		},
	})

	snap, err := cat.GetProductSnapshot(context.Background(), "rest-1", "prod-1")
	require.NoError(t, err)
	assert.Equal(t, int64(750), snap.BasePriceMinor)
	assert.Equal(t, int64(200), snap.VariantPriceModifiers["large"])

	_, err = cat.GetProductSnapshot(context.Background(), "rest-1", "prod-missing")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	// Same product id under a different restaurant is a different key.
	_, err = cat.GetProductSnapshot(context.Background(), "rest-2", "prod-1")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
