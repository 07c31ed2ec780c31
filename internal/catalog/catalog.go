// Package catalog is the read-side contract the order engine depends on.
// Catalog CRUD (categories, products, drafts) is an explicit non-goal of
// this core — this package only defines the narrow snapshot query the order
// engine needs, plus a static in-process fake for tests and local dev.
package catalog

import (
	"context"

	"foodcourt/internal/apperr"
)

// ProductSnapshot is the frozen price/availability view the order engine
// consumes when creating an Order.
type ProductSnapshot struct {
	ProductID            string
	RestaurantID          string
	Available            bool
	BasePriceMinor        int64
	VariantPriceModifiers map[string]int64 // variantLabel -> modifier, minor units
}

// Client supplies product snapshots. The real implementation lives in the
// catalog CRUD subsystem, out of scope for this core.
type Client interface {
	GetProductSnapshot(ctx context.Context, restaurantID, productID string) (ProductSnapshot, error)
}

// StaticCatalog is an in-process fake backing tests and local dev, keyed by
// (restaurantID, productID).
type StaticCatalog struct {
	products map[string]ProductSnapshot
}

func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{products: make(map[string]ProductSnapshot)}
}

func (c *StaticCatalog) Seed(p ProductSnapshot) {
	c.products[key(p.RestaurantID, p.ProductID)] = p
}

func (c *StaticCatalog) GetProductSnapshot(ctx context.Context, restaurantID, productID string) (ProductSnapshot, error) {
	p, ok := c.products[key(restaurantID, productID)]
	if !ok {
		return ProductSnapshot{}, apperr.New(apperr.NotFound, "product not found in catalog")
	}
	return p, nil
}

func key(restaurantID, productID string) string {
	return restaurantID + "/" + productID
}
