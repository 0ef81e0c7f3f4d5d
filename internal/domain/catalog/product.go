// Package catalog exposes the read-only product catalog collaborator.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is a catalog item with its current price and category.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
}

// Repository defines read operations against the product catalog.
type Repository interface {
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
