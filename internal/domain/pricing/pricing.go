// Package pricing computes the discount owed on a cart by evaluating the
// automatic promotion catalog.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/promo"
)

// CartLine is one requested product in a cart. Lines are supplied per
// request and never persisted. A zero UnitPrice is treated as "price the
// caller does not know" and is refreshed from the catalog when possible.
type CartLine struct {
	ProductID  string
	Quantity   int
	UnitPrice  decimal.Decimal
	CategoryID string
}

// AppliedRule describes one promotion rule's contribution to the quote.
type AppliedRule struct {
	ID       string
	Name     string
	Kind     promo.Kind
	Discount decimal.Decimal
}

// Result is the computed quote for a cart. Invariants:
// 0 <= Discount <= Subtotal and Total = Subtotal - Discount.
type Result struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	Applied  []AppliedRule
}

// ValidationError reports a malformed cart line, naming the offending field.
// Malformed input is rejected outright, never coerced.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// validateLines rejects lines with a missing product, non-positive quantity,
// or negative price.
func validateLines(lines []CartLine) error {
	if len(lines) == 0 {
		return &ValidationError{Field: "lines", Reason: "at least one cart line is required"}
	}
	for i, line := range lines {
		if line.ProductID == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("lines[%d].productId", i),
				Reason: "product id is required",
			}
		}
		if line.Quantity < 1 {
			return &ValidationError{
				Field:  fmt.Sprintf("lines[%d].quantity", i),
				Reason: "quantity must be at least 1",
			}
		}
		if line.UnitPrice.IsNegative() {
			return &ValidationError{
				Field:  fmt.Sprintf("lines[%d].unitPrice", i),
				Reason: "unit price must not be negative",
			}
		}
	}
	return nil
}

// buildCart aggregates lines into the view rules evaluate against: the
// subtotal, per-category subtotals, and per-product quantities summed across
// every line referencing the product.
func buildCart(lines []CartLine) promo.Cart {
	cart := promo.Cart{
		Subtotal:          decimal.Zero,
		CategorySubtotals: make(map[string]decimal.Decimal, len(lines)),
		ProductQuantities: make(map[string]int, len(lines)),
	}
	for _, line := range lines {
		amount := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		cart.Subtotal = cart.Subtotal.Add(amount)
		cart.ProductQuantities[line.ProductID] += line.Quantity
		if line.CategoryID != "" {
			cart.CategorySubtotals[line.CategoryID] = cart.CategorySubtotals[line.CategoryID].Add(amount)
		}
	}
	return cart
}
