// Package promo defines the closed set of automatic promotion rule types
// and the catalog read contract.
package promo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Kind enumerates the supported promotion rule types.
type Kind string

const (
	// KindThreshold discounts the whole cart once the subtotal reaches a minimum.
	KindThreshold Kind = "order_threshold"
	// KindFlashSale discounts the whole cart during a recurring daily clock window.
	KindFlashSale Kind = "flash_sale"
	// KindCategoryBundle discounts only the lines matching a target category.
	KindCategoryBundle Kind = "category_bundle"
	// KindCombo discounts the whole cart when required product quantities are all present.
	KindCombo Kind = "combo"
)

var hundred = decimal.NewFromInt(100)

// RuleInfo carries the fields common to every rule variant.
// A zero MaxDiscount means the rule's discount is uncapped.
type RuleInfo struct {
	ID          string
	Name        string
	Kind        Kind
	MaxDiscount decimal.Decimal
}

// Cart is the aggregated view of a cart that rules evaluate against.
type Cart struct {
	Subtotal decimal.Decimal
	// CategorySubtotals sums price*quantity per category across lines.
	CategorySubtotals map[string]decimal.Decimal
	// ProductQuantities sums quantity per product across lines; a product
	// appearing in multiple lines contributes all of them.
	ProductQuantities map[string]int
}

// Rule is the sealed union of promotion rule variants. Discount returns the
// raw (uncapped) discount amount the rule contributes, floored to whole
// currency units; zero means the rule does not apply.
type Rule interface {
	Info() RuleInfo
	Discount(cart Cart, now time.Time) decimal.Decimal

	isRule()
}

// Repository loads the promotion rule catalog.
type Repository interface {
	// ActiveAutomatic returns all rules that are active, whose date window
	// contains now, and that carry no manual code. Combo requirements are
	// preloaded.
	ActiveAutomatic(ctx context.Context, now time.Time) ([]Rule, error)
}

// Threshold applies a percentage off the whole subtotal once it reaches
// MinOrderValue.
type Threshold struct {
	RuleInfo
	MinOrderValue decimal.Decimal
	Percent       decimal.Decimal
}

func (t Threshold) Info() RuleInfo { return t.RuleInfo }
func (t Threshold) isRule()        {}

func (t Threshold) Discount(cart Cart, _ time.Time) decimal.Decimal {
	if cart.Subtotal.LessThan(t.MinOrderValue) {
		return decimal.Zero
	}
	return percentOf(cart.Subtotal, t.Percent)
}

// FlashSale applies a percentage off the whole subtotal, optionally only
// inside a recurring daily clock window. A nil Window means always on.
type FlashSale struct {
	RuleInfo
	Percent decimal.Decimal
	Window  *DailyWindow
}

func (f FlashSale) Info() RuleInfo { return f.RuleInfo }
func (f FlashSale) isRule()        {}

func (f FlashSale) Discount(cart Cart, now time.Time) decimal.Decimal {
	if f.Window != nil && !f.Window.Contains(now) {
		return decimal.Zero
	}
	return percentOf(cart.Subtotal, f.Percent)
}

// CategoryBundle applies a percentage off only the subtotal of lines whose
// category matches CategoryID. Lines in other categories are untouched.
type CategoryBundle struct {
	RuleInfo
	CategoryID string
	Percent    decimal.Decimal
}

func (c CategoryBundle) Info() RuleInfo { return c.RuleInfo }
func (c CategoryBundle) isRule()        {}

func (c CategoryBundle) Discount(cart Cart, _ time.Time) decimal.Decimal {
	if c.CategoryID == "" {
		return decimal.Zero
	}
	sub, ok := cart.CategorySubtotals[c.CategoryID]
	if !ok {
		return decimal.Zero
	}
	return percentOf(sub, c.Percent)
}

// Requirement is one product/quantity pair a combo rule demands.
type Requirement struct {
	ProductID string
	Quantity  int
}

// Combo applies a percentage off the whole subtotal when every requirement
// is satisfied by the aggregated cart quantities. Satisfaction is
// all-or-nothing: a single missing unit disables the rule entirely, and the
// discount base is the full subtotal, not just the combo items.
type Combo struct {
	RuleInfo
	Percent      decimal.Decimal
	Requirements []Requirement
}

func (c Combo) Info() RuleInfo { return c.RuleInfo }
func (c Combo) isRule()        {}

func (c Combo) Discount(cart Cart, _ time.Time) decimal.Decimal {
	if !c.Satisfied(cart.ProductQuantities) {
		return decimal.Zero
	}
	return percentOf(cart.Subtotal, c.Percent)
}

// Satisfied reports whether every requirement is met by the aggregated
// per-product quantities. A combo with no requirements never fires.
func (c Combo) Satisfied(quantities map[string]int) bool {
	if len(c.Requirements) == 0 {
		return false
	}
	for _, req := range c.Requirements {
		if quantities[req.ProductID] < req.Quantity {
			return false
		}
	}
	return true
}

// percentOf returns pct% of amount, floored to whole currency units.
func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Floor()
}
