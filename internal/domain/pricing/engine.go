package pricing

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/promo-engine/internal/domain/catalog"
	"github.com/xenking/promo-engine/internal/domain/promo"
)

// Engine evaluates the automatic promotion catalog against a cart. Quoting
// is a pure read: any number of evaluations may run in parallel.
type Engine struct {
	rules    promo.Repository
	products catalog.Repository
	now      func() time.Time
}

// NewEngine creates an Engine over the rule catalog and product catalog.
func NewEngine(rules promo.Repository, products catalog.Repository) *Engine {
	return &Engine{rules: rules, products: products, now: time.Now}
}

// EvaluateAutomaticPromotions validates the cart, refreshes untrusted line
// prices from the catalog, and applies every active code-less rule. All
// applicable rules stack additively; the summed discount is clamped to
// [0, subtotal].
//
// Infrastructure failures on this path degrade to a zero-discount result
// instead of an error: pricing must never block a checkout. Malformed input
// is the exception and is rejected with a ValidationError.
func (e *Engine) EvaluateAutomaticPromotions(ctx context.Context, lines []CartLine) (*Result, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	lines = e.refreshLines(ctx, lines)
	cart := buildCart(lines)
	now := e.now()

	rules, err := e.rules.ActiveAutomatic(ctx, now)
	if err != nil {
		zctx.From(ctx).Warn("promotion catalog unavailable, pricing without discounts",
			zap.Error(err))
		return &Result{Subtotal: cart.Subtotal, Discount: decimal.Zero, Total: cart.Subtotal}, nil
	}

	total := decimal.Zero
	var applied []AppliedRule
	for _, rule := range rules {
		info := rule.Info()
		amount := rule.Discount(cart, now)
		if info.MaxDiscount.IsPositive() && amount.GreaterThan(info.MaxDiscount) {
			amount = info.MaxDiscount
		}
		if !amount.IsPositive() {
			continue
		}
		applied = append(applied, AppliedRule{
			ID:       info.ID,
			Name:     info.Name,
			Kind:     info.Kind,
			Discount: amount,
		})
		total = total.Add(amount)
	}

	if total.GreaterThan(cart.Subtotal) {
		total = cart.Subtotal
	}
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &Result{
		Subtotal: cart.Subtotal,
		Discount: total,
		Total:    cart.Subtotal.Sub(total),
		Applied:  applied,
	}, nil
}

// refreshLines fills in price and category from the catalog for lines the
// caller sent without a trusted snapshot (zero price or missing category).
// Catalog failures leave the caller's snapshot untouched.
func (e *Engine) refreshLines(ctx context.Context, lines []CartLine) []CartLine {
	var ids []string
	for _, line := range lines {
		if line.UnitPrice.IsZero() || line.CategoryID == "" {
			ids = append(ids, line.ProductID)
		}
	}
	if len(ids) == 0 {
		return lines
	}

	products, err := e.products.GetByIDs(ctx, ids)
	if err != nil {
		zctx.From(ctx).Warn("catalog refresh failed, using caller's cart snapshot",
			zap.Error(err))
		return lines
	}

	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	refreshed := make([]CartLine, len(lines))
	copy(refreshed, lines)
	for i, line := range refreshed {
		p, ok := byID[line.ProductID]
		if !ok {
			continue
		}
		if line.UnitPrice.IsZero() {
			refreshed[i].UnitPrice = p.Price
		}
		if line.CategoryID == "" {
			refreshed[i].CategoryID = p.Category
		}
	}
	return refreshed
}
