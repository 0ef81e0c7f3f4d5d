package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Service validates coupon codes and commits redemptions through the ledger.
type Service struct {
	repo   Repository
	ledger Ledger
	now    func() time.Time
}

// NewService creates a coupon Service backed by the given repository and ledger.
func NewService(repo Repository, ledger Ledger) *Service {
	return &Service{repo: repo, ledger: ledger, now: time.Now}
}

// Validate checks a code against the activity window, usage limit, minimum
// order amount, and (when userID is non-empty) prior redemption by the same
// user. It is a pure read: no persisted state changes. The returned Quote
// carries the floor-rounded discount and resulting total.
func (s *Service) Validate(ctx context.Context, code string, orderAmount decimal.Decimal, userID string) (*Quote, error) {
	c, err := s.check(ctx, code, orderAmount, userID)
	if err != nil {
		return nil, err
	}
	return c.quote(orderAmount), nil
}

// Redeem re-validates the code against current state and atomically records
// the redemption, advancing the coupon's used count. Unlike quoting, commit
// failures always surface: over-spending a coupon's budget is never allowed.
func (s *Service) Redeem(ctx context.Context, code string, orderAmount decimal.Decimal, orderID, userID string) (*Quote, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if orderID == "" {
		return nil, ErrOrderRequired
	}

	c, err := s.check(ctx, code, orderAmount, userID)
	if err != nil {
		return nil, err
	}
	q := c.quote(orderAmount)

	err = s.ledger.Commit(ctx, Redemption{
		ID:        uuid.New().String(),
		Code:      c.Code,
		UserID:    userID,
		OrderID:   orderID,
		Discount:  q.Discount,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// check runs the validation steps in order and returns the coupon on success.
func (s *Service) check(ctx context.Context, code string, orderAmount decimal.Decimal, userID string) (*Coupon, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return nil, ErrNotFound
	}

	c, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	if !c.Active {
		return nil, ErrNotFound
	}

	now := s.now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, ErrExpired
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return nil, ErrExpired
	}

	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return nil, ErrUsageLimitExceeded
	}

	if c.MinOrderAmount.IsPositive() && orderAmount.LessThan(c.MinOrderAmount) {
		return nil, &MinOrderNotMetError{
			MinOrderAmount: c.MinOrderAmount,
			Shortfall:      c.MinOrderAmount.Sub(orderAmount),
		}
	}

	if userID != "" {
		redeemed, err := s.repo.HasRedemption(ctx, c.Code, userID)
		if err != nil {
			return nil, errors.Wrap(err, "check prior redemption")
		}
		if redeemed {
			return nil, ErrAlreadyRedeemed
		}
	}

	return c, nil
}

// quote computes the discount for this coupon against an order amount:
// percentage values are floor-rounded and capped at MaxDiscount when set;
// fixed values never exceed the order amount.
func (c *Coupon) quote(orderAmount decimal.Decimal) *Quote {
	var discount decimal.Decimal
	switch c.Type {
	case TypePercentage:
		discount = orderAmount.Mul(c.Value).Div(hundred).Floor()
		if c.MaxDiscount.IsPositive() && discount.GreaterThan(c.MaxDiscount) {
			discount = c.MaxDiscount
		}
	case TypeFixed:
		discount = decimal.Min(c.Value, orderAmount).Floor()
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return &Quote{
		Code:     c.Code,
		Type:     c.Type,
		Discount: discount,
		Total:    orderAmount.Sub(discount),
	}
}
