// Package coupon implements manual coupon code validation and the
// redemption ledger contract.
package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercentage applies a percentage-based discount to the order amount.
	TypePercentage Type = "percentage"
	// TypeFixed applies a fixed monetary discount capped at the order amount.
	TypeFixed Type = "fixed"
)

var (
	// ErrNotFound is returned when a coupon code is unknown or inactive.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when a coupon is outside its validity window.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitExceeded is returned when a coupon has exhausted its allowed uses.
	ErrUsageLimitExceeded = errors.New("coupon usage limit exceeded")
	// ErrAlreadyRedeemed is returned when the acting user (or order) has
	// already consumed the coupon.
	ErrAlreadyRedeemed = errors.New("coupon already redeemed")
	// ErrUserRequired is returned when a redemption is attempted without an
	// acting user. Anonymous carts may validate but never commit.
	ErrUserRequired = errors.New("user id required to redeem a coupon")
	// ErrOrderRequired is returned when a redemption is attempted without an
	// order id.
	ErrOrderRequired = errors.New("order id required to redeem a coupon")
)

// MinOrderNotMetError is returned when the order amount is below the
// coupon's minimum. Shortfall carries the remaining amount for UI display.
type MinOrderNotMetError struct {
	MinOrderAmount decimal.Decimal
	Shortfall      decimal.Decimal
}

func (e *MinOrderNotMetError) Error() string {
	return fmt.Sprintf("order amount below coupon minimum of %s (short by %s)",
		e.MinOrderAmount, e.Shortfall)
}

// Coupon is a user-entered discount code. A zero UsageLimit means unlimited
// uses. Nil ValidFrom/ValidUntil leave that side of the window open.
type Coupon struct {
	Code           string
	Type           Type
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxDiscount    decimal.Decimal
	UsageLimit     int
	UsedCount      int
	Active         bool
	ValidFrom      *time.Time
	ValidUntil     *time.Time
}

// Quote is the outcome of a successful validation: the discount the coupon
// grants against a given order amount. Quotes never mutate persisted state.
type Quote struct {
	Code     string
	Type     Type
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Redemption is the durable record that a user consumed a coupon against an
// order. Insert-only; written exclusively by the ledger commit.
type Redemption struct {
	ID        string
	Code      string
	UserID    string
	OrderID   string
	Discount  decimal.Decimal
	CreatedAt time.Time
}

// Normalize canonicalizes a user-entered code: trimmed, upper-cased.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository provides read access to coupons and their redemptions.
type Repository interface {
	// FindByCode returns the coupon for a normalized code, or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// HasRedemption reports whether the user has already redeemed the coupon.
	HasRedemption(ctx context.Context, code, userID string) (bool, error)
}

// Ledger durably commits a redemption. Commit must be atomic: it inserts
// the redemption and advances the coupon's used count only while the usage
// limit is not exhausted, failing the whole operation with
// ErrUsageLimitExceeded or ErrAlreadyRedeemed otherwise. Concurrent commits
// against remaining capacity N succeed at most N times.
type Ledger interface {
	Commit(ctx context.Context, r Redemption) error
}
