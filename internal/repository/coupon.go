package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/promo-engine/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_type, value, min_order_amount, max_discount,
		usage_limit, used_count, active, valid_from, valid_until
		FROM coupons WHERE code = $1`

	hasRedemptionSQL = `SELECT EXISTS (
		SELECT 1 FROM coupon_redemptions WHERE coupon_code = $1 AND user_id = $2)`

	insertRedemptionSQL = `INSERT INTO coupon_redemptions
		(id, coupon_code, user_id, order_id, discount_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`

	consumeCouponSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE code = $1 AND (usage_limit = 0 OR used_count < usage_limit)`
)

var (
	_ coupon.Repository = (*CouponRepository)(nil)
	_ coupon.Ledger     = (*CouponRepository)(nil)
)

// CouponRepository implements coupon.Repository and coupon.Ledger backed by
// PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its normalized code.
// Returns coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// HasRedemption reports whether the user has already redeemed the coupon.
func (r *CouponRepository) HasRedemption(ctx context.Context, code, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, hasRedemptionSQL, code, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking redemption for coupon %q: %w", code, err)
	}
	return exists, nil
}

// Commit records a redemption and advances the coupon's used count in one
// transaction. Both writes are conditional: the insert is suppressed by the
// (coupon_code, user_id) and order_id unique constraints, and the increment
// only proceeds while used_count is below the usage limit. Zero affected
// rows on either statement aborts the whole commit, so N concurrent commits
// against remaining capacity 1 produce exactly one success.
func (r *CouponRepository) Commit(ctx context.Context, red coupon.Redemption) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning redemption transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	createdAt := red.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ct, err := tx.Exec(ctx, insertRedemptionSQL,
		red.ID, red.Code, red.UserID, red.OrderID, red.Discount, createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting redemption for coupon %q: %w", red.Code, err)
	}
	if ct.RowsAffected() == 0 {
		return coupon.ErrAlreadyRedeemed
	}

	ct, err = tx.Exec(ctx, consumeCouponSQL, red.Code)
	if err != nil {
		return fmt.Errorf("consuming coupon %q: %w", red.Code, err)
	}
	if ct.RowsAffected() == 0 {
		return coupon.ErrUsageLimitExceeded
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing redemption for coupon %q: %w", red.Code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		usageLimit   int32
		usedCount    int32
	)
	err := row.Scan(
		&c.Code, &discountType, &c.Value, &c.MinOrderAmount, &c.MaxDiscount,
		&usageLimit, &usedCount, &c.Active, &c.ValidFrom, &c.ValidUntil,
	)
	c.Type = coupon.Type(discountType)
	c.UsageLimit = int(usageLimit)
	c.UsedCount = int(usedCount)
	return c, err
}
