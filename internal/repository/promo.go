package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/promo"
)

const (
	activeAutomaticRulesSQL = `SELECT id, name, rule_type, min_order_value, discount_percent,
		daily_start, daily_end, category_id, max_discount
		FROM promotion_rules
		WHERE active = TRUE AND code = '' AND starts_at <= $1 AND ends_at >= $1
		ORDER BY id`

	comboRequirementsSQL = `SELECT promotion_id, product_id, required_qty
		FROM combo_requirements WHERE promotion_id = ANY($1)
		ORDER BY promotion_id, product_id`
)

var _ promo.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promo.Repository backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// ruleRow is the flat database shape of a promotion rule before it is
// assembled into its typed variant.
type ruleRow struct {
	id            string
	name          string
	ruleType      string
	minOrderValue decimal.Decimal
	percent       decimal.Decimal
	dailyStart    string
	dailyEnd      string
	categoryID    string
	maxDiscount   decimal.Decimal
}

// ActiveAutomatic loads all active, in-window rules without a manual code,
// with combo requirements preloaded in a single second query.
func (r *PromotionRepository) ActiveAutomatic(ctx context.Context, now time.Time) ([]promo.Rule, error) {
	rows, err := r.pool.Query(ctx, activeAutomaticRulesSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing active promotion rules: %w", err)
	}

	ruleRows, err := pgx.CollectRows(rows, scanRuleRow)
	if err != nil {
		return nil, fmt.Errorf("listing active promotion rules: %w", err)
	}

	var comboIDs []string
	for _, row := range ruleRows {
		if promo.Kind(row.ruleType) == promo.KindCombo {
			comboIDs = append(comboIDs, row.id)
		}
	}

	requirements := map[string][]promo.Requirement{}
	if len(comboIDs) > 0 {
		requirements, err = r.loadRequirements(ctx, comboIDs)
		if err != nil {
			return nil, err
		}
	}

	rules := make([]promo.Rule, 0, len(ruleRows))
	for _, row := range ruleRows {
		rule, err := assembleRule(row, requirements[row.id])
		if err != nil {
			return nil, fmt.Errorf("promotion rule %q: %w", row.id, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r *PromotionRepository) loadRequirements(ctx context.Context, promotionIDs []string) (map[string][]promo.Requirement, error) {
	rows, err := r.pool.Query(ctx, comboRequirementsSQL, promotionIDs)
	if err != nil {
		return nil, fmt.Errorf("listing combo requirements: %w", err)
	}
	defer rows.Close()

	requirements := make(map[string][]promo.Requirement)
	for rows.Next() {
		var (
			promotionID string
			productID   string
			quantity    int32
		)
		if err := rows.Scan(&promotionID, &productID, &quantity); err != nil {
			return nil, fmt.Errorf("scanning combo requirement: %w", err)
		}
		requirements[promotionID] = append(requirements[promotionID], promo.Requirement{
			ProductID: productID,
			Quantity:  int(quantity),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing combo requirements: %w", err)
	}
	return requirements, nil
}

func scanRuleRow(row pgx.CollectableRow) (ruleRow, error) {
	var r ruleRow
	err := row.Scan(
		&r.id, &r.name, &r.ruleType, &r.minOrderValue, &r.percent,
		&r.dailyStart, &r.dailyEnd, &r.categoryID, &r.maxDiscount,
	)
	return r, err
}

// assembleRule converts a flat row into its typed variant.
func assembleRule(row ruleRow, requirements []promo.Requirement) (promo.Rule, error) {
	info := promo.RuleInfo{
		ID:          row.id,
		Name:        row.name,
		Kind:        promo.Kind(row.ruleType),
		MaxDiscount: row.maxDiscount,
	}

	switch info.Kind {
	case promo.KindThreshold:
		return promo.Threshold{
			RuleInfo:      info,
			MinOrderValue: row.minOrderValue,
			Percent:       row.percent,
		}, nil
	case promo.KindFlashSale:
		window, err := promo.ParseDailyWindow(row.dailyStart, row.dailyEnd)
		if err != nil {
			return nil, err
		}
		return promo.FlashSale{
			RuleInfo: info,
			Percent:  row.percent,
			Window:   window,
		}, nil
	case promo.KindCategoryBundle:
		return promo.CategoryBundle{
			RuleInfo:   info,
			CategoryID: row.categoryID,
			Percent:    row.percent,
		}, nil
	case promo.KindCombo:
		return promo.Combo{
			RuleInfo:     info,
			Percent:      row.percent,
			Requirements: requirements,
		}, nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", row.ruleType)
	}
}
