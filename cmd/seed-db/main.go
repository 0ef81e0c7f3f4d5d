// Command seed-db applies the schema and loads local development fixtures:
// a small product catalog, one promotion rule of each type, combo
// requirements, a few coupons, and a hashed API key for the redeem endpoint.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/promo-engine/internal/repository"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PROMO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PROMO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PROMO_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PROMO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, apiKeyPepper string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedPromotions(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promotions")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if apiKey != "" {
		if err := seedAPIKey(ctx, pool, apiKey, apiKeyPepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	products := []struct {
		id, name, price, category string
	}{
		{"p-espresso", "Espresso Machine", "2500000", "appliances"},
		{"p-grinder", "Burr Grinder", "900000", "appliances"},
		{"p-beans", "House Blend Beans 1kg", "250000", "coffee"},
		{"p-filter", "Paper Filters x100", "45000", "coffee"},
		{"p-mug", "Ceramic Mug", "120000", "tableware"},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx, `INSERT INTO products (id, name, price, category)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name,
				price = EXCLUDED.price, category = EXCLUDED.category`,
			p.id, p.name, p.price, p.category,
		)
		if err != nil {
			return errors.Wrapf(err, "product %s", p.id)
		}
	}
	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}

func seedPromotions(ctx context.Context, pool *pgxpool.Pool) error {
	now := time.Now()
	start := now.AddDate(0, -1, 0)
	end := now.AddDate(0, 1, 0)

	rules := []struct {
		id, name, ruleType            string
		minOrderValue, percent        string
		dailyStart, dailyEnd          string
		categoryID, maxDiscount, code string
	}{
		{
			id: "rule-big-order", name: "10% off orders over 300k", ruleType: "order_threshold",
			minOrderValue: "300000", percent: "10", maxDiscount: "0",
		},
		{
			id: "rule-flash", name: "All-day flash sale", ruleType: "flash_sale",
			percent: "5", dailyStart: "00:00", dailyEnd: "23:59", minOrderValue: "0", maxDiscount: "50000",
		},
		{
			id: "rule-coffee-corner", name: "15% off coffee", ruleType: "category_bundle",
			percent: "15", categoryID: "coffee", minOrderValue: "0", maxDiscount: "0",
		},
		{
			id: "rule-starter-kit", name: "Starter kit combo", ruleType: "combo",
			percent: "12", minOrderValue: "0", maxDiscount: "0",
		},
	}

	for _, r := range rules {
		_, err := pool.Exec(ctx, `INSERT INTO promotion_rules
			(id, name, rule_type, code, active, starts_at, ends_at,
			 min_order_value, discount_percent, daily_start, daily_end, category_id, max_discount)
			VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING`,
			r.id, r.name, r.ruleType, r.code, start, end,
			r.minOrderValue, r.percent, r.dailyStart, r.dailyEnd, r.categoryID, r.maxDiscount,
		)
		if err != nil {
			return errors.Wrapf(err, "rule %s", r.id)
		}
	}

	requirements := []struct {
		promotionID, productID string
		quantity               int
	}{
		{"rule-starter-kit", "p-espresso", 1},
		{"rule-starter-kit", "p-grinder", 1},
		{"rule-starter-kit", "p-beans", 2},
	}
	for _, req := range requirements {
		_, err := pool.Exec(ctx, `INSERT INTO combo_requirements (promotion_id, product_id, required_qty)
			VALUES ($1, $2, $3) ON CONFLICT (promotion_id, product_id) DO NOTHING`,
			req.promotionID, req.productID, req.quantity,
		)
		if err != nil {
			return errors.Wrapf(err, "requirement %s/%s", req.promotionID, req.productID)
		}
	}

	slog.Info("promotion rules seeded", slog.Int("count", len(rules)))
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	coupons := []struct {
		code, discountType, value string
		minOrder, maxDiscount     string
		usageLimit                int
	}{
		{code: "WELCOME10", discountType: "percentage", value: "10", minOrder: "0", maxDiscount: "100000"},
		{code: "TAKE20PC", discountType: "percentage", value: "20", minOrder: "100000", maxDiscount: "30000"},
		{code: "SAVE50K", discountType: "fixed", value: "50000", minOrder: "200000", maxDiscount: "0"},
		{code: "LASTONE", discountType: "percentage", value: "30", minOrder: "0", maxDiscount: "0", usageLimit: 1},
	}

	for _, c := range coupons {
		_, err := pool.Exec(ctx, `INSERT INTO coupons
			(code, discount_type, value, min_order_amount, max_discount, usage_limit, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			ON CONFLICT (code) DO NOTHING`,
			c.code, c.discountType, c.value, c.minOrder, c.maxDiscount, c.usageLimit,
		)
		if err != nil {
			return errors.Wrapf(err, "coupon %s", c.code)
		}
	}
	slog.Info("coupons seeded", slog.Int("count", len(coupons)))
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	hash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, `INSERT INTO api_keys (id, key_hash, name, active)
		VALUES ($1, $2, 'seed', TRUE)
		ON CONFLICT (key_hash) DO NOTHING`,
		uuid.New().String(), hash,
	)
	if err != nil {
		return errors.Wrap(err, "insert api key")
	}
	slog.Info("api key seeded")
	return nil
}
