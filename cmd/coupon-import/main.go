// Command coupon-import bulk-loads coupon codes from operator-supplied
// gzipped text files (one code per line) into the coupons table. Files are
// streamed concurrently; a shared bloom filter suppresses duplicate codes
// across files without holding every code in memory.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/promo-engine/internal/domain/coupon"
	"github.com/xenking/promo-engine/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
)

// preset describes the discount to attach to a known coupon code.
type preset struct {
	discountType coupon.Type
	value        string
	maxDiscount  string
	usageLimit   int32
}

var presets = map[string]preset{
	"FIFTYOFF": {discountType: coupon.TypePercentage, value: "50"},
	"HAPPYHRS": {discountType: coupon.TypePercentage, value: "18"},
	"TAKE20PC": {discountType: coupon.TypePercentage, value: "20", maxDiscount: "30000"},
	"OVER9000": {discountType: coupon.TypeFixed, value: "9000"},
	"ONESHOTX": {discountType: coupon.TypePercentage, value: "25", usageLimit: 1},
}

var defaultPreset = preset{
	discountType: coupon.TypePercentage,
	value:        "10",
}

const upsertCouponSQL = `INSERT INTO coupons
	(code, discount_type, value, min_order_amount, max_discount, usage_limit, active)
	VALUES ($1, $2, $3, 0, $4, $5, TRUE)
	ON CONFLICT (code) DO UPDATE SET
		discount_type = EXCLUDED.discount_type,
		value = EXCLUDED.value,
		max_discount = EXCLUDED.max_discount,
		usage_limit = EXCLUDED.usage_limit,
		active = TRUE`

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing .gz code list files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list code files")
	}
	if len(files) == 0 {
		return errors.Errorf("no .gz code files found in %s", dataDir)
	}

	slog.Info("scanning code files", slog.Int("files", len(files)))

	codes, err := collectCodes(ctx, files)
	if err != nil {
		return errors.Wrap(err, "collect codes")
	}

	slog.Info("unique codes found", slog.Int("count", len(codes)))

	if len(codes) == 0 {
		slog.Info("no codes to insert")
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeCoupons(ctx, pool, codes)
}

// dedup wraps a bloom filter with a mutex so multiple file readers can claim
// codes concurrently. Bloom false positives drop a code at the configured
// rate, which is acceptable for bulk import.
type dedup struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

func (d *dedup) claim(code string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.filter.TestAndAddString(code)
}

// collectCodes streams every file concurrently and returns the set of
// normalized, length-valid codes, first-seen-wins across files.
func collectCodes(ctx context.Context, files []string) ([]string, error) {
	seen := &dedup{filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR)}
	perFile := make([][]string, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(collectFromFile(ctx, i, f, seen, perFile))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var codes []string
	for _, fileCodes := range perFile {
		codes = append(codes, fileCodes...)
	}
	return codes, nil
}

func collectFromFile(ctx context.Context, idx int, path string, seen *dedup, results [][]string) func() error {
	return func() error {
		var (
			codes []string
			count uint64
		)

		if err := streamGzFile(ctx, path, func(line string) {
			count++
			if count%progressEvery == 0 {
				slog.Info("scan progress",
					slog.String("file", filepath.Base(path)),
					slog.Uint64("lines", count),
				)
			}

			code := coupon.Normalize(line)
			if len(code) < minCodeLen || len(code) > maxCodeLen {
				return
			}
			if seen.claim(code) {
				codes = append(codes, code)
			}
		}); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("scan complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("lines", count),
			slog.Int("codes", len(codes)),
		)

		results[idx] = codes
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeCoupons upserts all collected codes with their preset (or default)
// discount rules.
func writeCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string) error {
	slog.Info("writing coupons to database", slog.Int("count", len(codes)))

	for i, code := range codes {
		p, ok := presets[code]
		if !ok {
			p = defaultPreset
		}

		value, err := decimal.NewFromString(p.value)
		if err != nil {
			return errors.Wrapf(err, "parse value for code %s", code)
		}
		maxDiscount := decimal.Zero
		if p.maxDiscount != "" {
			maxDiscount, err = decimal.NewFromString(p.maxDiscount)
			if err != nil {
				return errors.Wrapf(err, "parse max discount for code %s", code)
			}
		}

		_, err = pool.Exec(ctx, upsertCouponSQL,
			code, string(p.discountType), value, maxDiscount, p.usageLimit,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", code)
		}

		if (i+1)%100 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}

	return nil
}
