// Command coupon-ingest imports single-use promo codes from gzipped
// code-drop files delivered by marketing partners.
//
// Drops are noisy: each partner file contains junk lines and codes that were
// never actually issued. A code is accepted only when it appears in at least
// quorum files, so one corrupt drop cannot flood the coupons table. Files
// are large (hundreds of millions of lines), so membership is tracked with
// bloom filters built in a first concurrent pass; a second pass collects the
// codes that reach quorum.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/malove/promo-service/internal/repository"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
	batchSize     = 1000
)

func main() {
	var (
		databaseURL string
		campaign    string
		value       int64
		minCart     int64
		quorum      int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&campaign, "campaign", "Partner Drop", "campaign name stored on each imported coupon")
	flag.Int64Var(&value, "value", 100, "flat discount value per code")
	flag.Int64Var(&minCart, "min-cart", 499, "minimum cart value per code")
	flag.IntVar(&quorum, "quorum", 2, "number of drop files a code must appear in")
	flag.Parse()

	files := flag.Args()
	if len(files) < quorum {
		slog.Error("need at least quorum drop files", slog.Int("quorum", quorum), slog.Int("got", len(files)))
		os.Exit(1)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	imp := importer{
		campaign: campaign,
		value:    decimal.NewFromInt(value),
		minCart:  decimal.NewFromInt(minCart),
		quorum:   quorum,
	}
	if err := imp.run(ctx, databaseURL, files); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

type importer struct {
	campaign string
	value    decimal.Decimal
	minCart  decimal.Decimal
	quorum   int
}

func (imp importer) run(ctx context.Context, databaseURL string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: collecting codes at quorum", slog.Int("quorum", imp.quorum))

	codes, err := collectAgreedCodes(ctx, files, filters, imp.quorum)
	if err != nil {
		return errors.Wrap(err, "collect codes")
	}

	slog.Info("codes at quorum", slog.Int("count", len(codes)))
	if len(codes) == 0 {
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return imp.writeCoupons(ctx, pool, codes)
}

// buildFilters builds one bloom filter per drop file, concurrently.
func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			err := streamGzLines(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("codes", count))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}

			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("total_codes", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// collectAgreedCodes re-streams each file and marks, per code, which files
// claim to contain it. Codes present in at least quorum files survive.
// Bloom false positives can only add spurious file bits at the configured
// FPR, which is negligible against the quorum requirement.
func collectAgreedCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter, quorum int) ([]string, error) {
	perFile := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			seen := make(map[string]uint)
			var count uint64

			err := streamGzLines(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 2 progress", slog.Int("file", i+1), slog.Uint64("codes", count))
				}

				mask := uint(1) << uint(i)
				for j, f := range filters {
					if j == i {
						continue
					}
					if f.TestString(code) {
						mask |= uint(1) << uint(j)
					}
				}
				if bits.OnesCount(mask) >= quorum {
					seen[code] |= mask
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}

			slog.Info("pass 2 complete", slog.Int("file", i+1), slog.Int("candidates", len(seen)))
			perFile[i] = seen
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, m := range perFile {
		for code, mask := range m {
			merged[code] |= mask
		}
	}

	codes := make([]string, 0, len(merged))
	for code, mask := range merged {
		if bits.OnesCount(mask) >= quorum {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

// streamGzLines calls fn for every line of a gzip-compressed file.
func streamGzLines(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}

const insertCodeSQL = `
INSERT INTO coupons (code, name, discount_type, value, min_cart_value, usage_limit, active, description)
VALUES ($1, $2, 'flat', $3, $4, 1, TRUE, $5)
ON CONFLICT (code) DO NOTHING`

// writeCoupons inserts each accepted code as a single-use flat coupon,
// batched to keep round trips down. Existing codes are left untouched so
// already-redeemed coupons keep their usage counts.
func (imp importer) writeCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string) error {
	slog.Info("writing coupons", slog.Int("count", len(codes)))

	description := imp.campaign + ": single-use code"

	for start := 0; start < len(codes); start += batchSize {
		end := min(start+batchSize, len(codes))

		var batch pgx.Batch
		for _, code := range codes[start:end] {
			batch.Queue(insertCodeSQL, code, imp.campaign, imp.value, imp.minCart, description)
		}

		if err := pool.SendBatch(ctx, &batch).Close(); err != nil {
			return errors.Wrapf(err, "insert batch at offset %d", start)
		}

		slog.Info("write progress", slog.Int("written", end), slog.Int("total", len(codes)))
	}

	return nil
}
