// Command seed-db applies the schema and loads the catalog, the storefront
// offers, and a default API key into PostgreSQL. It is idempotent: rows are
// upserted by primary key, so re-running refreshes data in place.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/malove/promo-service/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Tagline  string          `json:"tagline"`
	Price    decimal.Decimal `json:"price"`
	MRP      decimal.Decimal `json:"mrp"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
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
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PROMO_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PROMO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, tagline, price, mrp, category, image)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    tagline = EXCLUDED.tagline,
    price = EXCLUDED.price,
    mrp = EXCLUDED.mrp,
    category = EXCLUDED.category,
    image = EXCLUDED.image`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Tagline, p.Price, p.MRP, p.Category, p.Image,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

// seedCoupon mirrors the coupons table. Zero-valued optional fields keep
// their column defaults.
type seedCoupon struct {
	Code         string
	Name         string
	Type         string
	Value        decimal.Decimal
	MinCartValue decimal.Decimal
	MaxDiscount  decimal.Decimal
	ValidUntil   *time.Time
	UsageLimit   int
	Categories   []string
	Payment      string
	Eligibility  string
	Description  string
}

const upsertCouponSQL = `
INSERT INTO coupons (
    code, name, discount_type, value, min_cart_value, max_discount,
    valid_until, usage_limit, active, categories, payment_method,
    user_eligibility, description
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $10, $11, $12)
ON CONFLICT (code) DO UPDATE SET
    name = EXCLUDED.name,
    discount_type = EXCLUDED.discount_type,
    value = EXCLUDED.value,
    min_cart_value = EXCLUDED.min_cart_value,
    max_discount = EXCLUDED.max_discount,
    valid_until = EXCLUDED.valid_until,
    usage_limit = EXCLUDED.usage_limit,
    active = TRUE,
    categories = EXCLUDED.categories,
    payment_method = EXCLUDED.payment_method,
    user_eligibility = EXCLUDED.user_eligibility,
    description = EXCLUDED.description`

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding storefront offers")

	coupons := []seedCoupon{
		{
			Code:         "WELCOME500",
			Name:         "Welcome Offer",
			Type:         "flat",
			Value:        decimal.NewFromInt(500),
			MinCartValue: decimal.NewFromInt(1500),
			Eligibility:  "new_user",
			Description:  "Flat ₹500 off your first order above ₹1500",
		},
		{
			Code:         "MALOVE20",
			Name:         "Ma Love Special",
			Type:         "percentage",
			Value:        decimal.NewFromInt(20),
			MinCartValue: decimal.NewFromInt(1000),
			MaxDiscount:  decimal.NewFromInt(400),
			Description:  "20% off orders above ₹1000, up to ₹400",
		},
		{
			Code:         "FREESHIP",
			Name:         "Free Shipping",
			Type:         "free_shipping",
			MinCartValue: decimal.NewFromInt(499),
			Description:  "Free shipping on orders above ₹499",
		},
		{
			Code:         "PREPAID100",
			Name:         "Prepaid Bonus",
			Type:         "flat",
			Value:        decimal.NewFromInt(100),
			MinCartValue: decimal.NewFromInt(999),
			Payment:      "prepaid",
			Description:  "Extra ₹100 off prepaid orders above ₹999",
		},
		{
			Code:         "HAIRCARE15",
			Name:         "Hair Care Fest",
			Type:         "percentage",
			Value:        decimal.NewFromInt(15),
			MinCartValue: decimal.NewFromInt(500),
			Categories:   []string{"Hair"},
			Description:  "15% off hair care products",
		},
		{
			Code:         "HAIRCARE10",
			Name:         "Hair Care Intro",
			Type:         "percentage",
			Value:        decimal.NewFromInt(10),
			MinCartValue: decimal.NewFromInt(600),
			Categories:   []string{"Hair"},
			Description:  "10% off hair care products",
		},
	}

	for _, c := range coupons {
		if c.Payment == "" {
			c.Payment = "all"
		}
		if c.Eligibility == "" {
			c.Eligibility = "all"
		}
		if c.Categories == nil {
			c.Categories = []string{}
		}
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.Code, c.Name, c.Type, c.Value, c.MinCartValue, c.MaxDiscount,
			c.ValidUntil, c.UsageLimit, c.Categories, c.Payment,
			c.Eligibility, c.Description,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}

const upsertAPIKeySQL = `
INSERT INTO api_keys (id, key_hash, name, scopes, active)
VALUES ($1, $2, $3, $4, TRUE)
ON CONFLICT (id) DO UPDATE SET
    key_hash = EXCLUDED.key_hash,
    name = EXCLUDED.name,
    scopes = EXCLUDED.scopes,
    active = TRUE`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "Default storefront key", []string{"create_order"},
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))

	return nil
}
