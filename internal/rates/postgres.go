package rates

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"jewelquote/internal/pricing"
)

// PostgresProvider reads the system-wide metal and stone rate tables.
type PostgresProvider struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPostgresProvider(db *sqlx.DB, logger *zap.Logger) *PostgresProvider {
	return &PostgresProvider{db: db, logger: logger}
}

type metalPriceRow struct {
	MetalType    string          `db:"metal_type"`
	PricePerGram decimal.Decimal `db:"price_per_gram"`
}

func (p *PostgresProvider) Rates(ctx context.Context) (pricing.RateSnapshot, error) {
	const operation = "rates.PostgresProvider.Rates"

	var metals []metalPriceRow
	err := p.db.SelectContext(ctx, &metals, `SELECT metal_type, price_per_gram FROM metal_prices`)
	if err != nil {
		return pricing.RateSnapshot{}, fmt.Errorf("%s: failed to load metal prices: %w", operation, err)
	}

	var stones []pricing.StoneRate
	err = p.db.SelectContext(ctx, &stones, `
        SELECT stone_type, setting_style, size_category, cost
        FROM stone_prices
    `)
	if err != nil {
		return pricing.RateSnapshot{}, fmt.Errorf("%s: failed to load stone prices: %w", operation, err)
	}

	snapshot := pricing.RateSnapshot{
		MetalPrices: make(map[string]decimal.Decimal, len(metals)),
		StoneRates:  stones,
	}
	for _, m := range metals {
		snapshot.MetalPrices[m.MetalType] = m.PricePerGram
	}

	return snapshot, nil
}

// UpsertMetalPrice writes or refreshes one metal's spot price.
func (p *PostgresProvider) UpsertMetalPrice(ctx context.Context, metalType string, pricePerGram decimal.Decimal) error {
	const operation = "rates.PostgresProvider.UpsertMetalPrice"

	const query = `
        INSERT INTO metal_prices (metal_type, price_per_gram, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (metal_type)
        DO UPDATE SET price_per_gram = EXCLUDED.price_per_gram, updated_at = NOW()
    `
	if _, err := p.db.ExecContext(ctx, query, metalType, pricePerGram); err != nil {
		return fmt.Errorf("%s: failed to upsert %q: %w", operation, metalType, err)
	}

	p.logger.Info("Metal price updated",
		zap.String("metal_type", metalType),
		zap.String("price_per_gram", pricePerGram.String()))
	return nil
}

// UpsertStoneRate writes or refreshes one (type, style, size) setting cost.
func (p *PostgresProvider) UpsertStoneRate(ctx context.Context, rate pricing.StoneRate) error {
	const operation = "rates.PostgresProvider.UpsertStoneRate"

	const query = `
        INSERT INTO stone_prices (stone_type, setting_style, size_category, cost, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (stone_type, setting_style, size_category)
        DO UPDATE SET cost = EXCLUDED.cost, updated_at = NOW()
    `
	_, err := p.db.ExecContext(ctx, query, rate.StoneType, rate.SettingStyle, rate.SizeCategory, rate.Cost)
	if err != nil {
		return fmt.Errorf("%s: failed to upsert: %w", operation, err)
	}
	return nil
}
