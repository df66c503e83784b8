package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jewelquote/internal/pricing"
)

// Quote is the persisted record of one priced quote. Only the scalar totals
// and the spot price used are stored; the full breakdown is recomputed from
// Fields on every read that needs it.
type Quote struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	OrgID        uuid.UUID       `db:"org_id" json:"org_id"`
	ClientID     *uuid.UUID      `db:"client_id" json:"client_id,omitempty"`
	Reference    string          `db:"reference" json:"reference"`
	Status       string          `db:"status" json:"status"`
	Fields       []byte          `db:"fields" json:"-"`
	SubtotalCost decimal.Decimal `db:"subtotal_cost" json:"subtotal_cost"`
	Overhead     decimal.Decimal `db:"overhead" json:"overhead"`
	Profit       decimal.Decimal `db:"profit" json:"profit"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"total_price"`
	Margin       decimal.Decimal `db:"margin" json:"margin"`
	SpotPrice    decimal.Decimal `db:"spot_price" json:"spot_price"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Request unpacks the stored field set the quote was priced from.
func (q *Quote) Request() (pricing.QuoteRequest, error) {
	var req pricing.QuoteRequest
	if err := json.Unmarshal(q.Fields, &req); err != nil {
		return pricing.QuoteRequest{}, fmt.Errorf("unmarshal quote fields: %w", err)
	}
	return req, nil
}

// SaveQuote inserts a freshly priced quote and returns its id.
func (s *PostgresStorage) SaveQuote(ctx context.Context, quote Quote) (uuid.UUID, error) {
	const query = `
        INSERT INTO quotes (
            id, org_id, client_id, reference, status, fields,
            subtotal_cost, overhead, profit, total_price, margin, spot_price,
            created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
        RETURNING id
    `

	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}

	var quoteID uuid.UUID
	err := s.db.QueryRowContext(ctx, query,
		quote.ID,
		quote.OrgID,
		quote.ClientID,
		quote.Reference,
		quote.Status,
		quote.Fields,
		quote.SubtotalCost,
		quote.Overhead,
		quote.Profit,
		quote.TotalPrice,
		quote.Margin,
		quote.SpotPrice,
	).Scan(&quoteID)

	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save quote: %w", err)
	}

	s.redis.Del(ctx, statsCacheKey(quote.OrgID))

	return quoteID, nil
}

// UpdateQuote rewrites a quote's field set and recomputed totals. The whole
// result is replaced; there is no incremental update.
func (s *PostgresStorage) UpdateQuote(ctx context.Context, quote Quote) error {
	const query = `
        UPDATE quotes SET
            client_id = $1, reference = $2, status = $3, fields = $4,
            subtotal_cost = $5, overhead = $6, profit = $7, total_price = $8,
            margin = $9, spot_price = $10, updated_at = NOW()
        WHERE id = $11 AND org_id = $12
    `

	res, err := s.db.ExecContext(ctx, query,
		quote.ClientID,
		quote.Reference,
		quote.Status,
		quote.Fields,
		quote.SubtotalCost,
		quote.Overhead,
		quote.Profit,
		quote.TotalPrice,
		quote.Margin,
		quote.SpotPrice,
		quote.ID,
		quote.OrgID,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.redis.Del(ctx, statsCacheKey(quote.OrgID))

	return nil
}

var ErrNotFound = errors.New("not found")

func (s *PostgresStorage) GetQuote(ctx context.Context, orgID, quoteID uuid.UUID) (*Quote, error) {
	const query = `SELECT * FROM quotes WHERE id = $1 AND org_id = $2`

	var quote Quote
	err := s.db.GetContext(ctx, &quote, query, quoteID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return &quote, nil
}

func (s *PostgresStorage) ListQuotes(ctx context.Context, orgID uuid.UUID) ([]Quote, error) {
	const query = `SELECT * FROM quotes WHERE org_id = $1 ORDER BY created_at DESC`

	var quotes []Quote
	err := s.db.SelectContext(ctx, &quotes, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	return quotes, nil
}

func (s *PostgresStorage) DeleteQuote(ctx context.Context, orgID, quoteID uuid.UUID) error {
	const query = `DELETE FROM quotes WHERE id = $1 AND org_id = $2`

	res, err := s.db.ExecContext(ctx, query, quoteID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.redis.Del(ctx, statsCacheKey(orgID))

	return nil
}

type QuoteStatistics struct {
	TotalQuotes  int             `db:"total_quotes" json:"total_quotes"`
	TotalValue   decimal.Decimal `db:"total_value" json:"total_value"`
	MonthQuotes  int             `json:"month_quotes"`
	MonthValue   decimal.Decimal `json:"month_value"`
	StatusCounts map[string]int  `json:"status_counts"`
}

func statsCacheKey(orgID uuid.UUID) string {
	return fmt.Sprintf("quote_stats:%s", orgID)
}

// GetQuoteStatistics aggregates an org's quote counts and totals, with a
// one-hour redis cache invalidated on every write.
func (s *PostgresStorage) GetQuoteStatistics(ctx context.Context, orgID uuid.UUID) (*QuoteStatistics, error) {
	cacheKey := statsCacheKey(orgID)

	if cached, err := s.redis.Get(ctx, cacheKey); err == nil {
		var stats QuoteStatistics
		if err := json.Unmarshal(cached, &stats); err == nil {
			return &stats, nil
		}
	}

	stats := &QuoteStatistics{
		StatusCounts: make(map[string]int),
	}

	err := s.db.GetContext(ctx, stats, `
        SELECT
            COUNT(*) as total_quotes,
            COALESCE(SUM(total_price), 0) as total_value
        FROM quotes
        WHERE org_id = $1
    `, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote totals: %w", err)
	}

	type countValue struct {
		Count int             `db:"count"`
		Value decimal.Decimal `db:"value"`
	}

	var month countValue
	err = s.db.GetContext(ctx, &month, `
        SELECT
            COUNT(*) as count,
            COALESCE(SUM(total_price), 0) as value
        FROM quotes
        WHERE org_id = $1 AND created_at >= CURRENT_DATE - INTERVAL '30 days'
    `, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly totals: %w", err)
	}
	stats.MonthQuotes = month.Count
	stats.MonthValue = month.Value

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) as count
        FROM quotes
        WHERE org_id = $1
        GROUP BY status
        `, orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.StatusCounts[status] = count
	}

	if data, err := json.Marshal(stats); err == nil {
		s.redis.Set(ctx, cacheKey, data, 1*time.Hour)
	}

	return stats, nil
}
