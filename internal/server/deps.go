package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jewelquote/internal/pricing"
	"jewelquote/internal/storage"
	"jewelquote/pkg/spotfeed"
)

// Storage is the slice of the persistence layer the handlers consume.
// *storage.PostgresStorage implements it; tests swap in a stub.
type Storage interface {
	SaveQuote(ctx context.Context, quote storage.Quote) (uuid.UUID, error)
	UpdateQuote(ctx context.Context, quote storage.Quote) error
	GetQuote(ctx context.Context, orgID, quoteID uuid.UUID) (*storage.Quote, error)
	ListQuotes(ctx context.Context, orgID uuid.UUID) ([]storage.Quote, error)
	DeleteQuote(ctx context.Context, orgID, quoteID uuid.UUID) error
	GetQuoteStatistics(ctx context.Context, orgID uuid.UUID) (*storage.QuoteStatistics, error)
	ExportQuotesToExcel(ctx context.Context, orgID uuid.UUID) ([]byte, string, error)

	SaveClient(ctx context.Context, client storage.Client) (uuid.UUID, error)
	UpdateClient(ctx context.Context, client storage.Client) error
	GetClient(ctx context.Context, orgID, clientID uuid.UUID) (*storage.Client, error)
	ListClients(ctx context.Context, orgID uuid.UUID) ([]storage.Client, error)
	DeleteClient(ctx context.Context, orgID, clientID uuid.UUID) error

	CheckRateLimit(ctx context.Context, orgID string, action string, limit int64, window time.Duration) (bool, error)
}

// RateAdmin writes the reference rate tables.
type RateAdmin interface {
	UpsertMetalPrice(ctx context.Context, metalType string, pricePerGram decimal.Decimal) error
	UpsertStoneRate(ctx context.Context, rate pricing.StoneRate) error
}

// SpotFeed is the external market price feed; nil when no feed is configured.
type SpotFeed interface {
	FetchMetalPrices(ctx context.Context) ([]spotfeed.MetalQuote, error)
}
