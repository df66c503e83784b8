package spotfeed

// SPOT PRICE FEED CLIENT

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Client pulls current metal spot prices from an external market feed. The
// feed is advisory: prices land in the metal_prices table via the rates sync
// endpoint and only become canonical once stored there.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

type MetalQuote struct {
	MetalType    string          `json:"metal_type"`
	PricePerGram decimal.Decimal `json:"price_per_gram"`
}

func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// FetchMetalPrices returns the feed's current price per gram for every metal
// it tracks.
func (c *Client) FetchMetalPrices(ctx context.Context) ([]MetalQuote, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET",
		fmt.Sprintf("%s/api/metals", c.baseURL),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var quotes []MetalQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("Fetched spot prices from feed", zap.Int("metals", len(quotes)))
	return quotes, nil
}
