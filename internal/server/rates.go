package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"jewelquote/internal/pricing"
)

// invalidator is implemented by rate providers that cache snapshots.
type invalidator interface {
	Invalidate(ctx context.Context)
}

func (s *Server) invalidateRates(ctx context.Context) {
	if inv, ok := s.provider.(invalidator); ok {
		inv.Invalidate(ctx)
	}
}

func (s *Server) listRates(c echo.Context) error {
	if _, err := orgIDFromContext(c); err != nil {
		return err
	}

	snapshot, err := s.provider.Rates(c.Request().Context())
	if err != nil {
		s.logger.Error("Failed to fetch rate snapshot", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "reference rates unavailable"})
	}

	return c.JSON(http.StatusOK, snapshot)
}

func (s *Server) upsertMetalPrice(c echo.Context) error {
	if _, err := orgIDFromContext(c); err != nil {
		return err
	}

	metalType := c.Param("type")
	if metalType == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "metal type is required"})
	}

	var req struct {
		PricePerGram decimal.Decimal `json:"price_per_gram"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}
	if !req.PricePerGram.IsPositive() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "price_per_gram must be positive"})
	}

	ctx := c.Request().Context()
	if err := s.rateAdmin.UpsertMetalPrice(ctx, metalType, req.PricePerGram); err != nil {
		s.logger.Error("Failed to upsert metal price", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update metal price"})
	}
	s.invalidateRates(ctx)

	return c.JSON(http.StatusOK, map[string]string{
		"metal_type":     metalType,
		"price_per_gram": req.PricePerGram.String(),
	})
}

func (s *Server) upsertStoneRate(c echo.Context) error {
	if _, err := orgIDFromContext(c); err != nil {
		return err
	}

	var rate pricing.StoneRate
	if err := c.Bind(&rate); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}
	if rate.StoneType == "" || rate.SettingStyle == "" || rate.SizeCategory == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "stone_type, setting_style and size_category are required"})
	}
	if rate.Cost.IsNegative() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cost must not be negative"})
	}

	ctx := c.Request().Context()
	if err := s.rateAdmin.UpsertStoneRate(ctx, rate); err != nil {
		s.logger.Error("Failed to upsert stone rate", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update stone rate"})
	}
	s.invalidateRates(ctx)

	return c.JSON(http.StatusOK, rate)
}

// syncSpotFeed pulls the external market feed and refreshes every metal it
// tracks. The feed never prices a quote directly; it only feeds the table
// the snapshot is built from.
func (s *Server) syncSpotFeed(c echo.Context) error {
	if _, err := orgIDFromContext(c); err != nil {
		return err
	}

	if s.feed == nil {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "no spot price feed configured"})
	}

	ctx := c.Request().Context()
	quotes, err := s.feed.FetchMetalPrices(ctx)
	if err != nil {
		s.logger.Error("Spot feed fetch failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "spot price feed unavailable"})
	}

	updated := 0
	for _, q := range quotes {
		if q.MetalType == "" || !q.PricePerGram.IsPositive() {
			continue
		}
		if err := s.rateAdmin.UpsertMetalPrice(ctx, q.MetalType, q.PricePerGram); err != nil {
			s.logger.Error("Failed to store feed price",
				zap.String("metal_type", q.MetalType),
				zap.Error(err))
			continue
		}
		updated++
	}
	s.invalidateRates(ctx)

	return c.JSON(http.StatusOK, map[string]int{"updated": updated})
}
