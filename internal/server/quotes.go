package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"jewelquote/internal/pricing"
	"jewelquote/internal/storage"
)

type quoteRequest struct {
	ClientID  *uuid.UUID           `json:"client_id,omitempty"`
	Reference string               `json:"reference"`
	Status    string               `json:"status"`
	Fields    pricing.QuoteRequest `json:"fields"`
}

type quoteResponse struct {
	Quote     storage.Quote              `json:"quote"`
	Breakdown *pricing.CalculationResult `json:"breakdown"`
}

// createQuote prices the submitted field set against a fresh rate snapshot
// and persists the scalar totals. The full breakdown is returned to the
// caller but never stored.
func (s *Server) createQuote(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	var req quoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	quote, result, err := s.priceQuote(c.Request().Context(), orgID, req)
	if err != nil {
		return s.pricingFailure(c, err)
	}

	quoteID, err := s.storage.SaveQuote(c.Request().Context(), quote)
	if err != nil {
		s.logger.Error("Failed to save quote", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save quote"})
	}
	quote.ID = quoteID

	return c.JSON(http.StatusCreated, quoteResponse{Quote: quote, Breakdown: result})
}

// updateQuote reprices the quote from scratch; there is no incremental
// recalculation.
func (s *Server) updateQuote(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	quoteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid quote id"})
	}

	var req quoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	quote, result, err := s.priceQuote(c.Request().Context(), orgID, req)
	if err != nil {
		return s.pricingFailure(c, err)
	}
	quote.ID = quoteID

	if err := s.storage.UpdateQuote(c.Request().Context(), quote); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "quote not found"})
		}
		s.logger.Error("Failed to update quote", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update quote"})
	}

	return c.JSON(http.StatusOK, quoteResponse{Quote: quote, Breakdown: result})
}

var errRatesUnavailable = errors.New("reference rates unavailable")

// priceQuote runs the calculation pipeline shared by create and update:
// fetch a fresh snapshot, normalize, calculate. Failures come back as error
// values; pricingFailure translates them to HTTP.
func (s *Server) priceQuote(ctx context.Context, orgID uuid.UUID, req quoteRequest) (storage.Quote, *pricing.CalculationResult, error) {
	snapshot, err := s.provider.Rates(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch rate snapshot", zap.Error(err))
		return storage.Quote{}, nil, errRatesUnavailable
	}

	result, err := pricing.Calculate(req.Fields, snapshot)
	if err != nil {
		return storage.Quote{}, nil, err
	}

	fields, err := json.Marshal(pricing.Normalize(req.Fields))
	if err != nil {
		return storage.Quote{}, nil, fmt.Errorf("marshal quote fields: %w", err)
	}

	status := req.Status
	if status == "" {
		status = "draft"
	}

	return storage.Quote{
		OrgID:        orgID,
		ClientID:     req.ClientID,
		Reference:    req.Reference,
		Status:       status,
		Fields:       fields,
		SubtotalCost: result.Totals.SubtotalCost,
		Overhead:     result.Totals.Overhead,
		Profit:       result.Totals.Profit,
		TotalPrice:   result.Totals.TotalPrice,
		Margin:       result.Totals.Margin,
		SpotPrice:    result.SpotPrice,
	}, result, nil
}

// pricingFailure maps pipeline errors onto the API surface. The unresolvable
// metal rate is the only client-correctable failure and names the metal so an
// operator can add it to the rate table.
func (s *Server) pricingFailure(c echo.Context, err error) error {
	var rateErr *pricing.MetalRateError
	if errors.As(err, &rateErr) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"error":      rateErr.Error(),
			"metal_type": rateErr.MetalType,
		})
	}
	if errors.Is(err, errRatesUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "reference rates unavailable"})
	}
	s.logger.Error("Quote pricing failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "calculation failed"})
}

func (s *Server) getQuote(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	quoteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid quote id"})
	}

	quote, err := s.storage.GetQuote(c.Request().Context(), orgID, quoteID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "quote not found"})
		}
		s.logger.Error("Failed to get quote", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get quote"})
	}

	// ?breakdown=1 reprices the stored field set against current rates. The
	// persisted totals stay as quoted; this is a preview, not a write.
	if c.QueryParam("breakdown") == "1" {
		fields, err := quote.Request()
		if err != nil {
			s.logger.Error("Stored quote fields unreadable", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "stored quote fields unreadable"})
		}

		snapshot, err := s.provider.Rates(c.Request().Context())
		if err != nil {
			s.logger.Error("Failed to fetch rate snapshot", zap.Error(err))
			return s.pricingFailure(c, errRatesUnavailable)
		}

		result, err := pricing.Calculate(fields, snapshot)
		if err != nil {
			return s.pricingFailure(c, err)
		}

		return c.JSON(http.StatusOK, quoteResponse{Quote: *quote, Breakdown: result})
	}

	return c.JSON(http.StatusOK, quote)
}

func (s *Server) listQuotes(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	quotes, err := s.storage.ListQuotes(c.Request().Context(), orgID)
	if err != nil {
		s.logger.Error("Failed to list quotes", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list quotes"})
	}

	return c.JSON(http.StatusOK, quotes)
}

func (s *Server) deleteQuote(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	quoteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid quote id"})
	}

	if err := s.storage.DeleteQuote(c.Request().Context(), orgID, quoteID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "quote not found"})
		}
		s.logger.Error("Failed to delete quote", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete quote"})
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) quoteStats(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	stats, err := s.storage.GetQuoteStatistics(c.Request().Context(), orgID)
	if err != nil {
		s.logger.Error("Failed to get quote statistics", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get statistics"})
	}

	return c.JSON(http.StatusOK, stats)
}

func (s *Server) exportQuotes(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	data, filename, err := s.storage.ExportQuotesToExcel(c.Request().Context(), orgID)
	if err != nil {
		s.logger.Error("Failed to export quotes", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to export quotes"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
