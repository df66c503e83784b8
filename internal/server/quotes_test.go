package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"jewelquote/internal/pricing"
	"jewelquote/internal/rates"
	"jewelquote/internal/storage"
)

type stubStorage struct {
	savedQuote *storage.Quote
}

func (s *stubStorage) SaveQuote(_ context.Context, quote storage.Quote) (uuid.UUID, error) {
	quote.ID = uuid.New()
	s.savedQuote = &quote
	return quote.ID, nil
}

func (s *stubStorage) UpdateQuote(_ context.Context, quote storage.Quote) error {
	s.savedQuote = &quote
	return nil
}

func (s *stubStorage) GetQuote(context.Context, uuid.UUID, uuid.UUID) (*storage.Quote, error) {
	return nil, storage.ErrNotFound
}

func (s *stubStorage) ListQuotes(context.Context, uuid.UUID) ([]storage.Quote, error) {
	return nil, nil
}

func (s *stubStorage) DeleteQuote(context.Context, uuid.UUID, uuid.UUID) error {
	return storage.ErrNotFound
}

func (s *stubStorage) GetQuoteStatistics(context.Context, uuid.UUID) (*storage.QuoteStatistics, error) {
	return &storage.QuoteStatistics{}, nil
}

func (s *stubStorage) ExportQuotesToExcel(context.Context, uuid.UUID) ([]byte, string, error) {
	return nil, "", nil
}

func (s *stubStorage) SaveClient(_ context.Context, client storage.Client) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (s *stubStorage) UpdateClient(context.Context, storage.Client) error { return nil }

func (s *stubStorage) GetClient(context.Context, uuid.UUID, uuid.UUID) (*storage.Client, error) {
	return nil, storage.ErrNotFound
}

func (s *stubStorage) ListClients(context.Context, uuid.UUID) ([]storage.Client, error) {
	return nil, nil
}

func (s *stubStorage) DeleteClient(context.Context, uuid.UUID, uuid.UUID) error {
	return storage.ErrNotFound
}

func (s *stubStorage) CheckRateLimit(context.Context, string, string, int64, time.Duration) (bool, error) {
	return false, nil
}

func testSnapshot() pricing.RateSnapshot {
	return pricing.RateSnapshot{
		MetalPrices: map[string]decimal.Decimal{
			"sterling_silver": decimal.NewFromInt(12),
		},
	}
}

func testServer(store Storage) *Server {
	return New(Options{
		Storage:    store,
		Provider:   rates.Static{Snapshot: testSnapshot()},
		JWTSecret:  "test-secret-test-secret",
		RateLimit:  100,
		RateWindow: time.Minute,
		Logger:     zap.NewNop(),
	})
}

// newQuoteContext builds an echo context carrying an authenticated org, the
// way echo-jwt leaves it after verification.
func newQuoteContext(s *Server, method, path, body string, orgID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"org_id": orgID.String(),
	})
	c.Set("user", token)
	return c, rec
}

func TestCreateQuote_PersistsTotalsAndSpotPrice(t *testing.T) {
	store := &stubStorage{}
	srv := testServer(store)
	orgID := uuid.New()

	body := `{
        "reference": "Q-2026-001",
        "fields": {
            "metal": {"metal_type": "sterling_silver", "weight_grams": "20", "wastage_pct": "10", "markup_pct": "5"}
        }
    }`

	c, rec := newQuoteContext(srv, http.MethodPost, "/api/v1/quotes", body, orgID)
	if err := srv.createQuote(c); err != nil {
		t.Fatalf("createQuote failed: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body)
	}

	if store.savedQuote == nil {
		t.Fatal("quote never reached storage")
	}
	if store.savedQuote.OrgID != orgID {
		t.Errorf("quote saved under org %s, want %s", store.savedQuote.OrgID, orgID)
	}
	if got, want := store.savedQuote.TotalPrice, decimal.RequireFromString("277.20"); !got.Equal(want) {
		t.Errorf("persisted total = %s, want %s", got, want)
	}
	if got, want := store.savedQuote.SpotPrice, decimal.NewFromInt(12); !got.Equal(want) {
		t.Errorf("persisted spot price = %s, want %s", got, want)
	}

	var resp quoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Breakdown == nil {
		t.Fatal("response carries no breakdown")
	}
	if !resp.Breakdown.Metal.Cost.Equal(decimal.RequireFromString("264.00")) {
		t.Errorf("breakdown metal cost = %s, want 264.00", resp.Breakdown.Metal.Cost)
	}
}

func TestCreateQuote_UnknownMetalRejected(t *testing.T) {
	store := &stubStorage{}
	srv := testServer(store)

	body := `{"fields": {"metal": {"metal_type": "unobtainium", "weight_grams": "5"}}}`

	c, rec := newQuoteContext(srv, http.MethodPost, "/api/v1/quotes", body, uuid.New())
	if err := srv.createQuote(c); err != nil {
		t.Fatalf("createQuote failed: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body: %s)", rec.Code, rec.Body)
	}
	if store.savedQuote != nil {
		t.Error("rejected quote must not be persisted")
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["metal_type"] != "unobtainium" {
		t.Errorf("rejection names metal %q, want %q", resp["metal_type"], "unobtainium")
	}
	if !strings.Contains(resp["error"], "unobtainium") {
		t.Errorf("error message %q does not identify the metal", resp["error"])
	}
}

func TestCreateQuote_EmptyFieldsStillDraftable(t *testing.T) {
	store := &stubStorage{}
	srv := testServer(store)

	c, rec := newQuoteContext(srv, http.MethodPost, "/api/v1/quotes", `{"fields": {}}`, uuid.New())
	if err := srv.createQuote(c); err != nil {
		t.Fatalf("createQuote failed: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body)
	}
	if !store.savedQuote.TotalPrice.IsZero() {
		t.Errorf("empty quote total = %s, want 0", store.savedQuote.TotalPrice)
	}
	if store.savedQuote.Status != "draft" {
		t.Errorf("default status = %q, want draft", store.savedQuote.Status)
	}
}
