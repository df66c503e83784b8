package server

import (
	"context"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"jewelquote/internal/rates"
)

// Server wires the HTTP surface: quotes, clients and rate administration.
// Handlers stay thin; pricing happens in internal/pricing and every query is
// scoped to the org carried in the JWT.
type Server struct {
	echo      *echo.Echo
	storage   Storage
	provider  rates.Provider
	rateAdmin RateAdmin
	feed      SpotFeed
	logger    *zap.Logger

	rateLimit  int64
	rateWindow time.Duration
}

type Options struct {
	Storage    Storage
	Provider   rates.Provider
	RateAdmin  RateAdmin
	Feed       SpotFeed
	JWTSecret  string
	RateLimit  int64
	RateWindow time.Duration
	Logger     *zap.Logger
}

func New(opts Options) *Server {
	s := &Server{
		storage:    opts.Storage,
		provider:   opts.Provider,
		rateAdmin:  opts.RateAdmin,
		feed:       opts.Feed,
		logger:     opts.Logger,
		rateLimit:  opts.RateLimit,
		rateWindow: opts.RateWindow,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/health", s.health)

	api := e.Group("/api/v1")
	api.Use(echojwt.JWT([]byte(opts.JWTSecret)))

	api.POST("/quotes", s.createQuote, s.quoteRateLimit)
	api.PUT("/quotes/:id", s.updateQuote)
	api.GET("/quotes", s.listQuotes)
	api.GET("/quotes/:id", s.getQuote)
	api.DELETE("/quotes/:id", s.deleteQuote)
	api.GET("/quotes/stats", s.quoteStats)
	api.GET("/quotes/export", s.exportQuotes)

	api.POST("/clients", s.createClient)
	api.PUT("/clients/:id", s.updateClient)
	api.GET("/clients", s.listClients)
	api.GET("/clients/:id", s.getClient)
	api.DELETE("/clients/:id", s.deleteClient)

	api.GET("/rates", s.listRates)
	api.PUT("/rates/metals/:type", s.upsertMetalPrice)
	api.PUT("/rates/stones", s.upsertStoneRate)
	api.POST("/rates/metals/sync", s.syncSpotFeed)

	s.echo = e
	return s
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(200, map[string]interface{}{
		"status":  "ok",
		"service": "jewelquote",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// quoteRateLimit caps quote creations per org in a rolling window.
func (s *Server) quoteRateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		orgID, err := orgIDFromContext(c)
		if err != nil {
			return err
		}

		limited, err := s.storage.CheckRateLimit(c.Request().Context(), orgID.String(), "create_quote", s.rateLimit, s.rateWindow)
		if err != nil {
			s.logger.Warn("Rate limit check failed", zap.Error(err))
			// A broken limiter must not block quoting.
			return next(c)
		}
		if limited {
			return c.JSON(429, map[string]string{"error": "too many quote requests, slow down"})
		}
		return next(c)
	}
}
