// Package httpapi exposes the ledger core over REST.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kvasha/bookkeeper/internal/transport/httpapi/handler"
	"github.com/kvasha/bookkeeper/internal/transport/httpapi/middleware"
	"github.com/kvasha/bookkeeper/pkg/logger"
)

// Config holds router configuration.
type Config struct {
	Logger             *logger.Logger
	AllowedOrigins     []string
	BookHandler        *handler.BookHandler
	TransactionHandler *handler.TransactionHandler
	BalanceHandler     *handler.BalanceHandler
	JWTMiddleware      func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit())

	// Health check endpoint (no authentication required)
	r.Get("/health", handler.GetHealth)

	// API routes (require JWT authentication)
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTMiddleware != nil {
			r.Use(cfg.JWTMiddleware)
		}

		if cfg.BookHandler != nil {
			r.Post("/currencies", cfg.BookHandler.CreateCurrency)
			r.Post("/books", cfg.BookHandler.CreateBook)
			r.Post("/books/{bookID}/accounts", cfg.BookHandler.CreateAccount)
			r.Post("/books/{bookID}/buckets", cfg.BookHandler.CreateBucket)
		}

		if cfg.TransactionHandler != nil {
			r.Post("/books/{bookID}/transactions", cfg.TransactionHandler.CreateTransaction)
			r.Get("/books/{bookID}/transactions", cfg.TransactionHandler.ListTransactions)
		}

		if cfg.BalanceHandler != nil {
			r.Get("/books/{bookID}/balances", cfg.BalanceHandler.GetBalances)
			r.Get("/books/{bookID}/reconcile", cfg.BalanceHandler.Reconcile)
		}
	})

	return r
}
