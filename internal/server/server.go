// Package server exposes the ledger over HTTP with chi.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/balance-ledger/internal/ledger"
	"github.com/sheikh-saqib/balance-ledger/internal/models"
)

// Service is the part of *ledger.Ledger the handlers call.
type Service interface {
	CreateCustomer(ctx context.Context, name string) (models.Customer, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	GetCustomerInCurrency(ctx context.Context, id int64, currency string) (ledger.Balance, error)
	RenameCustomer(ctx context.Context, id int64, name string) (models.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
	PostOperation(ctx context.Context, customerID int64, req ledger.OperationRequest) (models.Transaction, error)
	Transfer(ctx context.Context, req ledger.TransferRequest) (models.Transaction, error)
	ListTransactions(ctx context.Context, customerID int64, order models.TransactionOrder) ([]models.Transaction, error)
}

type Options struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type Server struct {
	svc     Service
	logger  *zap.Logger
	metrics *Metrics
	opts    Options
}

func NewServer(svc Service, metrics *Metrics, logger *zap.Logger, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{svc: svc, logger: logger, metrics: metrics, opts: opts}
}

// Handler builds the router. Trailing slashes are optional on every route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StripSlashes)
	r.Use(LoggerMiddleware(s.logger))
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/balance", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", s.listCustomers)
			r.Post("/", s.createCustomer)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getCustomer)
				r.Put("/", s.renameCustomer)
				r.Patch("/", s.renameCustomer)
				r.Delete("/", s.deleteCustomer)
				r.Post("/operations", s.postOperation)
				r.Get("/transactions", s.listTransactions)
			})
		})
		r.Post("/transfer", s.transfer)
	})

	return r
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr))
		})
	}
}
