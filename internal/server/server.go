package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/information-sharing-networks/saturn-demo/internal/config"
	"github.com/information-sharing-networks/saturn-demo/internal/database"
	"github.com/information-sharing-networks/saturn-demo/internal/logger"
	"github.com/information-sharing-networks/saturn-demo/internal/qrsession"
	"github.com/information-sharing-networks/saturn-demo/internal/server/handlers"
	saturnmw "github.com/information-sharing-networks/saturn-demo/internal/server/middleware"
	"github.com/information-sharing-networks/saturn-demo/internal/server/paymenthandlers"
	"github.com/information-sharing-networks/saturn-demo/internal/sessionstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// ServiceName is reported by /version.
const ServiceName = "merchant-server"

// Components are the long-lived parts of the merchant built by main.
type Components struct {
	Registry *qrsession.Registry
	Sessions sessionstore.Store
	Payments *paymenthandlers.Handler

	// PublicKeys is the merchant's signing key set served at /.well-known/jwks.json
	PublicKeys jwk.Set
}

type Server struct {
	pool       *pgxpool.Pool
	queries    *database.Queries
	config     *config.ServerEnvironment
	logger     *slog.Logger
	router     *chi.Mux
	components Components
}

// NewServer builds the router. pool and queries are nil when results are kept in memory.
func NewServer(
	pool *pgxpool.Pool,
	queries *database.Queries,
	cfg *config.ServerEnvironment,
	logger *slog.Logger,
	components Components,
) *Server {
	server := &Server{
		pool:       pool,
		queries:    queries,
		config:     cfg,
		logger:     logger,
		router:     chi.NewRouter(),
		components: components,
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server
}

// Router returns the HTTP handler of the server.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(saturnmw.SecurityHeaders(s.config.Environment))
}

func (s *Server) registerRoutes() {
	payments := s.components.Payments

	// the request timeout must outlast a long-poll
	timeout := middleware.Timeout(s.config.WriteTimeout)

	var db handlers.DatabaseChecker
	if s.queries != nil {
		db = s.queries
	}

	s.router.Group(func(r chi.Router) {
		r.Use(timeout)
		r.Get("/health/live", handlers.HandleHealth)
		r.Get("/health/ready", handlers.HandleReadiness(db, s.components.Sessions))
		r.Get("/version", handlers.HandleVersion(ServiceName))
		r.Get("/.well-known/jwks.json", handlers.HandleJWKS(s.components.PublicKeys))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(saturnmw.RequestSizeLimit(s.config.MaxRequestSize))
		r.Use(saturnmw.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))

		// the websocket stays open for the life of the QR session
		r.Get("/qr/{id}/ws", payments.HandleQRWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.Post("/checkout", payments.HandleCheckout)
			r.Get("/qr", payments.HandleCreateQR)
			r.Post("/qr/poll", payments.HandlePoll)
			r.Get("/qr/{id}/image.png", payments.HandleQRImage)
			r.Delete("/qr/{id}", payments.HandleCancelQR)
			r.Get("/result", payments.HandleResult)
			r.Post("/finalize", payments.HandleFinalize)
		})
	})

	s.router.Route("/wallet", func(r chi.Router) {
		r.Use(saturnmw.RequestSizeLimit(s.config.MaxRequestSize))
		r.Use(saturnmw.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
		r.Use(timeout)
		r.Get("/invoke", payments.HandleWalletInvoke)
		r.Post("/authorize", payments.HandleWalletAuthorize)
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Use(saturnmw.RequestSizeLimit(s.config.MaxRequestSize))
		r.Use(saturnmw.RequireAPIKey(s.config.AdminAPIKey))
		r.Use(timeout)
		r.Get("/receipts", payments.HandleListReceipts)
		r.Get("/receipts/{referenceId}", payments.HandleGetReceipt)
		r.Post("/receipts/{referenceId}/refund", payments.HandleRefund)
	})
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	// release blocked long-polls first so Shutdown does not wait out a full comet cycle
	s.components.Registry.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// DatabaseShutdown closes the result database and the session store.
func (s *Server) DatabaseShutdown() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("database connection closed")
	}
	if s.components.Sessions != nil {
		if err := s.components.Sessions.Close(); err != nil {
			s.logger.Warn("session store close error", slog.String("error", err.Error()))
		}
	}
}
