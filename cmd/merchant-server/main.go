package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/information-sharing-networks/saturn-demo/internal/authority"
	"github.com/information-sharing-networks/saturn-demo/internal/config"
	"github.com/information-sharing-networks/saturn-demo/internal/crypto"
	"github.com/information-sharing-networks/saturn-demo/internal/database"
	"github.com/information-sharing-networks/saturn-demo/internal/logger"
	"github.com/information-sharing-networks/saturn-demo/internal/orchestrator"
	"github.com/information-sharing-networks/saturn-demo/internal/qrsession"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/server"
	"github.com/information-sharing-networks/saturn-demo/internal/server/paymenthandlers"
	"github.com/information-sharing-networks/saturn-demo/internal/services"
	"github.com/information-sharing-networks/saturn-demo/internal/sessionstore"
	"github.com/information-sharing-networks/saturn-demo/internal/store"
	"github.com/information-sharing-networks/saturn-demo/internal/trust"
	"github.com/information-sharing-networks/saturn-demo/internal/version"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

//	@title			merchant-server
//	@description	merchant-server is the merchant side of the Saturn payment demo: checkout, the QR code
//	@description	rendezvous between the checkout page and the payer's phone, and the payment protocol
//	@description	with the payer's bank, the acquirer and the merchant's bank.
//	@description
//	@description	## Cross-device flow
//	@description	1. the checkout page starts a checkout (`POST /api/checkout`) and asks for a QR code (`GET /api/qr`)
//	@description	2. the page long-polls `POST /api/qr/poll` (or opens `/api/qr/{id}/ws`)
//	@description	3. the wallet scans the code, calls `/wallet/invoke?qr=` and then `/wallet/authorize?qr=`
//	@description	4. the poll returns `s` and the page fetches `/api/result`
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@description
//	@description	Payment failures the user can act on are returned as `200 {"status":"alert","message":"..."}`.
//	@description
//	@description	## Authentication & Authorization
//	@description	The checkout and wallet endpoints are tied to the browser session cookie or the QR session id.
//	@description	The back-office endpoints under /admin require `Authorization: Bearer <ADMIN_API_KEY>`.
//	@description	Messages exchanged with banks and acquirers are authenticated by JWS signatures checked
//	@description	against the payment and acquirer trust roots.
//	@license.name	MIT

//	@servers.url			https://shop.example.com
//	@servers.description	Production server
//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@accept		json
//	@produce	json

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

//	@tag.name			Payment
//	@tag.description	Checkout, result and finalize endpoints used by the checkout page

//	@tag.name			QR
//	@tag.description	QR code rendezvous between the checkout page and the wallet

//	@tag.name			Wallet
//	@tag.description	Endpoints called by the payer's wallet

//	@tag.name			Receipts
//	@tag.description	Back-office receipts and refunds

//	@tag.name			Common
//	@tag.description	Server API endpoints (jwks, health, readiness, version)

func main() {
	cmd := &cobra.Command{
		Use:   "merchant-server",
		Short: "Saturn merchant server",
		Long:  `merchant-server runs the checkout, QR rendezvous and payment protocol of a Saturn merchant`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("MERCHANT_BASE_URL", cfg.MerchantBaseURL),
		slog.String("MERCHANT_CONFIG_PATH", cfg.MerchantConfigPath),
		slog.Bool("REDIS", cfg.RedisURL != ""),
		slog.Duration("QR_MAX_SESSION", cfg.QRMaxSession),
		slog.Duration("QR_CYCLE_TIME", cfg.QRCycleTime),
		slog.Duration("QR_COMET_WAIT", cfg.QRCometWait),
		slog.String("PAYMENT_ROOT_KEYS_DIR", cfg.PaymentRootKeysDir),
		slog.String("ACQUIRER_ROOT_KEYS_DIR", cfg.AcquirerRootKeysDir),
		slog.Bool("ADMIN_API_KEY", cfg.AdminAPIKey != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	merchant, err := config.LoadMerchant(cfg.MerchantConfigPath)
	if err != nil {
		appLogger.Error("Failed to load merchant configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	keyDir, keyFile := filepath.Split(cfg.SigningKeyPath)
	if keyDir == "" {
		keyDir = "."
	}
	privateKey, keyID, err := crypto.ReadPrivateKeyFromJWKFile(keyDir, keyFile)
	if err != nil {
		appLogger.Error("Failed to load signing key", slog.String("error", err.Error()))
		os.Exit(1)
	}
	signer, err := crypto.NewSigner(privateKey, keyID)
	if err != nil {
		appLogger.Error("Failed to create signer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	publicKeys, err := crypto.PublicJWKSet(privateKey, keyID)
	if err != nil {
		appLogger.Error("Failed to create JWK set", slog.String("error", err.Error()))
		os.Exit(1)
	}

	verifier, err := trust.NewVerifier(ctx, trust.Config{
		Roots: map[saturn.TrustRoot]trust.RootConfig{
			saturn.TrustRootPayment:  {KeysDir: cfg.PaymentRootKeysDir, JWKSURLs: cfg.PaymentRootJWKSURLs},
			saturn.TrustRootAcquirer: {KeysDir: cfg.AcquirerRootKeysDir, JWKSURLs: cfg.AcquirerRootJWKSURLs},
		},
		SkipJWKCache:               cfg.SkipJWKCache,
		JWKCacheMinRefreshInterval: cfg.JWKCacheMinRefresh,
		JWKCacheMaxRefreshInterval: cfg.JWKCacheMaxRefresh,
	}, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize trust roots", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// results: PostgreSQL unless DATABASE_URL=memory
	var (
		pool    *pgxpool.Pool
		queries *database.Queries
		results store.ResultStore
	)
	if cfg.DatabaseURL == config.MemoryDatabaseURL {
		appLogger.Warn("payment results are kept in memory and lost on restart")
		results = store.NewMemory()
	} else {
		pool, err = connectDatabase(ctx, cfg)
		if err != nil {
			appLogger.Error("Database unavailable", slog.String("error", err.Error()))
			os.Exit(1)
		}
		appLogger.Info("connected to PostgreSQL")

		if cfg.MigrateOnStart {
			if err := database.Migrate(ctx, pool); err != nil {
				appLogger.Error("Database migration failed", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}

		// get the sqlc generated database queries
		queries = database.New(pool)
		results = store.NewPostgres(pool, queries)
	}

	// browser sessions: Redis when configured, otherwise in memory
	var sessions sessionstore.Store
	if cfg.RedisURL != "" {
		redisCtx, redisCancel := context.WithTimeout(ctx, cfg.DatabasePingTimeout)
		sessions, err = sessionstore.OpenRedis(redisCtx, cfg.RedisURL, cfg.SessionTTL)
		redisCancel()
		if err != nil {
			appLogger.Error("Session store unavailable", slog.String("error", err.Error()))
			os.Exit(1)
		}
		appLogger.Info("connected to Redis")
	} else {
		sessions = sessionstore.NewMemory(cfg.SessionTTL)
	}

	transport := services.NewClient(cfg.OutboundRequestTimeout)

	orch := orchestrator.New(merchant, orchestrator.Dependencies{
		Resolver:  authority.NewResolver(transport, verifier, cfg.AuthorityCacheMaxTTL, appLogger),
		Transport: transport,
		Signer:    signer,
		Verifier:  verifier,
		Results:   results,
		Pending:   sessions,
	}, appLogger)

	registry := qrsession.NewRegistry(qrsession.Config{
		MaxSession: cfg.QRMaxSession,
		CycleTime:  cfg.QRCycleTime,
	}, appLogger)

	payments := paymenthandlers.NewHandler(paymenthandlers.Config{
		BaseURL:           strings.TrimSuffix(cfg.MerchantBaseURL, "/"),
		CometWait:         cfg.QRCometWait,
		ReservationAmount: cfg.ReservationAmount,
		SecureCookies:     strings.HasPrefix(cfg.MerchantBaseURL, "https://"),
	}, merchant, registry, orch, sessions, results)

	appLogger.Info("Starting server",
		slog.String("version", version.Get().Version),
		slog.String("merchant", merchant.CommonName),
		slog.String("signing_kid", keyID))

	// configure the server
	server := server.NewServer(pool, queries, cfg, appLogger, server.Components{
		Registry:   registry,
		Sessions:   sessions,
		Payments:   payments,
		PublicKeys: publicKeys,
	})

	defer server.DatabaseShutdown()

	// start the server
	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}

func connectDatabase(ctx context.Context, cfg *config.ServerEnvironment) (*pgxpool.Pool, error) {
	dbCtx, dbCancel := context.WithTimeout(ctx, cfg.DatabasePingTimeout)
	defer dbCancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.DBMaxConnections
	poolConfig.MinConns = cfg.DBMinConnections
	poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout

	pool, err := pgxpool.NewWithConfig(dbCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err = pool.Ping(dbCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database via pool: %w", err)
	}
	return pool, nil
}
