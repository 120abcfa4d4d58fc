package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Netflix/go-env"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	AllowedOrigins        []string      `env:"ALLOWED_ORIGINS,separator=|"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestSize        int64         `env:"MAX_REQUEST_SIZE,default=65536"`

	// AdminAPIKey protects the receipts and refund endpoints (required in prod)
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	// WriteTimeout must be longer than QR_COMET_WAIT or long-polls are cut off
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=60s"`

	// database settings
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`
	MigrateOnStart      bool          `env:"MIGRATE_ON_START,default=true"`

	// browser sessions - an empty REDIS_URL keeps sessions in memory
	RedisURL   string        `env:"REDIS_URL"`
	SessionTTL time.Duration `env:"SESSION_TTL,default=30m"`

	// trust roots: each root is a directory of manually configured keys and/or a list of JWKS endpoints
	PaymentRootKeysDir   string   `env:"PAYMENT_ROOT_KEYS_DIR"`
	PaymentRootJWKSURLs  []string `env:"PAYMENT_ROOT_JWKS_URLS,separator=|"`
	AcquirerRootKeysDir  string   `env:"ACQUIRER_ROOT_KEYS_DIR"`
	AcquirerRootJWKSURLs []string `env:"ACQUIRER_ROOT_JWKS_URLS,separator=|"`

	// JWK cache settings
	SkipJWKCache       bool          `env:"SKIP_JWK_CACHE,default=false"`
	JWKCacheMinRefresh time.Duration `env:"JWK_CACHE_MIN_REFRESH,default=10m"`
	JWKCacheMaxRefresh time.Duration `env:"JWK_CACHE_MAX_REFRESH,default=12h"`

	// QR session timings
	QRMaxSession time.Duration `env:"QR_MAX_SESSION,default=300s"`
	QRCycleTime  time.Duration `env:"QR_CYCLE_TIME,default=60s"`
	QRCometWait  time.Duration `env:"QR_COMET_WAIT,default=30s"`

	// protocol settings
	OutboundRequestTimeout time.Duration `env:"OUTBOUND_REQUEST_TIMEOUT,default=5s"`
	AuthorityCacheMaxTTL   time.Duration `env:"AUTHORITY_CACHE_MAX_TTL,default=1h"`
	ReservationAmount      int64         `env:"RESERVATION_AMOUNT,default=20000"`

	// Required merchant configuration - must be set by environment variables
	MerchantBaseURL    string `env:"MERCHANT_BASE_URL,required=true"`
	MerchantConfigPath string `env:"MERCHANT_CONFIG_PATH,required=true"`
	SigningKeyPath     string `env:"SIGNING_KEY_PATH,required=true"`
	DatabaseURL        string `env:"DATABASE_URL,required=true"`
}

// MemoryDatabaseURL selects the in-memory result store instead of Postgres.
const MemoryDatabaseURL = "memory"

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil

}

// CLIEnvironment is the configuration of merchant-cli. Unlike the server nothing is required:
// commands fail when a setting they need is missing.
type CLIEnvironment struct {
	Environment string `env:"ENVIRONMENT,default=dev"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	DatabaseURL string `env:"DATABASE_URL"`

	PaymentRootKeysDir   string   `env:"PAYMENT_ROOT_KEYS_DIR"`
	PaymentRootJWKSURLs  []string `env:"PAYMENT_ROOT_JWKS_URLS,separator=|"`
	AcquirerRootKeysDir  string   `env:"ACQUIRER_ROOT_KEYS_DIR"`
	AcquirerRootJWKSURLs []string `env:"ACQUIRER_ROOT_JWKS_URLS,separator=|"`

	OutboundRequestTimeout time.Duration `env:"OUTBOUND_REQUEST_TIMEOUT,default=5s"`
}

// NewCLIConfig loads the CLI settings from the environment.
func NewCLIConfig() (*CLIEnvironment, error) {
	var cfg CLIEnvironment
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	if !validEnvs[cfg.Environment] {
		return nil, fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	return &cfg, nil
}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}

	// Validate database pool configuration
	if cfg.DBMaxConnections < 1 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
	}
	if cfg.DBMinConnections < 0 {
		return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
	}
	if cfg.DBMinConnections > cfg.DBMaxConnections {
		return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
			cfg.DBMinConnections, cfg.DBMaxConnections)
	}

	u, err := url.Parse(cfg.MerchantBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("MERCHANT_BASE_URL must be an absolute http(s) URL, got %q", cfg.MerchantBaseURL)
	}

	if cfg.QRMaxSession <= 0 || cfg.QRCycleTime <= 0 || cfg.QRCometWait <= 0 {
		return fmt.Errorf("QR_MAX_SESSION, QR_CYCLE_TIME and QR_COMET_WAIT must be positive")
	}
	if cfg.WriteTimeout <= cfg.QRCometWait {
		return fmt.Errorf("WRITE_TIMEOUT (%s) must be longer than QR_COMET_WAIT (%s)", cfg.WriteTimeout, cfg.QRCometWait)
	}

	if cfg.ReservationAmount <= 0 {
		return fmt.Errorf("RESERVATION_AMOUNT must be greater than zero")
	}
	if cfg.MaxRequestSize <= 0 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be greater than zero")
	}

	if cfg.Environment == "prod" && cfg.AdminAPIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required in prod")
	}

	if cfg.PaymentRootKeysDir == "" && len(cfg.PaymentRootJWKSURLs) == 0 {
		return fmt.Errorf("the payment trust root needs PAYMENT_ROOT_KEYS_DIR or PAYMENT_ROOT_JWKS_URLS")
	}
	if cfg.AcquirerRootKeysDir == "" && len(cfg.AcquirerRootJWKSURLs) == 0 {
		return fmt.Errorf("the acquirer trust root needs ACQUIRER_ROOT_KEYS_DIR or ACQUIRER_ROOT_JWKS_URLS")
	}

	return nil
}
