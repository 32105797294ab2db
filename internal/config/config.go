package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Ledger backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS" envDefault:":8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	PayPalAPIBase      string        `env:"PAYPAL_API_BASE" envDefault:"https://api-m.sandbox.paypal.com"`
	PayPalClientID     string        `env:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string        `env:"PAYPAL_CLIENT_SECRET"`
	Currency           string        `env:"CURRENCY" envDefault:"USD"`
	BrandName          string        `env:"BRAND_NAME"`
	TokenCache         bool          `env:"TOKEN_CACHE" envDefault:"true"`
	GatewayTimeout     time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`

	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"memory"`
	DatabaseURI   string `env:"DATABASE_URI"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"purchase-events"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"30s"`
	ReconcileBatch    int           `env:"RECONCILE_BATCH" envDefault:"32"`
	ReconcileMaxAge   time.Duration `env:"RECONCILE_MAX_AGE" envDefault:"3h"`
	WorkerPoolSize    int           `env:"WORKER_POOL_SIZE" envDefault:"4"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

const (
	defaultGatewayTimeout    = 10 * time.Second
	defaultReconcileInterval = 30 * time.Second
	defaultReconcileBatch    = 32
	defaultReconcileMaxAge   = 3 * time.Hour
	defaultWorkerPoolSize    = 4
	defaultShutdownTimeout   = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], env.ToMap(os.Environ()))
}

func load(args []string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("paygate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		intervalStr        = cfg.ReconcileInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		gatewayTimeoutStr  = cfg.GatewayTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.PublicBaseURL, "b", cfg.PublicBaseURL, "Public base URL used for processor callbacks")
	fs.StringVar(&cfg.PayPalAPIBase, "p", cfg.PayPalAPIBase, "Payment processor API base URL")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.LedgerBackend, "ledger", cfg.LedgerBackend, "Ledger backend: memory, postgres or redis")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent reconcile workers")
	fs.IntVar(&cfg.ReconcileBatch, "reconcile-batch", cfg.ReconcileBatch, "Maximum purchases per reconcile batch")
	fs.StringVar(&intervalStr, "reconcile-interval", intervalStr, "Interval between reconcile passes")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&gatewayTimeoutStr, "gateway-timeout", gatewayTimeoutStr, "Processor request timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ReconcileInterval, err = time.ParseDuration(intervalStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.GatewayTimeout, err = time.ParseDuration(gatewayTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid gateway timeout: %w", err)
	}

	if secretFile, ok := environ["PAYPAL_CLIENT_SECRET_FILE"]; ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read client secret file: %w", err)
		}
		cfg.PayPalClientSecret = strings.TrimSpace(string(content))
	}

	normalize(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.ReconcileBatch <= 0 {
		cfg.ReconcileBatch = defaultReconcileBatch
	}

	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}

	if cfg.ReconcileMaxAge <= 0 {
		cfg.ReconcileMaxAge = defaultReconcileMaxAge
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}

	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	cfg.LedgerBackend = strings.ToLower(strings.TrimSpace(cfg.LedgerBackend))
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
}

func validate(cfg *Config) error {
	if cfg.PublicBaseURL == "" {
		return fmt.Errorf("public base URL must be provided")
	}
	if u, err := url.Parse(cfg.PublicBaseURL); err != nil || !u.IsAbs() {
		return fmt.Errorf("public base URL must be absolute")
	}

	if cfg.PayPalClientID == "" || cfg.PayPalClientSecret == "" {
		return fmt.Errorf("processor client credentials must be provided")
	}

	if len(cfg.Currency) != 3 {
		return fmt.Errorf("currency must be a three letter code")
	}

	switch cfg.LedgerBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURI == "" {
			return fmt.Errorf("database URI must be provided for postgres ledger")
		}
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("redis address must be provided for redis ledger")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}

	return nil
}
