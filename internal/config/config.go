package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	BaseURL     string
	NodeID      int64

	AuthJWTSecret string
	CORSOrigins   []string

	OTLPEndpoint   string
	MetricsEnabled bool
	TracingEnabled bool

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Stripe   StripeConfig
	Webhook  WebhookConfig
	Checkout CheckoutLimits
	Sweeper  SweeperConfig
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIBase       string
}

type WebhookConfig struct {
	SignatureTolerance time.Duration
	ProcessTimeout     time.Duration
}

// CheckoutLimits are startup-only checkout settings. Hot-reloadable values
// live in CheckoutConfigHolder.
type CheckoutLimits struct {
	RateLimitPerMinute int
	RateLimitBurst     int
	DBTimeout          time.Duration
}

type SweeperConfig struct {
	Enabled     bool
	Schedule    string
	GracePeriod time.Duration
	BatchSize   int
	RunTimeout  time.Duration
	LockTTL     time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getenv("APP_SERVICE", "popstore"),
		AppVersion:     getenv("APP_VERSION", "0.1.0"),
		Environment:    getenv("ENVIRONMENT", "development"),
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		BaseURL:        strings.TrimRight(getenv("BASE_URL", "http://localhost:3000"), "/"),
		NodeID:         int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		AuthJWTSecret:  strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		CORSOrigins:    parseList(getenv("CORS_ORIGINS", "")),
		OTLPEndpoint:   getenv("OTLP_ENDPOINT", "localhost:4317"),
		MetricsEnabled: getenvBool("OTEL_METRICS_ENABLED", false),
		TracingEnabled: getenvBool("OTEL_TRACING_ENABLED", false),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "popstore"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			APIBase:       strings.TrimRight(getenv("STRIPE_API_BASE", "https://api.stripe.com"), "/"),
		},
		Webhook: WebhookConfig{
			SignatureTolerance: getenvDuration("WEBHOOK_SIGNATURE_TOLERANCE", 5*time.Minute),
			ProcessTimeout:     getenvDuration("WEBHOOK_PROCESS_TIMEOUT", 10*time.Second),
		},
		Checkout: CheckoutLimits{
			RateLimitPerMinute: getenvInt("CHECKOUT_RATE_LIMIT_PER_MINUTE", 30),
			RateLimitBurst:     getenvInt("CHECKOUT_RATE_LIMIT_BURST", 10),
			DBTimeout:          getenvDuration("CHECKOUT_DB_TIMEOUT", 5*time.Second),
		},
		Sweeper: SweeperConfig{
			Enabled:     getenvBool("SWEEPER_ENABLED", true),
			Schedule:    getenv("SWEEPER_SCHEDULE", "@every 1m"),
			GracePeriod: getenvDuration("SWEEPER_GRACE_PERIOD", 2*time.Minute),
			BatchSize:   getenvInt("SWEEPER_BATCH_SIZE", 100),
			RunTimeout:  getenvDuration("SWEEPER_RUN_TIMEOUT", 45*time.Second),
			LockTTL:     getenvDuration("SWEEPER_LOCK_TTL", 55*time.Second),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
