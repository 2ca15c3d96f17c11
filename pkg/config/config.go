package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Vouchers VouchersConfig
	Cache    CacheConfig
	Stripe   StripeConfig
	Square   SquareConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig

	RateLimit RateLimitConfig

	FeatureFlags FeatureFlagsConfig
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VALECLUB_FF_AUTO_MIGRATE" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VALECLUB_APP_ENV" required:"true"`
	Port         string `envconfig:"VALECLUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VALECLUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VALECLUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VALECLUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VALECLUB_DB_DSN"`
	Driver string `envconfig:"VALECLUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VALECLUB_DB_HOST"`
	LegacyPort     int    `envconfig:"VALECLUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VALECLUB_DB_USER"`
	LegacyPassword string `envconfig:"VALECLUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"VALECLUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"VALECLUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VALECLUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VALECLUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VALECLUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VALECLUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VALECLUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VALECLUB_REDIS_ADDR"`
	Password     string        `envconfig:"VALECLUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"VALECLUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VALECLUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VALECLUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VALECLUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VALECLUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VALECLUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VALECLUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VALECLUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VALECLUB_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// VouchersConfig carries engine-level fallbacks; per-establishment settings
// on the establishment record take precedence.
type VouchersConfig struct {
	DefaultCooldownHours   int `envconfig:"VALECLUB_VOUCHER_DEFAULT_COOLDOWN_HOURS" default:"24"`
	DefaultExpirationHours int `envconfig:"VALECLUB_VOUCHER_DEFAULT_EXPIRATION_HOURS" default:"48"`
	CodeLength             int `envconfig:"VALECLUB_VOUCHER_CODE_LENGTH" default:"8"`
}

type CacheConfig struct {
	ListingTTL  time.Duration `envconfig:"VALECLUB_CACHE_LISTING_TTL" default:"5m"`
	WebhookTTL  time.Duration `envconfig:"VALECLUB_CACHE_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
	StaleWindow time.Duration `envconfig:"VALECLUB_CACHE_STALE_WINDOW" default:"1h"`
}

// RateLimitConfig throttles the unauthenticated public surface. A zero
// window or limit disables the middleware.
type RateLimitConfig struct {
	PublicWindow  time.Duration `envconfig:"VALECLUB_RATE_LIMIT_PUBLIC_WINDOW" default:"1m"`
	PublicIPLimit int           `envconfig:"VALECLUB_RATE_LIMIT_PUBLIC_IP_LIMIT" default:"120"`
}

type StripeConfig struct {
	APIKey string `envconfig:"VALECLUB_STRIPE_API_KEY"`
	Secret string `envconfig:"VALECLUB_STRIPE_SECRET"`
	Env    string `envconfig:"VALECLUB_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SquareConfig struct {
	AccessToken   string `envconfig:"VALECLUB_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"VALECLUB_SQUARE_WEBHOOK_SECRET"`
	Env           string `envconfig:"VALECLUB_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VALECLUB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"VALECLUB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VALECLUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"VALECLUB_PUBSUB_EVENTS_TOPIC" default:"vc-domain-events"`
	NotificationsTopic string `envconfig:"VALECLUB_PUBSUB_NOTIFICATIONS_TOPIC" default:"vc-notification-events"`

	EventsSubscription string `envconfig:"VALECLUB_PUBSUB_EVENTS_SUBSCRIPTION" default:"vc-domain-events.membership-alerts"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VALECLUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VALECLUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VALECLUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
