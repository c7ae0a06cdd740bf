package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Checkout     CheckoutConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"TEAKLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"TEAKLINE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TEAKLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TEAKLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"TEAKLINE_DB_DSN"`

	Host     string `envconfig:"TEAKLINE_DB_HOST"`
	Port     int    `envconfig:"TEAKLINE_DB_PORT" default:"5432"`
	User     string `envconfig:"TEAKLINE_DB_USER"`
	Password string `envconfig:"TEAKLINE_DB_PASSWORD"`
	Name     string `envconfig:"TEAKLINE_DB_NAME"`
	SSLMode  string `envconfig:"TEAKLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TEAKLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TEAKLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TEAKLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TEAKLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either TEAKLINE_DB_DSN or TEAKLINE_DB_HOST/USER/NAME must be set")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"TEAKLINE_REDIS_URL"`
	Address      string        `envconfig:"TEAKLINE_REDIS_ADDR"`
	Password     string        `envconfig:"TEAKLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TEAKLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TEAKLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TEAKLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TEAKLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TEAKLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TEAKLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TEAKLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TEAKLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TEAKLINE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// GatewayConfig carries the payment gateway credentials. The secret signs the
// callback HMAC; the engine never calls the gateway beyond intent creation.
type GatewayConfig struct {
	KeyID    string        `envconfig:"TEAKLINE_GATEWAY_KEY_ID"`
	Secret   string        `envconfig:"TEAKLINE_GATEWAY_SECRET"`
	BaseURL  string        `envconfig:"TEAKLINE_GATEWAY_BASE_URL"`
	Currency string        `envconfig:"TEAKLINE_GATEWAY_CURRENCY" default:"INR"`
	Timeout  time.Duration `envconfig:"TEAKLINE_GATEWAY_TIMEOUT" default:"10s"`
}

type CheckoutConfig struct {
	// CancellationWindow bounds user-initiated cancellations from created_at.
	CancellationWindow time.Duration `envconfig:"TEAKLINE_CHECKOUT_CANCELLATION_WINDOW" default:"72h"`
	// UnpaidOrderTTL is how long a gateway order may sit unpaid before the
	// cron worker cancels it.
	UnpaidOrderTTL time.Duration `envconfig:"TEAKLINE_CHECKOUT_UNPAID_ORDER_TTL" default:"48h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TEAKLINE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"TEAKLINE_PUBSUB_ORDERS_TOPIC" default:"order-events"`
	OrdersSubscription string `envconfig:"TEAKLINE_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TEAKLINE_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TEAKLINE_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TEAKLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"TEAKLINE_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"TEAKLINE_CRON_LOCK_TTL" default:"55m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TEAKLINE_FEATURE_AUTO_MIGRATE" default:"false"`
}
