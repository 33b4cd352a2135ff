package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Mpesa        MpesaConfig
	Pricing      PricingConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"IKR_APP_ENV" required:"true"`
	Port         string `envconfig:"IKR_APP_PORT" required:"true"`
	SiteDomain   string `envconfig:"IKR_SITE_DOMAIN" required:"true"`
	LogLevel     string `envconfig:"IKR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"IKR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"IKR_DB_DSN"`
	Driver string `envconfig:"IKR_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"IKR_DB_HOST"`
	Port     int    `envconfig:"IKR_DB_PORT" default:"5432"`
	User     string `envconfig:"IKR_DB_USER"`
	Password string `envconfig:"IKR_DB_PASSWORD"`
	Name     string `envconfig:"IKR_DB_NAME"`
	SSLMode  string `envconfig:"IKR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"IKR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"IKR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"IKR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"IKR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"IKR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"IKR_REDIS_ADDR"`
	Password     string        `envconfig:"IKR_REDIS_PASSWORD"`
	DB           int           `envconfig:"IKR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"IKR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"IKR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"IKR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"IKR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"IKR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"IKR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"IKR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"IKR_JWT_EXPIRATION_MINUTES" default:"60"`
}

// MpesaConfig carries the Daraja API credentials. All four secrets are
// required before any payment attempt; the gateway client validates them
// at construction.
type MpesaConfig struct {
	ConsumerKey    string `envconfig:"IKR_MPESA_CONSUMER_KEY"`
	ConsumerSecret string `envconfig:"IKR_MPESA_CONSUMER_SECRET"`
	Shortcode      string `envconfig:"IKR_MPESA_SHORTCODE"`
	Passkey        string `envconfig:"IKR_MPESA_PASSKEY"`
	BaseURL        string `envconfig:"IKR_MPESA_BASE_URL" default:"https://sandbox.safaricom.co.ke"`
	CallbackPath   string `envconfig:"IKR_MPESA_CALLBACK_PATH" default:"/api/v1/webhooks/mpesa"`
}

// PricingConfig drives the order pricing engine. Amounts are KES.
type PricingConfig struct {
	TaxRate               string `envconfig:"IKR_PRICING_TAX_RATE" default:"0.16"`
	FreeShippingThreshold string `envconfig:"IKR_PRICING_FREE_SHIPPING_THRESHOLD" default:"1000"`
	ShippingFee           string `envconfig:"IKR_PRICING_SHIPPING_FEE" default:"200"`
}

// TaxRateDecimal parses the configured tax rate, falling back to 16% on
// malformed input.
func (p PricingConfig) TaxRateDecimal() decimal.Decimal {
	if rate, err := decimal.NewFromString(strings.TrimSpace(p.TaxRate)); err == nil && !rate.IsNegative() {
		return rate
	}
	return decimal.RequireFromString("0.16")
}

// FreeShippingThresholdDecimal parses the free-shipping threshold.
func (p PricingConfig) FreeShippingThresholdDecimal() decimal.Decimal {
	if v, err := decimal.NewFromString(strings.TrimSpace(p.FreeShippingThreshold)); err == nil && !v.IsNegative() {
		return v
	}
	return decimal.NewFromInt(1000)
}

// ShippingFeeDecimal parses the flat shipping fee.
func (p PricingConfig) ShippingFeeDecimal() decimal.Decimal {
	if v, err := decimal.NewFromString(strings.TrimSpace(p.ShippingFee)); err == nil && !v.IsNegative() {
		return v
	}
	return decimal.NewFromInt(200)
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"IKR_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// RateLimitConfig throttles the payment initiation surface. A window of
// zero disables the limiter.
type RateLimitConfig struct {
	PaymentWindow  time.Duration `envconfig:"IKR_RATE_LIMIT_PAYMENT_WINDOW" default:"1m"`
	PaymentIPLimit int           `envconfig:"IKR_RATE_LIMIT_PAYMENT_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"IKR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"IKR_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"IKR_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"IKR_PUBSUB_ORDERS_TOPIC" default:"ikr-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"IKR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"IKR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"IKR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CallbackURL joins the site domain and the configured webhook path.
func (m MpesaConfig) CallbackURL(siteDomain string) string {
	domain := strings.TrimRight(strings.TrimSpace(siteDomain), "/")
	path := m.CallbackPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return domain + path
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
