package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "IKR"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv       = "IKR_APP_ENV"
	EnvAppPort      = "IKR_APP_PORT"
	EnvSiteDomain   = "IKR_SITE_DOMAIN"
	EnvLogLevel     = "IKR_LOG_LEVEL"
	EnvLogWarnStack = "IKR_LOG_WARN_STACK"

	EnvDBDSN      = "IKR_DB_DSN"
	EnvDBDriver   = "IKR_DB_DRIVER"
	EnvDBHost     = "IKR_DB_HOST"
	EnvDBPort     = "IKR_DB_PORT"
	EnvDBUser     = "IKR_DB_USER"
	EnvDBPassword = "IKR_DB_PASSWORD"
	EnvDBName     = "IKR_DB_NAME"
	EnvDBSSLMode  = "IKR_DB_SSLMODE"

	EnvRedisURL      = "IKR_REDIS_URL"
	EnvRedisAddr     = "IKR_REDIS_ADDR"
	EnvRedisPassword = "IKR_REDIS_PASSWORD"

	EnvJWTSecret  = "IKR_JWT_SECRET"
	EnvJWTIssuer  = "IKR_JWT_ISSUER"
	EnvJWTExpMins = "IKR_JWT_EXPIRATION_MINUTES"

	EnvMpesaConsumerKey    = "IKR_MPESA_CONSUMER_KEY"
	EnvMpesaConsumerSecret = "IKR_MPESA_CONSUMER_SECRET"
	EnvMpesaShortcode      = "IKR_MPESA_SHORTCODE"
	EnvMpesaPasskey        = "IKR_MPESA_PASSKEY"
	EnvMpesaBaseURL        = "IKR_MPESA_BASE_URL"
	EnvMpesaCallbackPath   = "IKR_MPESA_CALLBACK_PATH"

	EnvPricingTaxRate               = "IKR_PRICING_TAX_RATE"
	EnvPricingFreeShippingThreshold = "IKR_PRICING_FREE_SHIPPING_THRESHOLD"
	EnvPricingShippingFee           = "IKR_PRICING_SHIPPING_FEE"

	EnvUseSQLite   = "IKR_USE_SQLITE"
	EnvAutoMigrate = "IKR_AUTO_MIGRATE"

	EnvGCPProjectID     = "IKR_GCP_PROJECT_ID"
	EnvPubSubOrderTopic = "IKR_PUBSUB_ORDERS_TOPIC"

	EnvOutboxBatchSize   = "IKR_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxPollMS      = "IKR_OUTBOX_PUBLISH_POLL_MS"
	EnvOutboxMaxAttempts = "IKR_OUTBOX_MAX_ATTEMPTS"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
