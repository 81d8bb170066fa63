package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "KALAMANDIR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside struct tags (tests, docs).
const (
	EnvAppEnv   = "KALAMANDIR_APP_ENV"
	EnvPort     = "KALAMANDIR_APP_PORT"
	EnvDBDSN    = "KALAMANDIR_DB_DSN"
	EnvDBHost   = "KALAMANDIR_DB_HOST"
	EnvDBUser   = "KALAMANDIR_DB_USER"
	EnvDBName   = "KALAMANDIR_DB_NAME"
	EnvRedisURL = "KALAMANDIR_REDIS_URL"

	EnvJWTSecret  = "KALAMANDIR_JWT_SECRET"
	EnvJWTIssuer  = "KALAMANDIR_JWT_ISSUER"
	EnvJWTExpMins = "KALAMANDIR_JWT_EXPIRATION_MINUTES"

	EnvRazorpayKeyID         = "KALAMANDIR_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret     = "KALAMANDIR_RAZORPAY_KEY_SECRET"
	EnvRazorpayWebhookSecret = "KALAMANDIR_RAZORPAY_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
