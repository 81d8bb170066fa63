package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	Orders       OrdersConfig
	Sweep        SweepConfig
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
	Env          string `envconfig:"KALAMANDIR_APP_ENV" required:"true"`
	Port         string `envconfig:"KALAMANDIR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KALAMANDIR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KALAMANDIR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KALAMANDIR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KALAMANDIR_DB_DSN"`
	Driver string `envconfig:"KALAMANDIR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KALAMANDIR_DB_HOST"`
	LegacyPort     int    `envconfig:"KALAMANDIR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KALAMANDIR_DB_USER"`
	LegacyPassword string `envconfig:"KALAMANDIR_DB_PASSWORD"`
	LegacyName     string `envconfig:"KALAMANDIR_DB_NAME"`
	LegacySSLMode  string `envconfig:"KALAMANDIR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KALAMANDIR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KALAMANDIR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KALAMANDIR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KALAMANDIR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KALAMANDIR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KALAMANDIR_REDIS_ADDR"`
	Password     string        `envconfig:"KALAMANDIR_REDIS_PASSWORD"`
	DB           int           `envconfig:"KALAMANDIR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KALAMANDIR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KALAMANDIR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KALAMANDIR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KALAMANDIR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KALAMANDIR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KALAMANDIR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KALAMANDIR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KALAMANDIR_JWT_EXPIRATION_MINUTES" required:"true"`
}

// RazorpayConfig carries the gateway credentials. KeySecret signs payment
// verification digests; WebhookSecret signs the webhook envelope. They are
// distinct secrets on the gateway dashboard and must stay distinct here.
type RazorpayConfig struct {
	KeyID         string        `envconfig:"KALAMANDIR_RAZORPAY_KEY_ID"`
	KeySecret     string        `envconfig:"KALAMANDIR_RAZORPAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"KALAMANDIR_RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"KALAMANDIR_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Timeout       time.Duration `envconfig:"KALAMANDIR_RAZORPAY_TIMEOUT" default:"10s"`
}

type OrdersConfig struct {
	NumberPrefix      string `envconfig:"KALAMANDIR_ORDER_NUMBER_PREFIX" default:"KM-"`
	NumberPad         int    `envconfig:"KALAMANDIR_ORDER_NUMBER_PAD" default:"4"`
	CODAdvancePercent int    `envconfig:"KALAMANDIR_COD_ADVANCE_PERCENT" default:"25"`
}

type SweepConfig struct {
	Interval         time.Duration `envconfig:"KALAMANDIR_SWEEP_INTERVAL" default:"5m"`
	OrphanLimit      int           `envconfig:"KALAMANDIR_SWEEP_ORPHAN_LIMIT" default:"50"`
	OrphanMaxRetries int           `envconfig:"KALAMANDIR_SWEEP_ORPHAN_MAX_RETRIES" default:"3"`
	TimeoutMinutes   int           `envconfig:"KALAMANDIR_SWEEP_TIMEOUT_MINUTES" default:"30"`
	TimeoutLimit     int           `envconfig:"KALAMANDIR_SWEEP_TIMEOUT_LIMIT" default:"100"`
	MetricsPort      string        `envconfig:"KALAMANDIR_SWEEP_METRICS_PORT" default:"9100"`
	LockTTL          time.Duration `envconfig:"KALAMANDIR_SWEEP_LOCK_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KALAMANDIR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KALAMANDIR_AUTO_MIGRATE" default:"false"`
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
