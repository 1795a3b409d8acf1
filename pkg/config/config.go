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
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Store    StoreConfig
	Cart     CartConfig
	Checkout CheckoutConfig
	JWT      JWTConfig
	Outbox   OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.UsesSQL() {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if _, err := cfg.Cart.Rate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ARTVERSE_APP_ENV" required:"true"`
	Port         string `envconfig:"ARTVERSE_APP_PORT" default:"8090"`
	LogLevel     string `envconfig:"ARTVERSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ARTVERSE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ARTVERSE_LOG_FORMAT" default:"json"`
	AutoMigrate  bool   `envconfig:"ARTVERSE_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ARTVERSE_DB_DSN"`
	Driver string `envconfig:"ARTVERSE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ARTVERSE_DB_HOST"`
	LegacyPort     int    `envconfig:"ARTVERSE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ARTVERSE_DB_USER"`
	LegacyPassword string `envconfig:"ARTVERSE_DB_PASSWORD"`
	LegacyName     string `envconfig:"ARTVERSE_DB_NAME"`
	LegacySSLMode  string `envconfig:"ARTVERSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ARTVERSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ARTVERSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ARTVERSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ARTVERSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ARTVERSE_REDIS_URL"`
	Address      string        `envconfig:"ARTVERSE_REDIS_ADDR"`
	Password     string        `envconfig:"ARTVERSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ARTVERSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ARTVERSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ARTVERSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ARTVERSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ARTVERSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ARTVERSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type MongoConfig struct {
	URI            string        `envconfig:"ARTVERSE_MONGO_URI"`
	Database       string        `envconfig:"ARTVERSE_MONGO_DATABASE" default:"storefront"`
	Collection     string        `envconfig:"ARTVERSE_MONGO_COLLECTION" default:"users"`
	ConnectTimeout time.Duration `envconfig:"ARTVERSE_MONGO_CONNECT_TIMEOUT" default:"10s"`
	MaxPoolSize    uint64        `envconfig:"ARTVERSE_MONGO_MAX_POOL_SIZE" default:"100"`
}

// StoreConfig selects the backend for user documents.
type StoreConfig struct {
	Driver             string `envconfig:"ARTVERSE_STORE_DRIVER" default:"sql"`
	MaxConflictRetries int    `envconfig:"ARTVERSE_STORE_MAX_CONFLICT_RETRIES" default:"5"`
}

func (s StoreConfig) UsesSQL() bool {
	return strings.EqualFold(s.Driver, StoreDriverSQL)
}

func (s StoreConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StoreDriverSQL, StoreDriverMongo:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvStoreDriver, StoreDriverSQL, StoreDriverMongo)
	}
	if s.MaxConflictRetries < 0 {
		return fmt.Errorf("%s must be non-negative", EnvStoreMaxRetries)
	}
	return nil
}

type CartConfig struct {
	TaxRate           string        `envconfig:"ARTVERSE_CART_TAX_RATE" default:"0.08"`
	LowStockThreshold int           `envconfig:"ARTVERSE_CART_LOW_STOCK_THRESHOLD" default:"5"`
	CatalogCacheTTL   time.Duration `envconfig:"ARTVERSE_CART_CATALOG_CACHE_TTL" default:"30s"`
	ProjectionWorkers int           `envconfig:"ARTVERSE_CART_PROJECTION_WORKERS" default:"8"`
}

// Rate parses the configured tax rate.
func (c CartConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s: %w", EnvCartTaxRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must be non-negative", EnvCartTaxRate)
	}
	return rate, nil
}

type CheckoutConfig struct {
	DefaultCountry string `envconfig:"ARTVERSE_CHECKOUT_DEFAULT_COUNTRY" default:"US"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ARTVERSE_JWT_SECRET"`
	Issuer            string `envconfig:"ARTVERSE_JWT_ISSUER" default:"artverse"`
	ExpirationMinutes int    `envconfig:"ARTVERSE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ARTVERSE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ARTVERSE_OUTBOX_PUBLISH_POLL_MS" default:"250"`
	MaxAttempts    int `envconfig:"ARTVERSE_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
