package config

const EnvPrefix = "ARTVERSE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreDriverSQL   = "sql"
	StoreDriverMongo = "mongo"
)

const (
	EnvAppEnv          = "ARTVERSE_APP_ENV"
	EnvDBDSN           = "ARTVERSE_DB_DSN"
	EnvDBHost          = "ARTVERSE_DB_HOST"
	EnvDBUser          = "ARTVERSE_DB_USER"
	EnvDBName          = "ARTVERSE_DB_NAME"
	EnvDBPassword      = "ARTVERSE_DB_PASSWORD"
	EnvRedisURL        = "ARTVERSE_REDIS_URL"
	EnvMongoURI        = "ARTVERSE_MONGO_URI"
	EnvStoreDriver     = "ARTVERSE_STORE_DRIVER"
	EnvStoreMaxRetries = "ARTVERSE_STORE_MAX_CONFLICT_RETRIES"
	EnvCartTaxRate     = "ARTVERSE_CART_TAX_RATE"
	EnvJWTSecret       = "ARTVERSE_JWT_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
