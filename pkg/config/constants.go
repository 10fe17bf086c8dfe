package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "NWC"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Env var names referenced outside struct tags (tests, error messages).
const (
	EnvAppEnv = "NWC_APP_ENV"
	EnvPort   = "NWC_APP_PORT"
	EnvDBDSN  = "NWC_DB_DSN"
	EnvDBHost = "NWC_DB_HOST"
	EnvDBUser = "NWC_DB_USER"
	EnvDBName = "NWC_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
