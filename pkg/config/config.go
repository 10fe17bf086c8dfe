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
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Square   SquareConfig
	Shippo   ShippoConfig
	Ledger   LedgerConfig
	Offers   OffersConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Features FeatureFlagsConfig
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
	Env          string `envconfig:"NWC_APP_ENV" required:"true"`
	Port         string `envconfig:"NWC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NWC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NWC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NWC_DB_DSN"`
	Driver string `envconfig:"NWC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NWC_DB_HOST"`
	LegacyPort     int    `envconfig:"NWC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NWC_DB_USER"`
	LegacyPassword string `envconfig:"NWC_DB_PASSWORD"`
	LegacyName     string `envconfig:"NWC_DB_NAME"`
	LegacySSLMode  string `envconfig:"NWC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NWC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NWC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NWC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NWC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NWC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NWC_REDIS_ADDR"`
	Password     string        `envconfig:"NWC_REDIS_PASSWORD"`
	DB           int           `envconfig:"NWC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NWC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NWC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NWC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NWC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NWC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NWC_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NWC_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NWC_JWT_EXPIRATION_MINUTES" default:"60"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"NWC_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"NWC_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"NWC_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment.
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type ShippoConfig struct {
	APIToken string        `envconfig:"NWC_SHIPPO_API_TOKEN"`
	BaseURL  string        `envconfig:"NWC_SHIPPO_BASE_URL" default:"https://api.goshippo.com"`
	Timeout  time.Duration `envconfig:"NWC_SHIPPO_TIMEOUT" default:"12s"`
}

type LedgerConfig struct {
	PlatformFeeBps      int `envconfig:"NWC_LEDGER_PLATFORM_FEE_BPS" default:"500"`
	PlatformFeeMinCents int `envconfig:"NWC_LEDGER_PLATFORM_FEE_MIN_CENTS" default:"50"`
	PayoutMinCents      int `envconfig:"NWC_LEDGER_PAYOUT_MIN_CENTS" default:"100"`
}

type OffersConfig struct {
	MaxPerWindow int           `envconfig:"NWC_OFFERS_MAX_PER_WINDOW" default:"3"`
	Window       time.Duration `envconfig:"NWC_OFFERS_WINDOW" default:"24h"`
}

type PubSubConfig struct {
	ProjectID   string `envconfig:"NWC_PUBSUB_PROJECT_ID"`
	EventsTopic string `envconfig:"NWC_PUBSUB_EVENTS_TOPIC" default:"marketplace-events"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"NWC_OUTBOX_POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"NWC_OUTBOX_BATCH_SIZE" default:"100"`
	MaxAttempts  int           `envconfig:"NWC_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NWC_AUTO_MIGRATE" default:"false"`
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
