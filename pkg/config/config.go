package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MESA_DB_DSN"
	EnvDBHost = "MESA_DB_HOST"
	EnvDBUser = "MESA_DB_USER"
	EnvDBName = "MESA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Square       SquareConfig
	Sweeper      SweeperConfig
	Reconciler   ReconcilerConfig
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
	Env          string `envconfig:"MESA_APP_ENV" required:"true"`
	Port         string `envconfig:"MESA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MESA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MESA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MESA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MESA_DB_DSN"`
	Driver string `envconfig:"MESA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MESA_DB_HOST"`
	LegacyPort     int    `envconfig:"MESA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MESA_DB_USER"`
	LegacyPassword string `envconfig:"MESA_DB_PASSWORD"`
	LegacyName     string `envconfig:"MESA_DB_NAME"`
	LegacySSLMode  string `envconfig:"MESA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MESA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MESA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MESA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MESA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MESA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MESA_REDIS_ADDR"`
	Password     string        `envconfig:"MESA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MESA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MESA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MESA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MESA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MESA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MESA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MESA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MESA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MESA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"MESA_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"MESA_SQUARE_WEBHOOK_SECRET"`
	Env           string `envconfig:"MESA_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type SweeperConfig struct {
	Interval        time.Duration `envconfig:"MESA_SWEEPER_INTERVAL" default:"1m"`
	Limit           int           `envconfig:"MESA_SWEEPER_LIMIT" default:"100"`
	StalenessWindow time.Duration `envconfig:"MESA_SWEEPER_STALENESS_WINDOW" default:"5m"`
	MaxAttempts     int           `envconfig:"MESA_SWEEPER_MAX_ATTEMPTS" default:"5"`
}

type ReconcilerConfig struct {
	FallbackWindow time.Duration `envconfig:"MESA_RECONCILER_FALLBACK_WINDOW" default:"15m"`
	VerifySessions bool          `envconfig:"MESA_RECONCILER_VERIFY_SESSIONS" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MESA_AUTO_MIGRATE" default:"false"`
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
