package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "INTERVIEWPREP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "INTERVIEWPREP_APP_ENV"
	EnvPort           = "INTERVIEWPREP_APP_PORT"
	EnvDBDSN          = "INTERVIEWPREP_DB_DSN"
	EnvDBHost         = "INTERVIEWPREP_DB_HOST"
	EnvDBUser         = "INTERVIEWPREP_DB_USER"
	EnvDBName         = "INTERVIEWPREP_DB_NAME"
	EnvUseSQLite      = "INTERVIEWPREP_USE_SQLITE"
	EnvRedisURL       = "INTERVIEWPREP_REDIS_URL"
	EnvJWTSecret      = "INTERVIEWPREP_JWT_SECRET"
	EnvJWTIssuer      = "INTERVIEWPREP_JWT_ISSUER"
	EnvJWTExpMins     = "INTERVIEWPREP_JWT_EXPIRATION_MINUTES"
	EnvSessionTTL     = "INTERVIEWPREP_PRACTICE_SESSION_TTL"
	EnvTrustedProxies = "INTERVIEWPREP_TRUSTED_PROXIES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Practice  PracticeConfig
	Cron      CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.RateLimit.validateProxies(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"INTERVIEWPREP_APP_ENV" required:"true"`
	Port         string   `envconfig:"INTERVIEWPREP_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"INTERVIEWPREP_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"INTERVIEWPREP_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool     `envconfig:"INTERVIEWPREP_AUTO_MIGRATE" default:"false"`
	CORSOrigins  []string `envconfig:"INTERVIEWPREP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"INTERVIEWPREP_DB_DSN"`
	UseSQLite  bool   `envconfig:"INTERVIEWPREP_USE_SQLITE" default:"false"`
	SQLitePath string `envconfig:"INTERVIEWPREP_SQLITE_PATH" default:"interviewprep.db"`

	LegacyHost     string `envconfig:"INTERVIEWPREP_DB_HOST"`
	LegacyPort     int    `envconfig:"INTERVIEWPREP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"INTERVIEWPREP_DB_USER"`
	LegacyPassword string `envconfig:"INTERVIEWPREP_DB_PASSWORD"`
	LegacyName     string `envconfig:"INTERVIEWPREP_DB_NAME"`
	LegacySSLMode  string `envconfig:"INTERVIEWPREP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"INTERVIEWPREP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"INTERVIEWPREP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"INTERVIEWPREP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"INTERVIEWPREP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"INTERVIEWPREP_REDIS_URL"`
	Address      string        `envconfig:"INTERVIEWPREP_REDIS_ADDR"`
	Password     string        `envconfig:"INTERVIEWPREP_REDIS_PASSWORD"`
	DB           int           `envconfig:"INTERVIEWPREP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"INTERVIEWPREP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"INTERVIEWPREP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"INTERVIEWPREP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"INTERVIEWPREP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"INTERVIEWPREP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"INTERVIEWPREP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"INTERVIEWPREP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"INTERVIEWPREP_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type RateLimitConfig struct {
	RequestsPerMinute int           `envconfig:"INTERVIEWPREP_RATE_LIMIT_RPM" default:"120"`
	Burst             int           `envconfig:"INTERVIEWPREP_RATE_LIMIT_BURST" default:"20"`
	TokenWindow       time.Duration `envconfig:"INTERVIEWPREP_TOKEN_RATE_LIMIT_WINDOW" default:"1m"`
	TokenIPLimit      int           `envconfig:"INTERVIEWPREP_TOKEN_RATE_LIMIT_IP" default:"20"`
	TokenUserLimit    int           `envconfig:"INTERVIEWPREP_TOKEN_RATE_LIMIT_USER" default:"10"`
	TrustedProxies    []string      `envconfig:"INTERVIEWPREP_TRUSTED_PROXIES"`
}

type CacheConfig struct {
	SessionTTL time.Duration `envconfig:"INTERVIEWPREP_CACHE_SESSION_TTL" default:"5m"`
}

type PracticeConfig struct {
	MaxQuestions int           `envconfig:"INTERVIEWPREP_PRACTICE_MAX_QUESTIONS" default:"20"`
	SessionTTL   time.Duration `envconfig:"INTERVIEWPREP_PRACTICE_SESSION_TTL" default:"6h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"INTERVIEWPREP_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"INTERVIEWPREP_CRON_LOCK_TTL" default:"10m"`
}

func (rl RateLimitConfig) validateProxies() error {
	for _, entry := range rl.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return fmt.Errorf("%s: invalid cidr %q", EnvTrustedProxies, entry)
			}
			continue
		}
		if net.ParseIP(entry) == nil {
			return fmt.Errorf("%s: invalid address %q", EnvTrustedProxies, entry)
		}
	}
	return nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.UseSQLite {
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
		return fmt.Errorf("either %s, %s or %s are required", EnvDBDSN, EnvUseSQLite, strings.Join(missing, ", "))
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
