package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	Stream       string
	StreamMaxLen int64
}

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite string
}

type Argon2Config struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

type SecurityConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	PasswordHash  string
	BcryptCost    int
	Argon2        Argon2Config
	Cookie        CookieConfig
}

type ModelConfig struct {
	Provider string
	APIKey   string
	Name     string
	Timeout  time.Duration
}

type HistoryConfig struct {
	DefaultLimit int
	MaxLimit     int
}

type JobsConfig struct {
	StreamTrimSchedule string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Database         DatabaseConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Model            ModelConfig
	History          HistoryConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := newViper("config", "CODEPILOT", ".", "./config", "../config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the API cannot safely start with.
func (c *AppConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Security.SessionSecret) == "" {
		errs = append(errs, errors.New("security.sessionsecret is required"))
	}
	if c.Security.SessionTTL <= 0 {
		errs = append(errs, errors.New("security.sessionttl must be positive"))
	}

	switch c.Security.PasswordHash {
	case HashBcrypt:
		if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
			errs = append(errs, fmt.Errorf("security.bcryptcost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
		}
	case HashArgon2id:
		if c.Security.Argon2.Time == 0 || c.Security.Argon2.Memory == 0 || c.Security.Argon2.Threads == 0 {
			errs = append(errs, errors.New("security.argon2 parameters must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown security.passwordhash %q", c.Security.PasswordHash))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}

	if c.History.DefaultLimit < 1 || c.History.MaxLimit < c.History.DefaultLimit {
		errs = append(errs, errors.New("history limits must satisfy 1 <= defaultlimit <= maxlimit"))
	}

	return errors.Join(errs...)
}

func newViper(name, envPrefix string, paths ...string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.TagName = "mapstructure"
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.readtimeout", "10s")
	// generation requests wait on the model
	v.SetDefault("http.writetimeout", "90s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("database.driver", DriverPostgres)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	// empty disables events and the trim job
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "generations:events")
	v.SetDefault("redis.streammaxlen", 100000)

	v.SetDefault("security.sessionsecret", "")
	v.SetDefault("security.sessionttl", "168h") // 7 days
	v.SetDefault("security.passwordhash", HashBcrypt)
	v.SetDefault("security.bcryptcost", 12)
	v.SetDefault("security.argon2.time", 3)
	v.SetDefault("security.argon2.memory", 64*1024)
	v.SetDefault("security.argon2.threads", 2)
	v.SetDefault("security.cookie.name", "authToken")
	v.SetDefault("security.cookie.path", "/")
	v.SetDefault("security.cookie.domain", "")
	v.SetDefault("security.cookie.secure", true)
	v.SetDefault("security.cookie.httponly", true)
	v.SetDefault("security.cookie.samesite", "lax")

	v.SetDefault("model.provider", "gemini")
	v.SetDefault("model.apikey", "")
	v.SetDefault("model.name", "gemini-2.5-flash")
	v.SetDefault("model.timeout", "60s")

	v.SetDefault("history.defaultlimit", 10)
	v.SetDefault("history.maxlimit", 100)

	v.SetDefault("jobs.streamtrimschedule", "0 0 * * * *") // hourly

	v.SetDefault("allowcorsorigins", []string{})
}
