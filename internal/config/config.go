// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Broker    BrokerConfig    `koanf:"broker"`
	Token     TokenConfig     `koanf:"token"`
	Password  PasswordConfig  `koanf:"password"`
	Lockout   LockoutConfig   `koanf:"lockout"`
	Supplier  SupplierConfig  `koanf:"supplier"`
	Session   SessionConfig   `koanf:"session"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// BrokerConfig points at the AMQP broker that carries outbound email
// jobs. An empty URL logs messages instead of publishing them.
type BrokerConfig struct {
	URL           string `koanf:"url"`
	SupplierQueue string `koanf:"supplier_queue"`
}

type TokenConfig struct {
	Secret          string        `koanf:"secret"`
	Issuer          string        `koanf:"issuer"`
	SessionAudience string        `koanf:"session_audience"`
	SessionTTL      time.Duration `koanf:"session_ttl"`
}

type PasswordConfig struct {
	Memory        uint32 `koanf:"memory"`
	Iterations    uint32 `koanf:"iterations"`
	Parallelism   uint8  `koanf:"parallelism"`
	SaltLength    uint32 `koanf:"salt_length"`
	KeyLength     uint32 `koanf:"key_length"`
	MaxConcurrent int    `koanf:"max_concurrent"`
}

type LockoutConfig struct {
	MaxAttempts  int           `koanf:"max_attempts"`
	LockDuration time.Duration `koanf:"lock_duration"`
}

type SupplierConfig struct {
	TokenTTL          time.Duration `koanf:"token_ttl"`
	MaxTokensPerHour  int           `koanf:"max_tokens_per_hour"`
	RateWindow        time.Duration `koanf:"rate_window"`
	ValidationTimeout time.Duration `koanf:"validation_timeout"`
	ConfirmURL        string        `koanf:"confirm_url"`
}

type SessionConfig struct {
	Secure bool `koanf:"secure"`
}

type RateLimitConfig struct {
	Requests         int           `koanf:"requests"`
	Window           time.Duration `koanf:"window"`
	Burst            int           `koanf:"burst"`
	LoginRequests    int           `koanf:"login_requests"`
	LoginWindow      time.Duration `koanf:"login_window"`
	RegisterRequests int           `koanf:"register_requests"`
	RegisterWindow   time.Duration `koanf:"register_window"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Load layers defaults, an optional .env file, the YAML config file and
// the process environment, in that order of precedence (last wins).
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		err := k.Load(file.Provider(configPath), yaml.Parser())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Retail Auth",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"broker.supplier_queue": "supplier.order_requested",

		"token.issuer":           "fashion-retail-store",
		"token.session_audience": "retail-session",
		"token.session_ttl":      "24h",

		"password.memory":         64 * 1024,
		"password.iterations":     3,
		"password.parallelism":    2,
		"password.salt_length":    16,
		"password.key_length":     32,
		"password.max_concurrent": 8,

		"lockout.max_attempts":  5,
		"lockout.lock_duration": "30m",

		"supplier.token_ttl":           "24h",
		"supplier.max_tokens_per_hour": 5,
		"supplier.rate_window":         "1h",
		"supplier.validation_timeout":  "5s",
		"supplier.confirm_url":         "http://localhost:5173/supplier-access",

		"session.secure": false,

		"rate_limit.requests":          100,
		"rate_limit.window":            "1m",
		"rate_limit.burst":             20,
		"rate_limit.login_requests":    5,
		"rate_limit.login_window":      "15m",
		"rate_limit.register_requests": 3,
		"rate_limit.register_window":   "1h",

		"cors.allowed_origins": []string{"http://localhost:5173"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "retail-auth",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"RABBITMQ_URL":                "broker.url",
	"AMQP_URL":                    "broker.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"TOKEN_SECRET":                "token.secret",
	"JWT_SECRET":                  "token.secret",
	"TOKEN_ISSUER":                "token.issuer",
	"TOKEN_SESSION_AUDIENCE":      "token.session_audience",
	"TOKEN_SESSION_TTL":           "token.session_ttl",
	"PASSWORD_MEMORY":             "password.memory",
	"PASSWORD_ITERATIONS":         "password.iterations",
	"PASSWORD_PARALLELISM":        "password.parallelism",
	"PASSWORD_MAX_CONCURRENT":     "password.max_concurrent",
	"LOCKOUT_MAX_ATTEMPTS":        "lockout.max_attempts",
	"LOCKOUT_DURATION":            "lockout.lock_duration",
	"SUPPLIER_TOKEN_TTL":          "supplier.token_ttl",
	"SUPPLIER_CONFIRM_URL":        "supplier.confirm_url",
	"SESSION_COOKIE_SECURE":       "session.secure",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

const minSecretLength = 32

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if len(c.Token.Secret) < minSecretLength {
		return fmt.Errorf(
			"TOKEN_SECRET must be at least %d bytes",
			minSecretLength,
		)
	}

	if c.Token.SessionTTL <= 0 {
		return fmt.Errorf("token.session_ttl must be positive")
	}

	if c.Lockout.MaxAttempts < 1 {
		return fmt.Errorf("lockout.max_attempts must be at least 1")
	}

	if c.Lockout.LockDuration <= 0 {
		return fmt.Errorf("lockout.lock_duration must be positive")
	}

	if c.Supplier.TokenTTL <= 0 || c.Supplier.RateWindow <= 0 {
		return fmt.Errorf("supplier durations must be positive")
	}

	if c.Supplier.MaxTokensPerHour < 1 {
		return fmt.Errorf("supplier.max_tokens_per_hour must be at least 1")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if !c.Session.Secure {
			return fmt.Errorf("SESSION_COOKIE_SECURE must be true in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
