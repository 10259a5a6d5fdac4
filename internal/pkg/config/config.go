package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"

	BackendMemory = "memory"
	BackendRedis  = "redis"

	minSecretKeyLength = 32
)

var insecureSecretKeys = []string{
	"your-secret-key-change-in-production",
	"secret",
	"password",
	"changeme",
	"development",
}

var devCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:8080",
	"http://127.0.0.1:5173",
}

type Config struct {
	Port        string `env:"PORT,         default=8080"`
	Env         string `env:"ENV,          default=development"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	APIPrefix   string `env:"API_PREFIX,   default=/api/v1"`
	ProjectName string `env:"PROJECT_NAME, default=Auth API"`
	Version     string `env:"VERSION,      default=0.1.0"`

	CORSOrigins        string `env:"BACKEND_CORS_ORIGINS"`
	TrustedProxies     string `env:"TRUSTED_PROXIES"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE, default=100"`
	AuditWorkers       int    `env:"AUDIT_WORKERS,         default=4"`

	FirstUsername string `env:"FIRST_USERNAME"`
	FirstPassword string `env:"FIRST_PASSWORD"`

	Auth       AuthConfig
	Database   DatabaseConfig
	Mongo      MongoConfig
	Redis      RedisConfig
	Revocation RevocationConfig
}

type AuthConfig struct {
	SecretKey                string `env:"SECRET_KEY"`
	Algorithm                string `env:"JWT_ALGORITHM,               default=HS256"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES, default=30"`
	RefreshTokenExpireDays   int    `env:"REFRESH_TOKEN_EXPIRE_DAYS,   default=7"`
	BcryptCost               int    `env:"BCRYPT_COST,                 default=10"`
}

// AccessTTL is the configured access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

// RefreshTTL is the configured refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenExpireDays) * 24 * time.Hour
}

type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER,         default=postgres"`
	URL        string `env:"DATABASE_URL"`
	Host       string `env:"POSTGRES_HOST,     default=localhost"`
	Port       int    `env:"POSTGRES_PORT,     default=5432"`
	Name       string `env:"POSTGRES_DB,       default=app"`
	User       string `env:"POSTGRES_USER,     default=postgres"`
	Password   string `env:"POSTGRES_PASSWORD"`
	SSLMode    string `env:"POSTGRES_SSLMODE,  default=disable"`
	SQLitePath string `env:"SQLITE_PATH,       default=auth.db"`
	Debug      bool   `env:"DB_DEBUG,          default=false"`
}

// DSN returns DATABASE_URL when set, otherwise a postgres URL assembled from
// the POSTGRES_* fields. For sqlite it returns SQLITE_PATH.
func (d DatabaseConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return d.SQLitePath
	}
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type RevocationConfig struct {
	Backend string `env:"REVOCATION_BACKEND, default=memory"`
}

// Load reads an optional .env file and then the environment using
// go-envconfig. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	cfg.Auth.Algorithm = strings.ToUpper(strings.TrimSpace(cfg.Auth.Algorithm))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the settings that have no safe default.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvDevelopment, EnvTesting, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of development, testing, production: %q", c.Env))
	}

	if err := validateSecretKey(c.Auth.SecretKey); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.Auth.RefreshTokenExpireDays <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_EXPIRE_DAYS must be positive"))
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM must be HS256, HS384 or HS512: %q", c.Auth.Algorithm))
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMongo:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres, sqlite or mongo: %q", c.Database.Driver))
	}
	switch c.Revocation.Backend {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("REVOCATION_BACKEND must be memory or redis: %q", c.Revocation.Backend))
	}

	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	if _, err := c.TrustedProxyRanges(); err != nil {
		errs = append(errs, err)
	}
	if c.Env == EnvProduction && len(splitOrigins(c.CORSOrigins)) == 0 {
		errs = append(errs, errors.New("BACKEND_CORS_ORIGINS must be configured for production environment"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func validateSecretKey(key string) error {
	if key == "" {
		return errors.New("SECRET_KEY is required")
	}
	if slices.Contains(insecureSecretKeys, strings.ToLower(key)) {
		return errors.New("SECRET_KEY cannot be a default/insecure value")
	}
	if len(key) < minSecretKeyLength {
		return fmt.Errorf("SECRET_KEY must be at least %d characters long", minSecretKeyLength)
	}
	return nil
}

// AllowedOrigins returns the CORS origins for the current environment.
// Development merges the localhost defaults into the configured list; other
// environments use only what is configured.
func (c *Config) AllowedOrigins() []string {
	origins := splitOrigins(c.CORSOrigins)
	if c.Env != EnvDevelopment {
		return origins
	}
	for _, o := range devCORSOrigins {
		if !slices.Contains(origins, o) {
			origins = append(origins, o)
		}
	}
	return origins
}

// TrustedProxyRanges parses TRUSTED_PROXIES, a comma-separated list of CIDRs
// or bare IPs whose X-Forwarded-For headers are believed. Empty means the
// socket peer is the client.
func (c *Config) TrustedProxyRanges() ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, raw := range strings.Split(c.TrustedProxies, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid address %q", raw)
			}
			bits := 128
			if v4 := ip.To4(); v4 != nil {
				ip, bits = v4, 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: invalid range %q", raw)
		}
		out = append(out, ipNet)
	}
	return out, nil
}

// IsDevelopment reports whether the service runs with ENV=development.
func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
