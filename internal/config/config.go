package config

import (
	"errors"
	"fmt"
	"log"
	"net/netip"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
	Security  SecurityConfig
	Seed      SeedConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	UploadDir      string
	// TrustedProxies lists IPs or CIDRs allowed to set X-Forwarded-For and
	// X-Real-IP. Empty means client addresses come from the socket only.
	TrustedProxies []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Backend     string // "memory" or "redis"
	LoginLimit  int
	LoginWindow time.Duration
	APILimit    int // requests per minute per client, 0 disables
}

type JWTConfig struct {
	Secret        string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type SecurityConfig struct {
	BcryptCost       int
	LockoutThreshold int
}

type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Development-only signing keys. Validate rejects them in production.
const (
	fallbackJWTSecret     = "fallback-secret-key"
	fallbackRefreshSecret = "fallback-refresh-secret"
)

var ErrInsecureSecrets = errors.New("JWT_SECRET and JWT_REFRESH_SECRET must be set to distinct non-default values in production")

// TrustedProxyPrefixes parses TrustedProxies. Bare addresses become single-host
// prefixes. Invalid entries are skipped and reported in the error.
func (c ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var (
		prefixes []netip.Prefix
		errs     []error
	)
	for _, entry := range c.TrustedProxies {
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				errs = append(errs, fmt.Errorf("trusted proxy %q: %w", entry, err))
				continue
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("trusted proxy %q: %w", entry, err))
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, errors.Join(errs...)
}

// Validate checks settings that must not keep their development defaults.
func (c *Config) Validate() error {
	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return err
	}
	if !c.Server.IsProduction() {
		return nil
	}
	jwt := c.JWT
	if jwt.Secret == fallbackJWTSecret || jwt.RefreshSecret == fallbackRefreshSecret || jwt.Secret == jwt.RefreshSecret {
		return ErrInsecureSecrets
	}
	return nil
}

// IsProduction reports whether error details must be withheld from clients.
func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// DSN builds the pgx connection string.
func (c DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Database +
		"?sslmode=" + c.SSLMode + "&search_path=" + c.Schema
}

func Load() *Config {
	// godotenv keeps already exported variables, so the process environment wins.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "5000")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_BACKEND", "memory")
	viper.SetDefault("LOGIN_RATE_LIMIT", 5)
	viper.SetDefault("LOGIN_RATE_WINDOW_MINUTES", 15)
	viper.SetDefault("API_RATE_LIMIT", 0)
	viper.SetDefault("JWT_SECRET", fallbackJWTSecret)
	viper.SetDefault("JWT_REFRESH_SECRET", fallbackRefreshSecret)
	viper.SetDefault("JWT_ACCESS_EXPIRY_HOURS", 24)
	viper.SetDefault("JWT_REFRESH_EXPIRY_DAYS", 7)
	viper.SetDefault("BCRYPT_COST", 10)
	viper.SetDefault("LOCKOUT_THRESHOLD", 5)
	viper.SetDefault("SEED_ADMIN_EMAIL", "admin@example.com")
	viper.SetDefault("SEED_ADMIN_NAME", "Admin User")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
			UploadDir:      viper.GetString("UPLOAD_DIR"),
			TrustedProxies: splitList(viper.GetString("TRUSTED_PROXIES")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Backend:     viper.GetString("RATE_LIMIT_BACKEND"),
			LoginLimit:  viper.GetInt("LOGIN_RATE_LIMIT"),
			LoginWindow: time.Duration(viper.GetInt("LOGIN_RATE_WINDOW_MINUTES")) * time.Minute,
			APILimit:    viper.GetInt("API_RATE_LIMIT"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			RefreshSecret: viper.GetString("JWT_REFRESH_SECRET"),
			AccessExpiry:  time.Duration(viper.GetInt("JWT_ACCESS_EXPIRY_HOURS")) * time.Hour,
			RefreshExpiry: time.Duration(viper.GetInt("JWT_REFRESH_EXPIRY_DAYS")) * 24 * time.Hour,
		},
		Security: SecurityConfig{
			BcryptCost:       viper.GetInt("BCRYPT_COST"),
			LockoutThreshold: viper.GetInt("LOCKOUT_THRESHOLD"),
		},
		Seed: SeedConfig{
			AdminEmail:    viper.GetString("SEED_ADMIN_EMAIL"),
			AdminPassword: viper.GetString("SEED_ADMIN_PASSWORD"),
			AdminName:     viper.GetString("SEED_ADMIN_NAME"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
