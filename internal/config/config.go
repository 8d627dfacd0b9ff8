package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Env         string `toml:"env"`
	Port        int    `toml:"port"`
	DBURL       string `toml:"database_url"`
	DBMaxConns  int    `toml:"db_max_conns"`
	StoreDriver string `toml:"store_driver"` // postgres | memory

	JWTSecret           string `toml:"jwt_secret"`
	JWTIssuer           string `toml:"jwt_issuer"`
	JWTAccessTTLMinutes int    `toml:"jwt_access_ttl_minutes"`
	BcryptCost          int    `toml:"bcrypt_cost"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	OTelEndpoint    string  `toml:"otel_endpoint"`
	OTelSampleRatio float64 `toml:"otel_sample_ratio"`

	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	RateLimitAuthRPM   int      `toml:"rate_limit_auth_rpm"`
	RateLimitAPIRPM    int      `toml:"rate_limit_api_rpm"`

	AdminUsername string `toml:"admin_username"`
	AdminEmail    string `toml:"admin_email"`
	AdminPassword string `toml:"admin_password"`

	MigrateOnStart bool `toml:"migrate_on_start"`
}

// Load resolves config from, in increasing priority: defaults, the TOML file
// named by CONFIG_FILE, and the environment (a local .env file included).
func Load() (Config, error) {
	// .env never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env failed: %w", err)
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaults() Config {
	return Config{
		Env:                 "dev",
		Port:                8080,
		DBURL:               buildDBURL(),
		DBMaxConns:          5,
		StoreDriver:         "postgres",
		JWTSecret:           devJWTSecret,
		JWTIssuer:           "skincareplus",
		JWTAccessTTLMinutes: 60,
		BcryptCost:          10,
		RateLimitAuthRPM:    10,
		RateLimitAPIRPM:     120,
		OTelSampleRatio:     1,
	}
}

func overrideByEnv(cfg *Config) {
	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.DBURL = getEnv("DATABASE_URL", cfg.DBURL)
	cfg.DBMaxConns = getEnvInt("DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.JWTAccessTTLMinutes = getEnvInt("JWT_ACCESS_TTL_MINUTES", cfg.JWTAccessTTLMinutes)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", cfg.BcryptCost)

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)

	cfg.OTelEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTelEndpoint)
	if v, err := strconv.ParseFloat(os.Getenv("OTEL_TRACES_SAMPLER_ARG"), 64); err == nil {
		cfg.OTelSampleRatio = v
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}
	cfg.RateLimitAuthRPM = getEnvInt("RATE_LIMIT_AUTH_RPM", cfg.RateLimitAuthRPM)
	cfg.RateLimitAPIRPM = getEnvInt("RATE_LIMIT_API_RPM", cfg.RateLimitAPIRPM)

	cfg.AdminUsername = getEnv("ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminEmail = getEnv("ADMIN_EMAIL", cfg.AdminEmail)
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.AdminPassword)

	cfg.MigrateOnStart = getEnvBool("MIGRATE_ON_START", cfg.MigrateOnStart)
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.StoreDriver != "postgres" && c.StoreDriver != "memory" {
		return fmt.Errorf("invalid STORE_DRIVER %q (want postgres or memory)", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	if c.Env == "prod" && (c.JWTSecret == devJWTSecret || len(c.JWTSecret) < 32) {
		return errors.New("JWT_SECRET must be set to at least 32 characters in prod")
	}

	if c.JWTAccessTTLMinutes <= 0 {
		return fmt.Errorf("invalid JWT_ACCESS_TTL_MINUTES %d", c.JWTAccessTTLMinutes)
	}

	return nil
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LogValue keeps secrets out of the startup log line.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.Env),
		slog.Int("port", c.Port),
		slog.String("store_driver", c.StoreDriver),
		slog.Bool("redis", c.RedisAddr != ""),
		slog.Bool("tracing", c.OTelEndpoint != ""),
		slog.Bool("migrate_on_start", c.MigrateOnStart),
	)
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "skincare")
	pass := getEnv("DB_PASSWORD", "skincare")
	name := getEnv("DB_NAME", "skincare")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
