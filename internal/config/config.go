package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxConns        = 10
	defaultTokenTTL        = 24 * time.Hour
	defaultLockTTL         = 5 * time.Second
	defaultLockWait        = 2 * time.Second
	defaultOrderTopic      = "orders.confirmed"
	defaultCurrency        = "EUR"
	defaultLogLevel        = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Lock     LockConfig
	Kafka    KafkaConfig
	Catalog  CatalogConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LockConfig enables per-order Redis locks when RedisURL is set.
type LockConfig struct {
	RedisURL string
	TTL      time.Duration
	Wait     time.Duration
}

// KafkaConfig enables order events when Brokers is not empty.
type KafkaConfig struct {
	Brokers    []string
	OrderTopic string
}

type CatalogConfig struct {
	Currency currency.Unit
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile reads fallback values from a dotenv file; an empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects values that take precedence over the system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load resolves the configuration from the env map, the system environment
// and the dotenv file, in that order of precedence.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	p := parser{lookup: lookup}

	cfg := Config{
		Server: ServerConfig{
			Port:            p.string("ORDERS_SERVER_PORT", defaultPort),
			ReadTimeout:     p.duration("ORDERS_SERVER_READ_TIMEOUT", "Server.ReadTimeout", defaultReadTimeout),
			WriteTimeout:    p.duration("ORDERS_SERVER_WRITE_TIMEOUT", "Server.WriteTimeout", defaultWriteTimeout),
			IdleTimeout:     p.duration("ORDERS_SERVER_IDLE_TIMEOUT", "Server.IdleTimeout", defaultIdleTimeout),
			ShutdownTimeout: p.duration("ORDERS_SERVER_SHUTDOWN_TIMEOUT", "Server.ShutdownTimeout", defaultShutdownTimeout),
		},
		Database: DatabaseConfig{
			URL:      p.string("ORDERS_DATABASE_URL", ""),
			MaxConns: p.int("ORDERS_DATABASE_MAX_CONNS", "Database.MaxConns", defaultMaxConns),
		},
		Auth: AuthConfig{
			JWTSecret: p.string("ORDERS_AUTH_JWT_SECRET", ""),
			TokenTTL:  p.duration("ORDERS_AUTH_TOKEN_TTL", "Auth.TokenTTL", defaultTokenTTL),
		},
		Lock: LockConfig{
			RedisURL: p.string("ORDERS_REDIS_URL", ""),
			TTL:      p.duration("ORDERS_LOCK_TTL", "Lock.TTL", defaultLockTTL),
			Wait:     p.duration("ORDERS_LOCK_WAIT", "Lock.Wait", defaultLockWait),
		},
		Kafka: KafkaConfig{
			Brokers:    p.csv("ORDERS_KAFKA_BROKERS"),
			OrderTopic: p.string("ORDERS_KAFKA_ORDER_TOPIC", defaultOrderTopic),
		},
		LogLevel: strings.ToLower(p.string("LOG_LEVEL", defaultLogLevel)),
	}

	unit, err := currency.ParseISO(strings.ToUpper(p.string("ORDERS_CATALOG_CURRENCY", defaultCurrency)))
	if err != nil {
		p.invalid = append(p.invalid, "Catalog.Currency")
	}
	cfg.Catalog.Currency = unit

	if err := validateConfig(cfg, p.invalid); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config, invalid []string) error {
	missing := invalid

	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Database.URL) == "" {
		missing = append(missing, "Database.URL")
	}
	if cfg.Database.MaxConns <= 0 {
		missing = append(missing, "Database.MaxConns")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		missing = append(missing, "Auth.JWTSecret")
	}
	if cfg.Auth.TokenTTL <= 0 {
		missing = append(missing, "Auth.TokenTTL")
	}
	if cfg.Lock.TTL <= 0 {
		missing = append(missing, "Lock.TTL")
	}
	if cfg.Lock.Wait < 0 {
		missing = append(missing, "Lock.Wait")
	}
	if len(cfg.Kafka.Brokers) > 0 && strings.TrimSpace(cfg.Kafka.OrderTopic) == "" {
		missing = append(missing, "Kafka.OrderTopic")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

// loadDotEnv reads KEY=VALUE pairs from path. A missing file yields no values.
func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	values := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if key, value, ok := parseEnvLine(line); ok {
			values[key] = value
		}
	}
	return values, nil
}

// parseEnvLine accepts `[export ]KEY=VALUE`. Quoted values are taken verbatim,
// unquoted ones lose a trailing ` # comment`.
func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return "", "", false
	}

	key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}

	value = strings.TrimSpace(value)
	if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
		return key, value[1 : n-1], true
	}
	if idx := strings.Index(value, " #"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return key, value, true
}

// parser reads typed values and remembers the fields that failed to parse.
type parser struct {
	lookup  func(string) (string, bool)
	invalid []string
}

func (p *parser) string(key, fallback string) string {
	if value, ok := p.lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func (p *parser) duration(key, field string, fallback time.Duration) time.Duration {
	value, ok := p.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		p.invalid = append(p.invalid, field)
		return fallback
	}
	return d
}

func (p *parser) int(key, field string, fallback int) int {
	value, ok := p.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		p.invalid = append(p.invalid, field)
		return fallback
	}
	return parsed
}

func (p *parser) csv(key string) []string {
	raw, ok := p.lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
