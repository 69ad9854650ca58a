package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Gateway types understood by bootstrap.
const (
	GatewayAuthorizeNet = "authorizenet"
	GatewayMercadoPago  = "mercadopago"
)

type Config struct {
	Server         ServerConfig             `mapstructure:"server"`
	Redis          RedisConfig              `mapstructure:"redis"`
	Auth           AuthConfig               `mapstructure:"auth"`
	Transport      TransportConfig          `mapstructure:"transport"`
	Idempotency    IdempotencyConfig        `mapstructure:"idempotency"`
	Observability  ObservabilityConfig      `mapstructure:"observability"`
	DefaultGateway string                   `mapstructure:"default_gateway"`
	Gateways       map[string]GatewayConfig `mapstructure:"gateways"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	// RateLimit is the number of requests allowed per client per minute.
	RateLimit int `mapstructure:"rate_limit"`
}

type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    uint          `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

type TransportConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxResponseBytes int64         `mapstructure:"max_response_bytes"`
	Breaker          BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

// GatewayConfig configures one named gateway. Which fields are required
// depends on Type.
type GatewayConfig struct {
	Type           string `mapstructure:"type" validate:"required,oneof=authorizenet mercadopago"`
	LoginID        string `mapstructure:"login_id" validate:"required_if=Type authorizenet"`
	TransactionKey string `mapstructure:"transaction_key" validate:"required_if=Type authorizenet"`
	Endpoint       string `mapstructure:"endpoint" validate:"omitempty,oneof=auto sandbox live|url"`
	SandboxURL     string `mapstructure:"sandbox_url" validate:"omitempty,url"`
	LiveURL        string `mapstructure:"live_url" validate:"omitempty,url"`
	ValidationMode string `mapstructure:"validation_mode" validate:"omitempty,oneof=none testMode liveMode"`
	ResolveOnStart bool   `mapstructure:"resolve_on_start"`
	AccessToken    string `mapstructure:"access_token" validate:"required_if=Type mercadopago"`
}

// Load reads .env, defaults, the optional config file and DINERO_*
// environment variables, in increasing precedence.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DINERO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dinero")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Redis.Enabled && c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Idempotency.Enabled && !c.Redis.Enabled {
		errs = append(errs, fmt.Errorf("idempotency requires redis.enabled"))
	}
	if c.Idempotency.Enabled && c.Idempotency.TTL <= 0 {
		errs = append(errs, fmt.Errorf("idempotency.ttl must be positive"))
	}
	if c.Transport.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("transport.timeout must be positive"))
	}
	if r := c.Transport.Breaker.FailureRatio; r <= 0 || r > 1 {
		errs = append(errs, fmt.Errorf("transport.breaker.failure_ratio must be in (0, 1], got %v", r))
	}

	if len(c.Gateways) == 0 {
		errs = append(errs, fmt.Errorf("at least one gateway must be configured"))
	}
	if _, ok := c.Gateways[c.DefaultGateway]; !ok {
		errs = append(errs, fmt.Errorf("default_gateway %q is not configured", c.DefaultGateway))
	}
	for _, name := range c.GatewayNames() {
		if err := validate.Struct(c.Gateways[name]); err != nil {
			errs = append(errs, fmt.Errorf("gateways.%s: %w", name, err))
		}
	}

	env := os.Getenv("ENV")
	if (env == "production" || env == "prod") && c.Auth.Enabled && c.Auth.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("auth.jwt_secret required in production"))
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 characters"))
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("auth.jwt_secret is required when auth is enabled"))
	}

	return errors.Join(errs...)
}

// GatewayNames returns the configured gateway names in sorted order.
func (c *Config) GatewayNames() []string {
	names := make([]string, 0, len(c.Gateways))
	for name := range c.Gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "45s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Transport defaults
	v.SetDefault("transport.timeout", "30s")
	v.SetDefault("transport.max_response_bytes", 4<<20)
	v.SetDefault("transport.breaker.max_requests", 5)
	v.SetDefault("transport.breaker.interval", "60s")
	v.SetDefault("transport.breaker.timeout", "30s")
	v.SetDefault("transport.breaker.min_requests", 10)
	v.SetDefault("transport.breaker.failure_ratio", 0.6)

	// Idempotency defaults
	v.SetDefault("idempotency.enabled", false)
	v.SetDefault("idempotency.ttl", "24h")

	// Observability defaults
	v.SetDefault("observability.service_name", "dinero")
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.rate_limit", 100)

	// Gateway defaults
	v.SetDefault("default_gateway", "authorizenet")
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
