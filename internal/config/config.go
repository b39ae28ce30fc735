// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file, if
// present), loads them into structured Go types, and validates that the
// required values are present so they can be reused across the application
// runtime.
//
// Two naming schemes are accepted:
//   - Structured keys with the PORTFOLIO_ prefix, where a double underscore
//     separates nesting levels: PORTFOLIO_DATABASE__MAX_CONNS -> database.max_conns
//   - Legacy flat names (PORT, DB_HOST, EMAIL_USER, GEMINI_API_KEY, ...).
//     They are loaded first, so structured keys win.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process environment before anything below reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix for structured environment keys.
	EnvPrefix = "PORTFOLIO_"

	// ServiceName tags logs and New Relic telemetry.
	ServiceName = "portfolio-backend"
)

// Queue modes for the database admission gate.
const (
	QueueModeWait   = "wait"
	QueueModeReject = "reject"
)

// Config is the root configuration object for the application.
//
// Redis is a pointer because it is optional: without it the rate limiter
// keeps its windows in memory and notifications are delivered in-process.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         *RedisConfig         `koanf:"redis"`
	Email         EmailConfig          `koanf:"email"`
	Notify        NotifyConfig         `koanf:"notify"`
	AI            AIConfig             `koanf:"ai"`
	Auth          AuthConfig           `koanf:"auth"`
	RateLimit     RateLimitConfig      `koanf:"rate_limit"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required,oneof=local development staging production"`
}

// ServerConfig groups settings for the HTTP server runtime.
type ServerConfig struct {
	Port               string        `koanf:"port" validate:"required"`
	ReadTimeout        time.Duration `koanf:"read_timeout" validate:"min=1s"`
	WriteTimeout       time.Duration `koanf:"write_timeout" validate:"min=1s"`
	IdleTimeout        time.Duration `koanf:"idle_timeout" validate:"min=1s"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins" validate:"required,min=1"`

	// TrustedProxies lists the CIDR ranges whose X-Forwarded-For is
	// believed. Empty means the client IP is the TCP peer address.
	TrustedProxies []string `koanf:"trusted_proxies" validate:"omitempty,dive,cidr"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
//
// URL, when set, takes precedence over the individual connection fields.
type DatabaseConfig struct {
	URL               string        `koanf:"url"`
	Host              string        `koanf:"host" validate:"required_without=URL"`
	Port              int           `koanf:"port" validate:"required_without=URL"`
	User              string        `koanf:"user" validate:"required_without=URL"`
	Password          string        `koanf:"password"`
	Name              string        `koanf:"name" validate:"required_without=URL"`
	SSLMode           string        `koanf:"ssl_mode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns          int32         `koanf:"max_conns" validate:"min=1"`
	QueueMode         string        `koanf:"queue_mode" validate:"oneof=wait reject"`
	ConnMaxLifetime   time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime   time.Duration `koanf:"conn_max_idle_time"`
	KeepAliveInterval time.Duration `koanf:"keep_alive_interval" validate:"min=1s"`
	KeepAliveTimeout  time.Duration `koanf:"keep_alive_timeout" validate:"min=1s"`
	AutoMigrate       bool          `koanf:"auto_migrate"`
}

// DSN returns the connection string for pgx.
//
// Host and port are joined with net.JoinHostPort so IPv6 literals get their
// brackets, and the password is escaped so characters like '@' or ':' cannot
// break the URL.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	hostPort := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	userInfo := url.UserPassword(d.User, d.Password)
	if d.Password == "" {
		userInfo = url.User(d.User)
	}

	u := url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   hostPort,
		Path:   "/" + d.Name,
	}
	if d.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(d.SSLMode)
	}
	return u.String()
}

// RejectWhenBusy reports whether the admission gate should fail fast
// instead of queueing when all connections are in use.
func (d DatabaseConfig) RejectWhenBusy() bool {
	return d.QueueMode == QueueModeReject
}

// RedisConfig contains Redis connection details.
// Address is typically "host:port".
type RedisConfig struct {
	Address  string `koanf:"address" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// EmailConfig configures the owner-alert mailbox.
//
// Provider selects the transport. "auto" picks resend when an API key is
// present, smtp when a username/password pair is, and disables email alerts
// otherwise.
type EmailConfig struct {
	Provider     string `koanf:"provider" validate:"oneof=auto resend smtp none"`
	Mailbox      string `koanf:"mailbox"`
	FromName     string `koanf:"from_name"`
	ResendAPIKey string `koanf:"resend_api_key"`
	Username     string `koanf:"username"`
	Password     string `koanf:"password"`
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
}

// ResolvedProvider returns the effective transport name: resend, smtp or none.
func (e EmailConfig) ResolvedProvider() string {
	switch e.Provider {
	case "resend", "smtp", "none":
		return e.Provider
	}
	switch {
	case e.ResendAPIKey != "":
		return "resend"
	case e.Username != "" && e.Password != "":
		return "smtp"
	default:
		return "none"
	}
}

// Address returns the service's own mailbox. Alerts are sent from and to it.
func (e EmailConfig) Address() string {
	if e.Mailbox != "" {
		return e.Mailbox
	}
	return e.Username
}

// NotifyConfig controls fire-and-forget delivery of contact alerts.
type NotifyConfig struct {
	DispatchTimeout time.Duration `koanf:"dispatch_timeout" validate:"min=1s"`
	UseQueue        bool          `koanf:"use_queue"`
}

// AIConfig configures the generative-AI chat relay.
type AIConfig struct {
	APIKey    string        `koanf:"api_key"`
	Model     string        `koanf:"model" validate:"required"`
	OwnerName string        `koanf:"owner_name" validate:"required"`
	Timeout   time.Duration `koanf:"timeout" validate:"min=1s"`
}

// AuthConfig stores authentication-related secrets.
//
// SecretKey is the Clerk secret. When empty the admin listing is served
// without authentication.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key"`
}

// RateLimitConfig configures the fixed-window limiter on public write routes.
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests" validate:"min=1"`
	Window   time.Duration `koanf:"window" validate:"min=1s"`
}

// Default returns the configuration used for any key the environment does
// not set.
func Default() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:               "5000",
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       45 * time.Second,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			CORSAllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:              "localhost",
			Port:              5432,
			User:              "postgres",
			Name:              "portfolio",
			SSLMode:           "prefer",
			MaxConns:          5,
			QueueMode:         QueueModeWait,
			ConnMaxLifetime:   30 * time.Minute,
			ConnMaxIdleTime:   5 * time.Minute,
			KeepAliveInterval: 60 * time.Second,
			KeepAliveTimeout:  5 * time.Second,
			AutoMigrate:       true,
		},
		Email: EmailConfig{
			Provider: "auto",
			FromName: "Portfolio",
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		Notify: NotifyConfig{
			DispatchTimeout: 30 * time.Second,
			UseQueue:        true,
		},
		AI: AIConfig{
			Model:     "gemini-2.0-flash",
			OwnerName: "Likith",
			Timeout:   30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   15 * time.Minute,
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// aliases maps legacy flat variable names onto koanf keys.
var aliases = map[string]string{
	"PORT":                  "server.port",
	"DATABASE_URL":          "database.url",
	"DB_HOST":               "database.host",
	"DB_PORT":               "database.port",
	"DB_USER":               "database.user",
	"DB_PASS":               "database.password",
	"DB_PASSWORD":           "database.password",
	"DB_NAME":               "database.name",
	"DB_SSL_MODE":           "database.ssl_mode",
	"EMAIL_USER":            "email.username",
	"EMAIL_PASS":            "email.password",
	"RESEND_API_KEY":        "email.resend_api_key",
	"GEMINI_API_KEY":        "ai.api_key",
	"REDIS_ADDR":            "redis.address",
	"CLERK_SECRET_KEY":      "auth.secret_key",
	"NEW_RELIC_LICENSE_KEY": "observability.new_relic.license_key",
}

// listKeys are split on commas so a single variable can carry a list.
var listKeys = map[string]bool{
	"server.cors_allowed_origins": true,
	"server.trusted_proxies":      true,
}

// envKey turns PORTFOLIO_DATABASE__SSL_MODE into database.ssl_mode.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

// Load reads configuration from the environment, unmarshals it on top of
// Default(), validates it and returns it.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Aliases first. Returning "" from the callback makes koanf skip the
	// variable, so only the names in the alias table are picked up.
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return aliases[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env aliases: %w", err)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		name := envKey(key)
		if listKeys[name] {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return name, parts
		}
		return name, value
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Redis != nil && cfg.Redis.Address == "" {
		cfg.Redis = nil
	}

	if cfg.Observability == nil {
		cfg.Observability = DefaultObservabilityConfig()
	}
	cfg.Observability.ServiceName = ServiceName
	cfg.Observability.Environment = cfg.Primary.Env

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate runs struct-tag validation followed by the observability rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Observability != nil {
		if err := c.Observability.Validate(); err != nil {
			return fmt.Errorf("invalid observability config: %w", err)
		}
	}
	return nil
}

// Redacted returns a copy with every secret replaced, safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}

	out.Database.Password = mask(c.Database.Password)
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err == nil {
			out.Database.URL = u.Redacted()
		} else {
			out.Database.URL = mask(c.Database.URL)
		}
	}
	out.Email.Password = mask(c.Email.Password)
	out.Email.ResendAPIKey = mask(c.Email.ResendAPIKey)
	out.AI.APIKey = mask(c.AI.APIKey)
	out.Auth.SecretKey = mask(c.Auth.SecretKey)
	if c.Redis != nil {
		r := *c.Redis
		r.Password = mask(r.Password)
		out.Redis = &r
	}
	if c.Observability != nil {
		o := *c.Observability
		o.NewRelic.LicenseKey = mask(o.NewRelic.LicenseKey)
		out.Observability = &o
	}
	return &out
}
