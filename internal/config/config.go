package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DBConfig describes the storage connection. DSN wins when set; otherwise a
// Postgres DSN is assembled from the individual fields.
type DBConfig struct {
	DSN             string `envconfig:"DATABASE_URL"`
	Host            string `envconfig:"DB_HOST" default:"postgres"`
	Port            int    `envconfig:"DB_PORT" default:"5432"`
	User            string `envconfig:"DB_USER" default:"docwatch"`
	Password        string `envconfig:"DB_PASSWORD" default:"docwatch"`
	Name            string `envconfig:"DB_NAME" default:"docwatch"`
	SSLMode         string `envconfig:"DB_SSLMODE" default:"disable"`
	TimeZone        string `envconfig:"DB_TIMEZONE" default:"UTC"`
	MaxOpenConns    int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifeTime int    `envconfig:"DB_CONN_MAX_LIFETIME_MIN" default:"30"` // minutes
}

// IsSQLite reports whether the DSN points at a SQLite database.
func (c DBConfig) IsSQLite() bool {
	dsn := strings.TrimSpace(c.DSN)
	return strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") || dsn == ":memory:"
}

// ConnString returns the DSN handed to the gorm driver.
func (c DBConfig) ConnString() string {
	if dsn := strings.TrimSpace(c.DSN); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		c.Host,
		c.User,
		c.Password,
		c.Name,
		c.Port,
		c.SSLMode,
		c.TimeZone,
	)
}

type AuthConfig struct {
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL        time.Duration `envconfig:"JWT_TTL" default:"168h"`
	CookieDomain  string        `envconfig:"COOKIE_DOMAIN"`
	RatePerMinute int           `envconfig:"AUTH_RATE_PER_MIN" default:"20"`
	GoogleClient  string        `envconfig:"GOOGLE_CLIENT_ID"`
}

type PushConfig struct {
	PublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	PrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	Subject    string `envconfig:"VAPID_SUBJECT" default:"mailto:admin@docwatch.local"`
}

type NotifyConfig struct {
	Enabled     bool          `envconfig:"NOTIFY_ENABLED" default:"true"`
	Mode        string        `envconfig:"NOTIFY_MODE"`
	DevInterval time.Duration `envconfig:"NOTIFY_DEV_INTERVAL" default:"1m"`
	Interval    time.Duration `envconfig:"NOTIFY_INTERVAL" default:"1h"`
}

type PaymentConfig struct {
	OmisePublicKey string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey string `envconfig:"OMISE_SECRET_KEY"`
}

type EventsConfig struct {
	AMQPURL  string `envconfig:"AMQP_URL"`
	Exchange string `envconfig:"AMQP_EXCHANGE" default:"docwatch.events"`
}

type App struct {
	Env        string   `envconfig:"APP_ENV" default:"development"`
	HTTPAddr   string   `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr   string   `envconfig:"GRPC_ADDR" default:":50051"`
	CORSOrigin []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	SoonDays   int      `envconfig:"EXPIRY_SOON_DAYS" default:"30"`
	OTLP       string   `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	DB      DBConfig
	Auth    AuthConfig
	Push    PushConfig
	Notify  NotifyConfig
	Payment PaymentConfig
	Events  EventsConfig
}

// Load reads the whole configuration from the environment.
func Load() (App, error) {
	var c App
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	return c, c.validate()
}

// The reminder window must fit inside the one-year renewal.
const maxSoonDays = 365

func (c App) validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("invalid APP_ENV %q: want %s or %s", c.Env, EnvDevelopment, EnvProduction)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.SoonDays < 0 || c.SoonDays > maxSoonDays {
		return fmt.Errorf("EXPIRY_SOON_DAYS must be between 0 and %d", maxSoonDays)
	}
	if c.DB.DSN == "" && (c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "") {
		return fmt.Errorf("invalid DB config: host/user/name must not be empty")
	}
	if c.Notify.Interval <= 0 || c.Notify.DevInterval <= 0 {
		return fmt.Errorf("notification intervals must be positive")
	}
	return nil
}

func (c App) Production() bool {
	return c.Env == EnvProduction
}

// ScanInterval picks the notification interval for the configured mode.
// NOTIFY_MODE overrides APP_ENV when set.
func (c App) ScanInterval() time.Duration {
	mode := strings.ToLower(strings.TrimSpace(c.Notify.Mode))
	if mode == "" {
		mode = c.Env
	}
	switch mode {
	case "dev", EnvDevelopment:
		return c.Notify.DevInterval
	default:
		return c.Notify.Interval
	}
}
