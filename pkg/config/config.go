package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"klunkaz/pkg/db"
	"klunkaz/pkg/logging"
	"klunkaz/pkg/tracing"
)

const (
	SettlementUnlimited = "unlimited"
	SettlementBook      = "book"
)

type Config struct {
	Port string
	CORS CORS
	TLS  TLS

	Database db.Config

	Auth Auth

	DayLength      time.Duration
	SettlementMode string

	Logging logging.Config
	Tracing tracing.Config
	Notify  Notify
}

type CORS struct {
	Origins          []string
	AllowCredentials bool
}

// TLS holds environment-driven TLS configuration.
type TLS struct {
	Enable          bool
	CertPath        string
	KeyPath         string
	CertPEM         string
	KeyPEM          string
	Env             string // "production" or "development"
	AllowSelfSigned bool   // allow generating self-signed in dev when files are missing
}

type Auth struct {
	JWTSecret     string
	TokenCacheTTL time.Duration
	RedisURL      string
}

type Notify struct {
	SendGridAPIKey string
	SenderEmail    string
	SenderName     string
	AlertEmail     string
}

func (n Notify) Enabled() bool {
	return n.SendGridAPIKey != "" && n.AlertEmail != ""
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("CORS_ALLOW_CREDENTIALS", false)

	v.SetDefault("APP_ENV", "")
	v.SetDefault("ENV", "")
	v.SetDefault("ENABLE_TLS", true)
	v.SetDefault("TLS_SELF_SIGNED", true)

	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", "5m")
	v.SetDefault("APPLY_SCHEMA_ON_START", true)
	v.SetDefault("SCHEMA_PATH", "pkg/db/schema.sql")

	v.SetDefault("TOKEN_CACHE_TTL", "5m")
	v.SetDefault("RENTAL_DAY_LENGTH", "24h")
	v.SetDefault("SETTLEMENT_MODE", SettlementUnlimited)

	logDefaults := logging.DefaultConfig()
	v.SetDefault("LOG_DIR", logDefaults.Directory)
	v.SetDefault("LOG_FILE", logDefaults.File)
	v.SetDefault("LOG_SIZE", logDefaults.Size)
	v.SetDefault("LOG_COUNT", logDefaults.Count)
	v.SetDefault("LOG_CONSOLE", logDefaults.Console)
	v.SetDefault("LOG_LEVEL", logDefaults.Level)

	traceDefaults := tracing.DefaultConfig()
	v.SetDefault("TRACING_ENABLED", traceDefaults.Enabled)
	v.SetDefault("TRACING_EXPORTER", traceDefaults.Exporter)
	v.SetDefault("TRACING_OTLP_ENDPOINT", traceDefaults.OTLPEndpoint)
	v.SetDefault("TRACING_SAMPLE_RATE", traceDefaults.SampleRate)
	v.SetDefault("TRACING_SERVICE_NAME", traceDefaults.ServiceName)
	return v
}

// FromViper builds a Config from already populated settings.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port: v.GetString("SERVER_PORT"),
		CORS: CORS{
			Origins:          splitOrigins(v.GetString("CORS_ALLOWED_ORIGINS")),
			AllowCredentials: v.GetBool("CORS_ALLOW_CREDENTIALS"),
		},
		TLS: loadTLS(v),
		Database: db.Config{
			URL:             v.GetString("DATABASE_URL"),
			MaxConns:        v.GetInt32("DB_MAX_CONNS"),
			MinConns:        v.GetInt32("DB_MIN_CONNS"),
			MaxConnIdleTime: v.GetDuration("DB_MAX_CONN_IDLE_TIME"),
			ApplySchema:     v.GetBool("APPLY_SCHEMA_ON_START"),
			SchemaPath:      v.GetString("SCHEMA_PATH"),
		},
		Auth: Auth{
			JWTSecret:     v.GetString("JWT_SECRET"),
			TokenCacheTTL: v.GetDuration("TOKEN_CACHE_TTL"),
			RedisURL:      v.GetString("REDIS_URL"),
		},
		DayLength:      v.GetDuration("RENTAL_DAY_LENGTH"),
		SettlementMode: strings.ToLower(v.GetString("SETTLEMENT_MODE")),
		Logging: logging.Config{
			Directory: v.GetString("LOG_DIR"),
			File:      v.GetString("LOG_FILE"),
			Size:      v.GetInt("LOG_SIZE"),
			Count:     v.GetInt("LOG_COUNT"),
			Console:   v.GetBool("LOG_CONSOLE"),
			Level:     v.GetString("LOG_LEVEL"),
		},
		Tracing: tracing.Config{
			Enabled:      v.GetBool("TRACING_ENABLED"),
			Exporter:     v.GetString("TRACING_EXPORTER"),
			OTLPEndpoint: v.GetString("TRACING_OTLP_ENDPOINT"),
			SampleRate:   v.GetFloat64("TRACING_SAMPLE_RATE"),
			ServiceName:  v.GetString("TRACING_SERVICE_NAME"),
		},
		Notify: Notify{
			SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
			SenderEmail:    v.GetString("SENDGRID_SENDER_EMAIL"),
			SenderName:     v.GetString("SENDGRID_SENDER_NAME"),
			AlertEmail:     v.GetString("STOLEN_ALERT_EMAIL"),
		},
	}

	if cfg.Port == "" {
		if cfg.TLS.Enable {
			cfg.Port = "8443"
		} else {
			cfg.Port = "8080"
		}
	}
	if cfg.DayLength <= 0 {
		return Config{}, fmt.Errorf("RENTAL_DAY_LENGTH must be positive")
	}
	switch cfg.SettlementMode {
	case SettlementUnlimited, SettlementBook:
	default:
		return Config{}, fmt.Errorf("unknown SETTLEMENT_MODE %q", cfg.SettlementMode)
	}
	return cfg, nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, p := range strings.Split(raw, ",") {
		if o := strings.TrimSpace(p); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

func loadTLS(v *viper.Viper) TLS {
	env := strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))
	if env == "" {
		env = strings.ToLower(strings.TrimSpace(v.GetString("ENV")))
	}
	if env == "" {
		env = "development"
	}

	enable := v.GetBool("ENABLE_TLS")
	// Enforce TLS in production
	if env == "production" {
		enable = true
	}

	return TLS{
		Enable:          enable,
		CertPath:        v.GetString("TLS_CERT_PATH"),
		KeyPath:         v.GetString("TLS_KEY_PATH"),
		CertPEM:         v.GetString("TLS_CERT"),
		KeyPEM:          v.GetString("TLS_KEY"),
		Env:             env,
		AllowSelfSigned: v.GetBool("TLS_SELF_SIGNED"),
	}
}

// Validate ensures TLS settings are safe for the selected environment.
func (s TLS) Validate() error {
	if s.Env == "production" {
		if !s.Enable {
			return fmt.Errorf("TLS must be enabled in production")
		}
		if s.CertPath == "" || s.KeyPath == "" {
			return fmt.Errorf("TLS_CERT_PATH and TLS_KEY_PATH are required in production")
		}
	}
	return nil
}
