package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// devJWTSecret is only accepted when ENV=development.
const devJWTSecret = "dev-only-insecure-jwt-secret-change-me"

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	StoreDriver     string        `mapstructure:"STORE_DRIVER"`
	DataFile        string        `mapstructure:"DATA_FILE"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	MongoURI        string        `mapstructure:"MONGO_URI"`
	MongoDatabase   string        `mapstructure:"MONGO_DATABASE"`
	UploadDir       string        `mapstructure:"UPLOAD_DIR"`
	MaxUploadSize   string        `mapstructure:"MAX_UPLOAD_SIZE"`
	BodyLimit       string        `mapstructure:"BODY_LIMIT"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	SessionTTL      time.Duration `mapstructure:"SESSION_TTL"`
	AdminUsername   string        `mapstructure:"ADMIN_USERNAME"`
	AdminPassword   string        `mapstructure:"ADMIN_PASSWORD"`
	SeedDemoPatient bool          `mapstructure:"SEED_DEMO_PATIENT"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ClinicSessions  string        `mapstructure:"CLINIC_SESSIONS"`
	SlotMinutes     int           `mapstructure:"SLOT_MINUTES"`
	Timezone        string        `mapstructure:"TIMEZONE"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STORE_DRIVER", "DATA_FILE",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MONGO_URI", "MONGO_DATABASE",
	"UPLOAD_DIR", "MAX_UPLOAD_SIZE", "BODY_LIMIT", "JWT_SECRET", "SESSION_TTL",
	"ADMIN_USERNAME", "ADMIN_PASSWORD", "SEED_DEMO_PATIENT", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"CLINIC_SESSIONS", "SLOT_MINUTES", "TIMEZONE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", "file")
	v.SetDefault("DATA_FILE", "data/clinic.json")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("MONGO_DATABASE", "clinic")
	v.SetDefault("UPLOAD_DIR", "data/uploads")
	v.SetDefault("MAX_UPLOAD_SIZE", "10M")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("CLINIC_SESSIONS", "09:00-12:00,14:00-18:00")
	v.SetDefault("SLOT_MINUTES", 10)
	v.SetDefault("TIMEZONE", "Local")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	}

	if cfg.IsDev() {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = devJWTSecret
		}
		if cfg.AdminPassword == "" {
			cfg.AdminPassword = "adminpass"
		}
		log.Warn().Msg("running in development mode with default credentials; set ENV=production, JWT_SECRET and ADMIN_PASSWORD before deploying")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves TIMEZONE. "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is complete for the selected store
// driver and safe for the selected environment.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "file":
		if c.DataFile == "" {
			return fmt.Errorf("DATA_FILE is required when STORE_DRIVER is \"file\"")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is \"postgres\"")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_DRIVER is \"mongo\"")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE is required when STORE_DRIVER is \"mongo\"")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be \"file\", \"postgres\" or \"mongo\", got %q", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !c.IsDev() && (len(c.JWTSecret) < 32 || c.JWTSecret == devJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters and not the development default outside development")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.AdminUsername == "" || c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required")
	}
	if c.SlotMinutes <= 0 {
		return fmt.Errorf("SLOT_MINUTES must be positive, got %d", c.SlotMinutes)
	}
	if c.ClinicSessions == "" {
		return fmt.Errorf("CLINIC_SESSIONS is required")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
