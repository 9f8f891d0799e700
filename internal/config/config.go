package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogFile     string

	MongoDBURI      string
	MongoDBPassword string
	MongoDBDatabase string

	JWTSecret string
	JWKSURL   string

	AMQPURL      string
	AMQPExchange string

	CORSOrigins []string

	SweepSchedule string
	SweepTimezone string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("MONGODB_DATABASE", "campuscove")
	v.SetDefault("AMQP_EXCHANGE", "campuscove.events")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SWEEP_SCHEDULE", "@midnight")
	v.SetDefault("SWEEP_TIMEZONE", "Local")
}

// LoadConfig reads settings from the environment. Callers load any .env file
// beforehand.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:            v.GetString("PORT"),
		Environment:     v.GetString("ENVIRONMENT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFile:         v.GetString("LOG_FILE"),
		MongoDBURI:      v.GetString("MONGODB_URI"),
		MongoDBPassword: v.GetString("MONGODB_PASSWORD"),
		MongoDBDatabase: v.GetString("MONGODB_DATABASE"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		JWKSURL:         v.GetString("JWKS_URL"),
		AMQPURL:         v.GetString("AMQP_URL"),
		AMQPExchange:    v.GetString("AMQP_EXCHANGE"),
		CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
		SweepSchedule:   v.GetString("SWEEP_SCHEDULE"),
		SweepTimezone:   v.GetString("SWEEP_TIMEZONE"),
	}

	// Validate required fields
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.JWTSecret == "" && cfg.JWKSURL == "" {
		return nil, fmt.Errorf("JWT_SECRET or JWKS_URL is required")
	}
	if _, err := cfg.SweepLocation(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SweepLocation resolves the time zone the expiry sweep runs in.
func (c *Config) SweepLocation() (*time.Location, error) {
	if c.SweepTimezone == "" || c.SweepTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.SweepTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_TIMEZONE %q: %w", c.SweepTimezone, err)
	}
	return loc, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
