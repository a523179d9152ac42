package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/fare"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Journeys  JourneyConfig   `mapstructure:"journeys"`
	Payroll   PayrollConfig   `mapstructure:"payroll"`
	Systems   []SystemConfig  `mapstructure:"systems"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// JourneyConfig tunes the journey tracker's timing behavior.
type JourneyConfig struct {
	MaxTapMinutes   int `mapstructure:"max_tap_minutes"`  // open journeys older than this are force-closed
	SweepSeconds    int `mapstructure:"sweep_seconds"`    // how often the sweeper runs
	AutosaveSeconds int `mapstructure:"autosave_seconds"` // statistics autosave cadence
}

func (j JourneyConfig) MaxTapDuration() time.Duration {
	return time.Duration(j.MaxTapMinutes) * time.Minute
}

func (j JourneyConfig) SweepInterval() time.Duration {
	return time.Duration(j.SweepSeconds) * time.Second
}

func (j JourneyConfig) AutosaveInterval() time.Duration {
	return time.Duration(j.AutosaveSeconds) * time.Second
}

// PayrollConfig tunes the salary scheduler.
type PayrollConfig struct {
	CheckSeconds int `mapstructure:"check_seconds"`
}

func (p PayrollConfig) CheckInterval() time.Duration {
	return time.Duration(p.CheckSeconds) * time.Second
}

// SystemConfig declares one transit system and its fare scheme.
type SystemConfig struct {
	ID      string     `mapstructure:"id"`
	Name    string     `mapstructure:"name"`
	MaxFare float64    `mapstructure:"max_fare"`
	Fare    FareConfig `mapstructure:"fare"`
}

// FareConfig is the declarative fare scheme. Type selects the strategy;
// only the matching fields are read.
type FareConfig struct {
	Type     string      `mapstructure:"type"` // FLAT | DISTANCE | ZONE
	Amount   float64     `mapstructure:"amount"`
	BaseRate float64     `mapstructure:"base_rate"`
	PerUnit  float64     `mapstructure:"per_unit"`
	Zone     fare.Config `mapstructure:"zone"`
}

// Build compiles the declaration into a runtime transit system. Zone
// configurations are validated here so a bad rule fails the one system
// instead of surfacing on a rider's first tap.
func (s SystemConfig) Build() (*domain.TransitSystem, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("system id is required")
	}
	if s.MaxFare <= 0 {
		return nil, fmt.Errorf("system %s: max_fare must be positive", s.ID)
	}

	sys := &domain.TransitSystem{
		ID:      s.ID,
		Name:    s.Name,
		MaxFare: s.MaxFare,
	}
	if sys.Name == "" {
		sys.Name = s.ID
	}

	switch strings.ToUpper(s.Fare.Type) {
	case "FLAT":
		if s.Fare.Amount <= 0 {
			return nil, fmt.Errorf("system %s: flat fare amount must be positive", s.ID)
		}
		sys.Fares = domain.FlatFare{Amount: s.Fare.Amount}
	case "DISTANCE":
		if s.Fare.PerUnit < 0 || s.Fare.BaseRate < 0 {
			return nil, fmt.Errorf("system %s: distance rates must not be negative", s.ID)
		}
		sys.Fares = domain.DistanceFare{BaseRate: s.Fare.BaseRate, PerUnit: s.Fare.PerUnit}
	case "ZONE":
		calc, err := fare.NewCalculator(s.Fare.Zone)
		if err != nil {
			return nil, fmt.Errorf("system %s: %w", s.ID, err)
		}
		sys.Fares = calc
	default:
		return nil, fmt.Errorf("system %s: unknown fare type %q", s.ID, s.Fare.Type)
	}

	return sys, nil
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "faregate")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "faregate")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("journeys.max_tap_minutes", 120)
	v.SetDefault("journeys.sweep_seconds", 60)
	v.SetDefault("journeys.autosave_seconds", 300)
	v.SetDefault("payroll.check_seconds", 600)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: FAREGATE_DATABASE_HOST → database.host
	v.SetEnvPrefix("FAREGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Journeys.MaxTapMinutes <= 0 {
		errs = append(errs, "journeys.max_tap_minutes must be positive")
	}
	if c.Journeys.SweepSeconds <= 0 {
		errs = append(errs, "journeys.sweep_seconds must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
