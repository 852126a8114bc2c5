// Package config loads application configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/bissquit/incident-comms/internal/domain"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: COMMS_STORE__SQLITE__PATH sets store.sqlite.path.
const EnvPrefix = "COMMS_"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the application configuration.
type Config struct {
	Log           LogConfig           `koanf:"log"`
	Store         StoreConfig         `koanf:"store"`
	History       HistoryConfig       `koanf:"history"`
	SLAs          map[string]int      `koanf:"slas" validate:"dive,gt=0"`
	Fields        FieldsConfig        `koanf:"fields"`
	Jurisdictions JurisdictionsConfig `koanf:"jurisdictions"`
	Metrics       MetricsConfig       `koanf:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// StoreConfig selects and configures the key-value store.
type StoreConfig struct {
	Driver   string         `koanf:"driver" validate:"oneof=memory sqlite postgres"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres DatabaseConfig `koanf:"postgres"`
}

// SQLiteConfig configures the local store.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// DatabaseConfig configures the PostgreSQL store.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts" validate:"gte=1,lte=10"`
}

// HistoryConfig configures revision history.
type HistoryConfig struct {
	Retention int `koanf:"retention" validate:"gte=1,lte=1000"`
}

// FieldsConfig bounds the length of incident text fields.
type FieldsConfig struct {
	NameMin          int `koanf:"name_min" validate:"gte=0"`
	NameMax          int `koanf:"name_max" validate:"gtefield=NameMin"`
	ImpactSummaryMin int `koanf:"impact_summary_min" validate:"gte=0"`
	ImpactSummaryMax int `koanf:"impact_summary_max" validate:"gtefield=ImpactSummaryMin"`
}

// JurisdictionsConfig holds the regulatory settings behind footer notices.
type JurisdictionsConfig struct {
	GDPR GDPRConfig `koanf:"gdpr"`
	CCPA CCPAConfig `koanf:"ccpa"`
	SEC  SECConfig  `koanf:"sec"`
}

// GDPRConfig configures the EU notice.
type GDPRConfig struct {
	Enabled                 bool `koanf:"enabled"`
	NotificationWindowHours int  `koanf:"notification_window_hours" validate:"gte=0"`
}

// CCPAConfig configures the US notice.
type CCPAConfig struct {
	Enabled                bool `koanf:"enabled"`
	NotificationWindowDays int  `koanf:"notification_window_days" validate:"gte=0"`
}

// SECConfig configures the SEC notice.
type SECConfig struct {
	Enabled              bool    `koanf:"enabled"`
	DisclosureDays       int     `koanf:"disclosure_days" validate:"gte=0"`
	MaterialityThreshold float64 `koanf:"materiality_threshold" validate:"gte=0"`
}

// MetricsConfig configures metrics output.
type MetricsConfig struct {
	// Textfile is written in the Prometheus text format on exit when set.
	Textfile string `koanf:"textfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Driver: DriverSQLite,
			SQLite: SQLiteConfig{Path: defaultSQLitePath()},
			Postgres: DatabaseConfig{
				MaxOpenConns:    5,
				MaxIdleConns:    1,
				ConnMaxLifetime: 30 * time.Minute,
				ConnectTimeout:  30 * time.Second,
				ConnectAttempts: 3,
			},
		},
		History: HistoryConfig{Retention: 50},
		SLAs: map[string]int{
			string(domain.SeverityS0): 15,
			string(domain.SeverityS1): 30,
			string(domain.SeverityS2): 60,
			string(domain.SeverityS3): 120,
		},
		Fields: FieldsConfig{
			NameMin:          5,
			NameMax:          100,
			ImpactSummaryMin: 20,
			ImpactSummaryMax: 500,
		},
		Jurisdictions: JurisdictionsConfig{
			GDPR: GDPRConfig{Enabled: true, NotificationWindowHours: 72},
			CCPA: CCPAConfig{Enabled: false},
			SEC:  SECConfig{Enabled: false, DisclosureDays: 4, MaterialityThreshold: 100000},
		},
	}
}

func defaultSQLitePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "incident-comms.db"
	}
	return filepath.Join(dir, "incident-comms", "comms.db")
}

// Load reads path (optional) and then the environment over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.SLAs = normalizeSLAs(cfg.SLAs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps COMMS_STORE__SQLITE__PATH to store.sqlite.path.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// normalizeSLAs upper-cases severity keys. Environment keys arrive lower
// case and override the stock upper case entries.
func normalizeSLAs(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		if k == strings.ToUpper(k) {
			out[k] = v
		}
	}
	for k, v := range in {
		if k != strings.ToUpper(k) {
			out[strings.ToUpper(k)] = v
		}
	}
	return out
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Store.Postgres.URL == "" {
			errs = append(errs, errors.New("store.postgres.url is required for the postgres driver"))
		}
	}
	for severity := range c.SLAs {
		if !domain.IncidentSeverity(severity).IsValid() {
			errs = append(errs, fmt.Errorf("slas: unknown severity %q", severity))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
