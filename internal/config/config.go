// Package config loads the application configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"nyc-taxi-lab/internal/domain"
)

// DataConfig locates the raw sources and the clean artifact.
type DataConfig struct {
	Month      string `yaml:"month" validate:"required"`
	TripsURL   string `yaml:"tripsURL" validate:"required,url"`
	ZonesURL   string `yaml:"zonesURL" validate:"required,url"`
	RawDir     string `yaml:"rawDir" validate:"required"`
	ProcessDir string `yaml:"processedDir" validate:"required"`
	TripsFile  string `yaml:"tripsFile" validate:"required"`
	ZonesFile  string `yaml:"zonesFile" validate:"required"`
	CleanFile  string `yaml:"cleanFile" validate:"required"`
}

// TripsPath is the local raw trip file.
func (d DataConfig) TripsPath() string {
	return filepath.Join(d.RawDir, d.TripsFile)
}

// ZonesPath is the local zone lookup file.
func (d DataConfig) ZonesPath() string {
	return filepath.Join(d.RawDir, d.ZonesFile)
}

// CleanPath is the clean artifact location.
func (d DataConfig) CleanPath() string {
	return filepath.Join(d.ProcessDir, d.CleanFile)
}

// TargetMonth parses Month.
func (d DataConfig) TargetMonth() (domain.Month, error) {
	return domain.ParseMonth(d.Month)
}

// FetchConfig controls source downloads.
type FetchConfig struct {
	ChunkSize int `yaml:"chunkSize" validate:"gt=0"`
	TimeoutMS int `yaml:"timeoutMS" validate:"gte=0"`
}

// Timeout returns TimeoutMS as a duration; zero means no timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutMS) * time.Millisecond
}

// ServerConfig configures the dashboard API.
type ServerConfig struct {
	Port           int   `yaml:"port" validate:"gt=0,lte=65535"`
	BuildMissing   bool  `yaml:"buildMissing"`
	MaxUploadBytes int64 `yaml:"maxUploadBytes" validate:"gt=0"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// StorageConfig holds the optional sink DSNs.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgresDSN"`
	ClickHouseDSN string `yaml:"clickhouseDSN"`
	BatchSize     int    `yaml:"batchSize" validate:"gt=0"`
}

// ReportConfig names the report outputs.
type ReportConfig struct {
	OutputDir    string   `yaml:"outputDir" validate:"required"`
	StatsColumns []string `yaml:"statsColumns"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Data    DataConfig    `yaml:"data" validate:"required"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Report  ReportConfig  `yaml:"report"`
}

// Default returns the configuration used when no file is given.
func Default() AppConfig {
	return AppConfig{
		Data: DataConfig{
			Month:      "2024-01",
			TripsURL:   "https://d37ci6vzurychx.cloudfront.net/trip-data/yellow_tripdata_2024-01.parquet",
			ZonesURL:   "https://d37ci6vzurychx.cloudfront.net/misc/taxi_zone_lookup.csv",
			RawDir:     filepath.Join("data", "raw"),
			ProcessDir: filepath.Join("data", "processed"),
			TripsFile:  "yellow_tripdata_2024-01.parquet",
			ZonesFile:  "taxi_zone_lookup.csv",
			CleanFile:  "yellow_2024_01_clean.parquet",
		},
		Fetch: FetchConfig{
			ChunkSize: 8192,
			TimeoutMS: 0,
		},
		Server: ServerConfig{
			Port:           8080,
			MaxUploadBytes: 200 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			BatchSize: 10000,
		},
		Report: ReportConfig{
			OutputDir: ".",
			StatsColumns: []string{
				domain.ColFareAmount,
				domain.ColTripDistance,
				domain.ColTipAmount,
				domain.ColTotalAmount,
				domain.ColTripDurationMinutes,
				domain.ColTripSpeedMph,
				domain.ColPassengerCount,
			},
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Missing DSNs are taken from POSTGRES_DSN and CLICKHOUSE_DSN.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.Storage.PostgresDSN == "" {
		cfg.Storage.PostgresDSN = os.Getenv("POSTGRES_DSN")
	}
	if cfg.Storage.ClickHouseDSN == "" {
		cfg.Storage.ClickHouseDSN = os.Getenv("CLICKHOUSE_DSN")
	}

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and the target month.
func Validate(cfg AppConfig) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Data.TargetMonth(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
