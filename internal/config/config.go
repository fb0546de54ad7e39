// Package config loads the YAML configuration for runs and the HTTP service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NSF-Swift/satellite-overhead/internal/antenna"
	"github.com/NSF-Swift/satellite-overhead/internal/engine"
	"github.com/NSF-Swift/satellite-overhead/internal/interference"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/recurrence"
)

// Config is the whole configuration file.
type Config struct {
	Facility    models.Facility       `yaml:"facility"`
	Reservation models.TimeWindow     `yaml:"reservation"`
	Frequency   models.FrequencyRange `yaml:"frequency"`
	Runtime     RuntimeConfig         `yaml:"runtime"`
	Antenna     AntennaConfig         `yaml:"antenna"`
	Recurrence  *recurrence.Rule      `yaml:"recurrence,omitempty"`

	Interference interference.Config `yaml:"interference"`
	Catalog      CatalogConfig       `yaml:"catalog"`
	Logging      LoggingConfig       `yaml:"logging"`
	Storage      StorageConfig       `yaml:"storage"`
	MQTT         MQTTConfig          `yaml:"mqtt"`
	Server       ServerConfig        `yaml:"server"`
}

// RuntimeConfig mirrors engine.RuntimeSettings.
type RuntimeConfig struct {
	Concurrency int           `yaml:"concurrency"`
	Resolution  time.Duration `yaml:"resolution"`
	MinAltitude float64       `yaml:"min_altitude"`
}

// Settings converts to engine settings.
func (r RuntimeConfig) Settings() engine.RuntimeSettings {
	return engine.RuntimeSettings{Concurrency: r.Concurrency, Resolution: r.Resolution, MinAltitude: r.MinAltitude}
}

// AntennaConfig is a pointing selection. TrajectoryFile, resolved relative to
// the config file, is loaded into Trajectory by Load.
type AntennaConfig struct {
	antenna.Pointing `yaml:",inline"`
	TrajectoryFile   string `yaml:"trajectory_file,omitempty"`
}

// CatalogConfig locates element sets and frequency data.
type CatalogConfig struct {
	TLEFile       string   `yaml:"tle_file"`
	FrequencyFile string   `yaml:"frequency_file"`
	SourceURL     string   `yaml:"source_url"`
	ExtraURLs     []string `yaml:"extra_urls"`
	CacheDir      string   `yaml:"cache_dir"`
	MaxFiles      int      `yaml:"max_files"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// StorageConfig locates the run database. An empty path keeps runs in memory.
type StorageConfig struct {
	Path        string `yaml:"path"`
	CacheMaxMiB int64  `yaml:"cache_max_mib"`
}

// MQTTConfig enables publishing of found windows. An empty broker disables it.
type MQTTConfig struct {
	Broker   string        `yaml:"broker"`
	ClientID string        `yaml:"client_id"`
	Topic    string        `yaml:"topic"`
	QoS      byte          `yaml:"qos"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	AuthToken       string        `yaml:"auth_token"`
	TrustProxy      bool          `yaml:"trust_proxy"`
	GracefulTimeout time.Duration `yaml:"graceful_timeout"`
	RunTimeout      time.Duration `yaml:"run_timeout"`
}

// Load reads path (or $SOPP_CONFIG when path is empty), applies SOPP_*
// environment overrides and loads any trajectory file. It does not
// validate; call Validate or ValidateRun.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SOPP_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if f := cfg.Antenna.TrajectoryFile; f != "" {
		if len(cfg.Antenna.Trajectory) > 0 {
			return nil, &engine.ConfigurationError{Field: "antenna", Msg: "trajectory and trajectory_file are mutually exclusive"}
		}
		if !filepath.IsAbs(f) && path != "" {
			f = filepath.Join(filepath.Dir(path), f)
		}
		traj, err := antenna.LoadTrajectory(f)
		if err != nil {
			return nil, &engine.ConfigurationError{Field: "antenna.trajectory_file", Msg: "cannot load", Err: err}
		}
		cfg.Antenna.Trajectory = traj
	}
	return &cfg, nil
}

func defaultConfig() Config {
	defaults := engine.DefaultRuntimeSettings()
	return Config{
		Facility: models.Facility{Name: "HCRO", Beamwidth: models.DefaultBeamwidth},
		Runtime: RuntimeConfig{
			Concurrency: defaults.Concurrency,
			Resolution:  defaults.Resolution,
			MinAltitude: defaults.MinAltitude,
		},
		Catalog: CatalogConfig{
			CacheDir: filepath.Join(os.TempDir(), "sopp", "tle"),
			MaxFiles: 5,
		},
		Logging: LoggingConfig{Level: "info", JSON: true},
		Storage: StorageConfig{CacheMaxMiB: 64},
		MQTT:    MQTTConfig{ClientID: "sopp", Topic: "sopp/windows", QoS: 1, Timeout: 5 * time.Second},
		Server: ServerConfig{
			Address:         ":8080",
			GracefulTimeout: 5 * time.Second,
			RunTimeout:      2 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SOPP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SOPP_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}
	if v := os.Getenv("SOPP_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Runtime.Concurrency = n
		}
	}
	if v := os.Getenv("SOPP_TLE_FILE"); v != "" {
		cfg.Catalog.TLEFile = v
	}
	if v := os.Getenv("SOPP_FREQUENCY_FILE"); v != "" {
		cfg.Catalog.FrequencyFile = v
	}
	if v := os.Getenv("SOPP_TLE_SOURCE_URL"); v != "" {
		cfg.Catalog.SourceURL = v
	}
	if v := os.Getenv("SOPP_TLE_EXTRA_URLS"); v != "" {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		cfg.Catalog.ExtraURLs = urls
	}
	if v := os.Getenv("SOPP_TLE_CACHE_DIR"); v != "" {
		cfg.Catalog.CacheDir = v
	}
	if v := os.Getenv("SOPP_STORE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("SOPP_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("SOPP_MQTT_TOPIC"); v != "" {
		cfg.MQTT.Topic = v
	}
	if v := os.Getenv("SOPP_HTTP_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("SOPP_AUTH_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}
	if v := os.Getenv("SOPP_TRUST_PROXY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Server.TrustProxy = b
		}
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if err := ValidateFacility(c.Facility); err != nil {
		return err
	}
	if err := c.Runtime.Settings().Validate(); err != nil {
		return err
	}
	if c.MQTT.Broker != "" && c.MQTT.QoS > 2 {
		return &engine.ConfigurationError{Field: "mqtt.qos", Msg: "must be 0, 1 or 2"}
	}
	if _, err := interference.New(c.Interference); err != nil {
		return &engine.ConfigurationError{Field: "interference", Msg: "invalid strategy", Err: err}
	}
	if c.Catalog.MaxFiles < 0 {
		return &engine.ConfigurationError{Field: "catalog.max_files", Msg: "must not be negative"}
	}
	return nil
}

// ValidateRun additionally checks the reservation and antenna sections
// required by a one-shot run.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Reservation.Begin.IsZero() || !c.Reservation.End.After(c.Reservation.Begin) {
		return &engine.ConfigurationError{Field: "reservation", Msg: "end must be after begin"}
	}
	if c.Frequency.Bandwidth < 0 {
		return &engine.ConfigurationError{Field: "frequency.bandwidth", Msg: "must not be negative"}
	}
	if err := c.Antenna.Pointing.Validate(); err != nil {
		return err
	}
	if c.Recurrence != nil {
		if err := c.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFacility checks coordinates and beamwidth.
func ValidateFacility(f models.Facility) error {
	if f.Coordinates.Latitude < -90 || f.Coordinates.Latitude > 90 {
		return &engine.ConfigurationError{Field: "facility.coordinates.latitude", Msg: "must be within [-90, 90]"}
	}
	if f.Coordinates.Longitude < -180 || f.Coordinates.Longitude > 180 {
		return &engine.ConfigurationError{Field: "facility.coordinates.longitude", Msg: "must be within [-180, 180]"}
	}
	if f.Beamwidth <= 0 || f.Beamwidth > 360 {
		return &engine.ConfigurationError{Field: "facility.beamwidth", Msg: "must be within (0, 360]"}
	}
	return nil
}

// BaseReservation assembles the reservation described by the file.
func (c *Config) BaseReservation() models.Reservation {
	return models.Reservation{Facility: c.Facility, Window: c.Reservation, Frequency: c.Frequency}
}
