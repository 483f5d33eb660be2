package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	City   string       `yaml:"city" mapstructure:"city"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Build  BuildConfig  `yaml:"build" mapstructure:"build"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the snapshot database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DataConfig points at the local input files.
type DataConfig struct {
	Dir        string           `yaml:"dir" mapstructure:"dir"`
	Mapping    string           `yaml:"mapping" mapstructure:"mapping"`
	Boundaries BoundariesConfig `yaml:"boundaries" mapstructure:"boundaries"`
	Datasets   []DatasetConfig  `yaml:"datasets" mapstructure:"datasets"`
	Overlays   OverlaysConfig   `yaml:"overlays" mapstructure:"overlays"`
	Output     string           `yaml:"output" mapstructure:"output"`
}

// BoundariesConfig selects and parameterizes the zone boundary source.
type BoundariesConfig struct {
	Format             string `yaml:"format" mapstructure:"format"`
	Path               string `yaml:"path" mapstructure:"path"`
	IDProperty         string `yaml:"id_property" mapstructure:"id_property"`
	NameProperty       string `yaml:"name_property" mapstructure:"name_property"`
	PopulationProperty string `yaml:"population_property" mapstructure:"population_property"`
}

// DatasetConfig describes one point-feature CSV dataset.
type DatasetConfig struct {
	Category   string            `yaml:"category" mapstructure:"category"`
	Path       string            `yaml:"path" mapstructure:"path"`
	LatColumn  string            `yaml:"lat_column" mapstructure:"lat_column"`
	LonColumn  string            `yaml:"lon_column" mapstructure:"lon_column"`
	NameColumn string            `yaml:"name_column" mapstructure:"name_column"`
	AttrCols   map[string]string `yaml:"attr_columns" mapstructure:"attr_columns"`
	Years      float64           `yaml:"years" mapstructure:"years"`
}

// OverlaysConfig points at the per-neighbourhood overlay tables.
// SampleHealth opts in to seeded stand-in health indicators when no health
// table is available; left off, absent health data stays null.
type OverlaysConfig struct {
	Indices      string `yaml:"indices" mapstructure:"indices"`
	Health       string `yaml:"health" mapstructure:"health"`
	Commute      string `yaml:"commute" mapstructure:"commute"`
	ZoneAttrs    string `yaml:"zone_attrs" mapstructure:"zone_attrs"`
	SampleHealth bool   `yaml:"sample_health" mapstructure:"sample_health"`
	HealthSeed   uint64 `yaml:"health_seed" mapstructure:"health_seed"`
}

// FetchConfig configures the dataset download command.
type FetchConfig struct {
	UserAgent   string            `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int               `yaml:"max_attempts" mapstructure:"max_attempts"`
	Concurrency int               `yaml:"concurrency" mapstructure:"concurrency"`
	Sources     map[string]string `yaml:"sources" mapstructure:"sources"`
}

// BuildConfig configures the scoring build.
type BuildConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LIVEABILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("city", "ottawa")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "liveability.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.mapping", "data/neighbourhoods.yaml")
	v.SetDefault("data.output", "data/out/liveability.json")
	v.SetDefault("data.boundaries.format", "geojson")
	v.SetDefault("data.boundaries.id_property", "ONS_ID")
	v.SetDefault("data.boundaries.name_property", "NAME")
	v.SetDefault("data.boundaries.population_property", "POPULATION")
	v.SetDefault("fetch.user_agent", "liveability-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_attempts", 4)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("build.concurrency", 8)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
