// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Clean    CleanConfig    `yaml:"clean" mapstructure:"clean"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	OSM      OSMConfig      `yaml:"osm" mapstructure:"osm"`
	Mirror   MirrorConfig   `yaml:"mirror" mapstructure:"mirror"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PathsConfig holds the default input and output locations.
type PathsConfig struct {
	Input        string `yaml:"input" mapstructure:"input"`
	CleanOutput  string `yaml:"clean_output" mapstructure:"clean_output"`
	SecretOutput string `yaml:"secret_output" mapstructure:"secret_output"`
	Manifest     string `yaml:"manifest" mapstructure:"manifest"`
	CheckpointDB string `yaml:"checkpoint_db" mapstructure:"checkpoint_db"`
	TempDir      string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// CleanConfig configures the filtering and resolution passes.
type CleanConfig struct {
	CountryLabels []string `yaml:"country_labels" mapstructure:"country_labels"`
	Concurrency   int      `yaml:"concurrency" mapstructure:"concurrency"`
}

// GeocodeConfig configures the provider cascade.
type GeocodeConfig struct {
	GoogleKey        string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	NominatimBaseURL string  `yaml:"nominatim_base_url" mapstructure:"nominatim_base_url"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	CensusRPS        float64 `yaml:"census_rps" mapstructure:"census_rps"`
	GoogleRPS        float64 `yaml:"google_rps" mapstructure:"google_rps"`
	NominatimRPS     float64 `yaml:"nominatim_rps" mapstructure:"nominatim_rps"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLDays     int     `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// BoundaryConfig configures the state boundary layer.
type BoundaryConfig struct {
	ShapefileURL  string `yaml:"shapefile_url" mapstructure:"shapefile_url"`
	ShapefilePath string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
}

// OSMConfig configures the OSM building-history enrichment stage.
type OSMConfig struct {
	OverpassURL   string   `yaml:"overpass_url" mapstructure:"overpass_url"`
	APIBase       string   `yaml:"api_base" mapstructure:"api_base"`
	RadiusSteps   []int    `yaml:"radius_steps" mapstructure:"radius_steps"`
	GenericAllow  []string `yaml:"generic_allow" mapstructure:"generic_allow"`
	RequireSignal bool     `yaml:"require_signal_for_generic" mapstructure:"require_signal_for_generic"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	OverpassRPS   float64  `yaml:"overpass_rps" mapstructure:"overpass_rps"`
	HistoryRPS    float64  `yaml:"history_rps" mapstructure:"history_rps"`
}

// MirrorConfig configures the optional Postgres mirror.
type MirrorConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
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
	v.SetEnvPrefix("DCATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("paths.clean_output", "datacenters_clean.csv")
	v.SetDefault("paths.secret_output", "datacenters_secret.csv")
	v.SetDefault("paths.manifest", "run_manifest.yaml")
	v.SetDefault("paths.checkpoint_db", "dcatlas.db")
	v.SetDefault("paths.temp_dir", "/tmp/dcatlas")
	v.SetDefault("clean.country_labels", []string{"us", "usa", "united states", "united states of america"})
	v.SetDefault("clean.concurrency", 4)
	v.SetDefault("geocode.nominatim_base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "dcatlas/1.0 (datacenter geolocation research)")
	v.SetDefault("geocode.census_rps", 10)
	v.SetDefault("geocode.google_rps", 25)
	v.SetDefault("geocode.nominatim_rps", 1)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("geocode.cache_ttl_days", 30)
	v.SetDefault("boundary.shapefile_url", "https://www2.census.gov/geo/tiger/TIGER2024/STATE/tl_2024_us_state.zip")
	v.SetDefault("osm.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("osm.api_base", "https://api.openstreetmap.org/api/0.6")
	v.SetDefault("osm.radius_steps", []int{50, 100, 200})
	v.SetDefault("osm.generic_allow", []string{"yes"})
	v.SetDefault("osm.timeout_secs", 90)
	v.SetDefault("osm.overpass_rps", 2)
	v.SetDefault("osm.history_rps", 1)
	v.SetDefault("mirror.schema", "dcatlas")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
