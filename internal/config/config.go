package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/precip-map/internal/domain"
)

// Config holds all settings, populated from environment variables.
type Config struct {
	// Asset service.
	InsightBaseURL    string
	InsightAppID      string
	InsightAppKey     string
	InsightTimeout    time.Duration
	InsightMaxRetries int
	InsightCacheSize  int

	// Precipitation query window.
	Window domain.Window

	// Map document.
	MapAPIKey    string
	MapCenterLat float64
	MapCenterLon float64
	MapZoom      int
	MapType      string
	MapTitle     string
	ColorScale   domain.ColorScale

	// File hand-offs.
	DataDir        string
	GeoJSONPattern string
	ManifestPath   string
	AssetDataPath  string
	OutputPath     string

	// Optional Kafka sink for loaded records.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool

	PushgatewayURL  string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// LoadDotEnv loads variables from the given .env files (default ".env") into
// the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	insightTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("INSIGHT_TIMEOUT", "10s"))
	if err != nil || insightTimeout <= 0 {
		return nil, errors.New("invalid INSIGHT_TIMEOUT")
	}

	maxRetries, err := strconv.Atoi(sharedcfg.EnvOrDefault("INSIGHT_MAX_RETRIES", "3"))
	if err != nil || maxRetries < 0 || maxRetries > 10 {
		return nil, errors.New("invalid INSIGHT_MAX_RETRIES: must be between 0 and 10")
	}

	window, err := domain.ParseWindow(
		sharedcfg.EnvOrDefault("PRECIP_START", "2016-04-01"),
		sharedcfg.EnvOrDefault("PRECIP_END", "2016-06-30"),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid PRECIP_START/PRECIP_END: %w", err)
	}

	centerLat, err := parseFloatEnv("MAP_CENTER_LAT", "35.0078", -90, 90)
	if err != nil {
		return nil, err
	}
	centerLon, err := parseFloatEnv("MAP_CENTER_LON", "-99.0929", -180, 180)
	if err != nil {
		return nil, err
	}

	zoom, err := strconv.Atoi(sharedcfg.EnvOrDefault("MAP_ZOOM", "6"))
	if err != nil || zoom < 0 || zoom > 22 {
		return nil, errors.New("invalid MAP_ZOOM: must be between 0 and 22")
	}

	mapType := sharedcfg.EnvOrDefault("MAP_TYPE", "satellite")
	if !validMapType(mapType) {
		return nil, fmt.Errorf("invalid MAP_TYPE %q", mapType)
	}

	scale := domain.DefaultColorScale()
	if v := os.Getenv("COLOR_THRESHOLDS"); v != "" {
		scale, err = domain.ParseColorScale(v)
		if err != nil {
			return nil, fmt.Errorf("invalid COLOR_THRESHOLDS: %w", err)
		}
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		InsightBaseURL:    sharedcfg.EnvOrDefault("INSIGHT_BASE_URL", "https://insight.api.wdtinc.com"),
		InsightAppID:      os.Getenv("INSIGHT_APP_ID"),
		InsightAppKey:     os.Getenv("INSIGHT_APP_KEY"),
		InsightTimeout:    insightTimeout,
		InsightMaxRetries: maxRetries,
		InsightCacheSize:  parseCacheSize(),

		Window: window,

		MapAPIKey:    os.Getenv("MAP_API_KEY"),
		MapCenterLat: centerLat,
		MapCenterLon: centerLon,
		MapZoom:      zoom,
		MapType:      mapType,
		MapTitle:     sharedcfg.EnvOrDefault("MAP_TITLE", "Oklahoma Precipitation"),
		ColorScale:   scale,

		DataDir:        sharedcfg.EnvOrDefault("DATA_DIR", "./data"),
		GeoJSONPattern: sharedcfg.EnvOrDefault("GEOJSON_PATTERN", "*geo.json"),
		ManifestPath:   sharedcfg.EnvOrDefault("MANIFEST_PATH", "asset_ids.json"),
		AssetDataPath:  sharedcfg.EnvOrDefault("ASSET_DATA_PATH", "asset_data.json"),
		OutputPath:     sharedcfg.EnvOrDefault("OUTPUT_PATH", "county_map.html"),

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "precipitation-data"),
		KafkaEnabled: len(brokers) > 0,

		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.InsightBaseURL == "" {
		return nil, errors.New("INSIGHT_BASE_URL is required")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

// RequireInsightCredentials reports a missing asset service credential.
// Only commands that call the service need it.
func (c *Config) RequireInsightCredentials() error {
	if c.InsightAppID == "" || c.InsightAppKey == "" {
		return errors.New("INSIGHT_APP_ID and INSIGHT_APP_KEY are required")
	}
	return nil
}

func parseFloatEnv(key, def string, lo, hi float64) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("invalid %s: must be between %g and %g", key, lo, hi)
	}
	return v, nil
}

func parseCacheSize() int {
	if s := os.Getenv("INSIGHT_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func validMapType(t string) bool {
	switch t {
	case "satellite", "roadmap", "terrain", "hybrid":
		return true
	default:
		return false
	}
}
