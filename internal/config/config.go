package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/i474232898/surf-forecast/internal/surf"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type AppConfig struct {
	StormglassAPIKey string
	GeocoderAPIKey   string

	// Upstream overrides, empty means the public endpoint.
	SpitcastBaseURL   string
	StormglassBaseURL string

	SpotCacheTTL time.Duration
	HTTPTimeout  time.Duration

	// FetchInterval controls how often we refresh each location.
	FetchInterval time.Duration

	// Locations to track.
	Locations []surf.Location

	SpitcastDays   int
	StormglassDays int

	StoreDriver     string
	SQLitePath      string
	StoreMaxHistory int           // max number of reports per location (0 = unlimited)
	StoreMaxAge     time.Duration // max age of reports (0 = unlimited)

	LogLevel zapcore.Level

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.StormglassAPIKey = os.Getenv("STORMGLASS_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")
	cfg.SpitcastBaseURL = os.Getenv("SPITCAST_BASE_URL")
	cfg.StormglassBaseURL = os.Getenv("STORMGLASS_BASE_URL")

	if cfg.SpotCacheTTL, err = getenvDuration("SPOT_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", 60*time.Minute); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", 72*time.Hour); err != nil {
		return nil, err
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 48) // two days at hourly refresh
	cfg.SpitcastDays = getenvInt("SPITCAST_DAYS", 7)
	cfg.StormglassDays = getenvInt("STORMGLASS_DAYS", 14)
	if cfg.StormglassDays < 1 || cfg.StormglassDays > 14 {
		return nil, fmt.Errorf("invalid STORMGLASS_DAYS %d: must be between 1 and 14", cfg.StormglassDays)
	}

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", StoreMemory))
	if cfg.StoreDriver != StoreMemory && cfg.StoreDriver != StoreSQLite {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: use %s or %s", cfg.StoreDriver, StoreMemory, StoreSQLite)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "data/surf-forecast.db")

	if cfg.LogLevel, err = zapcore.ParseLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg.Port = getenvDefault("PORT", "8080")

	locs, err := loadLocations()
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

func loadLocations() ([]surf.Location, error) {
	names := splitList(os.Getenv("SURF_LOCATION_NAMES"))
	lats := splitList(os.Getenv("SURF_LOCATION_LATS"))
	lngs := splitList(os.Getenv("SURF_LOCATION_LNGS"))
	if len(names) != len(lats) || len(names) != len(lngs) {
		return nil, fmt.Errorf("number of location names, latitudes and longitudes must be the same")
	}

	var locs []surf.Location
	for i := range names {
		lat, err := strconv.ParseFloat(lats[i], 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("invalid latitude %q for %s", lats[i], names[i])
		}
		lng, err := strconv.ParseFloat(lngs[i], 64)
		if err != nil || lng < -180 || lng > 180 {
			return nil, fmt.Errorf("invalid longitude %q for %s", lngs[i], names[i])
		}
		locs = append(locs, surf.Location{
			Name: names[i],
			Lat:  lat,
			Lng:  lng,
		})
	}

	return locs, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
