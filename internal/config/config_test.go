package config

import (
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "FETCH_INTERVAL", "STORE_DRIVER", "STORE_MAX_HISTORY", "STORE_MAX_AGE",
		"SPOT_CACHE_TTL", "HTTP_TIMEOUT", "STORMGLASS_DAYS", "SPITCAST_DAYS", "LOG_LEVEL",
		"SURF_LOCATION_NAMES", "SURF_LOCATION_LATS", "SURF_LOCATION_LNGS",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.FetchInterval != time.Hour || cfg.StoreDriver != StoreMemory {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.SpotCacheTTL != 24*time.Hour || cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("timeouts = %v %v", cfg.SpotCacheTTL, cfg.HTTPTimeout)
	}
	if cfg.StoreMaxHistory != 48 || cfg.StoreMaxAge != 72*time.Hour {
		t.Errorf("retention = %d %v", cfg.StoreMaxHistory, cfg.StoreMaxAge)
	}
	if cfg.SpitcastDays != 7 || cfg.StormglassDays != 14 || cfg.LogLevel != zapcore.InfoLevel {
		t.Errorf("days/level = %d %d %v", cfg.SpitcastDays, cfg.StormglassDays, cfg.LogLevel)
	}
	if len(cfg.Locations) != 0 {
		t.Errorf("locations = %v", cfg.Locations)
	}
}

func TestLoadLocations(t *testing.T) {
	t.Setenv("SURF_LOCATION_NAMES", "Blacks, Pipeline")
	t.Setenv("SURF_LOCATION_LATS", "32.85,21.66")
	t.Setenv("SURF_LOCATION_LNGS", "-117.25, -158.05")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Locations) != 2 {
		t.Fatalf("locations = %v", cfg.Locations)
	}
	if l := cfg.Locations[1]; l.Name != "Pipeline" || l.Lat != 21.66 || l.Lng != -158.05 {
		t.Errorf("second location = %+v", l)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"mismatched lists": {"SURF_LOCATION_LATS", "1,2"},
		"bad interval":     {"FETCH_INTERVAL", "hourly"},
		"bad driver":       {"STORE_DRIVER", "postgres"},
		"days over limit":  {"STORMGLASS_DAYS", "15"},
		"bad level":        {"LOG_LEVEL", "loud"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("SURF_LOCATION_NAMES", "Blacks")
			t.Setenv("SURF_LOCATION_LATS", "32.85")
			t.Setenv("SURF_LOCATION_LNGS", "-117.25")
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}
