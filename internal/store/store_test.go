package store

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/i474232898/surf-forecast/internal/surf"
)

var blacks = surf.Location{Name: "Blacks", Lat: 32.85, Lng: -117.25}

func report(id string, at time.Time) surf.Report {
	return surf.Report{
		ID:        id,
		Location:  blacks,
		Source:    surf.SourceSpitcast,
		SpotName:  "Blacks",
		SpotID:    "229",
		FetchedAt: at,
		Days: []surf.DailyForecastSummary{{
			Date:          at.Format("2006-01-02"),
			WaveHeightMin: 3,
			WaveHeightMax: 5,
			Rating:        surf.RatingGood,
			Shape:         surf.ShapeGood,
			Source:        surf.SourceSpitcast,
			SpotName:      "Blacks",
			SpotID:        "229",
		}},
	}
}

func stores(t *testing.T, maxHistory int, maxAge time.Duration, now func() time.Time) map[string]surf.Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "reports.db"), maxHistory, maxAge)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	mem := NewMemoryStore(maxHistory, maxAge)
	if now != nil {
		sqlite.now = now
		mem.now = now
	}
	return map[string]surf.Store{
		"memory": mem,
		"sqlite": sqlite,
	}
}

func TestStoreLatestAndRange(t *testing.T) {
	base := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)

	for name, s := range stores(t, 0, 0, nil) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.GetLatest(blacks); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetLatest on empty store err = %v", err)
			}

			for i, id := range []string{"a", "b", "c"} {
				if err := s.SaveReport(report(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
					t.Fatalf("SaveReport: %v", err)
				}
			}

			latest, err := s.GetLatest(surf.Location{Name: " BLACKS "})
			if err != nil {
				t.Fatalf("GetLatest: %v", err)
			}
			if !reflect.DeepEqual(latest, report("c", base.Add(2*time.Hour))) {
				t.Errorf("latest = %+v", latest)
			}

			got, err := s.GetRange(blacks, base.Add(time.Hour), base.Add(2*time.Hour))
			if err != nil {
				t.Fatalf("GetRange: %v", err)
			}
			if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
				t.Errorf("range = %v", got)
			}

			if _, err := s.GetRange(blacks, base.Add(-2*time.Hour), base.Add(-time.Hour)); !errors.Is(err, ErrNotFound) {
				t.Errorf("empty range err = %v", err)
			}
		})
	}
}

func TestStoreRetentionByCount(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for name, s := range stores(t, 2, 0, nil) {
		t.Run(name, func(t *testing.T) {
			for i, id := range []string{"a", "b", "c"} {
				if err := s.SaveReport(report(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
					t.Fatalf("SaveReport: %v", err)
				}
			}

			got, err := s.GetRange(blacks, base, base.Add(24*time.Hour))
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
				t.Errorf("retained = %v", got)
			}
		})
	}
}

func TestStoreRetentionByAge(t *testing.T) {
	now := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	for name, s := range stores(t, 0, 24*time.Hour, clock) {
		t.Run(name, func(t *testing.T) {
			s.SaveReport(report("old", now.Add(-48*time.Hour)))
			s.SaveReport(report("new", now.Add(-time.Hour)))

			got, err := s.GetRange(blacks, now.Add(-72*time.Hour), now)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 || got[0].ID != "new" {
				t.Errorf("retained = %v", got)
			}

			// The report just saved survives even when it is itself too old.
			s.SaveReport(report("stale", now.Add(-30*time.Hour)))
			got, _ = s.GetRange(blacks, now.Add(-72*time.Hour), now)
			ids := make(map[string]bool)
			for _, r := range got {
				ids[r.ID] = true
			}
			if !ids["stale"] || !ids["new"] || len(got) != 2 {
				t.Errorf("retained = %v, want new and stale", got)
			}
		})
	}
}
