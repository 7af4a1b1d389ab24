package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/surf-forecast/internal/surf"
)

type recordingRefresher struct {
	mu        sync.Mutex
	spotCalls int
	fetched   []string
}

func (r *recordingRefresher) Spots(context.Context) []surf.Spot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spotCalls++
	return nil
}

func (r *recordingRefresher) FetchAndStore(_ context.Context, loc surf.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetched = append(r.fetched, loc.Key())
	if loc.Name == "Flat" {
		return surf.ErrNoForecastData
	}
	if loc.Name == "Broken" {
		return errors.New("store down")
	}
	return nil
}

func TestRunOnceRefreshesEveryLocation(t *testing.T) {
	r := &recordingRefresher{}
	locs := []surf.Location{{Name: "Blacks"}, {Name: "Flat"}, {Name: "Broken"}}
	s := New(locs, time.Hour, r, nil)

	s.RunOnce()

	if r.spotCalls != 1 {
		t.Errorf("spot directory warmed %d times, want 1", r.spotCalls)
	}
	sort.Strings(r.fetched)
	want := []string{"blacks", "broken", "flat"}
	if len(r.fetched) != len(want) {
		t.Fatalf("fetched = %v", r.fetched)
	}
	for i := range want {
		if r.fetched[i] != want[i] {
			t.Errorf("fetched = %v, want %v", r.fetched, want)
		}
	}
}

func TestStartWithoutLocations(t *testing.T) {
	r := &recordingRefresher{}
	s := New(nil, time.Hour, r, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	if r.spotCalls != 0 || len(r.fetched) != 0 {
		t.Error("nothing should run without locations")
	}
}
