package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/surf-forecast/internal/surf"
)

const perLocationTimeout = 60 * time.Second

// Refresher is the part of surf.Service the scheduler drives.
type Refresher interface {
	Spots(ctx context.Context) []surf.Spot
	FetchAndStore(ctx context.Context, loc surf.Location) error
}

// Scheduler periodically refreshes forecast reports for tracked locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	locations []surf.Location
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(locations []surf.Location, interval time.Duration, service Refresher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		locations: locations,
		interval:  interval,
		logger:    logger.Named("scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.logger.Info("no locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().SingletonMode().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce warms the spot directory and refreshes every tracked location.
func (s *Scheduler) RunOnce() {
	s.logger.Info("running forecast refresh job", zap.Int("locations", len(s.locations)))

	warmCtx, cancel := context.WithTimeout(context.Background(), perLocationTimeout)
	spots := s.service.Spots(warmCtx)
	cancel()
	s.logger.Debug("spot directory warmed", zap.Int("spots", len(spots)))

	var wg sync.WaitGroup
	for _, loc := range s.locations {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), perLocationTimeout)
			defer cancel()

			err := s.service.FetchAndStore(ctx, loc)
			switch {
			case errors.Is(err, surf.ErrNoForecastData):
				s.logger.Info("no forecast data", zap.String("location", loc.Key()))
			case err != nil:
				s.logger.Error("refresh failed", zap.String("location", loc.Key()), zap.Error(err))
			}
		}()
	}
	wg.Wait()
	s.logger.Info("completed forecast refresh job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
