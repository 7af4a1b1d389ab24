package surf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoForecastData is returned when no provider produced any daily summary.
	ErrNoForecastData = errors.New("no forecast data available")
	// ErrGeocoderUnavailable is returned by name lookups when no geocoder is wired.
	ErrGeocoderUnavailable = errors.New("geocoder not configured")
)

// Service orchestrates the forecast providers and the report store.
type Service struct {
	store      Store
	spitcast   SpotForecaster
	stormglass PointForecaster
	geocoder   Geocoder
	logger     *zap.Logger
	now        func() time.Time

	stormglassDays int
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithGeocoder enables name lookups for the Stormglass path.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithStormglassDays sets the horizon used by FetchAndStore for Stormglass.
func WithStormglassDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.stormglassDays = days
		}
	}
}

// WithClock overrides the wall clock used to stamp reports.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service. Either provider may be nil.
func NewService(store Store, spitcast SpotForecaster, stormglass PointForecaster, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:          store,
		spitcast:       spitcast,
		stormglass:     stormglass,
		logger:         logger,
		now:            time.Now,
		stormglassDays: 14,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Spots returns the Spitcast spot directory, empty when unknown.
func (s *Service) Spots(ctx context.Context) []Spot {
	if s.spitcast == nil {
		return nil
	}
	return s.spitcast.Spots(ctx)
}

// SpitcastByCoords resolves the nearest spot and returns its daily forecast.
// false means "try again later", never a hard error.
func (s *Service) SpitcastByCoords(ctx context.Context, lat, lng float64) ([]DailyForecastSummary, bool) {
	if s.spitcast == nil {
		return nil, false
	}
	days, ok := s.spitcast.ForecastByCoords(ctx, lat, lng)
	if !ok || len(days) == 0 {
		return nil, false
	}
	return days, true
}

// SpitcastByName resolves a spot by fuzzy name and returns its daily forecast.
func (s *Service) SpitcastByName(ctx context.Context, name string) ([]DailyForecastSummary, bool) {
	if s.spitcast == nil {
		return nil, false
	}
	days, ok := s.spitcast.ForecastByName(ctx, name)
	if !ok || len(days) == 0 {
		return nil, false
	}
	return days, true
}

// StormglassByCoords returns the aggregated Stormglass forecast for a point.
func (s *Service) StormglassByCoords(ctx context.Context, lat, lng float64, days int) ([]DailyForecastSummary, error) {
	if s.stormglass == nil {
		return nil, fmt.Errorf("stormglass provider not configured")
	}
	if days <= 0 {
		days = s.stormglassDays
	}
	return s.stormglass.FetchForecast(ctx, lat, lng, days)
}

// StormglassByName geocodes name and returns the Stormglass forecast there.
func (s *Service) StormglassByName(ctx context.Context, name string, days int) ([]DailyForecastSummary, error) {
	if s.geocoder == nil {
		return nil, ErrGeocoderUnavailable
	}
	lat, lng, err := s.geocoder.Geocode(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", name, err)
	}
	return s.StormglassByCoords(ctx, lat, lng, days)
}

// StormglassUsage reports the Stormglass quota. Each call consumes quota.
func (s *Service) StormglassUsage(ctx context.Context) (APIUsage, bool) {
	if s.stormglass == nil {
		return APIUsage{}, false
	}
	return s.stormglass.APIUsage(ctx)
}

// FetchAndStore fetches a forecast for loc, preferring Spitcast and falling
// back to Stormglass, and stores it as a new report. When neither source has
// data the last good report is kept and ErrNoForecastData is returned.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) error {
	log := s.logger.With(zap.String("location", loc.Key()))

	report := Report{
		ID:       uuid.NewString(),
		Location: loc,
	}

	if days, ok := s.SpitcastByCoords(ctx, loc.Lat, loc.Lng); ok {
		report.Source = SourceSpitcast
		report.SpotName = days[0].SpotName
		report.SpotID = days[0].SpotID
		report.Days = days
	} else if s.stormglass != nil && s.stormglass.Configured() {
		log.Debug("spitcast returned no data; trying stormglass")
		days, err := s.stormglass.FetchForecast(ctx, loc.Lat, loc.Lng, s.stormglassDays)
		if err != nil {
			log.Warn("stormglass forecast failed", zap.Error(err))
		} else if len(days) > 0 {
			report.Source = SourceStormglass
			report.Days = days
		}
	}

	if len(report.Days) == 0 {
		log.Info("no forecast data; keeping last good report if any")
		return ErrNoForecastData
	}

	report.FetchedAt = s.now().UTC()
	if err := s.store.SaveReport(report); err != nil {
		return fmt.Errorf("save report for %s: %w", loc.Key(), err)
	}
	log.Debug("stored report",
		zap.String("id", report.ID),
		zap.String("source", string(report.Source)),
		zap.Int("days", len(report.Days)))
	return nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(loc Location) (Report, error) {
	return s.store.GetLatest(loc)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(loc Location, from, to time.Time) ([]Report, error) {
	return s.store.GetRange(loc, from, to)
}
