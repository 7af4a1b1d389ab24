package surf

import (
	"context"
	"time"
)

// SpotForecaster is the Spitcast-style contract: failures degrade to an empty
// result instead of an error.
type SpotForecaster interface {
	Spots(ctx context.Context) []Spot
	ForecastByCoords(ctx context.Context, lat, lng float64) ([]DailyForecastSummary, bool)
	ForecastByName(ctx context.Context, name string) ([]DailyForecastSummary, bool)
}

// PointForecaster is the Stormglass-style contract: failures are returned to
// the caller.
type PointForecaster interface {
	FetchForecast(ctx context.Context, lat, lng float64, days int) ([]DailyForecastSummary, error)
	APIUsage(ctx context.Context) (APIUsage, bool)
	Configured() bool
}

// Geocoder resolves a free-form place name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (lat, lng float64, err error)
}

// Store is the contract the report stores must satisfy.
type Store interface {
	SaveReport(report Report) error
	GetLatest(loc Location) (Report, error)
	GetRange(loc Location, from, to time.Time) ([]Report, error)
}
