package surf

import (
	"strings"
	"time"
)

// Rating is a coarse qualitative bucket summarizing surf quality for a day.
type Rating string

const (
	RatingPoor Rating = "poor"
	RatingFair Rating = "fair"
	RatingGood Rating = "good"
	RatingEpic Rating = "epic"
)

// Shape is the descriptive label derived from Spitcast's hourly shape score.
type Shape string

const (
	ShapePoor Shape = "Poor"
	ShapeFair Shape = "Fair"
	ShapeGood Shape = "Good"
	ShapeEpic Shape = "Epic"
)

// Source identifies which provider produced a record.
type Source string

const (
	SourceSpitcast   Source = "spitcast"
	SourceStormglass Source = "stormglass"
)

// Spot is a named, geolocated surf break from the Spitcast directory.
// Spots are replaced wholesale on directory refresh and never mutated.
type Spot struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	CountyID      string  `json:"countyId,omitempty"`
	Lng           float64 `json:"lng"`
	Lat           float64 `json:"lat"`
	StreetAddress string  `json:"streetAddress,omitempty"`
}

// DailyForecastSummary is the normalized per-day output both providers populate.
type DailyForecastSummary struct {
	Date           string `json:"date"` // YYYY-MM-DD in the provider's framing
	WaveHeightMin  int    `json:"waveHeightMin"`
	WaveHeightMax  int    `json:"waveHeightMax"`
	Rating         Rating `json:"rating"`
	WindDirection  string `json:"windDirection,omitempty"`
	WindSpeed      int    `json:"windSpeed,omitempty"` // knots
	SwellDirection string `json:"swellDirection,omitempty"`
	SwellPeriod    int    `json:"swellPeriod,omitempty"` // seconds
	Source         Source `json:"source"`

	// Spitcast only.
	Shape    Shape  `json:"shape,omitempty"`
	SpotName string `json:"spotName,omitempty"`
	SpotID   string `json:"spotId,omitempty"`
}

// Location is a place the service tracks forecasts for.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return strings.ToLower(strings.TrimSpace(l.Name))
}

// Report is one stored forecast fetch for a tracked location.
type Report struct {
	ID        string                 `json:"id"`
	Location  Location               `json:"location"`
	Source    Source                 `json:"source"`
	SpotName  string                 `json:"spotName,omitempty"`
	SpotID    string                 `json:"spotId,omitempty"`
	FetchedAt time.Time              `json:"fetchedAt"` // always UTC
	Days      []DailyForecastSummary `json:"days"`
}

// APIUsage is the quota metadata reported by Stormglass.
type APIUsage struct {
	RequestCount int `json:"requestCount"`
	DailyQuota   int `json:"dailyQuota"`
}
