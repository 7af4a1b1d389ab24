package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/surf-forecast/internal/common"
	"github.com/i474232898/surf-forecast/internal/surf"
)

const (
	// DefaultSpitcastDays is the default per-spot forecast horizon.
	DefaultSpitcastDays = 7

	// maxSpotDistance is the nearest-spot cutoff in raw degrees.
	maxSpotDistance = 0.1

	// defaultShape stands in for missing or unparseable hourly shape values.
	defaultShape = 0.5

	dayFetchLimit = 4
)

// SpitcastProvider is the Spitcast adapter. Every failure degrades to an
// empty result; nothing here returns an error to the caller.
type SpitcastProvider struct {
	name    string
	baseURL string
	days    int
	httpCfg HTTPClientConfig
	cache   *SpotCache
	now     func() time.Time
	logger  *zap.Logger

	// The directory and the per-day endpoints trip independently.
	spotCircuit *gobreaker.CircuitBreaker
	dayCircuit  *gobreaker.CircuitBreaker
}

// SpitcastOption customizes a SpitcastProvider.
type SpitcastOption func(*SpitcastProvider)

// WithSpitcastBaseURL points the adapter at a different host.
func WithSpitcastBaseURL(u string) SpitcastOption {
	return func(p *SpitcastProvider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithSpitcastDays sets the horizon used by ForecastByCoords/ForecastByName.
func WithSpitcastDays(days int) SpitcastOption {
	return func(p *SpitcastProvider) {
		if days > 0 {
			p.days = days
		}
	}
}

// WithSpotCache injects the spot directory cache.
func WithSpotCache(c *SpotCache) SpitcastOption {
	return func(p *SpitcastProvider) { p.cache = c }
}

// WithSpitcastClock overrides the clock used to pick forecast dates.
func WithSpitcastClock(now func() time.Time) SpitcastOption {
	return func(p *SpitcastProvider) { p.now = now }
}

func NewSpitcastProvider(client *http.Client, logger *zap.Logger, opts ...SpitcastOption) *SpitcastProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &SpitcastProvider{
		name:    "spitcast",
		baseURL: "https://api.spitcast.com",
		days:    DefaultSpitcastDays,
		httpCfg: HTTPClientConfig{
			Client: client,
		},
		now:         time.Now,
		logger:      logger.Named("spitcast"),
		spotCircuit: newCircuitBreaker("spitcast-spots"),
		dayCircuit:  newCircuitBreaker("spitcast-days"),
	}
	for _, o := range opts {
		o(p)
	}
	if p.cache == nil {
		p.cache = NewSpotCache(DefaultSpotCacheTTL, p.now)
	}
	return p
}

func (p *SpitcastProvider) Name() string {
	return p.name
}

// Spots returns the spot directory, refetching it once the cache has expired.
// An empty result means "temporarily unknown".
func (p *SpitcastProvider) Spots(ctx context.Context) []surf.Spot {
	if spots, ok := p.cache.Lookup(); ok {
		return spots
	}

	spots, err := p.fetchSpots(ctx)
	if err != nil {
		p.logger.Warn("spot directory fetch failed", zap.Error(err))
		return []surf.Spot{}
	}
	p.cache.Replace(spots)
	p.logger.Debug("spot directory refreshed", zap.Int("spots", len(spots)))
	return spots
}

func (p *SpitcastProvider) fetchSpots(ctx context.Context) ([]surf.Spot, error) {
	var payload []spitcastSpot
	if err := p.getJSON(ctx, p.spotCircuit, p.baseURL+"/api/spot", &payload); err != nil {
		return nil, err
	}

	spots := make([]surf.Spot, 0, len(payload))
	for _, s := range payload {
		if len(s.Coordinates) < 2 {
			continue
		}
		spots = append(spots, surf.Spot{
			ID:            string(s.ID),
			Code:          s.Code,
			Name:          s.Name,
			CountyID:      string(s.CountyID),
			Lng:           s.Coordinates[0],
			Lat:           s.Coordinates[1],
			StreetAddress: s.StreetAddress,
		})
	}
	return spots, nil
}

// FindSpotByCoords returns the closest cached spot within 0.1 degrees.
func (p *SpitcastProvider) FindSpotByCoords(ctx context.Context, lat, lng float64) (surf.Spot, bool) {
	return nearestSpot(p.Spots(ctx), lat, lng)
}

// FindSpotByName returns the first spot matched by the fuzzy name matcher.
func (p *SpitcastProvider) FindSpotByName(ctx context.Context, name string) (surf.Spot, bool) {
	return matchSpotByName(p.Spots(ctx), name)
}

// nearestSpot uses planar distance on raw degrees; good enough at the 0.1
// degree cutoff but it under-weights longitude error far from the equator.
func nearestSpot(spots []surf.Spot, lat, lng float64) (surf.Spot, bool) {
	var (
		best     surf.Spot
		bestDist float64
		found    bool
	)
	for _, s := range spots {
		d := math.Hypot(s.Lat-lat, s.Lng-lng)
		if d > maxSpotDistance {
			continue
		}
		if !found || d < bestDist {
			best, bestDist, found = s, d, true
		}
	}
	return best, found
}

// matchSpotByName tries each stage in order and returns on the first hit:
// exact name, prefix or "query " substring, word prefix, then longest
// contained word of five or more characters.
func matchSpotByName(spots []surf.Spot, name string) (surf.Spot, bool) {
	q := common.Normalize(name)
	if q == "" || len(spots) == 0 {
		return surf.Spot{}, false
	}

	names := make([]string, len(spots))
	for i, s := range spots {
		names[i] = common.Normalize(s.Name)
	}

	for i, n := range names {
		if n == q {
			return spots[i], true
		}
	}

	for i, n := range names {
		if strings.HasPrefix(n, q) || strings.Contains(n, q+" ") {
			return spots[i], true
		}
	}

	words := common.Words(q, 2)
	for i, n := range names {
		for _, w := range words {
			if common.Len(w) >= 4 && strings.HasPrefix(n, w) {
				return spots[i], true
			}
		}
	}

	bestIdx, bestScore := -1, 0
	for i, n := range names {
		for _, w := range words {
			l := common.Len(w)
			if l >= 5 && strings.Contains(n, w) && l > bestScore {
				bestIdx, bestScore = i, l
			}
		}
	}
	if bestIdx >= 0 && bestScore >= 5 {
		return spots[bestIdx], true
	}
	return surf.Spot{}, false
}

// Forecast returns one summary per date that had usable data, starting today.
// Days that fail or have no positive wave readings are skipped, so the result
// may be shorter than days.
func (p *SpitcastProvider) Forecast(ctx context.Context, spotID string, days int) []surf.DailyForecastSummary {
	if days <= 0 {
		days = DefaultSpitcastDays
	}

	now := p.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	results := make([]*surf.DailyForecastSummary, days)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dayFetchLimit)
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i)
		g.Go(func() error {
			summary, ok := p.forecastDay(gctx, spotID, date)
			if ok {
				results[i] = &summary
			}
			// Per-day failures never abort the range.
			return nil
		})
	}
	_ = g.Wait()

	out := make([]surf.DailyForecastSummary, 0, days)
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (p *SpitcastProvider) forecastDay(ctx context.Context, spotID string, date time.Time) (surf.DailyForecastSummary, bool) {
	u := fmt.Sprintf("%s/api/spot_forecast/%s/%d/%d/%d",
		p.baseURL, url.PathEscape(spotID), date.Year(), int(date.Month()), date.Day())
	day := date.Format("2006-01-02")

	var rows []spitcastHour
	if err := p.getJSON(ctx, p.dayCircuit, u, &rows); err != nil {
		p.logger.Warn("spot forecast fetch failed",
			zap.String("spot", spotID), zap.String("date", day), zap.Error(err))
		return surf.DailyForecastSummary{}, false
	}

	summary, ok := reduceSpitcastDay(day, rows)
	if !ok {
		p.logger.Debug("no usable wave readings",
			zap.String("spot", spotID), zap.String("date", day), zap.Int("rows", len(rows)))
	}
	return summary, ok
}

// ForecastByCoords resolves the nearest spot and returns its forecast tagged
// with the spot's name and id. false means no spot could be resolved.
func (p *SpitcastProvider) ForecastByCoords(ctx context.Context, lat, lng float64) ([]surf.DailyForecastSummary, bool) {
	spot, ok := p.FindSpotByCoords(ctx, lat, lng)
	if !ok {
		p.logger.Debug("no spot near coordinates", zap.Float64("lat", lat), zap.Float64("lng", lng))
		return nil, false
	}
	return p.forecastForSpot(ctx, spot), true
}

// ForecastByName resolves a spot by name and returns its forecast.
func (p *SpitcastProvider) ForecastByName(ctx context.Context, name string) ([]surf.DailyForecastSummary, bool) {
	spot, ok := p.FindSpotByName(ctx, name)
	if !ok {
		p.logger.Debug("no spot matches name", zap.String("name", name))
		return nil, false
	}
	return p.forecastForSpot(ctx, spot), true
}

func (p *SpitcastProvider) forecastForSpot(ctx context.Context, spot surf.Spot) []surf.DailyForecastSummary {
	days := p.Forecast(ctx, spot.ID, p.days)
	for i := range days {
		days[i].SpotName = spot.Name
		days[i].SpotID = spot.ID
	}
	return days
}

func (p *SpitcastProvider) getJSON(ctx context.Context, cb *gobreaker.CircuitBreaker, u string, out any) error {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, cb, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}

// reduceSpitcastDay collapses hourly rows into one daily summary. Non-positive
// sizes are noise; a day with no positive size yields no summary.
func reduceSpitcastDay(date string, rows []spitcastHour) (surf.DailyForecastSummary, bool) {
	var (
		sum, minSize, maxSize float64
		n                     int
		shapeSum              float64
	)
	for _, r := range rows {
		shapeSum += r.shapeValue()

		size := r.size()
		if size <= 0 {
			continue
		}
		if n == 0 || size < minSize {
			minSize = size
		}
		if n == 0 || size > maxSize {
			maxSize = size
		}
		sum += size
		n++
	}
	if n == 0 {
		return surf.DailyForecastSummary{}, false
	}

	avgSize := sum / float64(n)
	shape := shapeSum / float64(len(rows))

	return surf.DailyForecastSummary{
		Date:          date,
		WaveHeightMin: surf.ClampMin1(int(math.Round(minSize))),
		WaveHeightMax: surf.ClampMin1(int(math.Round(maxSize))),
		Rating:        spitcastRating(avgSize, shape),
		Shape:         shapeLabel(shape),
		Source:        surf.SourceSpitcast,
	}, true
}

// spitcastRating and shapeLabel use different thresholds against the same
// shape value. They are kept separate on purpose.
func spitcastRating(meanSize, shape float64) surf.Rating {
	switch {
	case meanSize >= 5 && shape >= 1.0:
		return surf.RatingEpic
	case meanSize >= 4 && shape >= 0.8:
		return surf.RatingGood
	case meanSize >= 2 || shape >= 0.5:
		return surf.RatingFair
	default:
		return surf.RatingPoor
	}
}

func shapeLabel(shape float64) surf.Shape {
	switch {
	case shape >= 1.2:
		return surf.ShapeEpic
	case shape >= 0.8:
		return surf.ShapeGood
	case shape >= 0.5:
		return surf.ShapeFair
	default:
		return surf.ShapePoor
	}
}

// Spitcast wire types.

type spitcastSpot struct {
	ID            flexString `json:"_id"`
	Code          string     `json:"spot_id_char"`
	Name          string     `json:"spot_name"`
	CountyID      flexString `json:"county_id"`
	Coordinates   []float64  `json:"coordinates"` // [lng, lat]
	StreetAddress string     `json:"street_address"`
}

type spitcastHour struct {
	SizeFt json.RawMessage `json:"size_ft"`
	Shape  json.RawMessage `json:"shape"`
}

func (h spitcastHour) size() float64 {
	v, _ := parseNumber(h.SizeFt)
	return v
}

func (h spitcastHour) shapeValue() float64 {
	v, ok := parseNumber(h.Shape)
	if !ok {
		return defaultShape
	}
	return v
}

// parseNumber reads a JSON number or numeric string. Only finite values count.
func parseNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return 0, false
		}
		return finite(v)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return finite(v)
}

// finite rejects the NaN and infinity spellings ParseFloat accepts.
func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	*s = flexString(b)
	return nil
}
