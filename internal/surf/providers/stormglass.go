package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/surf-forecast/internal/surf"
)

// DefaultStormglassDays is the default aggregation horizon.
const DefaultStormglassDays = 14

// ErrMissingAPIKey is returned when no Stormglass credential is configured.
var ErrMissingAPIKey = errors.New("stormglass api key is not configured")

var stormglassParams = []string{
	"waveHeight", "wavePeriod", "waveDirection",
	"windSpeed", "windDirection",
	"swellHeight", "swellPeriod", "swellDirection",
}

// sourcePriority orders the upstream models consulted for each parameter.
var sourcePriority = []string{"noaa", "sg", "icon", "meteo"}

// StormglassProvider aggregates the Stormglass point forecast into daily
// summaries. Unlike Spitcast, failures are returned to the caller.
type StormglassProvider struct {
	name     string
	apiKey   string
	baseURL  string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	now      func() time.Time
	probeLat float64
	probeLng float64
	logger   *zap.Logger
}

// StormglassOption customizes a StormglassProvider.
type StormglassOption func(*StormglassProvider)

// WithStormglassBaseURL points the adapter at a different host.
func WithStormglassBaseURL(u string) StormglassOption {
	return func(p *StormglassProvider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithStormglassClock overrides the clock used for the request window.
func WithStormglassClock(now func() time.Time) StormglassOption {
	return func(p *StormglassProvider) { p.now = now }
}

// WithProbePoint sets the coordinates used by APIUsage.
func WithProbePoint(lat, lng float64) StormglassOption {
	return func(p *StormglassProvider) { p.probeLat, p.probeLng = lat, lng }
}

func NewStormglassProvider(client *http.Client, apiKey string, logger *zap.Logger, opts ...StormglassOption) *StormglassProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &StormglassProvider{
		name:    "stormglass",
		apiKey:  apiKey,
		baseURL: "https://api.stormglass.io",
		httpCfg: HTTPClientConfig{
			Client: client,
		},
		circuit:  newCircuitBreaker("stormglass"),
		now:      time.Now,
		probeLat: 32.85,
		probeLng: -117.27,
		logger:   logger.Named("stormglass"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *StormglassProvider) Name() string {
	return p.name
}

// Configured reports whether a credential is present.
func (p *StormglassProvider) Configured() bool {
	return p.apiKey != ""
}

// FetchForecast requests [now, now+days] for the point and reduces it to one
// summary per calendar date in upstream order.
func (p *StormglassProvider) FetchForecast(ctx context.Context, lat, lng float64, days int) ([]surf.DailyForecastSummary, error) {
	if !p.Configured() {
		return nil, ErrMissingAPIKey
	}
	if days <= 0 {
		days = DefaultStormglassDays
	}

	start := p.now().UTC()
	end := start.Add(time.Duration(days) * 24 * time.Hour)

	var payload stormglassResponse
	if err := p.point(ctx, lat, lng, stormglassParams, start, end, &payload); err != nil {
		return nil, fmt.Errorf("stormglass forecast: %w", err)
	}

	out := aggregateStormglass(payload.Hours)
	p.logger.Debug("forecast aggregated",
		zap.Int("hours", len(payload.Hours)),
		zap.Int("days", len(out)),
		zap.Int("requestCount", payload.Meta.RequestCount))
	return out, nil
}

// APIUsage issues a one-parameter request to read quota metadata. It consumes
// one unit of quota.
func (p *StormglassProvider) APIUsage(ctx context.Context) (surf.APIUsage, bool) {
	if !p.Configured() {
		return surf.APIUsage{}, false
	}

	now := p.now().UTC()
	var payload stormglassResponse
	if err := p.point(ctx, p.probeLat, p.probeLng, []string{"waveHeight"}, now, now, &payload); err != nil {
		p.logger.Warn("usage probe failed", zap.Error(err))
		return surf.APIUsage{}, false
	}
	return surf.APIUsage{
		RequestCount: payload.Meta.RequestCount,
		DailyQuota:   payload.Meta.DailyQuota,
	}, true
}

func (p *StormglassProvider) point(ctx context.Context, lat, lng float64, params []string, start, end time.Time, out any) error {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
		values.Set("params", strings.Join(params, ","))
		values.Set("start", strconv.FormatInt(start.Unix(), 10))
		values.Set("end", strconv.FormatInt(end.Unix(), 10))

		u := fmt.Sprintf("%s/v2/weather/point?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", p.apiKey)
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type runningMean struct {
	sum float64
	n   int
}

func (m *runningMean) add(v float64) {
	m.sum += v
	m.n++
}

// value is 0 when nothing contributed.
func (m runningMean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

type dayBucket struct {
	date      string
	height    runningMean
	period    runningMean
	swellDir  runningMean
	wind      runningMean
	windDir   runningMean
	maxHeight float64
}

// aggregateStormglass buckets hours by the date prefix of the upstream
// timestamp, with no timezone conversion, and reduces each bucket.
func aggregateStormglass(hours []stormglassHour) []surf.DailyForecastSummary {
	var buckets []*dayBucket
	index := make(map[string]*dayBucket)

	for _, h := range hours {
		if len(h.Time) < len("2006-01-02") {
			continue
		}
		date := h.Time[:10]
		b, ok := index[date]
		if !ok {
			b = &dayBucket{date: date}
			index[date] = b
			buckets = append(buckets, b)
		}

		if v, ok := preferred(h.SwellHeight, h.WaveHeight); ok {
			b.height.add(v)
			if b.height.n == 1 || v > b.maxHeight {
				b.maxHeight = v
			}
		}
		if v, ok := preferred(h.SwellPeriod, h.WavePeriod); ok {
			b.period.add(v)
		}
		if v, ok := preferred(h.SwellDirection, h.WaveDirection); ok {
			b.swellDir.add(v)
		}
		if v, ok := h.WindSpeed.pick(); ok {
			b.wind.add(v)
		}
		if v, ok := h.WindDirection.pick(); ok {
			b.windDir.add(v)
		}
	}

	out := make([]surf.DailyForecastSummary, 0, len(buckets))
	for _, b := range buckets {
		maxFt := surf.ClampMin1(surf.MetersToFeet(b.maxHeight))
		period := b.period.value()
		out = append(out, surf.DailyForecastSummary{
			Date:           b.date,
			WaveHeightMin:  surf.ClampMin1(surf.MetersToFeet(b.height.value())),
			WaveHeightMax:  maxFt,
			Rating:         stormglassRating(maxFt, period),
			WindSpeed:      surf.MSToKnots(b.wind.value()),
			WindDirection:  surf.CompassLabel(b.windDir.value()),
			SwellDirection: surf.CompassLabel(b.swellDir.value()),
			SwellPeriod:    int(math.Round(period)),
			Source:         surf.SourceStormglass,
		})
	}
	return out
}

// stormglassRating is independent of the Spitcast heuristic.
func stormglassRating(maxHeightFt int, period float64) surf.Rating {
	switch {
	case maxHeightFt >= 6 && period >= 12:
		return surf.RatingEpic
	case maxHeightFt >= 4 && period >= 10:
		return surf.RatingGood
	case maxHeightFt >= 2 && period >= 7:
		return surf.RatingFair
	default:
		return surf.RatingPoor
	}
}

// preferred picks the swell-specific value when present, else the generic one.
func preferred(specific, generic sourceValues) (float64, bool) {
	if v, ok := specific.pick(); ok {
		return v, true
	}
	return generic.pick()
}

// Stormglass wire types.

type stormglassResponse struct {
	Hours []stormglassHour `json:"hours"`
	Meta  struct {
		Cost         int `json:"cost"`
		DailyQuota   int `json:"dailyQuota"`
		RequestCount int `json:"requestCount"`
	} `json:"meta"`
}

type stormglassHour struct {
	Time           string       `json:"time"`
	WaveHeight     sourceValues `json:"waveHeight"`
	WavePeriod     sourceValues `json:"wavePeriod"`
	WaveDirection  sourceValues `json:"waveDirection"`
	WindSpeed      sourceValues `json:"windSpeed"`
	WindDirection  sourceValues `json:"windDirection"`
	SwellHeight    sourceValues `json:"swellHeight"`
	SwellPeriod    sourceValues `json:"swellPeriod"`
	SwellDirection sourceValues `json:"swellDirection"`
}

type sourceValue struct {
	source string
	value  float64
}

// sourceValues is a model-name to value mapping decoded in upstream key order.
type sourceValues []sourceValue

func (sv *sourceValues) UnmarshalJSON(b []byte) error {
	*sv = nil
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("source values: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			// null or non-numeric model entries are ignored.
			continue
		}
		*sv = append(*sv, sourceValue{source: key, value: v})
	}
	_, err = dec.Token()
	return err
}

// pick returns the value of the highest-priority model, falling back to the
// first model enumerated upstream.
func (sv sourceValues) pick() (float64, bool) {
	for _, src := range sourcePriority {
		for _, v := range sv {
			if v.source == src {
				return v.value, true
			}
		}
	}
	if len(sv) > 0 {
		return sv[0].value, true
	}
	return 0, false
}
