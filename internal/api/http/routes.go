package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/surf-forecast/internal/store"
	"github.com/i474232898/surf-forecast/internal/surf"
)

var validate = validator.New()

const (
	msgForecastUnavailable = "forecast unavailable"
	msgServiceUnavailable  = "forecast service unavailable"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *surf.Service, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("http")
	v1 := app.Group("/api/v1")

	v1.Get("/spots", func(c *fiber.Ctx) error {
		spots := service.Spots(c.UserContext())
		if spots == nil {
			spots = []surf.Spot{}
		}
		return c.JSON(fiber.Map{
			"count": len(spots),
			"spots": spots,
		})
	})

	v1.Get("/forecast/spitcast", func(c *fiber.Ctx) error {
		q, err := parseTargetQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var (
			days []surf.DailyForecastSummary
			ok   bool
		)
		if q.Name != "" {
			days, ok = service.SpitcastByName(c.UserContext(), q.Name)
		} else {
			days, ok = service.SpitcastByCoords(c.UserContext(), q.Lat, q.Lng)
		}
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, msgForecastUnavailable)
		}

		return c.JSON(fiber.Map{
			"spotName": days[0].SpotName,
			"spotId":   days[0].SpotID,
			"days":     days,
		})
	})

	v1.Get("/forecast/stormglass", func(c *fiber.Ctx) error {
		q, err := parseTargetQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		days, err := parseDays(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var forecast []surf.DailyForecastSummary
		if q.Name != "" {
			forecast, err = service.StormglassByName(c.UserContext(), q.Name, days)
		} else {
			forecast, err = service.StormglassByCoords(c.UserContext(), q.Lat, q.Lng, days)
		}
		if err != nil {
			log.Warn("stormglass forecast failed", zap.Error(err))
			return fiber.NewError(fiber.StatusServiceUnavailable, msgServiceUnavailable)
		}
		if forecast == nil {
			forecast = []surf.DailyForecastSummary{}
		}

		return c.JSON(fiber.Map{"days": forecast})
	})

	v1.Get("/stormglass/usage", func(c *fiber.Ctx) error {
		usage, ok := service.StormglassUsage(c.UserContext())
		if !ok {
			return fiber.NewError(fiber.StatusServiceUnavailable, "stormglass usage unavailable")
		}
		return c.JSON(usage)
	})

	v1.Get("/reports/latest", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.GetLatest(locReq.toLocation())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast report for requested location")
			}
			log.Error("get latest report", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch forecast report")
		}

		return c.JSON(report)
	})

	v1.Get("/reports", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		reports, err := service.GetRange(loc, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast reports for requested range")
			}
			log.Error("get report range", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch forecast reports")
		}

		return c.JSON(fiber.Map{
			"location": loc.Name,
			"from":     req.From,
			"to":       req.To,
			"reports":  reports,
		})
	})
}

// targetQuery picks a forecast target either by name or by coordinates.
type targetQuery struct {
	Name string
	Lat  float64
	Lng  float64
}

type coordsQuery struct {
	Lat string `validate:"required,latitude"`
	Lng string `validate:"required,longitude"`
}

func parseTargetQuery(c *fiber.Ctx) (targetQuery, error) {
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		return targetQuery{Name: name}, nil
	}

	raw := coordsQuery{
		Lat: c.Query("lat"),
		Lng: c.Query("lng"),
	}
	if raw.Lat == "" && raw.Lng == "" {
		return targetQuery{}, errors.New("either name or lat and lng query parameters are required")
	}
	if err := validate.Struct(raw); err != nil {
		return targetQuery{}, err
	}

	// Both values already passed the latitude/longitude validators.
	lat, _ := strconv.ParseFloat(raw.Lat, 64)
	lng, _ := strconv.ParseFloat(raw.Lng, 64)
	return targetQuery{Lat: lat, Lng: lng}, nil
}

// parseDays returns the requested horizon, or 0 for the configured default.
func parseDays(c *fiber.Ctx) (int, error) {
	s := c.Query("days")
	if s == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("days must be an integer")
	}
	if err := validate.Var(days, "min=1,max=14"); err != nil {
		return 0, errors.New("days must be between 1 and 14")
	}
	return days, nil
}

// locationQuery holds query parameters for identifying a tracked location.
type locationQuery struct {
	Name string `validate:"required"`
}

func (l locationQuery) toLocation() surf.Location {
	return surf.Location{Name: l.Name}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	q.Name = strings.TrimSpace(c.Query("name"))

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery holds query parameters for the reports range endpoint.
type historyQuery struct {
	Location locationQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
