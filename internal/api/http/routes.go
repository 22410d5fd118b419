package httpapi

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weatherornot/internal/common"
	"github.com/i474232898/weatherornot/internal/store"
	"github.com/i474232898/weatherornot/internal/weather"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		return common.ValidLocation(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// WeatherService is the lookup side used by the weather routes.
type WeatherService interface {
	Current(ctx context.Context, name string) (weather.Snapshot, error)
	Forecast(ctx context.Context, name string, days int) (weather.Forecast, error)
}

// Handler serves the saved-locations and weather API.
type Handler struct {
	locations store.Store
	weather   WeatherService
	timeout   time.Duration
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, locations store.Store, service WeatherService, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	h := &Handler{locations: locations, weather: service, timeout: timeout}

	api := app.Group("/api")

	api.Get("/saved-locations", h.listLocations)
	api.Post("/saved-locations", h.addLocation)
	api.Delete("/saved-locations/:city", h.removeLocation)

	api.Get("/weather/:city", h.currentWeather)
	api.Get("/forecast/:city", h.forecast)
}

// ErrorHandler renders every error as {"error": "<message>"}, which is what
// the dashboard clients read.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// locationBody is the POST /api/saved-locations payload.
type locationBody struct {
	City string `json:"city" validate:"required,location"`
}

// cityParam holds a location taken from the URL path.
type cityParam struct {
	City string `validate:"required,location"`
}

// forecastQuery holds parameters for the forecast endpoint.
type forecastQuery struct {
	City string `validate:"required,location"`
	Days int    `validate:"required,min=1,max=7"`
}

func (h *Handler) listLocations(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()

	locs, err := h.locations.List(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load saved locations")
	}
	return c.JSON(locs)
}

func (h *Handler) addLocation(c *fiber.Ctx) error {
	var body locationBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	body.City = strings.TrimSpace(body.City)
	if err := validate.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "please enter a valid city name or 5-digit ZIP code")
	}

	ctx, cancel := h.context(c)
	defer cancel()

	loc, created, err := h.locations.Add(ctx, body.City)
	if err != nil {
		if errors.Is(err, store.ErrInvalidName) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save location")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(loc)
}

func (h *Handler) removeLocation(c *fiber.Ctx) error {
	city, err := pathCity(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.locations.Remove(ctx, city); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.Is(err, store.ErrInvalidName):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to delete location")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) currentWeather(c *fiber.Ctx) error {
	city, err := pathCity(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(cityParam{City: city}); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "please enter a valid city name or 5-digit ZIP code")
	}

	ctx, cancel := h.context(c)
	defer cancel()

	snap, err := h.weather.Current(ctx, city)
	if err != nil {
		return weatherError(err)
	}
	return c.JSON(snap)
}

func (h *Handler) forecast(c *fiber.Ctx) error {
	city, err := pathCity(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	q := forecastQuery{City: city, Days: c.QueryInt("days", 0)}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := h.context(c)
	defer cancel()

	f, err := h.weather.Forecast(ctx, q.City, q.Days)
	if err != nil {
		return weatherError(err)
	}
	return c.JSON(f)
}

func (h *Handler) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

// pathCity returns the unescaped, trimmed :city parameter. Fiber reuses the
// request buffer, so the value is copied.
func pathCity(c *fiber.Ctx) (string, error) {
	raw, err := url.PathUnescape(strings.Clone(c.Params("city")))
	if err != nil {
		return "", errors.New("invalid city in path")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("city is required")
	}
	return raw, nil
}

func weatherError(err error) error {
	switch {
	case errors.Is(err, weather.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, weather.Reason(err))
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "weather provider timed out")
	case errors.Is(err, weather.ErrNoProviders):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return fiber.NewError(fiber.StatusBadGateway, weather.Reason(err))
}
