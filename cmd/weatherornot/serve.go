package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weatherornot/internal/api/http"
	"github.com/i474232898/weatherornot/internal/config"
	"github.com/i474232898/weatherornot/internal/store"
	"github.com/i474232898/weatherornot/internal/weather"
	"github.com/i474232898/weatherornot/internal/weather/providers"
)

func newServeCmd(e *env) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the saved-locations and weather HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = e.cfg.Port
			}
			return runServe(cmd.Context(), e, port)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (default $PORT or 8080)")
	return cmd
}

func runServe(ctx context.Context, e *env, port string) error {
	cfg, log := e.cfg, e.logger

	locations, err := store.Open(ctx, cfg.DBDriver, cfg.DSN(), log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer locations.Close()

	service := newWeatherService(cfg, log)
	app := newApp(locations, service, cfg.HTTPTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("port", port), zap.String("driver", cfg.DBDriver),
			zap.Strings("providers", service.Providers()))
		errCh <- app.Listen(":" + port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn("error during shutdown", zap.Error(err))
	}
	return nil
}

// newWeatherService builds the provider fallback chain from whichever API
// keys are configured.
func newWeatherService(cfg *config.AppConfig, log *zap.Logger) *weather.Service {
	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var provs []weather.Provider
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey))
	}
	// Open-Meteo needs no key of its own, but resolving names to coordinates does.
	if cfg.GeocoderAPIKey != "" {
		provs = append(provs, providers.NewOpenMeteoProvider(httpClient, providers.NewGoogleGeocoder(cfg.GeocoderAPIKey, log)))
	}
	if len(provs) == 0 {
		log.Warn("no weather provider configured; set WEATHERAPI_API_KEY, OPENWEATHER_API_KEY or GEOCODER_API_KEY")
	}
	return weather.NewService(log, provs)
}

type apiService interface {
	httpapi.WeatherService
	Providers() []string
}

func newApp(locations store.Store, service apiService, timeout time.Duration) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "weatherornot",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "weatherornot",
			"providers": service.Providers(),
		})
	})

	httpapi.RegisterRoutes(app, locations, service, timeout)
	return app
}
