package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Service looks up weather through an ordered list of providers.
type Service struct {
	providers []Provider
	logger    *zap.Logger
}

// NewService creates a new Service. Providers are consulted in the given order.
func NewService(logger *zap.Logger, providers []Provider) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		providers: providers,
		logger:    logger.Named("weather"),
	}
}

// Providers returns the names of the configured providers in lookup order.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

// Current returns the current conditions for name from the first provider
// that answers. A not-found answer is authoritative and ends the lookup; any
// other failure moves on to the next provider. When every provider fails the
// first error is returned.
func (s *Service) Current(ctx context.Context, name string) (Snapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Snapshot{}, fmt.Errorf("%w: empty name", ErrNotFound)
	}
	if len(s.providers) == 0 {
		s.logger.Error("no providers available", zap.String("location", name))
		return Snapshot{}, ErrNoProviders
	}

	var firstErr error
	for _, p := range s.providers {
		snap, err := p.Current(ctx, name)
		if err == nil {
			if snap.Provider == "" {
				snap.Provider = p.Name()
			}
			return snap, nil
		}

		s.logger.Warn("provider lookup failed",
			zap.String("provider", p.Name()),
			zap.String("location", name),
			zap.Error(err))

		if firstErr == nil {
			firstErr = err
		}
		if errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			return Snapshot{}, err
		}
	}
	return Snapshot{}, firstErr
}

// Forecast fetches multi-day forecasts concurrently from every provider that
// supports it and merges them per day.
func (s *Service) Forecast(ctx context.Context, name string, days int) (Forecast, error) {
	if days <= 0 {
		return Forecast{}, fmt.Errorf("days must be greater than zero")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Forecast{}, fmt.Errorf("%w: empty name", ErrNotFound)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		forecasts []Forecast
		firstErr  error
		asked     int
	)

	for _, p := range s.providers {
		fp, ok := p.(ForecastProvider)
		if !ok {
			continue
		}
		asked++

		wg.Add(1)
		go func(fp ForecastProvider) {
			defer wg.Done()

			f, err := fp.Forecast(ctx, name, days)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("provider forecast failed",
					zap.String("provider", fp.Name()),
					zap.String("location", name),
					zap.Error(err))
				if firstErr == nil || errors.Is(err, ErrNotFound) {
					firstErr = err
				}
				return
			}
			if len(f.Days) > 0 {
				forecasts = append(forecasts, f)
			}
		}(fp)
	}

	wg.Wait()

	if asked == 0 {
		return Forecast{}, ErrNoProviders
	}
	if len(forecasts) == 0 {
		if firstErr != nil {
			return Forecast{}, firstErr
		}
		return Forecast{}, ErrNoForecast
	}

	// Keep the first provider's spelling of the place name.
	return MergeForecasts(forecasts[0].City, forecasts, days), nil
}
