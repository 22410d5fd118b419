package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/i474232898/weatherornot/internal/weather"
)

func fastBackoff() BackoffConfig {
	return BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func newTestWeatherAPI(t *testing.T, handler http.HandlerFunc) *WeatherAPIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewWeatherAPIProvider(srv.Client(), "test-key")
	p.baseURL = srv.URL
	p.httpCfg.Backoff = fastBackoff()
	return p
}

func TestWeatherAPICurrent(t *testing.T) {
	p := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/current.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "San Antonio" {
			t.Errorf("expected q=San Antonio, got %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("expected api key, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"location":{"name":"San Antonio"},"current":{"temp_f":89.6,"humidity":40,"wind_mph":5.1,"condition":{"text":"Sunny"}}}`))
	})

	snap, err := p.Current(context.Background(), "San Antonio")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := weather.Snapshot{
		City:        "San Antonio",
		Temperature: 90,
		Description: "Sunny",
		Humidity:    40,
		WindSpeed:   5.1,
		Condition:   weather.ConditionClear,
		Provider:    "weatherapi",
	}
	if snap != want {
		t.Fatalf("got %+v, want %+v", snap, want)
	}
}

func TestWeatherAPINotFoundIsNotRetried(t *testing.T) {
	var calls int32
	p := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":1006,"message":"No matching location found."}}`))
	})

	_, err := p.Current(context.Background(), "Atlantis")
	if !errors.Is(err, weather.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := weather.Reason(err); got != "No matching location found." {
		t.Fatalf("unexpected reason %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestWeatherAPIServerErrorIsRetried(t *testing.T) {
	var calls int32
	p := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.Current(context.Background(), "Austin")
	if !errors.Is(err, errServerError) {
		t.Fatalf("expected server error, got %v", err)
	}
	if errors.Is(err, weather.ErrNotFound) {
		t.Fatal("server errors must not look like not-found")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestWeatherAPIMissingKey(t *testing.T) {
	p := NewWeatherAPIProvider(http.DefaultClient, "")
	if _, err := p.Current(context.Background(), "Austin"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestWeatherAPIForecast(t *testing.T) {
	p := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("days"); got != "2" {
			t.Errorf("expected days=2, got %q", got)
		}
		_, _ = w.Write([]byte(`{"location":{"name":"Dallas"},"forecast":{"forecastday":[
			{"date":"2026-10-18","day":{"maxtemp_f":88.4,"mintemp_f":70.2,"maxwind_mph":12,"avghumidity":55,"condition":{"text":"Patchy rain possible"}}},
			{"date":"2026-10-19","day":{"maxtemp_f":80,"mintemp_f":60,"maxwind_mph":8,"avghumidity":40,"condition":{"text":"Sunny"}}}
		]}}`))
	})

	f, err := p.Forecast(context.Background(), "Dallas", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.City != "Dallas" || len(f.Days) != 2 {
		t.Fatalf("unexpected forecast: %+v", f)
	}
	if f.Days[0].High != 88 || f.Days[0].Low != 70 || f.Days[0].Condition != weather.ConditionRain {
		t.Fatalf("unexpected first day: %+v", f.Days[0])
	}
}

func TestOpenWeatherUsesZipParameter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("zip") != "78701,us" || q.Get("q") != "" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("units") != "imperial" {
			t.Errorf("expected imperial units, got %q", q.Get("units"))
		}
		_, _ = w.Write([]byte(`{"name":"Austin","main":{"temp":71.4,"humidity":60},"wind":{"speed":3.2},"weather":[{"main":"Clouds","description":"broken clouds"}]}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "k")
	p.baseURL = srv.URL
	p.httpCfg.Backoff = fastBackoff()

	snap, err := p.Current(context.Background(), "78701-1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.City != "Austin" || snap.Temperature != 71 || snap.Condition != weather.ConditionCloudy || snap.Description != "broken clouds" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestOpenWeatherNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "k")
	p.baseURL = srv.URL
	p.httpCfg.Backoff = fastBackoff()

	_, err := p.Current(context.Background(), "Nowhere")
	if !errors.Is(err, weather.ErrNotFound) || weather.Reason(err) != "city not found" {
		t.Fatalf("expected not-found with reason, got %v", err)
	}
}

type fakeGeocoder struct {
	coords Coordinates
	err    error
}

func (g fakeGeocoder) Locate(context.Context, string) (Coordinates, error) {
	return g.coords, g.err
}

func TestOpenMeteoCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("latitude") != "30.2672" || q.Get("longitude") != "-97.7431" {
			t.Errorf("unexpected coordinates %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":95.2,"relative_humidity_2m":30,"wind_speed_10m":7.5,"weather_code":0}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), fakeGeocoder{coords: Coordinates{Lat: 30.2672, Lon: -97.7431}})
	p.baseURL = srv.URL
	p.httpCfg.Backoff = fastBackoff()

	snap, err := p.Current(context.Background(), "Austin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.City != "Austin" || snap.Temperature != 95 || snap.Description != "Clear sky" || snap.Humidity != 30 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestOpenMeteoGeocodeFailure(t *testing.T) {
	geoErr := errors.New("ZERO_RESULTS")
	p := NewOpenMeteoProvider(http.DefaultClient, fakeGeocoder{err: geoErr})
	if _, err := p.Current(context.Background(), "Atlantis"); !errors.Is(err, geoErr) {
		t.Fatalf("expected geocoder error, got %v", err)
	}
}

func TestIncompletePayloadIsMalformed(t *testing.T) {
	cases := []struct {
		name string
		body string
		new  func(srv *httptest.Server) weather.Provider
	}{
		{"weatherapi empty", `{}`, weatherAPIAt},
		{"weatherapi without current", `{"location":{"name":"Austin"}}`, weatherAPIAt},
		{"weatherapi without location", `{"current":{"temp_f":80}}`, weatherAPIAt},
		{"openweather empty", `{}`, func(srv *httptest.Server) weather.Provider {
			p := NewOpenWeatherProvider(srv.Client(), "k")
			p.baseURL = srv.URL
			p.httpCfg.Backoff = fastBackoff()
			return p
		}},
		{"openmeteo empty", `{}`, func(srv *httptest.Server) weather.Provider {
			p := NewOpenMeteoProvider(srv.Client(), fakeGeocoder{coords: Coordinates{Lat: 30, Lon: -97}})
			p.baseURL = srv.URL
			p.httpCfg.Backoff = fastBackoff()
			return p
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			snap, err := tc.new(srv).Current(context.Background(), "Austin")
			if !errors.Is(err, weather.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got snap=%+v err=%v", snap, err)
			}
		})
	}
}

func TestWeatherAPIForecastWithoutLocationIsMalformed(t *testing.T) {
	p := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	if _, err := p.Forecast(context.Background(), "Austin", 1); !errors.Is(err, weather.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func weatherAPIAt(srv *httptest.Server) weather.Provider {
	p := NewWeatherAPIProvider(srv.Client(), "k")
	p.baseURL = srv.URL
	p.httpCfg.Backoff = fastBackoff()
	return p
}

func TestMapWeatherAPICondition(t *testing.T) {
	cases := map[string]weather.Condition{
		"":                           weather.ConditionUnknown,
		"Sunny":                      weather.ConditionClear,
		"Partly cloudy":              weather.ConditionCloudy,
		"Patchy light drizzle":       weather.ConditionRain,
		"Moderate snow":              weather.ConditionSnow,
		"Thundery outbreaks":         weather.ConditionStorm,
		"Mist":                       weather.ConditionMist,
		"Moderate rain with thunder": weather.ConditionStorm,
	}
	for text, want := range cases {
		if got := mapWeatherAPICondition(text); got != want {
			t.Errorf("mapWeatherAPICondition(%q) = %s, want %s", text, got, want)
		}
	}
}

func TestGoogleGeocoderFirstKeyWins(t *testing.T) {
	NewGoogleGeocoder("first-key", nil)

	core, logs := observer.New(zap.WarnLevel)
	NewGoogleGeocoder(geocoderKey, zap.New(core))
	if n := logs.Len(); n != 0 {
		t.Fatalf("same key must not warn, got %d entries", n)
	}

	NewGoogleGeocoder(geocoderKey+"-other", zap.New(core))
	if n := logs.Len(); n != 1 {
		t.Fatalf("expected one warning for a different key, got %d", n)
	}
}
