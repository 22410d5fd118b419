package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/weatherornot/internal/common"
	"github.com/i474232898/weatherornot/internal/weather"
	"github.com/sony/gobreaker"
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		httpCfg: HTTPClientConfig{
			Client:       client,
			Backoff:      defaultBackoff(),
			ErrorMessage: openWeatherErrorMessage,
		},
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Current(ctx context.Context, name string) (weather.Snapshot, error) {
	if p.apiKey == "" {
		return weather.Snapshot{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "imperial")

		// US ZIP codes go through the dedicated parameter; ZIP+4 is not understood.
		if common.IsZip(name) {
			values.Set("zip", name[:5]+",us")
		} else {
			values.Set("q", name)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Snapshot{}, classify(err)
	}
	defer resp.Body.Close()

	var payload struct {
		Name string `json:"name"`
		Main *struct {
			Temp     *float64 `json:"temp"`
			Humidity float64  `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []openWeatherItem `json:"weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Snapshot{}, fmt.Errorf("openweather: decode: %w", err)
	}
	if payload.Main == nil || payload.Main.Temp == nil {
		return weather.Snapshot{}, fmt.Errorf("openweather: decode: %w: missing main", weather.ErrMalformed)
	}
	city := payload.Name
	if city == "" {
		city = name
	}

	var desc string
	if len(payload.Weather) > 0 {
		desc = payload.Weather[0].Description
	}

	return weather.Snapshot{
		City:        city,
		Temperature: roundTemp(*payload.Main.Temp),
		Description: desc,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
		Condition:   mapOpenWeatherCondition(payload.Weather),
		Provider:    p.name,
	}, nil
}

type openWeatherItem struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

// openWeatherErrorMessage reads {"cod":"404","message":"city not found"}.
func openWeatherErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

func mapOpenWeatherCondition(items []openWeatherItem) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
