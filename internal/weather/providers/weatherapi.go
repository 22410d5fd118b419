package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/weatherornot/internal/weather"
	"github.com/sony/gobreaker"
)

// WeatherAPIProvider implements weather.ForecastProvider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1",
		httpCfg: HTTPClientConfig{
			Client:       client,
			Backoff:      defaultBackoff(),
			ErrorMessage: weatherAPIErrorMessage,
		},
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPICondition struct {
	Text string `json:"text"`
}

type weatherAPILocation struct {
	Name string `json:"name"`
}

func (p *WeatherAPIProvider) Current(ctx context.Context, name string) (weather.Snapshot, error) {
	if p.apiKey == "" {
		return weather.Snapshot{}, fmt.Errorf("weatherapi api key is not configured")
	}

	// WeatherAPI uses "q" for location; it accepts city names and postal codes.
	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", name)

	var payload struct {
		Location *weatherAPILocation `json:"location"`
		Current  *struct {
			TempF     *float64            `json:"temp_f"`
			Humidity  float64             `json:"humidity"`
			WindMph   float64             `json:"wind_mph"`
			Condition weatherAPICondition `json:"condition"`
		} `json:"current"`
	}
	if err := p.get(ctx, "current.json", values, &payload); err != nil {
		return weather.Snapshot{}, err
	}
	if payload.Location == nil || payload.Location.Name == "" || payload.Current == nil || payload.Current.TempF == nil {
		return weather.Snapshot{}, fmt.Errorf("weatherapi: decode current.json: %w: missing location or current", weather.ErrMalformed)
	}

	return weather.Snapshot{
		City:        payload.Location.Name,
		Temperature: roundTemp(*payload.Current.TempF),
		Description: payload.Current.Condition.Text,
		Humidity:    payload.Current.Humidity,
		WindSpeed:   payload.Current.WindMph,
		Condition:   mapWeatherAPICondition(payload.Current.Condition.Text),
		Provider:    p.name,
	}, nil
}

func (p *WeatherAPIProvider) Forecast(ctx context.Context, name string, days int) (weather.Forecast, error) {
	if p.apiKey == "" {
		return weather.Forecast{}, fmt.Errorf("weatherapi api key is not configured")
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", name)
	values.Set("days", strconv.Itoa(days))
	values.Set("aqi", "no")
	values.Set("alerts", "no")

	var payload struct {
		Location *weatherAPILocation `json:"location"`
		Forecast struct {
			ForecastDay []struct {
				Date string `json:"date"`
				Day  struct {
					MaxTempF    float64             `json:"maxtemp_f"`
					MinTempF    float64             `json:"mintemp_f"`
					MaxWindMph  float64             `json:"maxwind_mph"`
					AvgHumidity float64             `json:"avghumidity"`
					Condition   weatherAPICondition `json:"condition"`
				} `json:"day"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := p.get(ctx, "forecast.json", values, &payload); err != nil {
		return weather.Forecast{}, err
	}
	if payload.Location == nil || payload.Location.Name == "" {
		return weather.Forecast{}, fmt.Errorf("weatherapi: decode forecast.json: %w: missing location", weather.ErrMalformed)
	}

	out := weather.Forecast{City: payload.Location.Name}
	for _, fd := range payload.Forecast.ForecastDay {
		date, err := time.Parse("2006-01-02", fd.Date)
		if err != nil {
			continue
		}
		out.Days = append(out.Days, weather.DailyForecast{
			Date:        date,
			Description: fd.Day.Condition.Text,
			Condition:   mapWeatherAPICondition(fd.Day.Condition.Text),
			High:        roundTemp(fd.Day.MaxTempF),
			Low:         roundTemp(fd.Day.MinTempF),
			Humidity:    fd.Day.AvgHumidity,
			WindSpeed:   fd.Day.MaxWindMph,
		})
	}
	return out, nil
}

func (p *WeatherAPIProvider) get(ctx context.Context, endpoint string, values url.Values, out any) error {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("weatherapi: decode %s: %w", endpoint, err)
	}
	return nil
}

// weatherAPIErrorMessage reads {"error":{"code":1006,"message":"..."}}.
func weatherAPIErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case contains(text, "thunder") || contains(text, "storm"):
		return weather.ConditionStorm
	case contains(text, "rain") || contains(text, "shower") || contains(text, "drizzle"):
		return weather.ConditionRain
	case contains(text, "snow") || contains(text, "sleet") || contains(text, "blizzard") || contains(text, "ice"):
		return weather.ConditionSnow
	case contains(text, "mist") || contains(text, "fog"):
		return weather.ConditionMist
	case contains(text, "cloud") || contains(text, "overcast"):
		return weather.ConditionCloudy
	case contains(text, "sunny") || contains(text, "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
