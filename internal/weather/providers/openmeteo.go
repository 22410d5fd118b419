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

// OpenMeteoProvider implements weather.ForecastProvider for Open-Meteo.
// Open-Meteo only understands coordinates, so names go through a Geocoder first.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	geocoder Geocoder
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, geo Geocoder) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  "https://api.open-meteo.com/v1/forecast",
		geocoder: geo,
		httpCfg: HTTPClientConfig{
			Client:       client,
			Backoff:      defaultBackoff(),
			ErrorMessage: openMeteoErrorMessage,
		},
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Current(ctx context.Context, name string) (weather.Snapshot, error) {
	coords, err := p.locate(ctx, name)
	if err != nil {
		return weather.Snapshot{}, err
	}

	values := p.baseValues(coords)
	values.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code")

	var payload struct {
		Current *struct {
			Temperature *float64 `json:"temperature_2m"`
			Humidity    float64  `json:"relative_humidity_2m"`
			WindSpeed   float64  `json:"wind_speed_10m"`
			WeatherCode int      `json:"weather_code"`
		} `json:"current"`
	}
	if err := p.get(ctx, values, &payload); err != nil {
		return weather.Snapshot{}, err
	}
	if payload.Current == nil || payload.Current.Temperature == nil {
		return weather.Snapshot{}, fmt.Errorf("openmeteo: decode: %w: missing current", weather.ErrMalformed)
	}

	return weather.Snapshot{
		City:        name,
		Temperature: roundTemp(*payload.Current.Temperature),
		Description: describeOpenMeteoCode(payload.Current.WeatherCode),
		Humidity:    payload.Current.Humidity,
		WindSpeed:   payload.Current.WindSpeed,
		Condition:   mapOpenMeteoCondition(payload.Current.WeatherCode),
		Provider:    p.name,
	}, nil
}

func (p *OpenMeteoProvider) Forecast(ctx context.Context, name string, days int) (weather.Forecast, error) {
	coords, err := p.locate(ctx, name)
	if err != nil {
		return weather.Forecast{}, err
	}

	values := p.baseValues(coords)
	values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,wind_speed_10m_max,relative_humidity_2m_mean")
	values.Set("forecast_days", strconv.Itoa(days))

	var payload struct {
		Daily struct {
			Time        []string  `json:"time"`
			WeatherCode []int     `json:"weather_code"`
			TempMax     []float64 `json:"temperature_2m_max"`
			TempMin     []float64 `json:"temperature_2m_min"`
			WindMax     []float64 `json:"wind_speed_10m_max"`
			Humidity    []float64 `json:"relative_humidity_2m_mean"`
		} `json:"daily"`
	}
	if err := p.get(ctx, values, &payload); err != nil {
		return weather.Forecast{}, err
	}

	d := payload.Daily
	out := weather.Forecast{City: name}
	for i, raw := range d.Time {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			continue
		}
		day := weather.DailyForecast{Date: date}
		if i < len(d.WeatherCode) {
			day.Condition = mapOpenMeteoCondition(d.WeatherCode[i])
			day.Description = describeOpenMeteoCode(d.WeatherCode[i])
		}
		if i < len(d.TempMax) {
			day.High = roundTemp(d.TempMax[i])
		}
		if i < len(d.TempMin) {
			day.Low = roundTemp(d.TempMin[i])
		}
		if i < len(d.WindMax) {
			day.WindSpeed = d.WindMax[i]
		}
		if i < len(d.Humidity) {
			day.Humidity = d.Humidity[i]
		}
		out.Days = append(out.Days, day)
	}
	return out, nil
}

func (p *OpenMeteoProvider) locate(ctx context.Context, name string) (Coordinates, error) {
	if p.geocoder == nil {
		return Coordinates{}, fmt.Errorf("openmeteo requires a geocoder")
	}
	return p.geocoder.Locate(ctx, name)
}

func (p *OpenMeteoProvider) baseValues(c Coordinates) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(c.Lat, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(c.Lon, 'f', 4, 64))
	values.Set("temperature_unit", "fahrenheit")
	values.Set("wind_speed_unit", "mph")
	values.Set("timezone", "auto")
	return values
}

func (p *OpenMeteoProvider) get(ctx context.Context, values url.Values, out any) error {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		// Open-Meteo answers 400 for bad parameters, never for unknown places.
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openmeteo: decode: %w", err)
	}
	return nil
}

// openMeteoErrorMessage reads {"error":true,"reason":"..."}.
func openMeteoErrorMessage(body []byte) string {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Reason
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on WMO weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

var openMeteoDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Rain",
	65: "Heavy rain",
	66: "Freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow",
	73: "Snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Rain showers",
	81: "Heavy rain showers",
	82: "Violent rain showers",
	85: "Snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with hail",
	99: "Thunderstorm with heavy hail",
}

func describeOpenMeteoCode(code int) string {
	if d, ok := openMeteoDescriptions[code]; ok {
		return d
	}
	return "Unknown"
}
