package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Snapshot is the current weather for one place, in imperial units.
// It is immutable once produced by a provider.
type Snapshot struct {
	City        string    `json:"city"`
	Temperature float64   `json:"temp"`        // °F, rounded
	Description string    `json:"description"` // provider text, e.g. "Partly cloudy"
	Humidity    float64   `json:"humidity"`    // percent
	WindSpeed   float64   `json:"wind_speed"`  // mph
	Condition   Condition `json:"condition"`
	Provider    string    `json:"provider,omitempty"`
}

// DailyForecast is the expected weather for a single calendar day.
type DailyForecast struct {
	Date        time.Time `json:"date"` // midnight UTC
	Description string    `json:"description"`
	Condition   Condition `json:"condition"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
}

// Forecast is a multi-day forecast ordered by Date ascending.
type Forecast struct {
	City string          `json:"city"`
	Days []DailyForecast `json:"days"`
}
