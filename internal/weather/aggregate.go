package weather

import (
	"sort"
	"time"
)

// MergeForecasts combines daily forecasts from several providers into one.
// Numeric fields are averaged per day; the condition is selected by majority
// (first seen wins a tie). At most days entries are returned.
func MergeForecasts(city string, forecasts []Forecast, days int) Forecast {
	type bucket struct {
		date    time.Time
		entries []DailyForecast
	}

	buckets := make(map[string]*bucket)
	for _, f := range forecasts {
		if city == "" && f.City != "" {
			city = f.City
		}
		for _, d := range f.Days {
			ts := d.Date.UTC()
			k := ts.Format("2006-01-02")
			b, ok := buckets[k]
			if !ok {
				b = &bucket{date: time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)}
				buckets[k] = b
			}
			b.entries = append(b.entries, d)
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := Forecast{City: city}
	for _, k := range keys {
		if days > 0 && len(out.Days) >= days {
			break
		}
		out.Days = append(out.Days, mergeDay(buckets[k].date, buckets[k].entries))
	}
	return out
}

func mergeDay(date time.Time, entries []DailyForecast) DailyForecast {
	var sumHigh, sumLow, sumHumidity, sumWind float64

	counts := make(map[Condition]int)
	var order []Condition
	descriptions := make(map[Condition]string)

	for _, e := range entries {
		sumHigh += e.High
		sumLow += e.Low
		sumHumidity += e.Humidity
		sumWind += e.WindSpeed

		if _, seen := counts[e.Condition]; !seen {
			order = append(order, e.Condition)
			descriptions[e.Condition] = e.Description
		}
		counts[e.Condition]++
	}

	best := ConditionUnknown
	bestCount := 0
	for _, cond := range order {
		if counts[cond] > bestCount {
			bestCount = counts[cond]
			best = cond
		}
	}

	n := float64(len(entries))
	return DailyForecast{
		Date:        date,
		Description: descriptions[best],
		Condition:   best,
		High:        sumHigh / n,
		Low:         sumLow / n,
		Humidity:    sumHumidity / n,
		WindSpeed:   sumWind / n,
	}
}
