package models

import "time"

// CanonicalRegion is one entry in the fixed region table: a county/city name
// with its geographic center. The name doubles as the cache and upstream
// query key.
type CanonicalRegion struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Coordinates is a lat/lon pair in decimal degrees (WGS-84).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ForecastSlot is one upstream-reported forecast window (12h for the weekly
// dataset). Value fields carry the upstream strings verbatim; UnknownValue
// marks a slot the upstream reported no data for.
type ForecastSlot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Weather   string    `json:"weather"`
	RainProb  string    `json:"rainProb"`
	Temp      string    `json:"temp"`
	Humidity  string    `json:"humidity"`
	WindSpeed string    `json:"windSpeed"` // m/s, as reported upstream
}

// UnknownValue is the sentinel for a forecast attribute the upstream has no
// data for (e.g. rain probability beyond the 3-day horizon). It is not a
// measurement and must never be parsed as one.
const UnknownValue = "-"

// AstroDay holds sunrise and sunset for one region-local calendar date,
// rendered as HH:MM in local civil time. A nil Sunrise or Sunset means the
// sun does not rise or set on that date (polar day/night).
type AstroDay struct {
	Date    string  `json:"date"`
	Sunrise *string `json:"sunrise"`
	Sunset  *string `json:"sunset"`
}

// AggregatedForecast is the unit of caching and the response payload: the
// resolved region, its week of forecast slots, seven days of sun times, and
// the instant this aggregate was built.
type AggregatedForecast struct {
	City       string         `json:"city"`
	Coords     Coordinates    `json:"coords"`
	Forecasts  []ForecastSlot `json:"forecasts"`
	Astro      []AstroDay     `json:"astro"`
	LastUpdate time.Time      `json:"lastUpdate"`
}
