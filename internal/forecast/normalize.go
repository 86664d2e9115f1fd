// Package forecast reshapes the CWA's attribute-major payload (one time
// series per weather element) into the slot-major form the API serves.
package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/wangyizhang/eco-weather-service/internal/client"
	"github.com/wangyizhang/eco-weather-service/internal/models"
)

// ErrMissingWeatherElement is returned when the payload lacks the Wx series,
// which defines the output time axis. Surfaced as an upstream failure.
var ErrMissingWeatherElement = errors.New("weather element Wx missing from upstream payload")

// Element names in the F-D0047-091 dataset.
const (
	elementWx       = "Wx"     // weather condition
	elementPoP12h   = "PoP12h" // 12h precipitation probability
	elementTemp     = "T"
	elementHumidity = "RH"
	elementWind     = "WS"
)

// cwaTimeLayouts are the timestamp formats the datastore serves, interpreted
// in the dataset's local zone.
var cwaTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Normalize transposes the element-keyed series of loc into an ordered slice
// of per-slot records. The Wx series is the authoritative axis: its entries
// define the slot count and boundaries, and every other element is joined by
// position. This is deliberately an index join, not a timestamp join — the
// dataset aligns all element series on the same slot grid, and series that
// fall short (PoP12h stops after three days) yield the unknown sentinel for
// the remaining slots instead of an error.
func Normalize(loc client.RawLocation, tz *time.Location) ([]models.ForecastSlot, error) {
	wx := findElement(loc.WeatherElement, elementWx)
	if wx == nil {
		return nil, ErrMissingWeatherElement
	}

	slots := make([]models.ForecastSlot, 0, len(wx.Time))
	for i, window := range wx.Time {
		start, err := parseCWATime(window.StartTime, tz)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		end, err := parseCWATime(window.EndTime, tz)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("slot %d: end %v not after start %v", i, end, start)
		}

		slots = append(slots, models.ForecastSlot{
			StartTime: start,
			EndTime:   end,
			Weather:   valueAt(wx, i),
			RainProb:  valueAt(findElement(loc.WeatherElement, elementPoP12h), i),
			Temp:      valueAt(findElement(loc.WeatherElement, elementTemp), i),
			Humidity:  valueAt(findElement(loc.WeatherElement, elementHumidity), i),
			WindSpeed: valueAt(findElement(loc.WeatherElement, elementWind), i),
		})
	}
	return slots, nil
}

func findElement(elements []client.RawElement, name string) *client.RawElement {
	for i := range elements {
		if elements[i].ElementName == name {
			return &elements[i]
		}
	}
	return nil
}

// valueAt returns the element's value at slot index i, or the unknown
// sentinel when the element is absent, its series is shorter than the axis,
// or the slot carries no value.
func valueAt(el *client.RawElement, i int) string {
	if el == nil || i >= len(el.Time) {
		return models.UnknownValue
	}
	values := el.Time[i].ElementValue
	if len(values) == 0 || values[0].Value == "" {
		return models.UnknownValue
	}
	return values[0].Value
}

func parseCWATime(s string, tz *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range cwaTimeLayouts {
		t, err := time.ParseInLocation(layout, s, tz)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("parse time %q: %w", s, lastErr)
}
