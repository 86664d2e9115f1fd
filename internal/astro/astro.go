// Package astro computes daily sunrise and sunset times for a forecast
// region over a fixed horizon.
package astro

import (
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/wangyizhang/eco-weather-service/internal/models"
)

const timeOfDayLayout = "15:04"

// Augment returns one AstroDay per calendar day for days consecutive dates
// starting at start's date in tz. Date stepping uses calendar arithmetic
// (AddDate), so the sequence is immune to DST or time-of-day skew. Sunrise
// and sunset are rendered HH:MM in tz; when the sun neither rises nor sets
// on a date (polar day or night) both fields are nil.
func Augment(lat, lon float64, start time.Time, days int, tz *time.Location) []models.AstroDay {
	out := make([]models.AstroDay, 0, days)
	base := start.In(tz)
	for i := 0; i < days; i++ {
		d := base.AddDate(0, 0, i)
		rise, set := sunrise.SunriseSunset(lat, lon, d.Year(), d.Month(), d.Day())
		out = append(out, models.AstroDay{
			Date:    d.Format("2006-01-02"),
			Sunrise: formatInZone(rise, tz),
			Sunset:  formatInZone(set, tz),
		})
	}
	return out
}

// formatInZone renders a solar event as HH:MM local time, or nil for the
// library's zero-time convention meaning the event does not occur.
func formatInZone(t time.Time, tz *time.Location) *string {
	if t.IsZero() {
		return nil
	}
	s := t.In(tz).Format(timeOfDayLayout)
	return &s
}
