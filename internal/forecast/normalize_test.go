package forecast

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wangyizhang/eco-weather-service/internal/client"
	"github.com/wangyizhang/eco-weather-service/internal/models"
)

var taipei = time.FixedZone("CST", 8*3600)

// buildElement creates a series of n 12h windows starting 2026-09-01 06:00,
// with values valuePrefix-0, valuePrefix-1, ...
func buildElement(name string, n int, valuePrefix string) client.RawElement {
	el := client.RawElement{ElementName: name}
	start := time.Date(2026, 9, 1, 6, 0, 0, 0, taipei)
	for i := 0; i < n; i++ {
		s := start.Add(time.Duration(i) * 12 * time.Hour)
		e := s.Add(12 * time.Hour)
		el.Time = append(el.Time, client.RawTime{
			StartTime:    s.Format("2006-01-02 15:04:05"),
			EndTime:      e.Format("2006-01-02 15:04:05"),
			ElementValue: []client.RawElementValue{{Value: fmt.Sprintf("%s-%d", valuePrefix, i)}},
		})
	}
	return el
}

// TestNormalize_AlignedSeries verifies the round-trip: N aligned slots across
// all elements produce exactly N records in input order with matching values.
func TestNormalize_AlignedSeries(t *testing.T) {
	const n = 14
	loc := client.RawLocation{
		LocationName: "臺北市",
		WeatherElement: []client.RawElement{
			buildElement("Wx", n, "wx"),
			buildElement("PoP12h", n, "pop"),
			buildElement("T", n, "t"),
			buildElement("RH", n, "rh"),
			buildElement("WS", n, "ws"),
		},
	}

	slots, err := Normalize(loc, taipei)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(slots) != n {
		t.Fatalf("len(slots) = %d, want %d", len(slots), n)
	}
	for i, slot := range slots {
		if slot.Weather != fmt.Sprintf("wx-%d", i) {
			t.Errorf("slot %d Weather = %q, want wx-%d", i, slot.Weather, i)
		}
		if slot.RainProb != fmt.Sprintf("pop-%d", i) {
			t.Errorf("slot %d RainProb = %q, want pop-%d", i, slot.RainProb, i)
		}
		if slot.Temp != fmt.Sprintf("t-%d", i) {
			t.Errorf("slot %d Temp = %q, want t-%d", i, slot.Temp, i)
		}
		if slot.Humidity != fmt.Sprintf("rh-%d", i) {
			t.Errorf("slot %d Humidity = %q, want rh-%d", i, slot.Humidity, i)
		}
		if slot.WindSpeed != fmt.Sprintf("ws-%d", i) {
			t.Errorf("slot %d WindSpeed = %q, want ws-%d", i, slot.WindSpeed, i)
		}
		if !slot.EndTime.After(slot.StartTime) {
			t.Errorf("slot %d end %v not after start %v", i, slot.EndTime, slot.StartTime)
		}
		if i > 0 && slot.StartTime.Before(slots[i-1].StartTime) {
			t.Errorf("slot %d out of input order", i)
		}
	}
}

// TestNormalize_ShortSeries verifies that a series shorter than the Wx axis
// yields the unknown sentinel beyond its length, not an error. PoP12h really
// does stop after three days in the weekly dataset.
func TestNormalize_ShortSeries(t *testing.T) {
	loc := client.RawLocation{
		WeatherElement: []client.RawElement{
			buildElement("Wx", 14, "wx"),
			buildElement("PoP12h", 6, "pop"),
			buildElement("T", 14, "t"),
		},
	}

	slots, err := Normalize(loc, taipei)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(slots) != 14 {
		t.Fatalf("len(slots) = %d, want 14 (Wx axis is authoritative)", len(slots))
	}
	if slots[5].RainProb != "pop-5" {
		t.Errorf("slot 5 RainProb = %q, want pop-5", slots[5].RainProb)
	}
	for i := 6; i < 14; i++ {
		if slots[i].RainProb != models.UnknownValue {
			t.Errorf("slot %d RainProb = %q, want %q", i, slots[i].RainProb, models.UnknownValue)
		}
	}
}

// TestNormalize_MissingElement verifies that a wholly absent element renders
// as unknown for every slot.
func TestNormalize_MissingElement(t *testing.T) {
	loc := client.RawLocation{
		WeatherElement: []client.RawElement{
			buildElement("Wx", 4, "wx"),
		},
	}

	slots, err := Normalize(loc, taipei)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	for i, slot := range slots {
		if slot.RainProb != models.UnknownValue || slot.Temp != models.UnknownValue ||
			slot.Humidity != models.UnknownValue || slot.WindSpeed != models.UnknownValue {
			t.Errorf("slot %d = %+v, want all non-Wx fields unknown", i, slot)
		}
	}
}

// TestNormalize_EmptyValue verifies that an empty value inside a present
// series renders as unknown rather than an empty string.
func TestNormalize_EmptyValue(t *testing.T) {
	wx := buildElement("Wx", 2, "wx")
	temp := buildElement("T", 2, "t")
	temp.Time[1].ElementValue = nil

	slots, err := Normalize(client.RawLocation{WeatherElement: []client.RawElement{wx, temp}}, taipei)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if slots[0].Temp != "t-0" {
		t.Errorf("slot 0 Temp = %q, want t-0", slots[0].Temp)
	}
	if slots[1].Temp != models.UnknownValue {
		t.Errorf("slot 1 Temp = %q, want %q", slots[1].Temp, models.UnknownValue)
	}
}

// TestNormalize_MissingWxAxis verifies that an absent Wx series is a hard
// error: there is no axis to build slots from.
func TestNormalize_MissingWxAxis(t *testing.T) {
	loc := client.RawLocation{
		WeatherElement: []client.RawElement{
			buildElement("T", 14, "t"),
		},
	}
	if _, err := Normalize(loc, taipei); !errors.Is(err, ErrMissingWeatherElement) {
		t.Errorf("Normalize() error = %v, want ErrMissingWeatherElement", err)
	}
}

// TestNormalize_BadTimestamp verifies that an unparseable slot boundary fails
// the whole normalization.
func TestNormalize_BadTimestamp(t *testing.T) {
	wx := buildElement("Wx", 2, "wx")
	wx.Time[1].StartTime = "not a time"
	if _, err := Normalize(client.RawLocation{WeatherElement: []client.RawElement{wx}}, taipei); err == nil {
		t.Error("Normalize() error = nil, want timestamp parse error")
	}
}

// TestNormalize_TimeZone verifies slot boundaries are interpreted in the
// provided zone.
func TestNormalize_TimeZone(t *testing.T) {
	wx := buildElement("Wx", 1, "wx")
	slots, err := Normalize(client.RawLocation{WeatherElement: []client.RawElement{wx}}, taipei)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	want := time.Date(2026, 9, 1, 6, 0, 0, 0, taipei)
	if !slots[0].StartTime.Equal(want) {
		t.Errorf("StartTime = %v, want %v", slots[0].StartTime, want)
	}
	if _, offset := slots[0].StartTime.Zone(); offset != 8*3600 {
		t.Errorf("StartTime offset = %d, want +08:00", offset)
	}
}
