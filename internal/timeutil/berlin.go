package timeutil

import (
	"time"
)

// Berlin is the Europe/Berlin location used for display
var Berlin *time.Location

func init() {
	var err error
	Berlin, err = time.LoadLocation("Europe/Berlin")
	if err != nil {
		// Fallback when tzdata is missing; ignores daylight saving
		Berlin = time.FixedZone("CET", 1*60*60)
	}
}

// Now returns the current time in Berlin
func Now() time.Time {
	return time.Now().In(Berlin)
}

// ToBerlin converts any time to Berlin time
func ToBerlin(t time.Time) time.Time {
	return t.In(Berlin)
}

// FormatBerlin formats a time in Berlin using the given layout
func FormatBerlin(t time.Time, layout string) string {
	return t.In(Berlin).Format(layout)
}

// StartOfDay returns 00:00:00 Berlin time on the day of t
func StartOfDay(t time.Time) time.Time {
	b := t.In(Berlin)
	return time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, Berlin)
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02.01.2006 15:04"
	FileLayout     = "20060102-150405"
)
