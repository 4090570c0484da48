package utils

import (
	"time"
)

// LocalLayout is the wall-clock layout rows are written with.
const LocalLayout = "2006-01-02 15:04:05"

// LoadLocation returns the named timezone, falling back to UTC when the
// zone database does not know it.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatLocal renders t in loc using LocalLayout.
func FormatLocal(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(LocalLayout)
}
