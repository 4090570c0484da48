package extractor

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/navid-fn/skywatch/internal/models"
)

// Airline designator (two or three characters), 1-4 digits and an optional
// operational suffix: IB3170, RYR4421, U28011A.
var flightNumberPattern = regexp.MustCompile(`^[A-Z0-9]{2,3}[0-9]{1,4}[A-Z]?$`)

// categorize classifies traffic flying under a standard flight number as
// commercial.
func categorize(flightNumber string) models.Category {
	if flightNumberPattern.MatchString(strings.ToUpper(strings.TrimSpace(flightNumber))) {
		return models.Commercial
	}
	return models.PrivateCharter
}

// delayMinutes returns actual-scheduled in whole minutes, rounded half away
// from zero. It is zero when the schedule is unknown or the difference
// exceeds limit in either direction.
func delayMinutes(actual, scheduled int64, limit time.Duration) int {
	if scheduled == 0 {
		return 0
	}
	delta := time.Duration(actual-scheduled) * time.Second
	if delta > limit || delta < -limit {
		return 0
	}
	return int(math.Round(delta.Minutes()))
}

// canonicalTerminal normalizes terminal labels to a leading "T":
// "4" -> "T4", "t4s" -> "T4S", "Terminal 1" -> "T1".
func canonicalTerminal(raw string) string {
	t := strings.ToUpper(strings.TrimSpace(raw))
	t = strings.TrimPrefix(t, "TERMINAL")
	t = strings.Join(strings.Fields(t), "")
	if t == "" {
		return models.Unknown
	}
	if !strings.HasPrefix(t, "T") {
		t = "T" + t
	}
	return t
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return models.Unknown
	}
	return s
}

// legTimes returns the actual and scheduled unix times of the leg that
// touches the target airport.
func legTimes(d models.FlightDetail, mt models.MovementType) (actual, scheduled int64) {
	if mt == models.Departure {
		return d.RealDeparture, d.ScheduledDeparture
	}
	return d.RealArrival, d.ScheduledArrival
}

// ends splits the route into the target side and the counterpart side.
func ends(d models.FlightDetail, mt models.MovementType) (local, counterpart models.AirportInfo) {
	origin, destination := d.Origin, d.Destination
	if origin == nil {
		origin = &models.AirportInfo{}
	}
	if destination == nil {
		destination = &models.AirportInfo{}
	}
	if mt == models.Departure {
		return *origin, *destination
	}
	return *destination, *origin
}
