package models

import (
	"strconv"
	"time"

	"github.com/navid-fn/skywatch/utils"
)

// MovementType says whether a movement left or reached the target airport.
type MovementType string

const (
	Departure MovementType = "DEPARTURE"
	Arrival   MovementType = "ARRIVAL"
)

// Category separates scheduled airline traffic from everything else.
type Category string

const (
	Commercial     Category = "COMMERCIAL"
	PrivateCharter Category = "PRIVATE_CHARTER"
)

// Unknown fills enrichment fields the source did not report.
const Unknown = "UNKNOWN"

// RowWidth is the number of fields in a stored movement row.
const RowWidth = 14

// Column positions inside a Row.
const (
	ColCaptureTime = iota
	ColFlightID
	ColMovementType
	ColCounterpartIATA
	ColCity
	ColCountry
	ColAirline
	ColTerminal
	ColActualTime
	ColAircraftModel
	ColRegistration
	ColDelayMinutes
	ColCategory
	ColSignature
)

// Header holds the column labels written as the first row of tabular stores.
var Header = Row{
	"capture_time", "flight_id", "movement_type", "counterpart_iata", "city",
	"country", "airline", "terminal", "actual_time", "aircraft_model",
	"registration", "delay_minutes", "category", "event_signature",
}

// Row is one stored movement as an ordered tuple of RowWidth strings.
type Row []string

// MovementEvent is a single recorded arrival or departure at the target
// airport. It is created once by the extractor and never mutated.
type MovementEvent struct {
	// CaptureTime is the wall-clock time of the run that recorded the event.
	CaptureTime time.Time `json:"capture_time"`

	// FlightID is the flight number, or the registration for private traffic.
	FlightID string `json:"flight_id"`

	Type MovementType `json:"movement_type"`

	// CounterpartIATA is the other end of the route: the destination of a
	// departure or the origin of an arrival.
	CounterpartIATA string `json:"counterpart_iata"`
	City            string `json:"city"`
	Country         string `json:"country"`

	Airline string `json:"airline"`

	// Terminal is the canonical terminal label at the target airport (e.g. "T4").
	Terminal string `json:"terminal"`

	// ActualTime is the real (not scheduled) time of the movement.
	ActualTime time.Time `json:"actual_time"`

	AircraftModel string `json:"aircraft_model"`
	Registration  string `json:"registration"`

	// DelayMinutes is actual minus scheduled, rounded; zero when unknown or
	// when the difference failed the sanity check.
	DelayMinutes int `json:"delay_minutes"`

	Category Category `json:"category"`

	// Signature is the dedup key derived from FlightID and ActualTime.
	Signature string `json:"event_signature"`
}

// Row renders the event in stored column order, with times written in loc.
func (e MovementEvent) Row(loc *time.Location) Row {
	return Row{
		utils.FormatLocal(e.CaptureTime, loc),
		e.FlightID,
		string(e.Type),
		e.CounterpartIATA,
		e.City,
		e.Country,
		e.Airline,
		e.Terminal,
		utils.FormatLocal(e.ActualTime, loc),
		e.AircraftModel,
		e.Registration,
		strconv.Itoa(e.DelayMinutes),
		string(e.Category),
		e.Signature,
	}
}
