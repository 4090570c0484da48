package models

import (
	"time"

	domain "github.com/navid-fn/skywatch/internal/models"
)

// Movement is one row of the movements table in ClickHouse.
type Movement struct {
	// CaptureTime is when the run that recorded the movement started.
	CaptureTime time.Time `json:"capture_time" gorm:"column:capture_time"`

	// FlightID is the flight number, or the registration for private traffic.
	FlightID string `json:"flight_id" gorm:"column:flight_id"`

	// MovementType is "DEPARTURE" or "ARRIVAL".
	MovementType string `json:"movement_type" gorm:"column:movement_type"`

	CounterpartIATA string `json:"counterpart_iata" gorm:"column:counterpart_iata"`
	City            string `json:"city" gorm:"column:city"`
	Country         string `json:"country" gorm:"column:country"`
	Airline         string `json:"airline" gorm:"column:airline"`
	Terminal        string `json:"terminal" gorm:"column:terminal"`

	// ActualTime is the real time of the movement.
	ActualTime time.Time `json:"actual_time" gorm:"column:actual_time"`

	AircraftModel string `json:"aircraft_model" gorm:"column:aircraft_model"`
	Registration  string `json:"registration" gorm:"column:registration"`
	DelayMinutes  int32  `json:"delay_minutes" gorm:"column:delay_minutes"`
	Category      string `json:"category" gorm:"column:category"`

	// EventSignature is the dedup key of the movement.
	EventSignature string `json:"event_signature" gorm:"column:event_signature"`

	// InsertedAt is when the record was inserted into our database.
	InsertedAt time.Time `json:"inserted_at" gorm:"column:inserted_at"`
}

// TableName overrides the table name used by gorm.
func (Movement) TableName() string {
	return "movements"
}

// FromEvent converts a domain event into a table row.
func FromEvent(e domain.MovementEvent) Movement {
	return Movement{
		CaptureTime:     e.CaptureTime.UTC(),
		FlightID:        e.FlightID,
		MovementType:    string(e.Type),
		CounterpartIATA: e.CounterpartIATA,
		City:            e.City,
		Country:         e.Country,
		Airline:         e.Airline,
		Terminal:        e.Terminal,
		ActualTime:      e.ActualTime.UTC(),
		AircraftModel:   e.AircraftModel,
		Registration:    e.Registration,
		DelayMinutes:    int32(e.DelayMinutes),
		Category:        string(e.Category),
		EventSignature:  e.Signature,
	}
}

// Event converts a table row back into a domain event.
func (m Movement) Event() domain.MovementEvent {
	return domain.MovementEvent{
		CaptureTime:     m.CaptureTime,
		FlightID:        m.FlightID,
		Type:            domain.MovementType(m.MovementType),
		CounterpartIATA: m.CounterpartIATA,
		City:            m.City,
		Country:         m.Country,
		Airline:         m.Airline,
		Terminal:        m.Terminal,
		ActualTime:      m.ActualTime,
		AircraftModel:   m.AircraftModel,
		Registration:    m.Registration,
		DelayMinutes:    int(m.DelayMinutes),
		Category:        domain.Category(m.Category),
		Signature:       m.EventSignature,
	}
}
