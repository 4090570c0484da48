// Package models defines the domain models shared by the collector packages.
package models

// AircraftSnapshot is one entry of a live feed poll: a lightweight and
// possibly stale state vector used to pre-filter traffic before the
// expensive detail fetch. Snapshots are never persisted.
type AircraftSnapshot struct {
	// ID is the feed's own flight identifier, used to request the detail record.
	ID string `json:"id"`

	// ICAO24 is the transponder hex address.
	ICAO24 string `json:"icao24"`

	// FlightNumber is the commercial flight number (e.g. "IB3170"), empty for
	// private traffic.
	FlightNumber string `json:"flight_number"`

	// Callsign is the ATC callsign.
	Callsign string `json:"callsign"`

	// Registration is the tail number.
	Registration string `json:"registration"`

	// AircraftCode is the ICAO type designator (e.g. "A320").
	AircraftCode string `json:"aircraft_code"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Altitude is the barometric altitude in feet.
	Altitude int `json:"altitude"`

	// GroundSpeed is in knots.
	GroundSpeed int `json:"ground_speed"`

	// Origin and Destination are coarse IATA codes; empty when unknown.
	Origin      string `json:"origin"`
	Destination string `json:"destination"`

	// OnGround is the feed's on-ground flag. Altitude can lag behind it.
	OnGround bool `json:"on_ground"`
}

// Identifier returns the best human identifier: flight number, then
// registration, then callsign, then the feed id.
func (s AircraftSnapshot) Identifier() string {
	switch {
	case s.FlightNumber != "":
		return s.FlightNumber
	case s.Registration != "":
		return s.Registration
	case s.Callsign != "":
		return s.Callsign
	}
	return s.ID
}

// HasFullRoute reports whether the feed named both ends of the route.
func (s AircraftSnapshot) HasFullRoute() bool {
	return s.Origin != "" && s.Destination != ""
}
