package models

// AirportInfo describes one end of a route as reported by the detail record.
// Any field can be empty.
type AirportInfo struct {
	IATA     string `json:"iata"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Terminal string `json:"terminal"`
}

// FlightDetail is the full record fetched for a single snapshot. It may be
// partially populated: nil airports and zero timestamps mean "absent".
type FlightDetail struct {
	FlightNumber  string `json:"flight_number"`
	Callsign      string `json:"callsign"`
	Status        string `json:"status"`
	Airline       string `json:"airline"`
	AircraftModel string `json:"aircraft_model"`
	Registration  string `json:"registration"`

	Origin      *AirportInfo `json:"origin,omitempty"`
	Destination *AirportInfo `json:"destination,omitempty"`

	// Unix seconds; zero when the source did not report the value.
	ScheduledDeparture int64 `json:"scheduled_departure"`
	ScheduledArrival   int64 `json:"scheduled_arrival"`
	RealDeparture      int64 `json:"real_departure"`
	RealArrival        int64 `json:"real_arrival"`
}

// OriginIATA returns the origin code or "" when the origin is unknown.
func (d FlightDetail) OriginIATA() string {
	if d.Origin == nil {
		return ""
	}
	return d.Origin.IATA
}

// DestinationIATA returns the destination code or "" when unknown.
func (d FlightDetail) DestinationIATA() string {
	if d.Destination == nil {
		return ""
	}
	return d.Destination.IATA
}
