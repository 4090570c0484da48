package flightradar

import (
	"context"
	"fmt"
	"net/url"

	"github.com/navid-fn/skywatch/internal/models"
)

type detailResponse struct {
	Identification struct {
		Number struct {
			Default string `json:"default"`
		} `json:"number"`
		Callsign string `json:"callsign"`
	} `json:"identification"`
	Status struct {
		Text string `json:"text"`
	} `json:"status"`
	Aircraft struct {
		Model struct {
			Code string `json:"code"`
			Text string `json:"text"`
		} `json:"model"`
		Registration string `json:"registration"`
	} `json:"aircraft"`
	Airline struct {
		Name string `json:"name"`
	} `json:"airline"`
	Airport struct {
		Origin      *airportResponse `json:"origin"`
		Destination *airportResponse `json:"destination"`
	} `json:"airport"`
	Time struct {
		Scheduled legTimes `json:"scheduled"`
		Real      legTimes `json:"real"`
	} `json:"time"`
}

type airportResponse struct {
	Code struct {
		IATA string `json:"iata"`
	} `json:"code"`
	Position struct {
		Country struct {
			Name string `json:"name"`
		} `json:"country"`
		Region struct {
			City string `json:"city"`
		} `json:"region"`
	} `json:"position"`
	Info struct {
		Terminal string `json:"terminal"`
	} `json:"info"`
}

type legTimes struct {
	Departure int64 `json:"departure"`
	Arrival   int64 `json:"arrival"`
}

// FetchDetail returns the detail record for snap. Calls wait their turn on the
// limiter and fail fast while the breaker is open.
func (c *Client) FetchDetail(ctx context.Context, snap models.AircraftSnapshot) (models.FlightDetail, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.FlightDetail{}, err
	}

	q := url.Values{}
	q.Set("flight", snap.ID)
	q.Set("version", "1.5")

	var resp detailResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.getJSON(ctx, c.detailURL+"?"+q.Encode(), &resp)
	})
	if err != nil {
		return models.FlightDetail{}, fmt.Errorf("flightradar detail %s: %w", snap.ID, err)
	}
	return resp.toModel(), nil
}

func (r detailResponse) toModel() models.FlightDetail {
	model := r.Aircraft.Model.Text
	if model == "" {
		model = r.Aircraft.Model.Code
	}
	return models.FlightDetail{
		FlightNumber:       r.Identification.Number.Default,
		Callsign:           r.Identification.Callsign,
		Status:             r.Status.Text,
		Airline:            r.Airline.Name,
		AircraftModel:      model,
		Registration:       r.Aircraft.Registration,
		Origin:             r.Airport.Origin.toModel(),
		Destination:        r.Airport.Destination.toModel(),
		ScheduledDeparture: r.Time.Scheduled.Departure,
		ScheduledArrival:   r.Time.Scheduled.Arrival,
		RealDeparture:      r.Time.Real.Departure,
		RealArrival:        r.Time.Real.Arrival,
	}
}

func (a *airportResponse) toModel() *models.AirportInfo {
	if a == nil {
		return nil
	}
	return &models.AirportInfo{
		IATA:     a.Code.IATA,
		City:     a.Position.Region.City,
		Country:  a.Position.Country.Name,
		Terminal: a.Info.Terminal,
	}
}
