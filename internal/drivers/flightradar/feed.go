package flightradar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/skywatch/internal/models"
)

// Positions inside a feed state vector.
const (
	vecICAO24 = iota
	vecLatitude
	vecLongitude
	vecHeading
	vecAltitude
	vecGroundSpeed
	vecSquawk
	vecRadar
	vecAircraftCode
	vecRegistration
	vecTimestamp
	vecOrigin
	vecDestination
	vecFlightNumber
	vecOnGround
	vecVerticalSpeed
	vecCallsign

	minVectorLen = vecFlightNumber + 1
)

func feedQuery(region Region) url.Values {
	q := url.Values{}
	q.Set("bounds", region.String())
	for _, k := range []string{"faa", "satellite", "mlat", "flarm", "adsb", "gnd", "air", "estimated"} {
		q.Set(k, "1")
	}
	for _, k := range []string{"vehicles", "gliders", "stats"} {
		q.Set(k, "0")
	}
	q.Set("maxage", "14400")
	return q
}

// ListSnapshots returns every aircraft the feed reports inside region,
// sorted by flight id.
func (c *Client) ListSnapshots(ctx context.Context, region Region) ([]models.AircraftSnapshot, error) {
	var body map[string]json.RawMessage
	if err := c.getJSON(ctx, c.feedURL+"?"+feedQuery(region).Encode(), &body); err != nil {
		return nil, fmt.Errorf("flightradar feed: %w", err)
	}

	snapshots := make([]models.AircraftSnapshot, 0, len(body))
	outside := 0
	for id, raw := range body {
		var vec []any
		if err := json.Unmarshal(raw, &vec); err != nil || len(vec) < minVectorLen {
			continue
		}
		snap := parseVector(id, vec)
		// estimated positions can drift out of the requested box
		if !region.Contains(snap.Latitude, snap.Longitude) {
			outside++
			continue
		}
		snapshots = append(snapshots, snap)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].ID < snapshots[j].ID })

	c.logger.WithFields(logrus.Fields{
		"region":   region.String(),
		"aircraft": len(snapshots),
		"outside":  outside,
	}).Debug("feed listed")
	return snapshots, nil
}

func parseVector(id string, vec []any) models.AircraftSnapshot {
	return models.AircraftSnapshot{
		ID:           id,
		ICAO24:       str(vec, vecICAO24),
		Latitude:     num(vec, vecLatitude),
		Longitude:    num(vec, vecLongitude),
		Altitude:     int(num(vec, vecAltitude)),
		GroundSpeed:  int(num(vec, vecGroundSpeed)),
		AircraftCode: str(vec, vecAircraftCode),
		Registration: str(vec, vecRegistration),
		Origin:       strings.ToUpper(str(vec, vecOrigin)),
		Destination:  strings.ToUpper(str(vec, vecDestination)),
		FlightNumber: str(vec, vecFlightNumber),
		OnGround:     num(vec, vecOnGround) != 0,
		Callsign:     str(vec, vecCallsign),
	}
}

func str(vec []any, i int) string {
	if i >= len(vec) {
		return ""
	}
	s, _ := vec[i].(string)
	return strings.TrimSpace(s)
}

func num(vec []any, i int) float64 {
	if i >= len(vec) {
		return 0
	}
	switch v := vec[i].(type) {
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
	}
	return 0
}
