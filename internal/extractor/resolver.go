package extractor

import (
	"fmt"
	"strings"

	"github.com/navid-fn/skywatch/internal/models"
)

// Resolver decides whether a relevant detail record is a departure from or
// an arrival at target. Implementations are alternatives; a policy uses one.
type Resolver interface {
	Resolve(detail models.FlightDetail, target string) (models.MovementType, error)
}

// ResolverMode names a Resolver for configuration.
type ResolverMode string

const (
	ModeRoute  ResolverMode = "route"
	ModeStatus ResolverMode = "status"
)

// NewResolver returns the resolver for mode.
func NewResolver(mode ResolverMode) (Resolver, error) {
	switch mode {
	case ModeRoute, "":
		return RouteResolver{}, nil
	case ModeStatus:
		return StatusResolver{}, nil
	}
	return nil, fmt.Errorf("unknown resolver mode %q", mode)
}

// RouteResolver infers the movement from which end of the route is target.
// For a flight that starts and ends at target, a reported real arrival makes
// it an arrival; otherwise it is a departure.
type RouteResolver struct{}

func (RouteResolver) Resolve(d models.FlightDetail, target string) (models.MovementType, error) {
	departs := d.OriginIATA() == target
	arrives := d.DestinationIATA() == target

	switch {
	case departs && arrives:
		if d.RealArrival != 0 {
			return models.Arrival, nil
		}
		return models.Departure, nil
	case departs:
		return models.Departure, nil
	case arrives:
		return models.Arrival, nil
	}
	return "", ErrNotRelevant
}

// StatusResolver reads the status text first ("Landed ..." is an arrival,
// "Take-off"/"Departed ..." a departure) and falls back to the route when the
// status says neither. A status pointing at the end of the route that is not
// target is not relevant.
type StatusResolver struct{}

func (StatusResolver) Resolve(d models.FlightDetail, target string) (models.MovementType, error) {
	status := strings.ToLower(strings.TrimSpace(d.Status))

	switch {
	case strings.HasPrefix(status, "landed"):
		if d.DestinationIATA() != target {
			return "", ErrNotRelevant
		}
		return models.Arrival, nil
	case strings.HasPrefix(status, "take-off"),
		strings.HasPrefix(status, "takeoff"),
		strings.HasPrefix(status, "departed"):
		if d.OriginIATA() != target {
			return "", ErrNotRelevant
		}
		return models.Departure, nil
	}
	return RouteResolver{}.Resolve(d, target)
}
