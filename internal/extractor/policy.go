package extractor

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultFreshnessWindow      = 90 * time.Minute
	DefaultArrivalCeilingFt     = 6000
	DefaultDepartureCeilingFt   = 12000
	DefaultUnknownCeilingFt     = 6000
	DefaultGroundSpeedCeilingKt = 250
	DefaultDelaySanityLimit     = 24 * time.Hour
)

// Policy gathers every tunable of the extraction pipeline.
type Policy struct {
	// TargetIATA is the airport whose movements are recorded.
	TargetIATA string

	// FreshnessWindow bounds how old an actual time may be. It must not exceed
	// the horizon covered by the signature index read window, or movements
	// older than the index but inside the window get written twice.
	FreshnessWindow time.Duration

	// Snapshots above the ceiling for their coarse direction AND faster than
	// GroundSpeedCeilingKt are considered cruising and skipped before the
	// detail fetch. Arrivals get the tighter ceiling.
	ArrivalCeilingFt     int
	DepartureCeilingFt   int
	UnknownCeilingFt     int
	GroundSpeedCeilingKt int

	// DelaySanityLimit zeroes delays whose magnitude exceeds it.
	DelaySanityLimit time.Duration

	// Resolver decides DEPARTURE vs ARRIVAL from the detail record.
	Resolver Resolver
}

// DefaultPolicy returns the policy for target with default thresholds and
// route-based resolution.
func DefaultPolicy(target string) Policy {
	return Policy{
		TargetIATA:           strings.ToUpper(strings.TrimSpace(target)),
		FreshnessWindow:      DefaultFreshnessWindow,
		ArrivalCeilingFt:     DefaultArrivalCeilingFt,
		DepartureCeilingFt:   DefaultDepartureCeilingFt,
		UnknownCeilingFt:     DefaultUnknownCeilingFt,
		GroundSpeedCeilingKt: DefaultGroundSpeedCeilingKt,
		DelaySanityLimit:     DefaultDelaySanityLimit,
		Resolver:             RouteResolver{},
	}
}

// Validate checks the policy for values that would silently drop every
// movement.
func (p Policy) Validate() error {
	if p.TargetIATA == "" {
		return fmt.Errorf("target airport is required")
	}
	if p.FreshnessWindow <= 0 {
		return fmt.Errorf("freshness window must be positive, got %v", p.FreshnessWindow)
	}
	if p.DelaySanityLimit <= 0 {
		return fmt.Errorf("delay sanity limit must be positive, got %v", p.DelaySanityLimit)
	}
	if p.Resolver == nil {
		return fmt.Errorf("movement resolver is required")
	}
	return nil
}

// ceilingFor picks the altitude ceiling for the snapshot's coarse direction.
func (p Policy) ceilingFor(origin, destination string) int {
	switch {
	case destination == p.TargetIATA:
		return p.ArrivalCeilingFt
	case origin == p.TargetIATA:
		return p.DepartureCeilingFt
	}
	return p.UnknownCeilingFt
}
