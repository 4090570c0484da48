// Package extractor decides whether a single aircraft snapshot is a new,
// complete arrival or departure at the target airport and builds the event
// to record for it.
package extractor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/navid-fn/skywatch/internal/models"
	"github.com/navid-fn/skywatch/internal/signature"
)

// DetailFetcher returns the full record behind a snapshot.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, snap models.AircraftSnapshot) (models.FlightDetail, error)
}

// Extractor runs the decision pipeline for one snapshot at a time. It holds
// no per-run state; the signature index is passed in.
type Extractor struct {
	policy  Policy
	fetcher DetailFetcher
}

// New creates an Extractor.
func New(policy Policy, fetcher DetailFetcher) *Extractor {
	policy.TargetIATA = strings.ToUpper(strings.TrimSpace(policy.TargetIATA))
	if policy.Resolver == nil {
		policy.Resolver = RouteResolver{}
	}
	return &Extractor{policy: policy, fetcher: fetcher}
}

// Extract returns the event for snap, or a *Rejection naming the step that
// dropped it. Cheap checks run before the single detail fetch. On success
// the event's signature has been claimed in idx, so a later snapshot of the
// same movement in this run is rejected as a duplicate.
func (e *Extractor) Extract(ctx context.Context, snap models.AircraftSnapshot, now time.Time, idx *signature.Index) (models.MovementEvent, error) {
	target := e.policy.TargetIATA
	id := snap.Identifier()

	// 1. cruising traffic; an aircraft on the ground is never cruising
	ceiling := e.policy.ceilingFor(snap.Origin, snap.Destination)
	if !snap.OnGround && snap.Altitude > ceiling && snap.GroundSpeed > e.policy.GroundSpeedCeilingKt {
		return models.MovementEvent{}, reject(id, ErrAboveCeiling, nil)
	}

	// 2. feed knows both ends and neither is target; a single known end is
	// left to the detail record since the blank end may be target
	if snap.HasFullRoute() && snap.Origin != target && snap.Destination != target {
		return models.MovementEvent{}, reject(id, ErrOffRoute, nil)
	}

	// 3.
	detail, err := e.fetcher.FetchDetail(ctx, snap)
	if err != nil {
		return models.MovementEvent{}, reject(id, ErrDetailFetchFailed, err)
	}

	// 4. the detail record is authoritative over the feed
	if detail.Origin == nil && detail.Destination == nil {
		return models.MovementEvent{}, reject(id, ErrMalformedDetail, errors.New("no route in detail"))
	}
	if detail.OriginIATA() != target && detail.DestinationIATA() != target {
		return models.MovementEvent{}, reject(id, ErrNotRelevant, nil)
	}

	// 5.
	movement, err := e.policy.Resolver.Resolve(detail, target)
	if err != nil {
		if errors.Is(err, ErrNotRelevant) {
			return models.MovementEvent{}, reject(id, ErrNotRelevant, nil)
		}
		return models.MovementEvent{}, reject(id, ErrMalformedDetail, err)
	}

	// 6.
	actual, scheduled := legTimes(detail, movement)
	if actual == 0 {
		return models.MovementEvent{}, reject(id, ErrIncomplete, nil)
	}

	// 7. inclusive at exactly FreshnessWindow
	if now.Sub(time.Unix(actual, 0)) > e.policy.FreshnessWindow {
		return models.MovementEvent{}, reject(id, ErrStale, nil)
	}

	flightID := strings.TrimSpace(detail.FlightNumber)
	if flightID == "" {
		flightID = strings.TrimSpace(detail.Registration)
	}
	if flightID == "" {
		return models.MovementEvent{}, reject(id, ErrMalformedDetail, errors.New("no flight number or registration"))
	}

	// 8.
	sig := signature.Compose(flightID, actual)
	if idx.Contains(sig) {
		return models.MovementEvent{}, reject(flightID, ErrDuplicate, nil)
	}

	// 9.
	local, counterpart := ends(detail, movement)
	event := models.MovementEvent{
		CaptureTime:     now,
		FlightID:        flightID,
		Type:            movement,
		CounterpartIATA: orUnknown(counterpart.IATA),
		City:            orUnknown(counterpart.City),
		Country:         orUnknown(counterpart.Country),
		Airline:         orUnknown(detail.Airline),
		Terminal:        canonicalTerminal(local.Terminal),
		ActualTime:      time.Unix(actual, 0).UTC(),
		AircraftModel:   orUnknown(detail.AircraftModel),
		Registration:    orUnknown(detail.Registration),
		DelayMinutes:    delayMinutes(actual, scheduled, e.policy.DelaySanityLimit),
		Category:        categorize(detail.FlightNumber),
		Signature:       string(sig),
	}

	// 10. lost race against a concurrent worker for the same movement
	if !idx.Claim(sig) {
		return models.MovementEvent{}, reject(flightID, ErrDuplicate, nil)
	}
	return event, nil
}
