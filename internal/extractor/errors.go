package extractor

import (
	"errors"
	"fmt"
)

// Rejection reasons, one per pipeline step that can drop a snapshot.
var (
	ErrAboveCeiling      = errors.New("above approach/climb envelope")
	ErrOffRoute          = errors.New("feed route does not touch target airport")
	ErrDetailFetchFailed = errors.New("detail fetch failed")
	ErrMalformedDetail   = errors.New("malformed flight detail")
	ErrNotRelevant       = errors.New("flight does not serve target airport")
	ErrIncomplete        = errors.New("no actual time for movement yet")
	ErrStale             = errors.New("actual time outside freshness window")
	ErrDuplicate         = errors.New("movement already recorded")
)

// Rejection explains why a snapshot produced no event. It unwraps to both the
// reason sentinel and the underlying cause, if any.
type Rejection struct {
	Snapshot string
	Reason   error
	Cause    error
}

func (r *Rejection) Error() string {
	if r.Cause != nil {
		return fmt.Sprintf("snapshot %s: %v: %v", r.Snapshot, r.Reason, r.Cause)
	}
	return fmt.Sprintf("snapshot %s: %v", r.Snapshot, r.Reason)
}

func (r *Rejection) Unwrap() []error {
	if r.Cause != nil {
		return []error{r.Reason, r.Cause}
	}
	return []error{r.Reason}
}

func reject(snapshot string, reason, cause error) *Rejection {
	return &Rejection{Snapshot: snapshot, Reason: reason, Cause: cause}
}

// ReasonOf returns a short label for the rejection reason of err, suitable for
// metric labels and run summaries.
func ReasonOf(err error) string {
	var r *Rejection
	if !errors.As(err, &r) {
		return "error"
	}
	switch r.Reason {
	case ErrAboveCeiling:
		return "above_ceiling"
	case ErrOffRoute:
		return "off_route"
	case ErrDetailFetchFailed:
		return "detail_fetch_failed"
	case ErrMalformedDetail:
		return "malformed_detail"
	case ErrNotRelevant:
		return "not_relevant"
	case ErrIncomplete:
		return "incomplete"
	case ErrStale:
		return "stale"
	case ErrDuplicate:
		return "duplicate"
	}
	return "error"
}
