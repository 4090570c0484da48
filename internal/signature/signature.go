// Package signature derives movement dedup keys and keeps the per-run set of
// keys already present in the event store.
package signature

import (
	"strconv"
	"strings"

	"github.com/navid-fn/skywatch/internal/models"
)

// Signature is the dedup key of a movement: "{flight_id}_{actual_unix}".
// It only depends on the flight identifier and the actual timestamp, so it is
// stable across restarts and extractor revisions.
type Signature string

const separator = "_"

// Compose builds the signature for a flight and its actual time in unix seconds.
func Compose(flightID string, actualUnix int64) Signature {
	return compose(flightID, strconv.FormatInt(actualUnix, 10))
}

func compose(flightID, ts string) Signature {
	return Signature(strings.TrimSpace(flightID) + separator + ts)
}

// FromRow rebuilds the signature of a stored row. The flight id column is
// authoritative; the signature column may hold either a full signature or a
// bare timestamp, possibly rendered by the store as "1700000000.0",
// "1.7E+09" or "1,700,000,000". ok is false for header and short rows.
func FromRow(row models.Row) (Signature, bool) {
	if len(row) < models.RowWidth {
		return "", false
	}
	flightID := strings.TrimSpace(row[models.ColFlightID])
	if flightID == "" || flightID == models.Header[models.ColFlightID] {
		return "", false
	}

	cell := strings.TrimSpace(row[models.ColSignature])
	if i := strings.LastIndex(cell, separator); i >= 0 {
		cell = cell[i+len(separator):]
	}
	ts := NormalizeTimestamp(cell)
	if ts == "" {
		return "", false
	}
	return compose(flightID, ts), true
}

// NormalizeTimestamp renders a numeric timestamp as a plain integer string.
// Values that are not numeric are returned trimmed and unchanged.
func NormalizeTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	plain := strings.ReplaceAll(s, ",", "")
	if f, err := strconv.ParseFloat(plain, 64); err == nil {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
