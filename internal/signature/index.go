package signature

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/skywatch/internal/models"
)

// Index is the set of signatures already recorded. It is built fresh for
// every run and discarded at the end of it. Safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	seen     map[Signature]struct{}
	degraded bool
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{seen: make(map[Signature]struct{})}
}

// Build indexes stored rows. Short rows and header rows are skipped.
func Build(rows []models.Row) *Index {
	idx := NewIndex()
	for _, row := range rows {
		if sig, ok := FromRow(row); ok {
			idx.seen[sig] = struct{}{}
		}
	}
	return idx
}

// Contains reports whether sig was already recorded.
func (i *Index) Contains(sig Signature) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.seen[sig]
	return ok
}

// Claim adds sig and reports whether it was new. Of two callers claiming the
// same signature exactly one gets true.
func (i *Index) Claim(sig Signature) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[sig]; ok {
		return false
	}
	i.seen[sig] = struct{}{}
	return true
}

// Len returns the number of signatures.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.seen)
}

// Signatures returns a copy of the keys in no particular order.
func (i *Index) Signatures() []Signature {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Signature, 0, len(i.seen))
	for sig := range i.seen {
		out = append(out, sig)
	}
	return out
}

// Degraded reports whether the index was built empty because the store
// could not be read.
func (i *Index) Degraded() bool {
	return i.degraded
}

// ReadFunc reads the bounded recent tail of the event store.
type ReadFunc func(ctx context.Context) ([]models.Row, error)

// Load builds the index from whatever read returns. A failed read yields an
// empty index and the run treats every movement as new.
func Load(ctx context.Context, read ReadFunc, logger logrus.FieldLogger) *Index {
	rows, err := read(ctx)
	if err != nil {
		logger.WithError(err).Warn("Signature index degraded to empty set, duplicates possible this run")
		idx := NewIndex()
		idx.degraded = true
		return idx
	}
	idx := Build(rows)
	logger.WithFields(logrus.Fields{"rows": len(rows), "signatures": idx.Len()}).Debug("Signature index built")
	return idx
}
