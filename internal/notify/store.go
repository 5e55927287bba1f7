package notify

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/tartampluch/go-perks/internal/config"
)

// Pending is one reminder held by the in-memory delivery store, decoded and
// ready for dispatch.
type Pending struct {
	DedupeKey string
	FireAt    time.Time
	Payload   Payload
}

// MemoryDelivery is the local-process Delivery implementation. Reminders sit
// in memory until their fire time, when the application's dispatch worker pops
// and displays them. The mutex guards against the dispatch worker and a
// reconcile pass overlapping.
type MemoryDelivery struct {
	mu      sync.Mutex
	pending map[string]Pending
	nextID  int
	closed  bool
}

// NewMemoryDelivery creates an empty delivery store.
func NewMemoryDelivery() *MemoryDelivery {
	return &MemoryDelivery{pending: make(map[string]Pending)}
}

// Schedule stores the reminder under its dedupe key. Scheduling an existing
// key replaces it, which keeps the "at most one pending per key" invariant
// even if a caller bypasses the coordinator.
func (d *MemoryDelivery) Schedule(_ context.Context, dedupeKey string, fireAt time.Time, payload []byte) (string, error) {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", errors.New(config.ErrDeliveryClosed)
	}

	d.nextID++
	d.pending[dedupeKey] = Pending{DedupeKey: dedupeKey, FireAt: fireAt, Payload: p}
	return strconv.Itoa(d.nextID), nil
}

// Cancel removes a pending reminder. Cancelling an absent key is a no-op, not
// an error: the reminder may simply have fired already.
func (d *MemoryDelivery) Cancel(_ context.Context, dedupeKey string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New(config.ErrDeliveryClosed)
	}
	delete(d.pending, dedupeKey)
	return nil
}

// ListScheduled returns the dedupe keys of all pending reminders in
// deterministic order.
func (d *MemoryDelivery) ListScheduled(_ context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New(config.ErrDeliveryClosed)
	}

	keys := make([]string, 0, len(d.pending))
	for key := range d.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// PopDue removes and returns every reminder whose fire time is at or before
// "now", soonest first. The dispatch worker calls this on each tick.
func (d *MemoryDelivery) PopDue(now time.Time) []Pending {
	d.mu.Lock()
	defer d.mu.Unlock()

	var due []Pending
	for key, p := range d.pending {
		if !p.FireAt.After(now) {
			due = append(due, p)
			delete(d.pending, key)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	return due
}

// Close rejects all further scheduling calls.
func (d *MemoryDelivery) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}
