package assignments

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/omarvelez/fleetdriver-app/pkg/enums"
	"github.com/omarvelez/fleetdriver-app/pkg/logger"
	"github.com/omarvelez/fleetdriver-app/pkg/metrics"
)

type lister interface {
	List(ctx context.Context) ([]TempAssignment, error)
}

// Repository is the exclusive owner of the authoritative assignment list.
// All mutation is via server round-trip followed by Refresh; other
// components hold only ids and snapshot copies.
type Repository struct {
	client  lister
	logg    *logger.Logger
	metrics *metrics.LifecycleMetrics

	mu          sync.Mutex
	assignments []TempAssignment
	issuedSeq   uint64
	appliedSeq  uint64
	subscribers []func()
}

// NewRepository builds a repository over the backend client.
func NewRepository(client lister, logg *logger.Logger, m *metrics.LifecycleMetrics) (*Repository, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Repository{client: client, logg: logg, metrics: m}, nil
}

// Subscribe registers fn to run after every applied refresh.
func (r *Repository) Subscribe(fn func()) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.subscribers = append(r.subscribers, fn)
	r.mu.Unlock()
}

// Refresh fetches the current list and applies it if no later-issued fetch
// has already been applied. Stale responses are discarded, never merged, so
// the latest issued fetch always wins regardless of completion order.
func (r *Repository) Refresh(ctx context.Context, trigger enums.RefetchTrigger) error {
	r.mu.Lock()
	r.issuedSeq++
	seq := r.issuedSeq
	r.mu.Unlock()

	ctx = r.logg.WithField(ctx, "refetch_trigger", string(trigger))
	r.metrics.IncRefetch(string(trigger))

	fetched, err := r.client.List(ctx)
	if err != nil {
		return err
	}

	sort.Slice(fetched, func(i, j int) bool {
		if !fetched[i].StartDatetime.Equal(fetched[j].StartDatetime) {
			return fetched[i].StartDatetime.Before(fetched[j].StartDatetime)
		}
		return fetched[i].ID.String() < fetched[j].ID.String()
	})

	r.mu.Lock()
	if seq <= r.appliedSeq {
		r.mu.Unlock()
		r.metrics.IncStaleFetch()
		r.logg.Info(ctx, "discarding stale fetch response")
		return nil
	}
	r.appliedSeq = seq
	r.assignments = fetched
	subscribers := make([]func(), len(r.subscribers))
	copy(subscribers, r.subscribers)
	r.mu.Unlock()

	r.logg.Info(ctx, "assignment list refreshed")
	for _, fn := range subscribers {
		fn()
	}
	return nil
}

// Snapshot returns a copy of the current list, stable-ordered for display.
func (r *Repository) Snapshot() []TempAssignment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TempAssignment, len(r.assignments))
	copy(out, r.assignments)
	return out
}

// Get returns a copy of the assignment with the given id.
func (r *Repository) Get(id uuid.UUID) (TempAssignment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, assignment := range r.assignments {
		if assignment.ID == id {
			return assignment, true
		}
	}
	return TempAssignment{}, false
}

// Active returns a copy of the first assignment whose fetched status is
// active, if any.
func (r *Repository) Active() (TempAssignment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, assignment := range r.assignments {
		if assignment.IsActive() {
			return assignment, true
		}
	}
	return TempAssignment{}, false
}
