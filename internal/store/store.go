package store

import (
	"context"
	"errors"
	"time"
)

// Record is the unit of state persisted for one tracked process.
// Name is unique among live records within a scope. PID and LogPath are
// immutable after creation; changing the command requires stop + start.

type Record struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
	WorkDir   string    `json:"work_dir,omitempty"`
	Scope     string    `json:"scope"`
	LogPath   string    `json:"log_path"`
	StartedAt time.Time `json:"started_at"`
}

// ErrRecordNotFound is returned by Get when no record matches.
var ErrRecordNotFound = errors.New("record not found")

// Store is the persistence interface for process records. The backing
// medium may be mutated by other controller instances at any time, so
// implementations must not cache results across calls.
//
// List and Get apply scope visibility: a record is visible to a requesting
// scope when the stored scope equals it or is a path-component-boundary
// ancestor of it (see Matches).

type Store interface {
	List(ctx context.Context, scope string) ([]Record, error)
	Get(ctx context.Context, name, scope string) (Record, error)
	Put(ctx context.Context, rec Record) error
	Remove(ctx context.Context, name, scope string) error
	Close() error
}

// visible filters recs down to those a requesting scope may see, preferring
// exact scope matches for duplicate names.
func visible(recs []Record, scope string) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if Matches(r.Scope, scope) {
			out = append(out, r)
		}
	}
	return out
}

// findByName resolves a single name within the records visible to scope.
// An exact scope match wins over an ancestor match.
func findByName(recs []Record, name, scope string) (Record, bool) {
	var found Record
	var ok bool
	for _, r := range recs {
		if r.Name != name {
			continue
		}
		if sameScope(r.Scope, scope) {
			return r, true
		}
		if !ok {
			found, ok = r, true
		}
	}
	return found, ok
}
