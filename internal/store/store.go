// Package store holds the shared incident map. It is the only shared mutable
// structure in the system: creation is atomic, mutations are serialized per
// incident id, and assignment reads work on point-in-time snapshot copies.
package store

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ppiankov/sitrep/internal/model"
)

// ErrNotFound is returned when an incident id is unknown
var ErrNotFound = errors.New("incident not found")

type entry struct {
	mu       sync.Mutex
	incident *model.Incident
}

// Store is a concurrent map of incident id to belief state
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty store
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// NewIncidentID allocates a fresh incident id
func NewIncidentID() string {
	return "incident-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CreateIfAbsent creates an empty incident under id if none exists. Returns
// true when a new incident was created. The new incident is visible to every
// subsequent Apply and Snapshot before this returns.
func (s *Store) CreateIfAbsent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return false
	}
	s.entries[id] = &entry{incident: model.NewIncident(id)}
	return true
}

// Apply runs fn on the incident under its per-incident lock. Concurrent
// applies to the same incident never interleave.
func (s *Store) Apply(id string, fn func(*model.Incident)) error {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.incident)
	return nil
}

// Get returns a deep copy of one incident's belief state
func (s *Store) Get(id string) (*model.Incident, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.incident.Clone(), nil
}

// State returns the serialized view of one incident
func (s *Store) State(id string) (model.IncidentState, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return model.IncidentState{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.incident.State(), nil
}

// Entry is one incident in a snapshot, deep-copied and safe to read while
// the live incident keeps mutating.
type Entry struct {
	ID          string
	Incident    *model.Incident
	LastUpdated string
}

// Snapshot returns a point-in-time copy of every incident. The view may be
// stale relative to concurrent writers; assignment only needs correctness
// within the single incident it ultimately writes to.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	refs := make([]*entry, 0, len(s.entries))
	for id, e := range s.entries {
		ids = append(ids, id)
		refs = append(refs, e)
	}
	s.mu.RUnlock()

	out := make([]Entry, 0, len(ids))
	for i, e := range refs {
		e.mu.Lock()
		clone := e.incident.Clone()
		e.mu.Unlock()
		out = append(out, Entry{ID: ids[i], Incident: clone, LastUpdated: clone.LastUpdated})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs lists known incident ids, sorted
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of known incidents
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
