package scheduler

import (
	"sort"
	"sync"
	"time"

	"icsfix/internal/model"
)

// JobStatus is the published state of one feed job.
type JobStatus struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Summary     string    `json:"summary,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	Events      int       `json:"events"`
	FromCache   bool      `json:"from_cache"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty"`
}

type entry struct {
	status JobStatus
	result *model.Result
}

// Store keeps the latest reshaped document of every job. A failed refresh
// keeps the previous document and only records the error.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Get returns the latest document for a job.
func (s *Store) Get(id string) (model.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || e.result == nil {
		return model.Result{}, false
	}
	return *e.result, true
}

// Statuses lists all known jobs ordered by ID.
func (s *Store) Statuses() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobStatus, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) put(id, name string, res model.Result, fromCache bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(id, name)
	e.result = &res
	e.status.Summary = res.Summary
	e.status.Filename = res.Filename
	e.status.Events = res.Blocks * res.Occurrences
	e.status.FromCache = fromCache
	e.status.UpdatedAt = at
	e.status.LastError = ""
	e.status.LastErrorAt = time.Time{}
}

func (s *Store) fail(id, name string, err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(id, name)
	e.status.LastError = err.Error()
	e.status.LastErrorAt = at
}

func (s *Store) ensure(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(id, name)
}

// entry must be called with s.mu held.
func (s *Store) entry(id, name string) *entry {
	e, ok := s.entries[id]
	if !ok {
		e = &entry{status: JobStatus{ID: id, Name: name}}
		s.entries[id] = e
	}
	return e
}
