package store

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rickgao/portfolio-sync/internal/metrics"
	"github.com/rickgao/portfolio-sync/internal/model"
)

// Errors
var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrValueType       = errors.New("value type does not match resource")
)

// Entry is the stored value of one resource.
type Entry struct {
	Resource  model.Resource `json:"-"`
	Value     any            `json:"value"`
	Version   uint64         `json:"version"`
	Source    model.Source   `json:"source"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Change is delivered to subscribers after every write. Each subscriber
// receives its own copy of list values.
type Change struct {
	Resource model.Resource
	Value    any
	Version  uint64
	Source   model.Source
	At       time.Time
}

// Store is the thread-safe resource cache.
type Store struct {
	writeMu sync.Mutex // serializes Write and its notifications

	mu      sync.RWMutex
	entries map[model.Resource]*Entry
	subs    map[uint64]func(Change)
	nextSub uint64

	now    func() time.Time
	logger *slog.Logger
}

// New creates an empty Store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entries: make(map[model.Resource]*Entry),
		subs:    make(map[uint64]func(Change)),
		now:     time.Now,
		logger:  logger,
	}
}

// Write replaces the value of r and returns the new version.
func (s *Store) Write(r model.Resource, value any, source model.Source) (uint64, error) {
	if !r.Valid() {
		return 0, fmt.Errorf("write %d: %w", int(r), ErrUnknownResource)
	}
	v, err := normalize(r, value)
	if err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now()

	s.mu.Lock()
	e, ok := s.entries[r]
	if !ok {
		e = &Entry{Resource: r}
		s.entries[r] = e
	}
	e.Value = v
	e.Version++
	e.Source = source
	e.UpdatedAt = now
	change := Change{
		Resource: r,
		Value:    v,
		Version:  e.Version,
		Source:   source,
		At:       now,
	}
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	metrics.StoreWrites.WithLabelValues(r.String(), string(source)).Inc()
	s.logger.Debug("resource updated",
		"resource", r,
		"version", change.Version,
		"source", source,
	)

	for _, fn := range subs {
		c := change
		c.Value = cloneValue(v)
		s.notify(fn, c)
	}

	return change.Version, nil
}

// notify calls fn, containing any panic so one bad subscriber cannot break
// the write path.
func (s *Store) notify(fn func(Change), c Change) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("store subscriber panicked",
				"resource", c.Resource,
				"panic", p,
			)
		}
	}()
	fn(c)
}

// Read returns a copy of the entry for r. ok is false while r is unloaded.
func (s *Store) Read(r model.Resource) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[r]
	if !ok {
		return Entry{Resource: r}, false
	}
	out := *e
	out.Value = cloneValue(e.Value)
	return out, true
}

// Version returns the write count of r; 0 means unloaded.
func (s *Store) Version(r model.Resource) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[r]; ok {
		return e.Version
	}
	return 0
}

// Snapshot returns every loaded entry in resource order.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, r := range model.AllResources {
		if e, ok := s.entries[r]; ok {
			c := *e
			c.Value = cloneValue(e.Value)
			out = append(out, c)
		}
	}
	return out
}

// Subscribe registers fn for every subsequent write. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// normalize checks the dynamic type of value against r and copies list
// values so later mutation by the caller cannot reach the store.
func normalize(r model.Resource, value any) (any, error) {
	switch r {
	case model.Balance:
		switch v := value.(type) {
		case model.Wallet:
			return cloneValue(v), nil
		case *model.Wallet:
			if v != nil {
				return cloneValue(*v), nil
			}
		}
	case model.Allocation:
		if v, ok := value.([]model.AllocationEntry); ok {
			return cloneList(v), nil
		}
	case model.Holdings:
		if v, ok := value.([]model.Position); ok {
			return cloneList(v), nil
		}
	case model.Transactions:
		if v, ok := value.([]model.Transaction); ok {
			return cloneList(v), nil
		}
	case model.Alerts:
		if v, ok := value.([]model.Alert); ok {
			return cloneList(v), nil
		}
	}
	return nil, fmt.Errorf("write %s (%T): %w", r, value, ErrValueType)
}

// cloneValue copies list values and the wallet timestamp so readers and subscribers never share the
// stored backing array.
func cloneValue(value any) any {
	switch v := value.(type) {
	case model.Wallet:
		if v.UpdatedAt != nil {
			ts := *v.UpdatedAt
			v.UpdatedAt = &ts
		}
		return v
	case []model.AllocationEntry:
		return cloneList(v)
	case []model.Position:
		return cloneList(v)
	case []model.Transaction:
		return cloneList(v)
	case []model.Alert:
		return cloneList(v)
	}
	return value
}

func cloneList[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return slices.Clone(v)
}
