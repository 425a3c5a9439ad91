package storage

import (
	"sort"
	"sync"

	"KoordeDHT/internal/domain"
	"KoordeDHT/internal/logger"
)

// Storage is the node's local DataStore: an in-memory key-value map plus
// the parallel raw-key index implied by domain.Resource, concurrency-safe
// and suitable for the single-process node model described in the ring spec.
type Storage struct {
	lgr  logger.Logger
	mu   sync.RWMutex
	data map[string]domain.Resource // keyed by the hex-encoded hash
}

// NewMemoryStorage creates and returns a new, empty in-memory store.
func NewMemoryStorage(lgr logger.Logger) *Storage {
	s := &Storage{
		lgr:  lgr,
		data: make(map[string]domain.Resource),
	}
	s.lgr.Debug("storage initialized")
	return s
}

// Store inserts or overwrites the given resource, keyed by its hash.
func (s *Storage) Store(resource domain.Resource) {
	key := resource.Key.String()
	s.mu.Lock()
	_, existed := s.data[key]
	s.data[key] = resource
	s.mu.Unlock()
	if existed {
		s.lgr.Debug("Store: resource updated", logger.FResource("resource", resource))
	} else {
		s.lgr.Debug("Store: resource inserted", logger.FResource("resource", resource))
	}
}

// Get retrieves the resource with the given hash.
// If the key is not present, it returns domain.ErrResourceNotFound.
func (s *Storage) Get(id domain.ID) (domain.Resource, error) {
	key := id.String()

	s.mu.RLock()
	res, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		s.lgr.Debug("Get: resource not found", logger.F("key", key))
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	s.lgr.Debug("Get: resource retrieved", logger.FResource("resource", res))
	return res, nil
}

// Delete removes the resource with the given hash.
// If the key is not present, it returns domain.ErrResourceNotFound.
func (s *Storage) Delete(id domain.ID) error {
	key := id.String()
	s.mu.Lock()
	_, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	s.mu.Unlock()
	if !ok {
		s.lgr.Debug("Delete: resource not found", logger.F("key", key))
		return domain.ErrResourceNotFound
	}
	s.lgr.Debug("Delete: resource removed", logger.F("key", key))
	return nil
}

// KeysInArc returns all resources whose hash lies in the arc (from, to].
// The wrap-around case (from > to) is handled by domain.ID.Between.
func (s *Storage) KeysInArc(from, to domain.ID) []domain.Resource {
	s.mu.RLock()
	var result []domain.Resource
	for _, res := range s.data {
		if res.Key.Between(from, to) {
			result = append(result, res)
		}
	}
	s.mu.RUnlock()
	s.lgr.Debug("KeysInArc: range query completed",
		logger.F("from", from.String()),
		logger.F("to", to.String()),
		logger.F("count", len(result)),
	)
	return result
}

// Extract atomically removes and returns the resources matching the given
// hashes. Hashes with no matching resource are silently skipped.
func (s *Storage) Extract(keys []domain.ID) []domain.Resource {
	s.mu.Lock()
	out := make([]domain.Resource, 0, len(keys))
	for _, k := range keys {
		key := k.String()
		if res, ok := s.data[key]; ok {
			out = append(out, res)
			delete(s.data, key)
		}
	}
	s.mu.Unlock()
	s.lgr.Debug("Extract: resources removed", logger.F("count", len(out)))
	return out
}

// Absorb bulk-inserts the given resources, overwriting any existing entry
// with the same hash.
func (s *Storage) Absorb(resources []domain.Resource) {
	s.mu.Lock()
	for _, res := range resources {
		s.data[res.Key.String()] = res
	}
	s.mu.Unlock()
	s.lgr.Debug("Absorb: resources inserted", logger.F("count", len(resources)))
}

// All returns a snapshot of every resource currently stored.
// The slice is a copy and modifications to it do not affect the storage.
func (s *Storage) All() []domain.Resource {
	s.mu.RLock()
	result := make([]domain.Resource, 0, len(s.data))
	for _, res := range s.data {
		result = append(result, res)
	}
	s.mu.RUnlock()
	return result
}

// Snapshot is an alias for All, named for its use from the GET_STATUS
// diagnostic handler and from the churn tester's consistency checks.
func (s *Storage) Snapshot() []domain.Resource {
	return s.All()
}

// Len returns the number of resources currently stored.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// DebugLog emits a structured DEBUG-level log with the contents of the store.
func (s *Storage) DebugLog() {
	snapshot := s.All()
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].Key.String() < snapshot[j].Key.String()
	})
	entries := make([]map[string]any, 0, len(snapshot))
	for _, res := range snapshot {
		entries = append(entries, map[string]any{
			"key":   res.Key.String(),
			"value": res.Value,
		})
	}
	s.lgr.Debug("Storage snapshot",
		logger.F("count", len(snapshot)),
		logger.F("resources", entries),
	)
}
