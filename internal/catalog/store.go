// Package catalog implements the product catalog engine: the record store
// that merges canonical and custom products, the filter predicates, the sort
// comparator and the query façade composing them.
package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/starford/timberline/internal/models"
	"github.com/starford/timberline/internal/storage"
)

// CustomKey is the storage key holding the persisted custom records.
const CustomKey = "custom-products"

// ErrDuplicateID is returned by Insert for an id that is already served.
var ErrDuplicateID = errors.New("catalog: duplicate product id")

// RecordStore supplies the effective product collection: the canonical
// dataset followed by every custom record whose id is not canonical.
//
// Canonical records always win on an id collision. A custom record written
// under a canonical id is kept in memory but never persisted and never
// served; edits to canonical products do not survive a reload.
type RecordStore struct {
	canonical    []models.Product
	canonicalIDs map[string]struct{}
	storage      storage.Provider
	logger       *slog.Logger

	// io is held from a snapshot of custom until that snapshot is in
	// storage, and across read plus assignment in Load. Lock order: io, mu.
	io sync.Mutex

	mu     sync.Mutex
	custom []models.Product
}

// NewRecordStore creates a store over the given canonical records and
// storage. A nil logger falls back to slog.Default.
func NewRecordStore(canonical []models.Product, st storage.Provider, logger *slog.Logger) *RecordStore {
	if st == nil {
		st = storage.NewNull()
	}
	if logger == nil {
		logger = slog.Default()
	}
	ids := make(map[string]struct{}, len(canonical))
	cp := make([]models.Product, 0, len(canonical))
	for _, p := range canonical {
		if _, dup := ids[p.ID]; dup {
			continue
		}
		ids[p.ID] = struct{}{}
		cp = append(cp, p.Clone())
	}
	return &RecordStore{
		canonical:    cp,
		canonicalIDs: ids,
		storage:      st,
		logger:       logger,
	}
}

// IsCanonical reports whether id belongs to the canonical dataset.
func (s *RecordStore) IsCanonical(id string) bool {
	_, ok := s.canonicalIDs[id]
	return ok
}

// Canonical returns a copy of the canonical dataset.
func (s *RecordStore) Canonical() []models.Product {
	return cloneAll(s.canonical)
}

// Custom returns a copy of the in-memory custom records.
func (s *RecordStore) Custom() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.custom)
}

// Load reads the persisted custom records and returns the merged collection.
// Storage that is missing or corrupt yields the canonical records alone; the
// failure is logged, never returned. With storage.Null the in-memory custom
// records are the only copy and are served as they are.
func (s *RecordStore) Load() []models.Product {
	s.io.Lock()
	defer s.io.Unlock()

	custom, ok := s.read()

	s.mu.Lock()
	if ok {
		s.custom = custom
	}
	out := s.merged()
	s.mu.Unlock()

	return out
}

// Persist overwrites the stored custom records with the non-canonical
// subset of custom. Write failures are logged, never returned.
func (s *RecordStore) Persist(custom []models.Product) {
	s.io.Lock()
	defer s.io.Unlock()
	s.write(s.withoutCanonical(custom))
}

// Upsert adds p to the custom records, or replaces the custom record with
// the same id, persists, and returns the merged collection.
func (s *RecordStore) Upsert(p models.Product) []models.Product {
	p = p.Normalize().Clone()

	s.io.Lock()
	defer s.io.Unlock()

	s.mu.Lock()
	replaced := false
	for i := range s.custom {
		if s.custom[i].ID == p.ID {
			s.custom[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.custom = append(s.custom, p)
	}
	snapshot := cloneAll(s.custom)
	out := s.merged()
	s.mu.Unlock()

	if s.IsCanonical(p.ID) {
		s.logger.Warn("record store: custom record shadows canonical id; canonical wins",
			slog.String("id", p.ID))
	}
	s.write(s.withoutCanonical(snapshot))
	return out
}

// Insert adds p as a new custom record and persists it. It fails with
// ErrDuplicateID when p's id is already in the merged collection.
func (s *RecordStore) Insert(p models.Product) ([]models.Product, error) {
	p = p.Normalize().Clone()

	s.io.Lock()
	defer s.io.Unlock()

	s.mu.Lock()
	if s.IsCanonical(p.ID) || slices.ContainsFunc(s.custom, func(c models.Product) bool { return c.ID == p.ID }) {
		s.mu.Unlock()
		return nil, ErrDuplicateID
	}
	s.custom = append(s.custom, p)
	snapshot := cloneAll(s.custom)
	out := s.merged()
	s.mu.Unlock()

	s.write(s.withoutCanonical(snapshot))
	return out, nil
}

// Remove drops the custom record with the given id, persists, and returns
// the merged collection. Canonical records cannot be removed.
func (s *RecordStore) Remove(id string) []models.Product {
	s.io.Lock()
	defer s.io.Unlock()

	s.mu.Lock()
	kept := s.custom[:0:0]
	for _, p := range s.custom {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.custom = kept
	snapshot := cloneAll(s.custom)
	out := s.merged()
	s.mu.Unlock()

	s.write(s.withoutCanonical(snapshot))
	return out
}

// merged must be called with mu held.
func (s *RecordStore) merged() []models.Product {
	out := make([]models.Product, 0, len(s.canonical)+len(s.custom))
	for _, p := range s.canonical {
		out = append(out, p.Clone())
	}
	seen := make(map[string]struct{}, len(s.custom))
	for _, p := range s.custom {
		if s.IsCanonical(p.ID) {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p.Clone())
	}
	return out
}

// withoutCanonical drops canonical ids and keeps the last record of every
// repeated id, preserving first-seen order.
func (s *RecordStore) withoutCanonical(custom []models.Product) []models.Product {
	pos := make(map[string]int, len(custom))
	out := make([]models.Product, 0, len(custom))
	for _, p := range custom {
		if p.ID == "" || s.IsCanonical(p.ID) {
			continue
		}
		if i, ok := pos[p.ID]; ok {
			out[i] = p
			continue
		}
		pos[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}

// read returns the persisted custom records. ok is false when there is no
// storage medium at all, in which case the result must not replace the
// in-memory set.
func (s *RecordStore) read() (_ []models.Product, ok bool) {
	data, err := s.storage.Get(CustomKey)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrUnavailable):
		return nil, false
	case errors.Is(err, storage.ErrNotFound):
		return nil, true
	default:
		s.logger.Warn("record store: read failed, serving canonical only",
			slog.String("error", err.Error()))
		return nil, true
	}

	var raw []models.Product
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("record store: corrupt custom records, serving canonical only",
			slog.String("error", err.Error()))
		return nil, true
	}
	out := make([]models.Product, 0, len(raw))
	for _, p := range raw {
		p = p.Normalize()
		if p.ID == "" {
			continue
		}
		out = append(out, p)
	}
	return out, true
}

func (s *RecordStore) write(custom []models.Product) {
	data, err := json.Marshal(custom)
	if err != nil {
		s.logger.Warn("record store: encode failed", slog.String("error", err.Error()))
		return
	}
	if err := s.storage.Set(CustomKey, data); err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			return
		}
		s.logger.Warn("record store: persist failed", slog.String("error", err.Error()))
	}
}

func cloneAll(in []models.Product) []models.Product {
	out := make([]models.Product, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
