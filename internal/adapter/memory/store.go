// Package memory provides an in-process ReadingStore.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/domain"
)

// Store keeps the latest reading per location in memory. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	readings   map[string]domain.ReadingDocument
	lastUpdate time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{readings: make(map[string]domain.ReadingDocument)}
}

func (s *Store) UpsertAll(ctx context.Context, snapshot domain.Snapshot) error {
	for _, r := range snapshot.Readings {
		if err := ctx.Err(); err != nil {
			return &domain.StoreError{Op: "upsert reading", Err: err}
		}
		s.mu.Lock()
		s.readings[r.ID] = domain.NewReadingDocument(r, snapshot.FetchedAt)
		s.mu.Unlock()
	}
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "write marker", Err: err}
	}
	s.mu.Lock()
	s.lastUpdate = snapshot.FetchedAt.UTC()
	s.mu.Unlock()
	return nil
}

// ReadLatest returns readings ordered by location name, then ID.
func (s *Store) ReadLatest(ctx context.Context, limit int) ([]domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: "read latest", Err: err}
	}

	s.mu.RLock()
	out := make([]domain.Reading, 0, len(s.readings))
	for id, doc := range s.readings {
		r, err := doc.Reading(id)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationName != out[j].LocationName {
			return out[i].LocationName < out[j].LocationName
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) LastUpdate(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, &domain.StoreError{Op: "read marker", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate, nil
}
