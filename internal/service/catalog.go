package service

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"wellmind/internal/model"
)

var ErrInvalidCatalog = errors.New("invalid cluster catalog")

// CatalogStore publishes immutable ClusterCatalog snapshots.
// Readers call Load and keep the pointer for the duration of one assignment;
// Publish swaps in a fresh copy so a reader never sees a mix of two generations.
type CatalogStore struct {
	current atomic.Pointer[model.ClusterCatalog]
	writeMu sync.Mutex
}

// NewCatalogStore creates a store holding an empty catalog (fixed scheme in effect)
func NewCatalogStore() *CatalogStore {
	s := &CatalogStore{}
	s.current.Store(&model.ClusterCatalog{})
	return s
}

// Load returns the current snapshot. Never nil.
func (s *CatalogStore) Load() *model.ClusterCatalog {
	return s.current.Load()
}

// Publish validates defs and makes them the current snapshot
func (s *CatalogStore) Publish(defs []model.ClusterDefinition, trainedAt time.Time) (*model.ClusterCatalog, error) {
	if err := validateDefinitions(defs); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := &model.ClusterCatalog{
		Version:     s.current.Load().Version + 1,
		Definitions: cloneDefinitions(defs),
		TrainedAt:   trainedAt,
	}
	s.current.Store(next)
	return next, nil
}

// Restore installs a previously published snapshot if it is newer than the current one
func (s *CatalogStore) Restore(c *model.ClusterCatalog) (bool, error) {
	if c == nil {
		return false, nil
	}
	if err := validateDefinitions(c.Definitions); err != nil {
		return false, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if c.Version <= s.current.Load().Version {
		return false, nil
	}
	s.current.Store(&model.ClusterCatalog{
		Version:     c.Version,
		Definitions: cloneDefinitions(c.Definitions),
		TrainedAt:   c.TrainedAt,
	})
	return true, nil
}

func validateDefinitions(defs []model.ClusterDefinition) error {
	if len(defs) == 0 {
		return fmt.Errorf("%w: no clusters", ErrInvalidCatalog)
	}
	seen := make(map[string]bool, len(defs))
	active := 0
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("%w: cluster without id", ErrInvalidCatalog)
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: duplicate cluster id %q", ErrInvalidCatalog, d.ID)
		}
		seen[d.ID] = true
		if !d.Centroid.Valid() {
			return fmt.Errorf("%w: cluster %q centroid out of range", ErrInvalidCatalog, d.ID)
		}
		if d.Active {
			active++
		}
	}
	if active == 0 {
		return fmt.Errorf("%w: no active clusters", ErrInvalidCatalog)
	}
	return nil
}

func cloneDefinitions(defs []model.ClusterDefinition) []model.ClusterDefinition {
	out := make([]model.ClusterDefinition, len(defs))
	for i, d := range defs {
		out[i] = d
		if d.Canonical != nil {
			id := *d.Canonical
			out[i].Canonical = &id
		}
		if d.Covariance != nil {
			out[i].Covariance = append([]float64(nil), d.Covariance...)
		}
	}
	return out
}
