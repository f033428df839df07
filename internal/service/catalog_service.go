package service

import (
	"context"
	"fmt"
	"log/slog"

	"wellmind/internal/cache"
	"wellmind/internal/logging"
	"wellmind/internal/model"
)

// CentroidSource supplies learned cluster definitions (the clustering backend)
type CentroidSource interface {
	Centroids(ctx context.Context) (model.CentroidsResponse, bool)
}

// CatalogService keeps the in-process catalog in step with the clustering backend
type CatalogService struct {
	store         *CatalogStore
	source        CentroidSource
	mirror        cache.CatalogCache
	expectedCount int
	log           *slog.Logger
}

// NewCatalogService creates a catalog service. mirror may be nil.
func NewCatalogService(store *CatalogStore, source CentroidSource, mirror cache.CatalogCache, expectedCount int) *CatalogService {
	return &CatalogService{
		store:         store,
		source:        source,
		mirror:        mirror,
		expectedCount: expectedCount,
		log:           logging.New("catalog"),
	}
}

// Current returns the snapshot assignments are using right now
func (s *CatalogService) Current() *model.ClusterCatalog {
	return s.store.Load()
}

// Refresh pulls retrained centroids and publishes them. When the backend cannot supply
// them the current snapshot stays in effect and usedFallback is true. A centroid set
// that fails validation is rejected with ErrInvalidCatalog.
func (s *CatalogService) Refresh(ctx context.Context) (*model.ClusterCatalog, bool, error) {
	resp, ok := s.source.Centroids(ctx)
	if !ok {
		return s.store.Load(), true, nil
	}

	if s.expectedCount > 0 && len(resp.Clusters) != s.expectedCount {
		s.log.Warn("unexpected cluster count", "got", len(resp.Clusters), "configured", s.expectedCount)
	}

	catalog, err := s.store.Publish(resp.Clusters, resp.TrainedAt)
	if err != nil {
		s.log.Warn("rejected centroid set", "error", err)
		return s.store.Load(), true, err
	}
	s.log.Info("published cluster catalog", "version", catalog.Version, "clusters", len(catalog.Definitions))

	if s.mirror != nil {
		if err := s.mirror.Save(ctx, catalog); err != nil {
			s.log.Warn("failed to mirror catalog", "error", err)
		}
	}
	return catalog, false, nil
}

// Restore installs the mirrored catalog, if any, so a restart does not lose learned centroids
func (s *CatalogService) Restore(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}
	catalog, err := s.mirror.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog mirror: %w", err)
	}
	restored, err := s.store.Restore(catalog)
	if err != nil {
		return err
	}
	if restored {
		s.log.Info("restored cluster catalog", "version", catalog.Version)
	}
	return nil
}
