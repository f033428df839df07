package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wellmind/internal/model"
)

func generationDefs(gen float64, n int) []model.ClusterDefinition {
	defs := make([]model.ClusterDefinition, n)
	for i := range defs {
		defs[i] = model.ClusterDefinition{
			ID:       string(rune('a' + i)),
			Centroid: model.ScoreVector{Stress: gen, Depression: float64(i) / float64(n), Anxiety: gen},
			Weight:   1 / float64(n),
			Active:   true,
		}
	}
	return defs
}

func TestCatalogStore_PublishVersionsAndCopies(t *testing.T) {
	s := NewCatalogStore()
	if s.Load().HasCentroids() {
		t.Fatal("new store should start without centroids")
	}

	defs := generationDefs(0.2, 5)
	first, err := s.Publish(defs, time.Unix(100, 0))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("Version = %d, want 1", first.Version)
	}

	defs[0].Centroid.Stress = 0.99
	if s.Load().Definitions[0].Centroid.Stress != 0.2 {
		t.Error("published catalog shares memory with the caller's slice")
	}

	second, err := s.Publish(generationDefs(0.4, 5), time.Unix(200, 0))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if second.Version != 2 || s.Load() != second {
		t.Errorf("second publish not current: version %d", second.Version)
	}
	if first.Definitions[0].Centroid.Stress != 0.2 {
		t.Error("old snapshot was modified by a later publish")
	}
}

func TestCatalogStore_RejectsInvalid(t *testing.T) {
	dup := generationDefs(0.3, 2)
	dup[1].ID = dup[0].ID

	outOfRange := generationDefs(0.3, 2)
	outOfRange[0].Centroid.Anxiety = 1.5

	inactive := generationDefs(0.3, 2)
	for i := range inactive {
		inactive[i].Active = false
	}

	tests := map[string][]model.ClusterDefinition{
		"empty":        nil,
		"duplicate":    dup,
		"out of range": outOfRange,
		"none active":  inactive,
	}
	for name, defs := range tests {
		t.Run(name, func(t *testing.T) {
			s := NewCatalogStore()
			_, err := s.Publish(defs, time.Now())
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Fatalf("expected ErrInvalidCatalog, got %v", err)
			}
			if s.Load().Version != 0 {
				t.Error("rejected catalog was published")
			}
		})
	}
}

func TestCatalogStore_RestoreOnlyNewer(t *testing.T) {
	s := NewCatalogStore()
	if _, err := s.Publish(generationDefs(0.1, 3), time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Publish(generationDefs(0.2, 3), time.Now()); err != nil {
		t.Fatal(err)
	}

	ok, err := s.Restore(&model.ClusterCatalog{Version: 1, Definitions: generationDefs(0.9, 3)})
	if err != nil || ok {
		t.Errorf("older snapshot restored: ok=%v err=%v", ok, err)
	}

	ok, err = s.Restore(&model.ClusterCatalog{Version: 7, Definitions: generationDefs(0.9, 3)})
	if err != nil || !ok {
		t.Fatalf("newer snapshot not restored: ok=%v err=%v", ok, err)
	}
	if got := s.Load(); got.Version != 7 || got.Definitions[0].Centroid.Stress != 0.9 {
		t.Errorf("restored catalog = %+v", got)
	}
}

// Readers assert every snapshot they load comes from a single generation.
func TestCatalogStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := NewCatalogStore()
	if _, err := s.Publish(generationDefs(0, 5), time.Now()); err != nil {
		t.Fatal(err)
	}
	a := NewClusterAssigner(0.01)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	errs := make(chan string, 8)

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				c := s.Load()
				gen := c.Definitions[0].Centroid.Stress
				for _, d := range c.Definitions {
					if d.Centroid.Stress != gen || d.Centroid.Anxiety != gen {
						errs <- "mixed generations in one snapshot"
						return
					}
				}
				a.Assign(model.ScoreVector{Stress: 0.5, Depression: 0.5, Anxiety: 0.5}, c)
			}
		}()
	}

	for gen := 1; gen <= 200; gen++ {
		if _, err := s.Publish(generationDefs(float64(gen)/200, 5), time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	cancel()
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
	if s.Load().Version != 201 {
		t.Errorf("Version = %d, want 201", s.Load().Version)
	}
}

type fakeCentroidSource struct {
	resp model.CentroidsResponse
	ok   bool
}

func (f fakeCentroidSource) Centroids(context.Context) (model.CentroidsResponse, bool) {
	return f.resp, f.ok
}

func TestCatalogService_Refresh(t *testing.T) {
	store := NewCatalogStore()

	down := NewCatalogService(store, fakeCentroidSource{}, nil, 5)
	c, usedFallback, err := down.Refresh(context.Background())
	if err != nil || !usedFallback || c.HasCentroids() {
		t.Fatalf("backend down: catalog=%+v usedFallback=%v err=%v", c, usedFallback, err)
	}

	up := NewCatalogService(store, fakeCentroidSource{
		resp: model.CentroidsResponse{Clusters: generationDefs(0.3, 5), TrainedAt: time.Unix(500, 0)},
		ok:   true,
	}, nil, 5)
	c, usedFallback, err = up.Refresh(context.Background())
	if err != nil || usedFallback {
		t.Fatalf("Refresh: usedFallback=%v err=%v", usedFallback, err)
	}
	if c.Version != 1 || !store.Load().HasCentroids() {
		t.Errorf("catalog not published: %+v", c)
	}

	invalid := NewCatalogService(store, fakeCentroidSource{
		resp: model.CentroidsResponse{Clusters: nil},
		ok:   true,
	}, nil, 5)
	c, usedFallback, err = invalid.Refresh(context.Background())
	if !errors.Is(err, ErrInvalidCatalog) || !usedFallback || c.Version != 1 {
		t.Errorf("invalid set: version=%d usedFallback=%v err=%v", c.Version, usedFallback, err)
	}
}
