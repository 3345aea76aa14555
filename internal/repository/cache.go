package repository

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Shivanand-hulikatti/runclub/internal/log"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
)

// CachedRunStore is a read-through cache for run metadata in front of a
// RunStore. Only GetByID is cached. Counts, occupancy and listings always
// reach the store, so admission decisions never see cached state.
type CachedRunStore struct {
	RunStore
	cache *gocache.Cache
}

// NewCachedRunStore wraps store with an in-memory cache.
func NewCachedRunStore(store RunStore, ttl, cleanupInterval time.Duration) *CachedRunStore {
	return &CachedRunStore{
		RunStore: store,
		cache:    gocache.New(ttl, cleanupInterval),
	}
}

// GetByID returns the cached run when present, otherwise loads and caches it.
// The caller receives a copy it may modify.
func (c *CachedRunStore) GetByID(ctx context.Context, id string) (*model.Run, error) {
	if v, found := c.cache.Get(id); found {
		if run, ok := v.(model.Run); ok {
			log.Debug(log.CatCache, "cache hit", "run_id", id)
			return &run, nil
		}
		log.Error(log.CatCache, "wrong type assertion when getting value", "key", id)
	}

	run, err := c.RunStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(id, *run)
	return run, nil
}

// Update writes through and drops the cached copy.
func (c *CachedRunStore) Update(ctx context.Context, id string, spec model.RunSpec) (*model.Run, error) {
	c.cache.Delete(id)
	run, err := c.RunStore.Update(ctx, id, spec)
	c.cache.Delete(id)
	return run, err
}

// Delete writes through and drops the cached copy.
func (c *CachedRunStore) Delete(ctx context.Context, id string) error {
	err := c.RunStore.Delete(ctx, id)
	c.cache.Delete(id)
	return err
}
