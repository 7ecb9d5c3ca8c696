// Package cache holds read caches for data that changes rarely. Nothing
// here invalidates itself on writes: whoever writes calls Refresh.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/coocood/freecache"
)

const (
	megabyte        = 1024 * 1024
	exercisesKey    = "exercises::all"
	minCacheSizeMB  = 1
	defaultTTLInSec = 600
)

// ExerciseLister is the catalog source.
type ExerciseLister interface {
	ListExercises(ctx context.Context) ([]models.Exercise, error)
}

// Catalog is a read-through cache of the exercise catalog.
type Catalog struct {
	cache  *freecache.Cache
	source ExerciseLister
	ttlSec int
	log    *slog.Logger
}

// NewCatalog creates a catalog cache of sizeMB megabytes whose entries live
// for ttl.
func NewCatalog(source ExerciseLister, sizeMB int, ttl time.Duration, log *slog.Logger) *Catalog {
	if sizeMB < minCacheSizeMB {
		sizeMB = minCacheSizeMB
	}
	ttlSec := int(ttl.Seconds())
	if ttlSec <= 0 {
		ttlSec = defaultTTLInSec
	}
	return &Catalog{
		cache:  freecache.NewCache(sizeMB * megabyte),
		source: source,
		ttlSec: ttlSec,
		log:    log,
	}
}

// Exercises returns the catalog, from cache when possible.
func (c *Catalog) Exercises(ctx context.Context) ([]models.Exercise, error) {
	if data, err := c.cache.Get([]byte(exercisesKey)); err == nil {
		var exercises []models.Exercise
		err := json.Unmarshal(data, &exercises)
		if err == nil {
			return exercises, nil
		}
		c.log.Warn("dropping undecodable catalog entry", "error", err)
	}
	return c.load(ctx)
}

// Exercise returns one exercise from the cached catalog.
func (c *Catalog) Exercise(ctx context.Context, id string) (*models.Exercise, bool, error) {
	exercises, err := c.Exercises(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range exercises {
		if exercises[i].ID == id {
			return &exercises[i], true, nil
		}
	}
	return nil, false, nil
}

// Refresh reloads the catalog from its source. Call it after every
// successful catalog write.
func (c *Catalog) Refresh(ctx context.Context) error {
	_, err := c.load(ctx)
	return err
}

// Stats returns the cache hit and miss counts.
func (c *Catalog) Stats() (hits, misses int64) {
	return c.cache.HitCount(), c.cache.MissCount()
}

func (c *Catalog) load(ctx context.Context) ([]models.Exercise, error) {
	exercises, err := c.source.ListExercises(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading exercise catalog: %w", err)
	}
	data, err := json.Marshal(exercises)
	if err != nil {
		return nil, fmt.Errorf("encoding exercise catalog: %w", err)
	}
	if err := c.cache.Set([]byte(exercisesKey), data, c.ttlSec); err != nil {
		// too large for the cache; still serve the fresh list
		c.log.Warn("catalog cache set failed", "error", err, "bytes", len(data))
	}
	return exercises, nil
}
