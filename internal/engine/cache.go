package engine

import (
	"context"
	"sync"

	"roadindexer/internal/model"
)

// PointSource resolves the last known fix for a device when the in-memory
// cache has no entry, typically after a process restart. The storage layer
// satisfies this.
type PointSource interface {
	LastPoint(ctx context.Context, deviceID string) (model.GeoPoint, bool, error)
}

// pointCache tracks the last seen fix per device. Entries are overwritten on
// every sample, accepted or rejected, so a single bad fix never blocks the
// distance and speed math for the fixes that follow it.
type pointCache struct {
	mu     sync.RWMutex
	points map[string]model.GeoPoint
}

func newPointCache() *pointCache {
	return &pointCache{points: make(map[string]model.GeoPoint)}
}

func (c *pointCache) get(deviceID string) (model.GeoPoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.points[deviceID]
	return p, ok
}

func (c *pointCache) put(deviceID string, p model.GeoPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points[deviceID] = p
}

func (c *pointCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = make(map[string]model.GeoPoint)
}
