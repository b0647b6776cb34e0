package biasmap

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ResultCache memoizes result tables by exact template text for the life of
// the process. Each key is computed at most once; concurrent callers for an
// in-flight key share that computation. Failures are not stored.
type ResultCache struct {
	mu     sync.RWMutex
	tables map[string]ResultTable
	group  singleflight.Group
}

// NewResultCache constructs an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{tables: make(map[string]ResultTable)}
}

// GetOrCompute returns the cached table for template or runs compute to fill it.
// compute runs detached from the caller's cancellation, so it must bound its
// own work; a caller whose ctx ends stops waiting without failing the others.
func (c *ResultCache) GetOrCompute(ctx context.Context, template string, compute func(context.Context) (ResultTable, error)) (ResultTable, error) {
	if t, ok := c.get(template); ok {
		return t, nil
	}
	computeCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(template, func() (any, error) {
		// A previous flight may have finished between get and DoChan.
		if t, ok := c.get(template); ok {
			return t, nil
		}
		t, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}
		t = NewResultTable(template, t.rows)
		c.mu.Lock()
		c.tables[template] = t
		c.mu.Unlock()
		return t, nil
	})
	select {
	case <-ctx.Done():
		return ResultTable{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return ResultTable{}, res.Err
		}
		return res.Val.(ResultTable), nil
	}
}

// Lookup reports a cached table without computing anything.
func (c *ResultCache) Lookup(template string) (ResultTable, bool) {
	return c.get(template)
}

// Len returns the number of cached templates.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// Keys returns the cached templates in lexical order.
func (c *ResultCache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.tables))
	for k := range c.tables {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func (c *ResultCache) get(template string) (ResultTable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[template]
	return t, ok
}
