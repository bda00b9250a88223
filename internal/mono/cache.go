package mono

import (
	"context"
	"sync"

	"github.com/silica-hdl/silica/internal/ir"
)

// SpecCache deduplicates specializations within one monomorphization
// session. Semantics are insert-if-absent with compute-once: the first
// caller for a key runs the compute function, everyone else waits for its
// result. Two instantiations of Mul[32,3] always converge on one cached
// component.
type SpecCache struct {
	mu      sync.Mutex
	entries map[ir.Key]*specEntry
}

type specEntry struct {
	done  chan struct{}
	comp  *ir.Component
	diags []ir.Diagnostic
	err   error
}

func NewSpecCache() *SpecCache {
	return &SpecCache{entries: make(map[ir.Key]*specEntry)}
}

// Do returns the cached result for key, computing it on first use. compute
// runs without the cache lock held, so it may recurse into Do for other
// keys.
func (c *SpecCache) Do(ctx context.Context, key ir.Key, compute func() (*ir.Component, []ir.Diagnostic, error)) (*ir.Component, []ir.Diagnostic, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		select {
		case <-e.done:
			return e.comp, e.diags, e.err
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	e := &specEntry{done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	e.comp, e.diags, e.err = compute()
	close(e.done)
	return e.comp, e.diags, e.err
}

// Len reports how many distinct specializations the session produced.
func (c *SpecCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot collects every successfully computed component.
func (c *SpecCache) Snapshot() map[ir.Key]*ir.Component {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[ir.Key]*ir.Component, len(c.entries))
	for key, e := range c.entries {
		select {
		case <-e.done:
			if e.comp != nil {
				out[key] = e.comp
			}
		default:
		}
	}
	return out
}
