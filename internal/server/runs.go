package server

import (
	"fmt"
	"sync"

	"github.com/ironsheep/streak-tools-mcp/internal/contour"
	"github.com/ironsheep/streak-tools-mcp/internal/detection"
)

// run is a catalogue kept for follow-up tool calls.
type run struct {
	cat *detection.Catalogue

	// path is the image the catalogue was traced from; empty for inline
	// contours.
	path  string
	trace *contour.Result

	// key identifies the image and options of a traced run.
	key string
}

// runCache keeps the most recent catalogues by run ID. Traced runs are also
// indexed by image key so repeating a request reuses the catalogue.
type runCache struct {
	mu    sync.RWMutex
	limit int
	runs  map[string]*run
	keys  map[string]string
	order []string
}

func newRunCache(limit int) *runCache {
	return &runCache{
		limit: limit,
		runs:  make(map[string]*run),
		keys:  make(map[string]string),
	}
}

// imageKey identifies a traced catalogue by image path and every option
// that affects it.
func imageKey(path string, p detection.Params, o contour.Options) string {
	return fmt.Sprintf("%s|%+v|%+v", path, p, o)
}

// put stores r and evicts the oldest run once the limit is exceeded.
func (c *runCache) put(r *run) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := r.cat.RunID
	if _, ok := c.runs[id]; !ok {
		c.order = append(c.order, id)
	}
	c.runs[id] = r
	if r.key != "" {
		c.keys[r.key] = id
	}

	for len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		if old, ok := c.runs[oldest]; ok && old.key != "" && c.keys[old.key] == oldest {
			delete(c.keys, old.key)
		}
		delete(c.runs, oldest)
	}
}

func (c *runCache) get(runID string) (*run, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.runs[runID]
	if !ok {
		return nil, fmt.Errorf("unknown run_id %q", runID)
	}
	return r, nil
}

func (c *runCache) lookup(key string) (*run, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.keys[key]
	if !ok {
		return nil, false
	}
	r, ok := c.runs[id]
	return r, ok
}

func (c *runCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.runs)
}
