// Package dedupe remembers which move request ids were already answered so a
// late or repeated reply is never applied twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 100000

// Deduper records seen ids.
type Deduper interface {
	// SeenAndRecord reports whether id was seen before and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool
	// Seen reports whether id was recorded without recording it.
	Seen(ctx context.Context, id string) bool
	// Unrecord forgets id so a reply carrying it can be accepted again.
	Unrecord(ctx context.Context, id string)
	Size() int64
}

// inMemoryDeduper keeps at most maxSize ids and evicts the oldest first.
// A non-positive maxSize disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldestLocked()
	}
	d.seen[id] = d.order.PushBack(id)
	return false
}

func (d *inMemoryDeduper) Seen(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[id]
	return ok
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.seen[id]; ok {
		d.order.Remove(e)
		delete(d.seen, id)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}

func (d *inMemoryDeduper) evictOldestLocked() {
	e := d.order.Front()
	if e == nil {
		return
	}
	d.order.Remove(e)
	delete(d.seen, e.Value.(string))
}
