// Package history implements the bounded, sequence-ordered snapshot
// cache described in §4.G: a process-wide (here, per-backend-instance)
// map from snapshot node name to its raw compressed blob, queried before
// any network read and kept to the newest cachesize entries.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ms-journal/journal/internal/journal"
	"github.com/ms-journal/journal/internal/journal/serial"
	"github.com/ms-journal/journal/internal/snapshot"
)

// Source is what the cache needs from the coordination backend: whether
// /history exists, its children's names, and a way to fetch one child's
// raw compressed blob. Kept minimal and interface-typed so the cache
// never imports the zk client directly (§9 Design Notes: "instance owned
// by the coordination backend and not a global").
type Source interface {
	HistoryExists(ctx context.Context) (bool, error)
	ListHistory(ctx context.Context) ([]string, error)
	GetBlob(ctx context.Context, name string) ([]byte, error)
}

// Cache is a bounded LRU-by-sequence of raw compressed snapshot blobs. Unlike
// the original module-level HISTORY_CACHE global, it is an explicit
// instance with its own mutex, safe to share across request goroutines
// (§9 Design Notes).
type Cache struct {
	mu    sync.Mutex
	size  int
	blobs map[string][]byte
}

// New returns a cache bounded to size entries. size <= 0 disables
// caching (every query falls straight through to the refresh path,
// which still works, just never keeps anything resident).
func New(size int) *Cache {
	return &Cache{size: size, blobs: map[string][]byte{}}
}

// Len reports how many blobs are currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blobs)
}

// Query answers a status lookup for txid using cached blobs first, then
// falling back to the refresh path against src, per §4.G.
func (c *Cache) Query(ctx context.Context, src Source, txid string) (*journal.Record, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, code, err := c.queryCached(ctx, txid); err != nil {
		return nil, 0, err
	} else if code != 0 {
		return rec, code, nil
	}

	return c.refresh(ctx, src, txid)
}

// queryCached runs the per-blob query (§4.G step 1) against every
// currently cached blob.
func (c *Cache) queryCached(ctx context.Context, txid string) (*journal.Record, int, error) {
	for _, blob := range c.blobs {
		db, err := snapshot.Load(ctx, blob)
		if err != nil {
			return nil, 0, fmt.Errorf("history: loading cached blob: %w", err)
		}
		rec, code, err := snapshot.QueryStatus(ctx, db, txid)
		db.Close()
		if err != nil {
			return nil, 0, err
		}
		if code != 0 {
			return rec, code, nil
		}
	}
	return nil, 0, nil
}

// refresh implements §4.G step 2: list /history descending by sequence,
// evict anything older than the new cache window, then walk
// newest-to-oldest filling the cache and running the per-blob query
// until either a hit is found (but the fill continues) or entries are
// exhausted.
func (c *Cache) refresh(ctx context.Context, src Source, txid string) (*journal.Record, int, error) {
	exists, err := src.HistoryExists(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("history: checking /history: %w", err)
	}
	if !exists {
		c.blobs = map[string][]byte{}
		return nil, 0, nil
	}
	entries, err := src.ListHistory(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("history: listing /history: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return serial.CompareEntries(entries[i], entries[j]) > 0
	})
	if len(entries) == 0 {
		c.blobs = map[string][]byte{}
		return nil, 0, nil
	}

	cacheOldest := entries[len(entries)-1]
	if len(entries) > c.size && c.size > 0 {
		cacheOldest = entries[c.size-1]
	}
	for key := range c.blobs {
		if serial.CompareEntries(key, cacheOldest) < 0 {
			delete(c.blobs, key)
		}
	}

	var (
		rec      *journal.Record
		code     int
		foundErr error
	)
	for _, entry := range entries {
		if _, ok := c.blobs[entry]; ok {
			continue
		}
		blob, err := src.GetBlob(ctx, entry)
		if err != nil {
			return nil, 0, fmt.Errorf("history: fetching %s: %w", entry, err)
		}
		if len(c.blobs) < c.size {
			c.blobs[entry] = blob
		}
		if code == 0 {
			db, lerr := snapshot.Load(ctx, blob)
			if lerr != nil {
				return nil, 0, fmt.Errorf("history: loading %s: %w", entry, lerr)
			}
			rec, code, foundErr = snapshot.QueryStatus(ctx, db, txid)
			db.Close()
			if foundErr != nil {
				return nil, 0, foundErr
			}
		}
		if code != 0 && len(c.blobs) >= c.size {
			break
		}
	}
	if code != 0 {
		return rec, code, nil
	}
	return nil, 0, nil
}
