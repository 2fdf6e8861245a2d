// Package rendercache persists rendered page docs between runs.  Pages are
// keyed by their content hash, so a page whose file has not changed is never
// rendered twice, across builds or across dev-server restarts.
package rendercache

// rendercache.go wraps a badger store with cache-miss semantics

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/gqldocs/gqldocs/internal/markdown"
)

// renderVersion is part of every key: bump it when the renderer's output
// changes shape, so entries from older binaries become misses instead of
// wrong pages.
const renderVersion = "v1"

const keyPrefix = "render:"

// entries idle longer than this are let go at the next compaction
const entryTTL = 7 * 24 * time.Hour

// ErrNotFound is returned for any key the cache cannot produce a doc for.
var ErrNotFound = errors.New("not in cache")

// Cache stores rendered docs keyed by content hash.  A nil *Cache is valid
// and caches nothing, so callers never branch on whether caching is on.
type Cache struct {
	db *badger.DB
}

// Open creates or opens the on-disk cache at dir.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithSyncWrites(false).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w opening render cache %q", err, dir)
	}
	return &Cache{db: db}, nil
}

// OpenInMemory opens a throwaway cache with the same behaviour and nothing
// on disk.  Tests and one-shot builds use it.
func OpenInMemory() (*Cache, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("%w opening in-memory render cache", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the store.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func key(sum string) []byte {
	return []byte(keyPrefix + renderVersion + ":" + sum)
}

// Get returns the cached doc for a content hash.  Every failure mode - key
// missing, value unreadable, value undecodable - comes back as ErrNotFound:
// a cache problem is a miss, never a build error.
func (c *Cache) Get(sum string) (*markdown.Doc, error) {
	if c == nil || c.db == nil {
		return nil, ErrNotFound
	}
	var doc markdown.Doc
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(sum))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return nil, ErrNotFound
	}
	return &doc, nil
}

// Put stores a rendered doc.  Callers are free to ignore the error: a failed
// write only costs one future re-render.
func (c *Cache) Put(sum string, doc *markdown.Doc) error {
	if c == nil || c.db == nil || doc == nil {
		return nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w marshalling cached doc", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key(sum), data).WithTTL(entryTTL))
	})
}

// Purge drops every entry, current render version included.
func (c *Cache) Purge() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.DropAll()
}

// Len counts the entries stored under the current render version.
func (c *Cache) Len() (int, error) {
	if c == nil || c.db == nil {
		return 0, nil
	}
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix + renderVersion + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
