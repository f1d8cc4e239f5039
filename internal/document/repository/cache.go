package repository

import (
	"bytes"
	"context"
	"sync"

	"rowbook/internal/document/model"
	"rowbook/pkg/logger"

	"github.com/dgraph-io/ristretto/v2"
)

const documentKey = "document"

// CachedStore keeps the last read or written document in memory so repeated
// GET /data requests skip the disk.
type CachedStore struct {
	Store Store
	cache *ristretto.Cache[string, []byte]

	mu  sync.Mutex
	gen uint64 // bumped by every write or invalidation; guarded by mu
}

func NewCachedStore(store Store, maxBytes int64) (*CachedStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters:        100,
		MaxCost:            maxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &CachedStore{Store: store, cache: cache}, nil
}

func (c *CachedStore) Read(ctx context.Context) (model.Document, error) {
	if doc, ok := c.cache.Get(documentKey); ok {
		return bytes.Clone(doc), nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	doc, err := c.Store.Read(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// A write that raced this read wins.
	if gen == c.gen {
		c.set(doc)
	}
	c.mu.Unlock()
	return doc, nil
}

func (c *CachedStore) Write(ctx context.Context, doc model.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if err := c.Store.Write(ctx, doc); err != nil {
		c.cache.Del(documentKey)
		return err
	}
	c.set(doc)
	return nil
}

// Invalidate drops the cached document.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.cache.Del(documentKey)
	c.mu.Unlock()
}

func (c *CachedStore) Close() {
	c.cache.Close()
}

func (c *CachedStore) set(doc model.Document) {
	c.cache.Set(documentKey, bytes.Clone(doc), int64(len(doc)))
	c.cache.Wait()
}

// Open returns the store the service should use for the document at path.
// The cache is only put in front of the file when the watcher is running,
// since the watcher is what drops stale entries; watching reports whether it
// is. onChange runs after the cache was invalidated for an external edit.
func Open(ctx context.Context, path string, watch bool, cacheBytes int64, onChange func()) (store Store, watching bool) {
	fileStore := NewFileStore(path)
	if !watch {
		return fileStore, false
	}

	cached, err := NewCachedStore(fileStore, cacheBytes)
	if err != nil {
		logger.Sugar.Warnf("Document cache disabled: %v", err)
		return fileStore, false
	}
	err = fileStore.Watch(ctx, func() {
		cached.Invalidate()
		if onChange != nil {
			onChange()
		}
	})
	if err != nil {
		cached.Close()
		logger.Sugar.Warnf("Not watching %s for changes, reading it on every request: %v", path, err)
		return fileStore, false
	}

	go func() {
		<-ctx.Done()
		cached.Close()
	}()
	return cached, true
}
