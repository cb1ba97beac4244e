// Package memdb implements an in-memory storage.Backend.
// Each bucket is a google/btree ordered by key bytes.
package memdb

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/KilimcininKorOglu/cloudkv/internal/storage"
)

// degree is the B-tree branching factor.
const degree = 32

type item struct {
	key   []byte
	value []byte
}

// Less orders items by key.
func (a *item) Less(b btree.Item) bool {
	return bytes.Compare(a.key, b.(*item).key) < 0
}

// Backend is an in-memory storage.Backend.
type Backend struct {
	mu      sync.RWMutex
	buckets map[string]*btree.BTree
	closed  bool
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{buckets: make(map[string]*btree.BTree)}
}

// Opener returns a storage.BackendOpener producing a fresh in-memory backend.
func Opener() storage.BackendOpener {
	return func() (storage.Backend, error) {
		return New(), nil
	}
}

// CreateBucket creates the named bucket.
func (b *Backend) CreateBucket(name []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return storage.ErrBackendClosed
	}
	if _, ok := b.buckets[string(name)]; !ok {
		b.buckets[string(name)] = btree.New(degree)
	}
	return nil
}

// DropBucket removes the named bucket.
func (b *Backend) DropBucket(name []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return storage.ErrBackendClosed
	}
	delete(b.buckets, string(name))
	return nil
}

// HasBucket reports whether the named bucket exists.
func (b *Backend) HasBucket(name []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.buckets[string(name)]
	return ok
}

// Buckets returns the names of all buckets.
func (b *Backend) Buckets() ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, storage.ErrBackendClosed
	}
	names := make([][]byte, 0, len(b.buckets))
	for name := range b.buckets {
		names = append(names, []byte(name))
	}
	return names, nil
}

func (b *Backend) tree(name []byte) (*btree.BTree, error) {
	if b.closed {
		return nil, storage.ErrBackendClosed
	}
	tree, ok := b.buckets[string(name)]
	if !ok {
		return nil, storage.ErrBucketNotFound
	}
	return tree, nil
}

// Get returns a copy of the value stored under key.
func (b *Backend) Get(bucket, key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tree, err := b.tree(bucket)
	if err != nil {
		return nil, err
	}
	found := tree.Get(&item{key: key})
	if found == nil {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), found.(*item).value...), nil
}

// Put stores value under key.
func (b *Backend) Put(bucket, key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree, err := b.tree(bucket)
	if err != nil {
		return err
	}
	tree.ReplaceOrInsert(&item{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	return nil
}

// Delete removes key.
func (b *Backend) Delete(bucket, key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree, err := b.tree(bucket)
	if err != nil {
		return err
	}
	tree.Delete(&item{key: key})
	return nil
}

// Cursor returns a cursor over a copy-on-write snapshot of bucket.
func (b *Backend) Cursor(bucket []byte) (storage.Cursor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree, err := b.tree(bucket)
	if err != nil {
		return nil, err
	}
	return &cursor{tree: tree.Clone()}, nil
}

// Close discards all data.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.buckets = nil
	return nil
}

type cursor struct {
	tree    *btree.BTree
	current *item
	done    bool
}

func (c *cursor) Next() bool {
	if c.done {
		return false
	}

	var next *item
	visit := func(i btree.Item) bool {
		it := i.(*item)
		if c.current != nil && bytes.Equal(it.key, c.current.key) {
			return true
		}
		next = it
		return false
	}
	if c.current == nil {
		c.tree.Ascend(visit)
	} else {
		c.tree.AscendGreaterOrEqual(c.current, visit)
	}

	if next == nil {
		c.Close()
		return false
	}
	c.current = next
	return true
}

func (c *cursor) Key() []byte {
	if c.current == nil {
		return nil
	}
	return c.current.key
}

func (c *cursor) Value() []byte {
	if c.current == nil {
		return nil
	}
	return c.current.value
}

func (c *cursor) Err() error { return nil }

func (c *cursor) Close() error {
	c.done = true
	c.tree = nil
	return nil
}
