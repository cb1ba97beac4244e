// Package boltdb implements a persistent storage.Backend on top of bolt.
// Each partition is a top-level bolt bucket.
package boltdb

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/boltdb/bolt"

	"github.com/KilimcininKorOglu/cloudkv/internal/storage"
)

// DefaultFileMode is the permission used for new database files.
const DefaultFileMode = 0600

// Backend is a bolt-backed storage.Backend.
type Backend struct {
	db     *bolt.DB
	path   string
	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the bolt database at path.
// The parent directory is created if missing.
func Open(path string) (*Backend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("boltdb: create data dir: %w", err)
		}
	}

	db, err := bolt.Open(path, DefaultFileMode, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltdb: open %s: %w", path, err)
	}
	return &Backend{db: db, path: path}, nil
}

// Opener returns a storage.BackendOpener for the database at path.
func Opener(path string) storage.BackendOpener {
	return func() (storage.Backend, error) {
		return Open(path)
	}
}

// Path returns the database file path.
func (b *Backend) Path() string {
	return b.path
}

func (b *Backend) update(fn func(tx *bolt.Tx) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return storage.ErrBackendClosed
	}
	return b.db.Update(fn)
}

func (b *Backend) view(fn func(tx *bolt.Tx) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return storage.ErrBackendClosed
	}
	return b.db.View(fn)
}

// CreateBucket creates the named bucket if it does not exist.
func (b *Backend) CreateBucket(name []byte) error {
	return b.update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(name)
		return err
	})
}

// DropBucket deletes the named bucket and its contents.
func (b *Backend) DropBucket(name []byte) error {
	return b.update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		return nil
	})
}

// HasBucket reports whether the named bucket exists.
func (b *Backend) HasBucket(name []byte) bool {
	found := false
	b.view(func(tx *bolt.Tx) error {
		found = tx.Bucket(name) != nil
		return nil
	})
	return found
}

// Buckets returns the names of all top-level buckets.
func (b *Backend) Buckets() ([][]byte, error) {
	var names [][]byte
	err := b.view(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, append([]byte(nil), name...))
			return nil
		})
	})
	return names, err
}

// Get returns a copy of the value stored under key.
func (b *Backend) Get(bucket, key []byte) ([]byte, error) {
	var value []byte
	err := b.view(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucket)
		if bkt == nil {
			return storage.ErrBucketNotFound
		}
		v := bkt.Get(key)
		if v == nil {
			return storage.ErrKeyNotFound
		}
		// bolt values are only valid for the life of the transaction.
		value = append([]byte(nil), v...)
		return nil
	})
	return value, err
}

// Put stores value under key.
func (b *Backend) Put(bucket, key, value []byte) error {
	return b.update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucket)
		if bkt == nil {
			return storage.ErrBucketNotFound
		}
		return bkt.Put(key, value)
	})
}

// Delete removes key.
func (b *Backend) Delete(bucket, key []byte) error {
	return b.update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucket)
		if bkt == nil {
			return storage.ErrBucketNotFound
		}
		return bkt.Delete(key)
	})
}

// Cursor returns a cursor over bucket. The cursor reads cursorBatch pairs
// per short read transaction and resumes after the last key it returned, so
// no transaction stays open between calls to Next. Writes made while the
// cursor is in use may or may not be seen.
func (b *Backend) Cursor(bucket []byte) (storage.Cursor, error) {
	err := b.view(func(tx *bolt.Tx) error {
		if tx.Bucket(bucket) == nil {
			return storage.ErrBucketNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cursor{b: b, bucket: append([]byte(nil), bucket...)}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// cursorBatch is the number of pairs a cursor reads per transaction.
const cursorBatch = 256

type pair struct {
	key, value []byte
}

type cursor struct {
	b      *Backend
	bucket []byte
	batch  []pair
	pos     int
	started bool
	last    []byte
	key     []byte
	value   []byte
	err     error
	done    bool
}

func (c *cursor) Next() bool {
	if c.done {
		return false
	}
	if c.pos >= len(c.batch) {
		if !c.fill() {
			c.Close()
			return false
		}
	}

	p := c.batch[c.pos]
	c.pos++
	c.key, c.value = p.key, p.value
	c.last = p.key
	return true
}

// fill loads the next batch after c.last. It returns false when the bucket
// is exhausted, was dropped, or the read failed.
func (c *cursor) fill() bool {
	c.batch = c.batch[:0]
	c.pos = 0

	err := c.b.view(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(c.bucket)
		if bkt == nil {
			return nil
		}
		cur := bkt.Cursor()

		var k, v []byte
		if !c.started {
			c.started = true
			k, v = cur.First()
		} else {
			k, v = cur.Seek(c.last)
			if k != nil && bytes.Equal(k, c.last) {
				k, v = cur.Next()
			}
		}
		for ; k != nil && len(c.batch) < cursorBatch; k, v = cur.Next() {
			// Slices returned by bolt are only valid inside the transaction.
			c.batch = append(c.batch, pair{
				key:   append([]byte(nil), k...),
				value: append([]byte(nil), v...),
			})
		}
		return nil
	})
	if err != nil {
		c.err = err
		return false
	}
	return len(c.batch) > 0
}

func (c *cursor) Key() []byte   { return c.key }
func (c *cursor) Value() []byte { return c.value }
func (c *cursor) Err() error    { return c.err }

func (c *cursor) Close() error {
	c.done = true
	c.batch = nil
	return nil
}
