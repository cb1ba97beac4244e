package storage

// Backend is the physical ordered key-value engine that a Store organizes
// into partitions. Every partition lives in its own named bucket, so a
// bucket can be dropped without touching its siblings.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// CreateBucket creates the named bucket. Creating an existing bucket is a no-op.
	CreateBucket(name []byte) error

	// DropBucket removes the named bucket and all of its contents.
	// Dropping a missing bucket is a no-op.
	DropBucket(name []byte) error

	// HasBucket reports whether the named bucket exists.
	HasBucket(name []byte) bool

	// Buckets returns the names of all buckets.
	Buckets() ([][]byte, error)

	// Get returns the value stored under key in bucket.
	// Returns ErrKeyNotFound if the key is absent and ErrBucketNotFound if
	// the bucket does not exist.
	Get(bucket, key []byte) ([]byte, error)

	// Put stores value under key in bucket.
	Put(bucket, key, value []byte) error

	// Delete removes key from bucket. Deleting a missing key is not an error.
	Delete(bucket, key []byte) error

	// Cursor returns a one-pass cursor over the bucket in key order.
	Cursor(bucket []byte) (Cursor, error)

	// Close releases the storage handle.
	Close() error
}

// Cursor iterates over the pairs of a single bucket.
type Cursor interface {
	// Next advances to the next pair and returns true if one exists.
	Next() bool

	// Key returns the current key. Only valid after Next returned true.
	Key() []byte

	// Value returns the current value. Only valid after Next returned true.
	Value() []byte

	// Err returns any error encountered during iteration.
	Err() error

	// Close releases resources held by the cursor. Safe to call more than once.
	Close() error
}

// BackendOpener establishes the physical storage handle for a Store.
type BackendOpener func() (Backend, error)

// KeyValue is a single pair produced by iteration.
type KeyValue struct {
	Key   string
	Value string
}
