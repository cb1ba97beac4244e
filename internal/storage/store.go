package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/KilimcininKorOglu/cloudkv/internal/logging"
)

// Store is a key-value store split into a fixed number of partitions.
// Each key lives in exactly one partition, chosen by PartitionFor.
// All operations are serialized by a single mutex; the store is safe for
// concurrent use.
type Store struct {
	opener  BackendOpener
	backend Backend
	opts    Options
	logger  logging.Logger

	// partitions is the set of currently open partition ids.
	partitions map[int]struct{}
	closed     bool

	mu sync.Mutex
}

// NewStore creates a store that opens its backend with opener on first use.
func NewStore(opener BackendOpener, opts Options) (*Store, error) {
	if opener == nil {
		return nil, errors.New("storage: nil backend opener")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return &Store{
		opener:     opener,
		opts:       opts,
		logger:     opts.Logger,
		partitions: make(map[int]struct{}),
	}, nil
}

// Open establishes the backend handle. Calling Open on an open store is a no-op.
// Any operation opens the store implicitly, so calling Open is optional.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

// openLocked opens the backend and loads the partition set.
// Existing partition buckets are reused; a fresh backend gets all N partitions.
func (s *Store) openLocked() error {
	if s.closed {
		return ErrStoreClosed
	}
	if s.backend != nil {
		return nil
	}

	backend, err := s.opener()
	if err != nil {
		return fmt.Errorf("storage: open backend: %w", err)
	}

	names, err := backend.Buckets()
	if err != nil {
		backend.Close()
		return fmt.Errorf("storage: list partitions: %w", err)
	}

	for _, name := range names {
		if id, ok := parseBucketName(name); ok && id < s.opts.Partitions {
			s.partitions[id] = struct{}{}
		}
	}

	if len(s.partitions) == 0 {
		for id := 0; id < s.opts.Partitions; id++ {
			if err := backend.CreateBucket(bucketName(id)); err != nil {
				backend.Close()
				s.partitions = make(map[int]struct{})
				return fmt.Errorf("storage: create partition %d: %w", id, err)
			}
			s.partitions[id] = struct{}{}
		}
	}

	s.backend = backend
	s.logger.Debug("store opened", "partitions", len(s.partitions))
	return nil
}

// Get returns the value stored under key.
// Returns ErrKeyNotFound if the key is absent and ErrPartitionNotFound if the
// key's partition is not open.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.partitionLocked(key)
	if err != nil {
		return "", err
	}

	value, err := s.backend.Get(bucketName(id), []byte(key))
	if err != nil {
		if errors.Is(err, ErrBucketNotFound) {
			return "", ErrPartitionNotFound
		}
		return "", err
	}
	return string(value), nil
}

// Put stores value under key, overwriting any existing value.
func (s *Store) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.partitionLocked(key)
	if err != nil {
		return err
	}
	return s.backend.Put(bucketName(id), []byte(key), []byte(value))
}

// Remove deletes key. Removing a missing key succeeds.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.partitionLocked(key)
	if err != nil {
		return err
	}
	return s.backend.Delete(bucketName(id), []byte(key))
}

// partitionLocked opens the store if needed and returns the open partition
// that key maps to.
func (s *Store) partitionLocked(key string) (int, error) {
	if err := s.openLocked(); err != nil {
		return 0, err
	}
	id := PartitionFor(key, s.opts.Partitions)
	if _, ok := s.partitions[id]; !ok {
		return 0, ErrPartitionNotFound
	}
	return id, nil
}

// CreatePartition opens partition id. Creating an open partition is a no-op.
func (s *Store) CreatePartition(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return err
	}
	if id < 0 || id >= s.opts.Partitions {
		return fmt.Errorf("%w: %d", ErrInvalidPartition, id)
	}
	if _, ok := s.partitions[id]; ok {
		return nil
	}
	if err := s.backend.CreateBucket(bucketName(id)); err != nil {
		return fmt.Errorf("storage: create partition %d: %w", id, err)
	}
	s.partitions[id] = struct{}{}
	s.logger.Info("partition created", "partition", id)
	return nil
}

// RemovePartition drops partition id and all of its data.
// Removing a partition that is not open is a no-op.
func (s *Store) RemovePartition(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return err
	}
	if _, ok := s.partitions[id]; !ok {
		return nil
	}
	if err := s.backend.DropBucket(bucketName(id)); err != nil {
		return fmt.Errorf("storage: drop partition %d: %w", id, err)
	}
	delete(s.partitions, id)
	s.logger.Info("partition removed", "partition", id)
	return nil
}

// ClearPartition removes every key of partition id while keeping it open.
func (s *Store) ClearPartition(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return err
	}
	return s.clearPartitionLocked(id)
}

func (s *Store) clearPartitionLocked(id int) error {
	if _, ok := s.partitions[id]; !ok {
		return ErrPartitionNotFound
	}
	name := bucketName(id)
	if err := s.backend.DropBucket(name); err != nil {
		return fmt.Errorf("storage: clear partition %d: %w", id, err)
	}
	if err := s.backend.CreateBucket(name); err != nil {
		delete(s.partitions, id)
		return fmt.Errorf("storage: clear partition %d: %w", id, err)
	}
	return nil
}

// Clear removes every key from every open partition.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return err
	}
	for _, id := range s.idsLocked() {
		if err := s.clearPartitionLocked(id); err != nil {
			return err
		}
	}
	return nil
}

// HasPartition reports whether partition id is open.
func (s *Store) HasPartition(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return false
	}
	_, ok := s.partitions[id]
	return ok
}

// HasPartitionForKey reports whether the partition key maps to is open.
func (s *Store) HasPartitionForKey(key string) bool {
	return s.HasPartition(s.PartitionForKey(key))
}

// PartitionForKey returns the partition id key maps to.
func (s *Store) PartitionForKey(key string) int {
	return PartitionFor(key, s.opts.Partitions)
}

// NumPartitions returns the configured partition count N.
func (s *Store) NumPartitions() int {
	return s.opts.Partitions
}

// PartitionIDs returns the ids of all open partitions in ascending order.
func (s *Store) PartitionIDs() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return nil, err
	}
	return s.idsLocked(), nil
}

func (s *Store) idsLocked() []int {
	ids := make([]int, 0, len(s.partitions))
	for id := range s.partitions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Iterate returns an iterator over every pair in every open partition.
// Partitions are visited in ascending id order and keys in ascending order
// within a partition. Cursors hold no backend lock between calls to Next,
// so the store can be written or closed while an iterator is open; pairs
// written meanwhile may or may not be seen.
func (s *Store) Iterate() (*Iterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return nil, err
	}

	cursors := make([]Cursor, 0, len(s.partitions))
	for _, id := range s.idsLocked() {
		c, err := s.backend.Cursor(bucketName(id))
		if err != nil {
			for _, opened := range cursors {
				opened.Close()
			}
			return nil, fmt.Errorf("storage: iterate partition %d: %w", id, err)
		}
		cursors = append(cursors, c)
	}
	return newIterator(cursors), nil
}

// All collects every pair in the store.
func (s *Store) All() ([]KeyValue, error) {
	it, err := s.Iterate()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []KeyValue
	for it.Next() {
		out = append(out, KeyValue{Key: it.Key(), Value: it.Value()})
	}
	return out, it.Err()
}

// Close releases the backend. Further operations return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.backend == nil {
		return nil
	}
	err := s.backend.Close()
	s.backend = nil
	s.partitions = make(map[int]struct{})
	return err
}
