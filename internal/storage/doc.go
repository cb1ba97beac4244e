// Package storage implements the partitioned key-value store that backs
// every cloudkv node.
//
// # Overview
//
// A Store divides the key space into a fixed number N of partitions. A key
// belongs to partition PartitionFor(key, N), a stable FNV-1a hash modulo N.
// Each partition is a separate bucket in the underlying Backend so it can be
// created or dropped independently of its siblings:
//
//	store, err := storage.NewStore(boltdb.Opener("/var/lib/cloudkv/data.db"), storage.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.Put("answer", "42"); err != nil {
//	    return err
//	}
//
// # Backends
//
// Two backends ship with cloudkv:
//
//   - boltdb: persistent, one bolt bucket per partition
//   - memdb: in-memory, one B-tree per partition, used for tests and
//     ephemeral nodes
//
// # Iteration
//
// Iterate returns a merged, single-pass Iterator over all open partitions.
// Every pair appears exactly once. Cursors are released as soon as their
// partition is exhausted, and Close releases the rest.
package storage
