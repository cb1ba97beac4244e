package storage

import "errors"

// Storage errors.
var (
	// ErrKeyNotFound is returned when a key does not exist.
	ErrKeyNotFound = errors.New("storage: key not found")

	// ErrBucketNotFound is returned by a Backend when a bucket does not exist.
	ErrBucketNotFound = errors.New("storage: bucket not found")

	// ErrPartitionNotFound is returned when the partition a key maps to does not exist.
	ErrPartitionNotFound = errors.New("storage: partition not found")

	// ErrInvalidPartition is returned for partition ids outside [0, N).
	ErrInvalidPartition = errors.New("storage: invalid partition id")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("storage: store closed")

	// ErrBackendClosed is returned by a Backend after Close.
	ErrBackendClosed = errors.New("storage: backend closed")
)
