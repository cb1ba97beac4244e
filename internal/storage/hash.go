package storage

import (
	"hash/fnv"
	"strconv"
)

// PartitionFor maps key to a partition id in [0, n).
// The mapping is FNV-1a based and therefore identical across processes and
// restarts for a fixed n.
func PartitionFor(key string, n int) int {
	if n <= 0 {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(key))
	return int(h.Sum64() % uint64(n))
}

// bucketName returns the backend bucket name of a partition.
func bucketName(id int) []byte {
	return []byte(strconv.Itoa(id))
}

// parseBucketName returns the partition id encoded in a bucket name.
func parseBucketName(name []byte) (int, bool) {
	id, err := strconv.Atoi(string(name))
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
