// Package routing maps keys to partitions and partitions to the peers that
// hold replicas of them.
package routing

import (
	"sort"
	"sync"

	"github.com/KilimcininKorOglu/cloudkv/internal/storage"
)

// Table is a node's view of partition ownership.
type Table struct {
	self       string
	partitions int
	table      map[uint32][]string
	mu         sync.RWMutex
}

// NewTable creates an empty table for a node listening on self.
func NewTable(self string, partitions int) *Table {
	if partitions <= 0 {
		partitions = storage.DefaultPartitions
	}
	return &Table{
		self:       self,
		partitions: partitions,
		table:      make(map[uint32][]string),
	}
}

// NewStaticTable creates a table in which every partition is replicated
// on every peer. self is skipped if it appears in peers.
func NewStaticTable(self string, peers []string, partitions int) *Table {
	t := NewTable(self, partitions)
	for _, peer := range peers {
		if peer == "" || peer == self {
			continue
		}
		for id := 0; id < t.partitions; id++ {
			t.AddPeer(uint32(id), peer)
		}
	}
	return t
}

// BackendAddress returns the address of the local node.
func (t *Table) BackendAddress() string {
	return t.self
}

// Partition returns the partition id key maps to.
func (t *Table) Partition(key string) uint32 {
	return uint32(storage.PartitionFor(key, t.partitions))
}

// AddPeer records that addr holds a replica of partition.
func (t *Table) AddPeer(partition uint32, addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, existing := range t.table[partition] {
		if existing == addr {
			return
		}
	}
	t.table[partition] = append(t.table[partition], addr)
}

// RemovePeer removes addr from every partition.
func (t *Table) RemovePeer(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, peers := range t.table {
		kept := peers[:0]
		for _, p := range peers {
			if p != addr {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(t.table, id)
		} else {
			t.table[id] = kept
		}
	}
}

// FindPeer returns the first peer holding the partition of key.
func (t *Table) FindPeer(key string) (string, bool) {
	id := t.Partition(key)

	t.mu.RLock()
	defer t.mu.RUnlock()

	peers := t.table[id]
	if len(peers) == 0 {
		return "", false
	}
	return peers[0], true
}

// PartitionsByPeer returns, for every known peer, the sorted ids of the
// partitions it holds.
func (t *Table) PartitionsByPeer() map[string][]uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]uint32)
	for id, peers := range t.table {
		for _, p := range peers {
			out[p] = append(out[p], id)
		}
	}
	for _, ids := range out {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return out
}
