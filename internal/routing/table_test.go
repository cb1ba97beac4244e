package routing

import (
	"testing"

	"github.com/KilimcininKorOglu/cloudkv/internal/storage"
)

func TestNewStaticTable(t *testing.T) {
	self := "127.0.0.1:40000"
	peers := []string{self, "127.0.0.1:40001", "127.0.0.1:40002", ""}

	table := NewStaticTable(self, peers, 4)

	byPeer := table.PartitionsByPeer()
	if len(byPeer) != 2 {
		t.Fatalf("Expected 2 peers, got %d: %v", len(byPeer), byPeer)
	}
	if _, ok := byPeer[self]; ok {
		t.Error("Self should not be in the peer set")
	}
	for peer, ids := range byPeer {
		if len(ids) != 4 {
			t.Errorf("Peer %s holds %v, want all 4 partitions", peer, ids)
		}
		for i, id := range ids {
			if id != uint32(i) {
				t.Errorf("Peer %s partitions not sorted: %v", peer, ids)
				break
			}
		}
	}
}

func TestTablePartitionMatchesStorage(t *testing.T) {
	table := NewTable("self", 4)
	for _, key := range []string{"a", "b", "x", "key-42"} {
		if got, want := table.Partition(key), uint32(storage.PartitionFor(key, 4)); got != want {
			t.Errorf("Partition(%q) = %d, want %d", key, got, want)
		}
	}
}

func TestTableAddRemovePeer(t *testing.T) {
	table := NewTable("self", 4)
	table.AddPeer(table.Partition("x"), "peer-a")
	table.AddPeer(table.Partition("x"), "peer-a") // duplicate ignored
	table.AddPeer(table.Partition("x"), "peer-b")

	peer, ok := table.FindPeer("x")
	if !ok || peer != "peer-a" {
		t.Errorf("FindPeer = %q, %v; want peer-a", peer, ok)
	}

	table.RemovePeer("peer-a")
	peer, ok = table.FindPeer("x")
	if !ok || peer != "peer-b" {
		t.Errorf("FindPeer after remove = %q, %v; want peer-b", peer, ok)
	}

	table.RemovePeer("peer-b")
	if _, ok := table.FindPeer("x"); ok {
		t.Error("FindPeer should fail once every peer is removed")
	}
	if len(table.PartitionsByPeer()) != 0 {
		t.Error("Expected empty table")
	}
}

func TestTableBackendAddress(t *testing.T) {
	table := NewTable("127.0.0.1:40000", 0)
	if table.BackendAddress() != "127.0.0.1:40000" {
		t.Errorf("BackendAddress = %q", table.BackendAddress())
	}
}
