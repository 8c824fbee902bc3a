package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaicnetworks/hastings/src/common"
	"github.com/mosaicnetworks/hastings/src/peers"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func testPeers(n int) []*peers.Peer {
	res := make([]*peers.Peer, n)
	for i := 0; i < n; i++ {
		res[i] = peers.NewPeer(
			fmt.Sprintf("0X04%04X", i),
			fmt.Sprintf("127.0.0.1:%d", 9000+i),
			fmt.Sprintf("node%d", i),
		)
	}
	return res
}

func newTestBadgerStore(t *testing.T) *BadgerStore {
	s, err := NewBadgerStore(filepath.Join(t.TempDir(), "badger"), common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func checkStore(t *testing.T, s Store) {
	ps := testPeers(3)

	if _, err := s.GetPeer(ps[0].PubKeyHex); !common.IsStore(err, common.KeyNotFound) {
		t.Fatalf("GetPeer on empty store should return KeyNotFound, not %v", err)
	}

	for i, p := range ps {
		if err := RecordSighting(s, p, epoch.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatal(err)
		}
	}

	// second sighting of the first peer, with a new address
	moved := peers.NewPeer(ps[0].PubKeyHex, "10.0.0.1:1337", "")
	if err := RecordSighting(s, moved, epoch.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	rec, err := s.GetPeer(ps[0].PubKeyHex)
	if err != nil {
		t.Fatal(err)
	}

	if rec.TimesSeen != 2 {
		t.Fatalf("TimesSeen should be 2, not %d", rec.TimesSeen)
	}
	if rec.NetAddr != "10.0.0.1:1337" {
		t.Fatalf("NetAddr should be 10.0.0.1:1337, not %s", rec.NetAddr)
	}
	if rec.Moniker != "node0" {
		t.Fatalf("Moniker should be kept as node0, not %s", rec.Moniker)
	}
	if !rec.FirstSeen.Equal(epoch) || !rec.LastSeen.Equal(epoch.Add(time.Minute)) {
		t.Fatalf("unexpected sighting times %v - %v", rec.FirstSeen, rec.LastSeen)
	}

	known, err := KnownPeers(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(known) != 3 {
		t.Fatalf("store should hold 3 peers, not %d", len(known))
	}
	for i, p := range known {
		if !p.Equals(ps[i]) {
			t.Fatalf("peer %d should be %v, not %v", i, ps[i], p)
		}
	}
}

func TestInmemStore(t *testing.T) {
	checkStore(t, NewInmemStore())
}

func TestInmemStoreClosed(t *testing.T) {
	s := NewInmemStore()
	s.Close()

	err := s.SetPeer(NewPeerRecord(testPeers(1)[0], epoch))
	if !common.IsStore(err, common.Closed) {
		t.Fatalf("SetPeer after Close should return Closed, not %v", err)
	}
}

func TestBadgerStore(t *testing.T) {
	s := newTestBadgerStore(t)
	defer s.Close()

	checkStore(t, s)
}

func TestBadgerStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badger")
	logger := common.NewTestEntry(t, common.TestLogLevel)

	if _, err := LoadBadgerStore(path, logger); err == nil {
		t.Fatal("LoadBadgerStore should fail on a missing directory")
	}

	s, err := LoadOrCreateBadgerStore(path, logger)
	if err != nil {
		t.Fatal(err)
	}

	ps := testPeers(4)
	for _, p := range ps {
		if err := RecordSighting(s, p, epoch); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = LoadOrCreateBadgerStore(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	records, err := s.Peers()
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != len(ps) {
		t.Fatalf("reloaded store should hold %d peers, not %d", len(ps), len(records))
	}

	for i, r := range records {
		if r.Key() != ps[i].PubKeyString() {
			t.Fatalf("record %d should be %s, not %s", i, ps[i].PubKeyString(), r.Key())
		}
		if !r.FirstSeen.Equal(epoch) {
			t.Fatalf("FirstSeen should survive a reload, got %v", r.FirstSeen)
		}
	}
}
