package peers

import (
	"testing"
)

func TestPeerSetDeduplicates(t *testing.T) {
	peers := newTestPeers(t, 3)

	dup := peers[1].Clone()
	dup.NetAddr = "elsewhere"

	peerSet := NewPeerSet(append(peers, dup))

	if peerSet.Len() != 3 {
		t.Fatalf("peerSet should have 3 peers, not %d", peerSet.Len())
	}

	if peerSet.ByID[peers[1].ID()].NetAddr != peers[1].NetAddr {
		t.Fatalf("first occurrence should win")
	}

	removed := peerSet.WithRemovedPeer(peers[0])
	if removed.Len() != 2 || removed.Contains(peers[0]) {
		t.Fatalf("peer 0 should have been removed")
	}

	if peerSet.Len() != 3 {
		t.Fatalf("original PeerSet should not be modified")
	}
}

func TestExcludePeer(t *testing.T) {
	peers := newTestPeers(t, 4)

	index, others := ExcludePeer(peers, peers[2].ID())
	if index != 2 {
		t.Fatalf("index should be 2, not %d", index)
	}
	if len(others) != 3 {
		t.Fatalf("others should have 3 peers, not %d", len(others))
	}

	index, others = ExcludePeer(peers, 0)
	if index != -1 || len(others) != 4 {
		t.Fatalf("unknown peer should not be excluded")
	}
}

func TestPeerClone(t *testing.T) {
	p := newTestPeers(t, 1)[0]
	c := p.Clone()
	c.NetAddr = "changed"

	if p.NetAddr == "changed" {
		t.Fatalf("Clone should not share memory")
	}
	if !p.Equals(c) {
		t.Fatalf("Clone should keep identity")
	}
}

func TestParseSeed(t *testing.T) {
	p := newTestPeers(t, 1)[0]

	cases := map[string]string{
		p.PubKeyHex + "@127.0.0.1:1337":              "127.0.0.1:1337",
		p.PubKeyHex + "@/ip4/10.0.0.1/tcp/1337":      "10.0.0.1:1337",
		p.PubKeyHex + "@/dns4/seed.example/tcp/4000": "seed.example:4000",
	}

	for seed, addr := range cases {
		peer, err := ParseSeed(seed)
		if err != nil {
			t.Fatalf("ParseSeed(%s): %v", seed, err)
		}
		if peer.NetAddr != addr {
			t.Fatalf("ParseSeed(%s) NetAddr should be %s, not %s", seed, addr, peer.NetAddr)
		}
		if !peer.Equals(p) {
			t.Fatalf("ParseSeed(%s) identity mismatch", seed)
		}
	}

	for _, bad := range []string{"", "nokey", "@127.0.0.1:1", p.PubKeyHex + "@/ip4/nope"} {
		if _, err := ParseSeed(bad); err == nil {
			t.Fatalf("ParseSeed(%q) should fail", bad)
		}
	}
}
