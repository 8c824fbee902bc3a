package peers

import (
	"fmt"

	"github.com/mosaicnetworks/hastings/src/common"
	"github.com/mosaicnetworks/hastings/src/crypto/keys"
)

// Peer is a node of the discovery network.
type Peer struct {
	NetAddr   string
	PubKeyHex string
	Moniker   string
}

// NewPeer creates a new peer.
func NewPeer(pubKeyHex, netAddr, moniker string) *Peer {
	return &Peer{
		PubKeyHex: pubKeyHex,
		NetAddr:   netAddr,
		Moniker:   moniker,
	}
}

// ID returns the 32-bit hash of the peer's public key. A malformed key falls
// back to hashing the raw string so that every peer still has a stable ID.
func (p *Peer) ID() uint32 {
	pubKey, err := p.PubKeyBytes()
	if err != nil || len(pubKey) == 0 {
		return common.Hash32([]byte(p.PubKeyHex))
	}
	return keys.PublicKeyID(pubKey)
}

// PubKeyString returns the upper-case version of PubKeyHex. It is used for
// indexing in maps with string keys.
func (p *Peer) PubKeyString() string {
	return common.Normalize(p.PubKeyHex)
}

// PubKeyBytes decodes PubKeyHex.
func (p *Peer) PubKeyBytes() ([]byte, error) {
	if len(p.PubKeyHex) < 2 {
		return nil, fmt.Errorf("public key too short: %q", p.PubKeyHex)
	}
	return common.DecodeFromString(p.PubKeyHex)
}

// Equals reports whether both peers have the same identity. Addresses and
// monikers are not part of the identity.
func (p *Peer) Equals(other *Peer) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.PubKeyString() == other.PubKeyString()
}

// Clone returns a copy of the peer that shares no memory with the original.
func (p *Peer) Clone() *Peer {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func (p *Peer) String() string {
	if p.Moniker != "" {
		return fmt.Sprintf("%s(%d)@%s", p.Moniker, p.ID(), p.NetAddr)
	}
	return fmt.Sprintf("%d@%s", p.ID(), p.NetAddr)
}

// ExcludePeer is used to exclude a single peer from a list of peers.
func ExcludePeer(peers []*Peer, peer uint32) (int, []*Peer) {
	index := -1
	otherPeers := make([]*Peer, 0, len(peers))
	for i, p := range peers {
		if p.ID() != peer {
			otherPeers = append(otherPeers, p)
		} else {
			index = i
		}
	}
	return index, otherPeers
}
