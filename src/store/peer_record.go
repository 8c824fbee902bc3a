package store

import (
	"bytes"
	"time"

	"github.com/mosaicnetworks/hastings/src/common"
	"github.com/mosaicnetworks/hastings/src/peers"
	"github.com/ugorji/go/codec"
)

// PeerRecord is what the store remembers about a peer.
type PeerRecord struct {
	PubKeyHex string
	NetAddr   string
	Moniker   string
	FirstSeen time.Time
	LastSeen  time.Time
	TimesSeen int
}

// NewPeerRecord creates a record for a peer seen for the first time at seen.
func NewPeerRecord(p *peers.Peer, seen time.Time) *PeerRecord {
	return &PeerRecord{
		PubKeyHex: p.PubKeyString(),
		NetAddr:   p.NetAddr,
		Moniker:   p.Moniker,
		FirstSeen: seen,
		LastSeen:  seen,
		TimesSeen: 1,
	}
}

// Key is the normalised public key the record is indexed by.
func (r *PeerRecord) Key() string {
	return common.Normalize(r.PubKeyHex)
}

// Peer converts the record back into a peer.
func (r *PeerRecord) Peer() *peers.Peer {
	return peers.NewPeer(r.PubKeyHex, r.NetAddr, r.Moniker)
}

// Seen updates the record after the peer was seen again at seen. Address and
// moniker follow the latest sighting.
func (r *PeerRecord) Seen(p *peers.Peer, seen time.Time) {
	r.NetAddr = p.NetAddr
	if p.Moniker != "" {
		r.Moniker = p.Moniker
	}
	if seen.After(r.LastSeen) {
		r.LastSeen = seen
	}
	r.TimesSeen++
}

// Marshal - json encoding of PeerRecord
func (r *PeerRecord) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(r); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (r *PeerRecord) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(r)
}
