package peers

// PeerSet is an ordered collection of unique peers, indexed by public key and
// by ID. It is treated as immutable once created.
type PeerSet struct {
	Peers    []*Peer          `json:"peers"`
	ByPubKey map[string]*Peer `json:"-"`
	ByID     map[uint32]*Peer `json:"-"`
}

// NewPeerSet creates a new PeerSet from a list of Peers. Duplicate identities
// are dropped, the first occurrence wins.
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		Peers:    make([]*Peer, 0, len(peers)),
		ByPubKey: make(map[string]*Peer),
		ByID:     make(map[uint32]*Peer),
	}

	for _, peer := range peers {
		if peer == nil {
			continue
		}
		if _, ok := peerSet.ByPubKey[peer.PubKeyString()]; ok {
			continue
		}
		peerSet.ByPubKey[peer.PubKeyString()] = peer
		peerSet.ByID[peer.ID()] = peer
		peerSet.Peers = append(peerSet.Peers, peer)
	}

	return peerSet
}

// WithNewPeers returns a new PeerSet including the given peers.
func (peerSet *PeerSet) WithNewPeers(peers ...*Peer) *PeerSet {
	all := make([]*Peer, 0, len(peerSet.Peers)+len(peers))
	all = append(all, peerSet.Peers...)
	all = append(all, peers...)
	return NewPeerSet(all)
}

// WithRemovedPeer returns a new PeerSet excluding the provided peer.
func (peerSet *PeerSet) WithRemovedPeer(peer *Peer) *PeerSet {
	_, others := ExcludePeer(peerSet.Peers, peer.ID())
	return NewPeerSet(others)
}

// Contains reports whether a peer with the same identity is in the set.
func (peerSet *PeerSet) Contains(peer *Peer) bool {
	_, ok := peerSet.ByPubKey[peer.PubKeyString()]
	return ok
}

// PubKeys returns the PeerSet's slice of public keys
func (peerSet *PeerSet) PubKeys() []string {
	res := []string{}

	for _, peer := range peerSet.Peers {
		res = append(res, peer.PubKeyString())
	}

	return res
}

// Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.Peers)
}
