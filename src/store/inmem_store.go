package store

import (
	"sort"
	"sync"

	"github.com/mosaicnetworks/hastings/src/common"
)

// InmemStore is an in-memory Store.
type InmemStore struct {
	sync.RWMutex
	peers  map[string]*PeerRecord
	closed bool
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		peers: make(map[string]*PeerRecord),
	}
}

// SetPeer implements Store.
func (s *InmemStore) SetPeer(rec *PeerRecord) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return common.NewStoreErr("InmemStore", common.Closed, "")
	}

	c := *rec
	s.peers[rec.Key()] = &c

	return nil
}

// GetPeer implements Store.
func (s *InmemStore) GetPeer(pubKeyHex string) (*PeerRecord, error) {
	s.RLock()
	defer s.RUnlock()

	key := common.Normalize(pubKeyHex)
	rec, ok := s.peers[key]
	if !ok {
		return nil, common.NewStoreErr("Peer", common.KeyNotFound, key)
	}

	c := *rec
	return &c, nil
}

// Peers implements Store. Records are ordered by public key.
func (s *InmemStore) Peers() ([]*PeerRecord, error) {
	s.RLock()
	defer s.RUnlock()

	res := make([]*PeerRecord, 0, len(s.peers))
	for _, rec := range s.peers {
		c := *rec
		res = append(res, &c)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Key() < res[j].Key()
	})

	return res, nil
}

// Close implements Store.
func (s *InmemStore) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	return nil
}
