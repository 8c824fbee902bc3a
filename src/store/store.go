package store

import (
	"time"

	"github.com/mosaicnetworks/hastings/src/common"
	"github.com/mosaicnetworks/hastings/src/peers"
)

// Store is a repository of peer records keyed by public key.
type Store interface {
	SetPeer(*PeerRecord) error
	GetPeer(pubKeyHex string) (*PeerRecord, error)
	Peers() ([]*PeerRecord, error)
	Close() error
}

// RecordSighting creates or updates the record of p in s.
func RecordSighting(s Store, p *peers.Peer, seen time.Time) error {
	rec, err := s.GetPeer(p.PubKeyHex)
	switch {
	case err == nil:
		rec.Seen(p, seen)
	case common.IsStore(err, common.KeyNotFound):
		rec = NewPeerRecord(p, seen)
	default:
		return err
	}

	return s.SetPeer(rec)
}

// KnownPeers returns the peers held by s.
func KnownPeers(s Store) ([]*peers.Peer, error) {
	records, err := s.Peers()
	if err != nil {
		return nil, err
	}

	res := make([]*peers.Peer, 0, len(records))
	for _, r := range records {
		res = append(res, r.Peer())
	}

	return res, nil
}
