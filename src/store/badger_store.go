package store

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/hastings/src/common"
	"github.com/sirupsen/logrus"
)

const peerPrefix = "peer"

// BadgerStore is a Store backed by a Badger database.
type BadgerStore struct {
	db   *badger.DB
	path string
}

func openBadger(path string, logger *logrus.Entry) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithSyncWrites(false)

	if logger != nil {
		opts = opts.WithLogger(logger.WithField("component", "badger"))
	}

	return badger.Open(opts)
}

// NewBadgerStore creates a brand new Store with a new database.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	handle, err := openBadger(path, logger)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:   handle,
		path: path,
	}, nil
}

// LoadBadgerStore opens an existing database.
func LoadBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	handle, err := openBadger(path, logger)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:   handle,
		path: path,
	}, nil
}

// LoadOrCreateBadgerStore opens the database at path, creating it if it does
// not exist.
func LoadOrCreateBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	store, err := LoadBadgerStore(path, logger)

	if err != nil {
		store, err = NewBadgerStore(path, logger)

		if err != nil {
			return nil, err
		}
	}

	return store, nil
}

//==============================================================================
//Keys

func peerKey(pubKey string) []byte {
	return []byte(fmt.Sprintf("%s_%s", peerPrefix, common.Normalize(pubKey)))
}

//==============================================================================
//Implement the Store interface

// SetPeer implements Store.
func (s *BadgerStore) SetPeer(rec *PeerRecord) error {
	val, err := rec.Marshal()
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(peerKey(rec.PubKeyHex), val)
	})
}

// GetPeer implements Store.
func (s *BadgerStore) GetPeer(pubKeyHex string) (*PeerRecord, error) {
	var recBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(peerKey(pubKeyHex))
		if err != nil {
			return err
		}
		recBytes, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, mapError(err, "Peer", common.Normalize(pubKeyHex))
	}

	rec := new(PeerRecord)
	if err := rec.Unmarshal(recBytes); err != nil {
		return nil, err
	}

	return rec, nil
}

// Peers implements Store. Records come out in key order.
func (s *BadgerStore) Peers() ([]*PeerRecord, error) {
	res := []*PeerRecord{}
	prefix := []byte(peerPrefix + "_")

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			rec := new(PeerRecord)
			if err := rec.Unmarshal(val); err != nil {
				return err
			}

			res = append(res, rec)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return res, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath returns the directory of the database.
func (s *BadgerStore) StorePath() string {
	return s.path
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++

func isDBKeyNotFound(err error) bool {
	return err.Error() == badger.ErrKeyNotFound.Error()
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return common.NewStoreErr(name, common.KeyNotFound, key)
		}
	}
	return err
}
