package storage

import (
	"os"

	"github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
)

const namedLogger = "storage"

// badgerStore wraps the underlying key-value database.
type badgerStore struct {
	db *badger.DB
}

// InitStoreDirectory ensures the on-disk location for a store exists.
func InitStoreDirectory(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return errors.Wrapf(err, "error creating store directory %s", path)
	}
	return nil
}

func openBadger(dir string, syncWrites bool, log *logging.Logger) (*badgerStore, error) {
	opts := badger.DefaultOptions(dir).
		WithSyncWrites(syncWrites).
		WithLogger(log)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "error opening badger database")
	}
	return &badgerStore{db: db}, nil
}

func (bs *badgerStore) close() error {
	return bs.db.Close()
}

// readPrefix visits every value under a key prefix.
func (bs *badgerStore) readPrefix(prefix []byte, visit func(val []byte) error) error {
	return bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				return visit(val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// readKey loads one value, reporting found=false for an absent key.
func (bs *badgerStore) readKey(key []byte, visit func(val []byte) error) (bool, error) {
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return visit(val)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
