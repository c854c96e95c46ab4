package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Badger persists summaries in an embedded BadgerDB so they survive
// across daily runs.
type Badger struct {
	db *badger.DB
}

// NewBadger opens (or creates) the cache at path. Pass an in-memory DB
// via NewBadgerFromDB in tests.
func NewBadger(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Badger{db: db}, nil
}

// NewBadgerFromDB wraps an already-open DB.
func NewBadgerFromDB(db *badger.DB) *Badger {
	return &Badger{db: db}
}

func (b *Badger) Get(hash string) (Entry, error) {
	var entry Entry
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(hash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		// Corrupt value or read failure counts as a miss.
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (b *Badger) Put(hash string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(hash), data)
	})
}

func (b *Badger) Close() error { return b.db.Close() }
