package db

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"plantwatch/internal/types"
)

// readingPrefix namespaces reading keys. A key is the prefix, the unix nano
// timestamp as 8 big-endian bytes, then the reading id, so lexical key
// order equals timestamp order with ties broken by id.
var readingPrefix = []byte("r/")

// BadgerStore is an embedded ReadingStore. Badger allows a single opener per
// directory, so one process must own the handle.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) the store at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	return openBadger(opts)
}

// OpenInMemoryBadgerStore opens a non-persistent store.
func OpenInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func readingKey(r types.Reading) []byte {
	key := make([]byte, 0, len(readingPrefix)+8+len(r.ID))
	key = append(key, readingPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(r.Timestamp.UnixNano()))
	return append(key, r.ID...)
}

// Insert appends one reading.
func (s *BadgerStore) Insert(ctx context.Context, r types.Reading) error {
	if err := ctx.Err(); err != nil {
		return types.ErrPersistence("failed to insert reading", err)
	}

	r.Timestamp = r.Timestamp.UTC()
	value, err := json.Marshal(r)
	if err != nil {
		return types.ErrPersistence("failed to encode reading", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(readingKey(r), value)
	})
	if err != nil {
		return types.ErrPersistence("failed to insert reading", err)
	}
	return nil
}

// Flush syncs the value log to disk. Committed writes are already visible
// to readers, so an in-memory store has nothing to do.
func (s *BadgerStore) Flush(ctx context.Context) error {
	if s.db.Opts().InMemory {
		return nil
	}
	if err := s.db.Sync(); err != nil {
		return types.ErrPersistence("failed to sync reading store", err)
	}
	return nil
}

// History returns every reading in key order.
func (s *BadgerStore) History(ctx context.Context) ([]types.Reading, error) {
	readings := make([]types.Reading, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(readingPrefix); it.ValidForPrefix(readingPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			readings = append(readings, r)
		}
		return nil
	})
	if err != nil {
		return nil, types.ErrPersistence("failed to read reading history", err)
	}
	return readings, nil
}

// Latest seeks to the last key under the prefix.
func (s *BadgerStore) Latest(ctx context.Context) (*types.Reading, error) {
	var latest *types.Reading

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(bytes.Clone(readingPrefix), 0xFF)
		it.Seek(seek)
		if !it.ValidForPrefix(readingPrefix) {
			return nil
		}
		r, err := decodeItem(it.Item())
		if err != nil {
			return err
		}
		latest = &r
		return nil
	})
	if err != nil {
		return nil, types.ErrPersistence("failed to read latest reading", err)
	}
	return latest, nil
}

func decodeItem(item *badger.Item) (types.Reading, error) {
	var r types.Reading
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	})
	if err != nil {
		return types.Reading{}, fmt.Errorf("decoding %x: %w", item.Key(), err)
	}
	r.Timestamp = r.Timestamp.In(time.UTC)
	return r, nil
}

// Ping reports whether the store is open.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger store is closed")
	}
	return nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
