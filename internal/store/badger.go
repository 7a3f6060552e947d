package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"itemcrud/internal/item"
)

const badgerItemPrefix = "item:"

// BadgerStore keeps items in an embedded Badger database.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// OpenBadger opens a Badger database at path, or an in-memory one when
// path is empty.
func OpenBadger(path string, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.SyncWrites = true
		opts.CompactL0OnClose = true
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	logger.Info("badger database opened", zap.String("path", path), zap.Bool("in_memory", path == ""))
	return &BadgerStore{db: db, logger: logger}, nil
}

func badgerKey(id string) []byte {
	return []byte(badgerItemPrefix + id)
}

// Insert writes a new item.
func (s *BadgerStore) Insert(_ context.Context, it *item.Item) error {
	data, err := json.Marshal(it)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(it.ID), data)
	})
}

// Get returns the item with the given id.
func (s *BadgerStore) Get(_ context.Context, id string) (*item.Item, error) {
	var it *item.Item
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		it, err = readItem(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// List returns every item ordered by creation time.
func (s *BadgerStore) List(_ context.Context) ([]*item.Item, error) {
	items := []*item.Item{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerItemPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				it, err := decodeItem(val)
				if err != nil {
					return err
				}
				items = append(items, it)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// Update applies fn inside a read-write transaction, retrying on conflict.
func (s *BadgerStore) Update(_ context.Context, id string, fn MutateFunc) (*item.Item, error) {
	for i := 0; i < maxWatchRetries; i++ {
		var updated *item.Item
		err := s.db.Update(func(txn *badger.Txn) error {
			it, err := readItem(txn, id)
			if err != nil {
				return err
			}
			if err := fn(it); err != nil {
				return err
			}
			data, err := json.Marshal(it)
			if err != nil {
				return err
			}
			updated = it
			return txn.Set(badgerKey(id), data)
		})
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return nil, err
		}
		s.logger.Debug("transaction conflict, retrying", zap.String("id", id), zap.Int("attempt", i+1))
	}
	return nil, fmt.Errorf("update %s: too much contention", id)
}

// Delete removes the item and returns it as it was, retrying on conflict.
func (s *BadgerStore) Delete(_ context.Context, id string) (*item.Item, error) {
	for i := 0; i < maxWatchRetries; i++ {
		var removed *item.Item
		err := s.db.Update(func(txn *badger.Txn) error {
			it, err := readItem(txn, id)
			if err != nil {
				return err
			}
			removed = it
			return txn.Delete(badgerKey(id))
		})
		if err == nil {
			return removed, nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return nil, err
		}
		s.logger.Debug("transaction conflict, retrying", zap.String("id", id), zap.Int("attempt", i+1))
	}
	return nil, fmt.Errorf("delete %s: too much contention", id)
}

// Ping reports an error once the database has been closed.
func (s *BadgerStore) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func readItem(txn *badger.Txn, id string) (*item.Item, error) {
	entry, err := txn.Get(badgerKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, item.ErrNotFound
		}
		return nil, err
	}
	var it *item.Item
	err = entry.Value(func(val []byte) error {
		it, err = decodeItem(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}
