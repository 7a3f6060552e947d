// Package store persists item documents. Two drivers are provided: Redis,
// the default, and Badger for single-node or in-memory deployments.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"itemcrud/internal/item"
)

// Driver names accepted by Open.
const (
	DriverRedis  = "redis"
	DriverBadger = "badger"
)

// MutateFunc edits a document in place inside Store.Update. Returning an
// error aborts the update and the error is passed through unchanged.
type MutateFunc func(it *item.Item) error

// Store is a collection of item documents. Every method is atomic with
// respect to a single document. Implementations return item.ErrNotFound for
// missing documents; other failures are returned as-is and classified by
// the caller.
type Store interface {
	// Insert writes a new document. it.ID must already be set.
	Insert(ctx context.Context, it *item.Item) error
	// Get returns the document with the given id.
	Get(ctx context.Context, id string) (*item.Item, error)
	// List returns every document in insertion order.
	List(ctx context.Context) ([]*item.Item, error)
	// Update loads the document, applies fn, and writes it back without
	// losing concurrent writes to the same document.
	Update(ctx context.Context, id string, fn MutateFunc) (*item.Item, error)
	// Delete removes the document and returns it as it was.
	Delete(ctx context.Context, id string) (*item.Item, error)
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// Options selects and configures a driver.
type Options struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// BadgerPath is the data directory; empty runs Badger in memory.
	BadgerPath string
}

// Open connects to the configured backend and verifies it is reachable.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch opts.Driver {
	case DriverRedis, "":
		s := NewRedisStore(newRedisClient(opts), logger)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("could not connect to redis (%s): %w", opts.RedisAddr, err)
		}
		logger.Info("connected to redis", zap.String("addr", opts.RedisAddr), zap.Int("db", opts.RedisDB))
		return s, nil
	case DriverBadger:
		s, err := OpenBadger(opts.BadgerPath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
