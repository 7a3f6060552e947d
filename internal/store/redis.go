package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"itemcrud/internal/item"
)

// indexKey is a sorted set of item ids scored by creation time.
const indexKey = "items"

// maxWatchRetries bounds optimistic-lock retries in Update.
const maxWatchRetries = 10

// RedisStore provides item persistence in Redis.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore creates a new RedisStore.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, logger: logger}
}

func newRedisClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})
}

func itemKey(id string) string {
	return fmt.Sprintf("item:%s", id)
}

// Insert stores a new item and adds it to the index.
func (s *RedisStore) Insert(ctx context.Context, it *item.Item) error {
	data, err := json.Marshal(it)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, itemKey(it.ID), data, 0)
		pipe.ZAdd(ctx, indexKey, &redis.Z{Score: float64(it.CreatedAt.UnixMicro()), Member: it.ID})
		return nil
	})
	return err
}

// Get retrieves an item by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*item.Item, error) {
	data, err := s.client.Get(ctx, itemKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, item.ErrNotFound
		}
		return nil, err
	}
	return decodeItem(data)
}

// List returns all items ordered by creation time.
func (s *RedisStore) List(ctx context.Context) ([]*item.Item, error) {
	ids, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*item.Item{}, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, itemKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	items := make([]*item.Item, 0, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if err == redis.Nil {
				// Index entry without a document; a delete raced this read.
				s.logger.Debug("skipping dangling index entry", zap.String("id", ids[i]))
				continue
			}
			return nil, err
		}
		it, err := decodeItem(data)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// Update applies fn to the stored item under WATCH, retrying when another
// client modifies the key between the read and the write.
func (s *RedisStore) Update(ctx context.Context, id string, fn MutateFunc) (*item.Item, error) {
	key := itemKey(id)
	var updated *item.Item

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return item.ErrNotFound
			}
			return err
		}
		it, err := decodeItem(data)
		if err != nil {
			return err
		}
		if err := fn(it); err != nil {
			return err
		}
		out, err := json.Marshal(it)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetXX(ctx, key, out, 0)
			return nil
		})
		if err == nil {
			updated = it
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		s.logger.Debug("optimistic lock conflict, retrying", zap.String("id", id), zap.Int("attempt", i+1))
	}
	return nil, fmt.Errorf("update %s: too much contention", id)
}

// Delete removes an item and returns the removed document. The read and
// the removal run under WATCH so the returned snapshot is exactly what was
// deleted; plain GET and DEL keep it working on servers without GETDEL.
func (s *RedisStore) Delete(ctx context.Context, id string) (*item.Item, error) {
	key := itemKey(id)
	var removed *item.Item

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return item.ErrNotFound
			}
			return err
		}
		it, err := decodeItem(data)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, indexKey, id)
			return nil
		})
		if err == nil {
			removed = it
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return removed, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		s.logger.Debug("optimistic lock conflict, retrying", zap.String("id", id), zap.Int("attempt", i+1))
	}
	return nil, fmt.Errorf("delete %s: too much contention", id)
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeItem(data []byte) (*item.Item, error) {
	var it item.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	it.EnsureSlices()
	return &it, nil
}
