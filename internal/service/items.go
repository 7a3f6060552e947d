// Package service implements the item lifecycle on top of a document store
// and records every mutation in the activity log.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"itemcrud/internal/activity"
	"itemcrud/internal/item"
	"itemcrud/internal/store"
)

// ActivityRecorder receives a snapshot of every successful mutation.
type ActivityRecorder interface {
	Record(action activity.Action, it *item.Item)
}

// Metrics is the subset of the metrics collector the service reports to.
type Metrics interface {
	RecordMutation(action string)
	RecordComment()
	RecordStoreError(op string)
}

// ItemService validates payloads, persists items and feeds the activity log.
type ItemService struct {
	store    store.Store
	recorder ActivityRecorder
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewItemService creates an ItemService. metrics may be nil.
func NewItemService(s store.Store, recorder ActivityRecorder, metrics Metrics, logger *zap.Logger) *ItemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemService{
		store:    s,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Create validates p and stores a new item.
func (s *ItemService) Create(ctx context.Context, p item.Payload) (*item.Item, error) {
	now := s.now()
	fields, err := p.Normalize(now)
	if err != nil {
		return nil, err
	}

	it := &item.Item{
		ID:           s.newID(),
		CreatedAt:    now,
		LastModified: now,
	}
	it.Apply(fields)

	if err := s.store.Insert(ctx, it); err != nil {
		return nil, s.storeFailure("insert", err)
	}

	s.recordMutation(activity.ActionCreate, it)
	return it, nil
}

// ListAll returns every item in store order.
func (s *ItemService) ListAll(ctx context.Context) ([]*item.Item, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, s.storeFailure("list", err)
	}
	return items, nil
}

// GetByID returns one item or item.ErrNotFound.
func (s *ItemService) GetByID(ctx context.Context, id string) (*item.Item, error) {
	it, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeFailure("get", err)
	}
	return it, nil
}

// Update replaces the user-controlled fields of an existing item.
func (s *ItemService) Update(ctx context.Context, id string, p item.Payload) (*item.Item, error) {
	now := s.now()
	fields, err := p.Normalize(now)
	if err != nil {
		return nil, err
	}

	it, err := s.store.Update(ctx, id, func(it *item.Item) error {
		it.Apply(fields)
		it.LastModified = now
		return nil
	})
	if err != nil {
		return nil, s.storeFailure("update", err)
	}

	s.recordMutation(activity.ActionUpdate, it)
	return it, nil
}

// Delete removes an item.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return s.storeFailure("delete", err)
	}

	s.recordMutation(activity.ActionDelete, removed)
	return nil
}

// AddComment appends a comment to an existing item. Comments are not
// recorded in the activity log.
func (s *ItemService) AddComment(ctx context.Context, itemID string, p item.CommentPayload) (item.Comment, error) {
	comment, verr := item.NewComment(p, s.now())

	_, err := s.store.Update(ctx, itemID, func(it *item.Item) error {
		// A missing item wins over an invalid comment.
		if verr != nil {
			return verr
		}
		it.Comments = append(it.Comments, comment)
		return nil
	})
	if err != nil {
		return item.Comment{}, s.storeFailure("add_comment", err)
	}

	if s.metrics != nil {
		s.metrics.RecordComment()
	}
	s.logger.Debug("comment added", zap.String("item_id", itemID), zap.String("user", comment.User))
	return comment, nil
}

func (s *ItemService) recordMutation(action activity.Action, it *item.Item) {
	s.recorder.Record(action, it)
	if s.metrics != nil {
		s.metrics.RecordMutation(string(action))
	}
	s.logger.Debug("item mutated",
		zap.String("action", string(action)),
		zap.String("item_id", it.ID),
		zap.String("name", it.Name),
	)
}

// storeFailure classifies err. Not-found and validation errors pass
// through; anything else becomes a *item.StoreError and is logged.
func (s *ItemService) storeFailure(op string, err error) error {
	wrapped := item.WrapStore(op, err)
	if errors.Is(wrapped, item.ErrStore) {
		if s.metrics != nil {
			s.metrics.RecordStoreError(op)
		}
		s.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	}
	return wrapped
}
