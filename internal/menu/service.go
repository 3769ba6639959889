// Package menu manages the restaurant's menu collection: listing, item
// creation and deletion, and stock-quantity adjustment.
package menu

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"wavefood-admin/internal/logger"
	"wavefood-admin/internal/store"
)

type Service interface {
	List(ctx context.Context) ([]Item, error)
	Add(ctx context.Context, item Item) (string, error)
	Delete(ctx context.Context, key string) error
	AdjustQuantity(ctx context.Context, key string, delta int) (int, error)
}

type service struct {
	store store.Store
}

func NewService(st store.Store) Service {
	return &service{store: st}
}

func (s *service) List(ctx context.Context) ([]Item, error) {
	records, err := s.store.Snapshot(ctx, Path, "")
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}

	items := make([]Item, 0, len(records))
	for _, r := range records {
		var item Item
		if err := r.Decode(&item); err != nil {
			logger.FromCtx(ctx).Warn("skipping undecodable menu item",
				zap.String("key", r.Key),
				zap.Error(err),
			)
			continue
		}
		if item.Key == "" {
			item.Key = r.Key
		}
		items = append(items, item)
	}
	return items, nil
}

// Add stores the item under a fresh push key and records the key inside the
// item itself, mirroring how the ordering client reads it back.
func (s *service) Add(ctx context.Context, item Item) (string, error) {
	key, err := s.store.Push(ctx, Path, item)
	if err != nil {
		return "", fmt.Errorf("add menu item: %w", err)
	}

	item.Key = key
	if err := s.store.Set(ctx, store.Join(Path, key), item); err != nil {
		return "", fmt.Errorf("record menu item key: %w", err)
	}

	logger.FromCtx(ctx).Info("menu item added",
		zap.String("key", key),
		zap.String("food_name", item.FoodName),
	)
	return key, nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	var item Item
	if err := s.store.Get(ctx, store.Join(Path, key), &item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("load menu item %s: %w", key, err)
	}

	if err := s.store.Delete(ctx, store.Join(Path, key)); err != nil {
		return fmt.Errorf("delete menu item %s: %w", key, err)
	}

	logger.FromCtx(ctx).Info("menu item deleted", zap.String("key", key))
	return nil
}

// AdjustQuantity applies delta to the stored quantity and writes the result
// back as a string. Results outside [MinQuantity, MaxQuantity] are rejected
// without a write. An unparseable stored quantity counts as zero, matching
// the lenient read the clients use.
func (s *service) AdjustQuantity(ctx context.Context, key string, delta int) (int, error) {
	var raw string
	if err := s.store.Get(ctx, store.Join(Path, key, quantityField), &raw); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrItemNotFound
		}
		return 0, fmt.Errorf("read quantity for %s: %w", key, err)
	}

	current, err := strconv.Atoi(raw)
	if err != nil {
		current = 0
	}

	next := current + delta
	if next < MinQuantity || next > MaxQuantity {
		return current, fmt.Errorf("%w: %d", ErrQuantityOutOfRange, next)
	}

	if err := s.store.Set(ctx, store.Join(Path, key, quantityField), strconv.Itoa(next)); err != nil {
		return current, fmt.Errorf("write quantity for %s: %w", key, err)
	}
	return next, nil
}
