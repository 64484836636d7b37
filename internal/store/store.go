package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mebel-pwa-backend/internal/model"
)

// ErrNotFound is returned when no subscription exists for an endpoint.
var ErrNotFound = errors.New("subscription not found")

// Store defines the interface for all subscription persistence operations.
type Store interface {
	// FindSubscription returns the subscription for the given endpoint, or
	// ErrNotFound when none exists.
	FindSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)

	// CreateSubscription inserts a new subscription row.
	CreateSubscription(ctx context.Context, sub *model.PushSubscription) error

	// RefreshSubscription marks an existing subscription active and updates
	// its platform and verification timestamps. Browser and user agent are
	// deliberately left as captured at creation.
	RefreshSubscription(ctx context.Context, endpoint, platform string, now time.Time) error

	// DeactivateSubscription clears the active flag, keeping the row for
	// diagnostics. Used when the push service reports the endpoint gone.
	DeactivateSubscription(ctx context.Context, endpoint string) error

	// DeleteSubscription removes the subscription row entirely.
	DeleteSubscription(ctx context.Context, endpoint string) error

	// ListActiveSubscriptions returns all subscriptions currently considered
	// deliverable.
	ListActiveSubscriptions(ctx context.Context) ([]model.PushSubscription, error)

	// DB exposes the underlying GORM handle for components that manage their
	// own queries, such as the notification worker pool.
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) FindSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscription: %w", err)
	}
	return &sub, nil
}

func (s *gormStore) CreateSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to store subscription: %w", err)
	}
	return nil
}

func (s *gormStore) RefreshSubscription(ctx context.Context, endpoint, platform string, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.PushSubscription{}).
		Where("endpoint = ?", endpoint).
		Updates(map[string]any{
			"is_active":     true,
			"platform":      platform,
			"last_verified": now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to refresh subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DeactivateSubscription(ctx context.Context, endpoint string) error {
	err := s.db.WithContext(ctx).Model(&model.PushSubscription{}).
		Where("endpoint = ?", endpoint).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (s *gormStore) ListActiveSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}
	return subs, nil
}
