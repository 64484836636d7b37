package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mebel-pwa-backend/internal/model"
)

func newTestStore(t *testing.T) Store {
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(&model.PushSubscription{}))
	return NewGormStore(db)
}

func newSubscription(endpoint string) *model.PushSubscription {
	return &model.PushSubscription{
		Endpoint:     endpoint,
		Auth:         "auth-secret",
		P256DH:       "p256dh-key",
		Platform:     "android",
		Browser:      "chrome",
		UserAgent:    "Mozilla/5.0 (Linux; Android 14)",
		IsActive:     true,
		LastVerified: time.Now().UTC(),
	}
}

func TestFindSubscription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.FindSubscription(ctx, "https://push.example/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateSubscription(ctx, newSubscription("https://push.example/a")))

	sub, err := s.FindSubscription(ctx, "https://push.example/a")
	require.NoError(t, err)
	assert.Equal(t, "auth-secret", sub.Auth)
	assert.Equal(t, "chrome", sub.Browser)
	assert.True(t, sub.IsActive)
}

func TestRefreshSubscription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.RefreshSubscription(ctx, "https://push.example/missing", "web", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	sub := newSubscription("https://push.example/a")
	sub.IsActive = false
	require.NoError(t, s.CreateSubscription(ctx, sub))

	later := time.Now().UTC().Add(time.Hour)
	require.NoError(t, s.RefreshSubscription(ctx, sub.Endpoint, "ios", later))

	got, err := s.FindSubscription(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, "ios", got.Platform)
	assert.WithinDuration(t, later, got.LastVerified, time.Second)
	// Browser and user agent stay as captured at creation.
	assert.Equal(t, "chrome", got.Browser)
	assert.Equal(t, sub.UserAgent, got.UserAgent)
}

func TestRefreshDoesNotDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := newSubscription("https://push.example/a")
	require.NoError(t, s.CreateSubscription(ctx, sub))
	require.NoError(t, s.RefreshSubscription(ctx, sub.Endpoint, "android", time.Now()))

	var count int64
	require.NoError(t, s.DB().Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeactivateSubscription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := newSubscription("https://push.example/a")
	require.NoError(t, s.CreateSubscription(ctx, sub))
	require.NoError(t, s.DeactivateSubscription(ctx, sub.Endpoint))

	got, err := s.FindSubscription(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestDeleteSubscription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := newSubscription("https://push.example/a")
	require.NoError(t, s.CreateSubscription(ctx, sub))
	require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))

	_, err := s.FindSubscription(ctx, sub.Endpoint)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListActiveSubscriptions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	active := newSubscription("https://push.example/active")
	require.NoError(t, s.CreateSubscription(ctx, active))

	inactive := newSubscription("https://push.example/inactive")
	inactive.IsActive = false
	require.NoError(t, s.CreateSubscription(ctx, inactive))

	subs, err := s.ListActiveSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, active.Endpoint, subs[0].Endpoint)
}
