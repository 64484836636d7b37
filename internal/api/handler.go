package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"mebel-pwa-backend/internal/notification"
	"mebel-pwa-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	webpush *webpush.Options
	pool    *notification.WorkerPool
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, webpushOptions *webpush.Options, pool *notification.WorkerPool) *Handler {
	return &Handler{
		store:   s,
		webpush: webpushOptions,
		pool:    pool,
	}
}
