package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"mebel-pwa-backend/internal/mw"
	"mebel-pwa-backend/internal/notification"
	"mebel-pwa-backend/internal/store"
)

// RouterConfig tunes the middleware applied to the API group.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, webpushOptions *webpush.Options, pool *notification.WorkerPool, cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, webpushOptions, pool)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	// The service worker script must never be cached, so it sits outside the
	// caching middleware.
	r.GET("/sw.js", handler.GetServiceWorker)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/push-subscribe", handler.PostSubscription)
		api.GET("/push-subscribe", handler.GetSubscriptionStatus)
		api.POST("/push-unsubscribe", handler.PostUnsubscribe)
		api.GET("/push-public-key", caching, handler.GetPushPublicKey)
		api.POST("/push-broadcast", handler.PostBroadcast)
	}

	return r
}
