package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mebel-pwa-backend/internal/model"
	"mebel-pwa-backend/internal/platform"
	"mebel-pwa-backend/internal/store"
)

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		Auth   string `json:"auth"`
		P256DH string `json:"p256dh"`
	} `json:"keys"`
	Platform string `json:"platform"`
}

// PostSubscription registers a new push subscription or refreshes an existing
// one. Registering the same endpoint twice never produces a second row.
func (h *Handler) PostSubscription(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription"})
		return
	}
	if req.Endpoint == "" || req.Keys.Auth == "" || req.Keys.P256DH == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription"})
		return
	}

	userAgent := c.GetHeader("User-Agent")
	plat := platform.Detect(userAgent, req.Platform)
	now := time.Now().UTC()

	ctx := c.Request.Context()
	_, err := h.store.FindSubscription(ctx, req.Endpoint)
	switch {
	case err == nil:
		// Metadata refresh: platform and verification timestamps only.
		// Browser and user agent stay as captured at creation.
		if err := h.store.RefreshSubscription(ctx, req.Endpoint, string(plat), now); err != nil {
			log.Printf("Error refreshing subscription %s: %v", req.Endpoint, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store subscription"})
			return
		}
		log.Printf("Updated existing subscription (platform=%s)", plat)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subscription updated", "platform": plat})

	case errors.Is(err, store.ErrNotFound):
		sub := model.PushSubscription{
			Endpoint:     req.Endpoint,
			Auth:         req.Keys.Auth,
			P256DH:       req.Keys.P256DH,
			Platform:     string(plat),
			Browser:      string(platform.DetectBrowser(userAgent)),
			UserAgent:    userAgent,
			IsActive:     true,
			LastVerified: now,
		}
		if err := h.store.CreateSubscription(ctx, &sub); err != nil {
			log.Printf("Subscription storage error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store subscription"})
			return
		}
		log.Printf("New subscription stored (platform=%s browser=%s)", plat, sub.Browser)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Successfully subscribed", "platform": plat})

	default:
		log.Printf("Subscription lookup error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store subscription"})
	}
}

// GetSubscriptionStatus is a readiness probe for the subscription endpoint.
func (h *Handler) GetSubscriptionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Push subscription endpoint ready"})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// PostUnsubscribe removes a subscription. This is the only deletion path;
// delivery failures merely deactivate.
func (h *Handler) PostUnsubscribe(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		log.Printf("Error deleting subscription %s: %v", req.Endpoint, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove subscription"})
		return
	}

	c.Status(http.StatusNoContent)
}
