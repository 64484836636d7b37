package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetPushPublicKey returns the VAPID public key used by clients to construct
// push subscriptions.
func (h *Handler) GetPushPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vapid keys are not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"publicKey": h.webpush.VAPIDPublicKey})
}
