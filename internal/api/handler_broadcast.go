package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mebel-pwa-backend/internal/notification"
)

type broadcastRequest struct {
	Title string `json:"title"`
	Body  string `json:"body" binding:"required"`
	Icon  string `json:"icon"`
	URL   string `json:"url"`
}

// PostBroadcast queues a push notification for delivery to every active
// subscription.
func (h *Handler) PostBroadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is required"})
		return
	}

	h.pool.Dispatch(notification.Broadcast{
		Title: req.Title,
		Body:  req.Body,
		Icon:  req.Icon,
		URL:   req.URL,
	})

	c.JSON(http.StatusAccepted, gin.H{"success": true})
}
