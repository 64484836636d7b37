package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed assets/sw.js
var serviceWorkerScript []byte

// GetServiceWorker serves the service worker script. Clients must always
// fetch the latest version, so caching is disabled entirely; bumping the
// cache name inside the script is the only cache invalidation mechanism.
func (h *Handler) GetServiceWorker(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", serviceWorkerScript)
}
