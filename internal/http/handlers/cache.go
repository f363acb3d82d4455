package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"llmconsole/internal/cache"
)

// CacheHandler exposes cache statistics and invalidation.
type CacheHandler struct {
	caches []*cache.TTLCache
}

// NewCacheHandler constructs a CacheHandler over the process caches.
func NewCacheHandler(caches ...*cache.TTLCache) *CacheHandler {
	return &CacheHandler{caches: caches}
}

// Stats reports hit rates and sizes per cache.
func (h *CacheHandler) Stats(c *gin.Context) {
	stats := make([]cache.Stats, 0, len(h.caches))
	for _, entry := range h.caches {
		stats = append(stats, entry.Stats())
	}
	c.JSON(http.StatusOK, gin.H{"caches": stats})
}

// Clear empties every cache.
func (h *CacheHandler) Clear(c *gin.Context) {
	for _, entry := range h.caches {
		entry.Clear()
	}
	log.Info("caches cleared")
	c.JSON(http.StatusOK, gin.H{"ok": true, "cleared": len(h.caches)})
}
