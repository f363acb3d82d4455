package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"llmconsole/internal/db"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(conn *gorm.DB) *HealthHandler {
	return &HealthHandler{db: conn}
}

// Get answers the health probe with the active database dialect.
func (h *HealthHandler) Get(c *gin.Context) {
	status := "ok"
	sqlDB, errDB := h.db.DB()
	if errDB != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": db.DialectName(h.db)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "database": db.DialectName(h.db)})
}
