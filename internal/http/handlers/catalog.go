package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"llmconsole/internal/apierr"
	"llmconsole/internal/store"
	"llmconsole/internal/upstream"
)

// CatalogHandler handles the model catalog endpoints.
type CatalogHandler struct {
	catalog  *store.Catalog
	upstream *upstream.Client
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalog *store.Catalog, client *upstream.Client) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, upstream: client}
}

// Sync fetches the upstream model listing and upserts it into the local
// catalog.
func (h *CatalogHandler) Sync(c *gin.Context) {
	fetched, errList := h.upstream.ListModels(c.Request.Context())
	if errList != nil {
		var upErr *upstream.Error
		if errors.As(errList, &upErr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":           "upstream model listing failed",
				"error_code":      apierr.CodeOpenRouterError,
				"upstream_status": upErr.StatusCode,
			})
			return
		}
		writeError(c, errList)
		return
	}
	written, errSync := h.catalog.Sync(c.Request.Context(), fetched)
	if errSync != nil {
		writeError(c, errSync)
		return
	}
	log.WithField("models", written).Info("model catalog synced")
	c.JSON(http.StatusOK, gin.H{"synced": written})
}

// List returns catalog entries, optionally filtered by reasoning capability,
// prompt price ceiling and context floor.
func (h *CatalogHandler) List(c *gin.Context) {
	var filter store.ModelFilter
	if raw, exists := c.GetQuery("reasoning"); exists {
		v, errParse := strconv.ParseBool(raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reasoning filter", "error_code": "VALIDATION_ERROR"})
			return
		}
		filter.Reasoning = &v
	}
	if raw, exists := c.GetQuery("max_price"); exists {
		v, errParse := strconv.ParseFloat(raw, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_price filter", "error_code": "VALIDATION_ERROR"})
			return
		}
		filter.MaxPrice = &v
	}
	if raw, exists := c.GetQuery("min_context"); exists {
		v, errParse := strconv.Atoi(raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_context filter", "error_code": "VALIDATION_ERROR"})
			return
		}
		filter.MinContext = &v
	}

	rows, errList := h.catalog.List(c.Request.Context(), filter)
	if errList != nil {
		writeError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": rows})
}
