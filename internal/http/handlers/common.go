// Package handlers implements the HTTP endpoints of the console API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"llmconsole/internal/apierr"
)

// writeError maps an error onto the JSON error shape shared by every
// endpoint. Typed errors keep their status and code; anything else becomes an
// opaque 500.
func writeError(c *gin.Context, err error) {
	if typed, ok := apierr.As(err); ok {
		body := gin.H{"error": typed.Message, "error_code": typed.Code}
		if typed.Resource != "" {
			body["resource"] = typed.Resource
			body["resource_id"] = typed.ResourceID
		}
		c.JSON(typed.Status, body)
		return
	}
	log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":      "internal server error",
		"error_code": apierr.CodeInternal,
	})
}

// jsonOptional distinguishes an absent JSON field from an explicit null, so
// partial updates can tell "leave unchanged" from "clear".
type jsonOptional[T any] struct {
	Present bool
	Value   *T
}

// UnmarshalJSON implements json.Unmarshaler. It only runs when the field is
// present in the payload.
func (o *jsonOptional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if errDecode := json.Unmarshal(data, &v); errDecode != nil {
		return errDecode
	}
	o.Value = &v
	return nil
}

// requestID returns the correlation id set by the request-id middleware.
func requestID(c *gin.Context) string {
	val, exists := c.Get("requestID")
	if !exists {
		return ""
	}
	id, _ := val.(string)
	return id
}
