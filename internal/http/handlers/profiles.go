package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"llmconsole/internal/store"
)

// ProfileHandler handles generation profile CRUD endpoints.
type ProfileHandler struct {
	profiles *store.Profiles
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(profiles *store.Profiles) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// profileRequest defines the request body for profile writes.
type profileRequest struct {
	Name             string   `json:"name"`
	SystemPrompt     *string  `json:"system_prompt"`
	Temperature      *float64 `json:"temperature"`
	MaxTokens        *int     `json:"max_tokens"`
	OpenRouterPreset *string  `json:"openrouter_preset"`
}

func (r profileRequest) input() store.ProfileInput {
	return store.ProfileInput{
		Name:             r.Name,
		SystemPrompt:     r.SystemPrompt,
		Temperature:      r.Temperature,
		MaxTokens:        r.MaxTokens,
		OpenRouterPreset: r.OpenRouterPreset,
	}
}

// parseProfileID parses the :id path parameter.
func parseProfileID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id", "error_code": "VALIDATION_ERROR"})
		return 0, false
	}
	return id, true
}

// Create inserts a profile.
func (h *ProfileHandler) Create(c *gin.Context) {
	var body profileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "error_code": "VALIDATION_ERROR"})
		return
	}
	row, errCreate := h.profiles.Create(c.Request.Context(), body.input())
	if errCreate != nil {
		writeError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// Get returns one profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := parseProfileID(c)
	if !ok {
		return
	}
	row, errGet := h.profiles.Get(c.Request.Context(), id)
	if errGet != nil {
		writeError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, row)
}

// List returns all profiles.
func (h *ProfileHandler) List(c *gin.Context) {
	rows, errList := h.profiles.List(c.Request.Context())
	if errList != nil {
		writeError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": rows})
}

// Update rewrites a profile.
func (h *ProfileHandler) Update(c *gin.Context) {
	id, ok := parseProfileID(c)
	if !ok {
		return
	}
	var body profileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "error_code": "VALIDATION_ERROR"})
		return
	}
	row, errUpdate := h.profiles.Update(c.Request.Context(), id, body.input())
	if errUpdate != nil {
		writeError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Delete removes a profile.
func (h *ProfileHandler) Delete(c *gin.Context) {
	id, ok := parseProfileID(c)
	if !ok {
		return
	}
	if errDelete := h.profiles.Delete(c.Request.Context(), id); errDelete != nil {
		writeError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
