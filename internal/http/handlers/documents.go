package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"llmconsole/internal/apierr"
	"llmconsole/internal/documents"
	"llmconsole/internal/models"
	"llmconsole/internal/resolve"
	"llmconsole/internal/store"
	"llmconsole/internal/stream"
	"llmconsole/internal/upstream"
)

// DocumentHandler handles document uploads and streaming document QA.
type DocumentHandler struct {
	docs         *documents.Store
	sessions     *store.Sessions
	profiles     *store.Profiles
	messages     *store.Messages
	resolver     *resolve.Resolver
	orchestrator *stream.Orchestrator
}

// NewDocumentHandler constructs a DocumentHandler.
func NewDocumentHandler(docs *documents.Store, sessions *store.Sessions, profiles *store.Profiles, messages *store.Messages, resolver *resolve.Resolver, orchestrator *stream.Orchestrator) *DocumentHandler {
	return &DocumentHandler{
		docs:         docs,
		sessions:     sessions,
		profiles:     profiles,
		messages:     messages,
		resolver:     resolver,
		orchestrator: orchestrator,
	}
}

// Upload stores one uploaded file.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, errForm := c.FormFile("file")
	if errForm != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided", "error_code": "VALIDATION_ERROR"})
		return
	}
	if file.Size > documents.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large", "error_code": "VALIDATION_ERROR"})
		return
	}

	src, errOpen := file.Open()
	if errOpen != nil {
		writeError(c, fmt.Errorf("handlers: open upload: %w", errOpen))
		return
	}
	defer func() { _ = src.Close() }()

	content, errRead := io.ReadAll(io.LimitReader(src, documents.MaxFileSize+1))
	if errRead != nil {
		writeError(c, fmt.Errorf("handlers: read upload: %w", errRead))
		return
	}

	info, errSave := h.docs.Save(file.Filename, content)
	if errSave != nil {
		writeError(c, errSave)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// List returns stored documents, newest first.
func (h *DocumentHandler) List(c *gin.Context) {
	docs, errList := h.docs.List()
	if errList != nil {
		writeError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// Delete removes one document.
func (h *DocumentHandler) Delete(c *gin.Context) {
	if errDelete := h.docs.Delete(c.Param("id")); errDelete != nil {
		writeError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": c.Param("id")})
}

// qaRequest defines the request body for document QA.
type qaRequest struct {
	Question    string   `json:"question"`
	SessionID   *string  `json:"session_id"`
	ProfileID   *uint64  `json:"profile_id"`
	ModelID     string   `json:"model_id"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

// QA streams an answer to a question grounded in one stored document. When
// no session is given, a documents-type session titled after the file is
// created for the exchange.
func (h *DocumentHandler) QA(c *gin.Context) {
	var body qaRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "error_code": "VALIDATION_ERROR"})
		return
	}
	if body.Question == "" || body.ModelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question and model_id are required", "error_code": "VALIDATION_ERROR"})
		return
	}

	documentID := c.Param("id")
	doc, errLoad := h.docs.Load(documentID)
	if errLoad != nil {
		writeError(c, errLoad)
		return
	}

	ctx := c.Request.Context()
	var sessionID string
	if body.SessionID != nil {
		session, errGet := h.sessions.Get(ctx, *body.SessionID)
		if errGet != nil {
			writeError(c, errGet)
			return
		}
		sessionID = session.ID
	} else {
		session, errCreate := h.sessions.Create(ctx, models.SessionTypeDocuments, &doc.Name, body.ProfileID)
		if errCreate != nil {
			writeError(c, errCreate)
			return
		}
		sessionID = session.ID
	}

	stream.SetHeaders(c.Writer)
	emit, errEmitter := stream.NewEmitter(c.Writer)
	if errEmitter != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported", "error_code": "INTERNAL_ERROR"})
		return
	}

	resolved, errResolve := h.resolver.Resolve(ctx, resolve.Request{
		SessionID:   sessionID,
		ModelID:     body.ModelID,
		Temperature: body.Temperature,
		MaxTokens:   body.MaxTokens,
		ProfileID:   body.ProfileID,
	})
	if errResolve != nil {
		if typed, ok := apierr.As(errResolve); ok {
			stream.EmitPreflightError(emit, typed.Status, typed.Code, typed.Message, requestID(c))
			return
		}
		stream.EmitPreflightError(emit, http.StatusInternalServerError, apierr.CodeInternal, "failed to resolve stream parameters", requestID(c))
		return
	}

	// The document context and the question ride on top of the resolved
	// history; only the question is persisted, tagged with its source.
	resolved.Request.Messages = append(resolved.Request.Messages,
		upstream.Message{Role: models.RoleSystem, Content: documents.ContextPrompt(doc)},
		upstream.Message{Role: models.RoleUser, Content: body.Question},
	)
	if _, errAppend := h.messages.Append(ctx, sessionID, models.RoleUser, fmt.Sprintf("[Document:%s] %s", documentID, body.Question)); errAppend != nil {
		stream.EmitPreflightError(emit, http.StatusInternalServerError, apierr.CodeInternal, "failed to persist question", requestID(c))
		return
	}

	h.orchestrator.Run(ctx, stream.Params{
		SessionID: sessionID,
		Request:   resolved.Request,
		ModelID:   resolved.CatalogModelID,
		ProfileID: resolved.ProfileID,
		RequestID: requestID(c),
		StartData: map[string]any{"session_id": sessionID, "document_id": documentID},
	}, emit)
}
