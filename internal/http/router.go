package http

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"llmconsole/internal/cache"
	"llmconsole/internal/config"
	"llmconsole/internal/documents"
	"llmconsole/internal/http/handlers"
	"llmconsole/internal/resolve"
	"llmconsole/internal/store"
	"llmconsole/internal/stream"
	"llmconsole/internal/upstream"
)

// Per-IP request budgets, requests per minute. Streaming and sync are the
// expensive operations and get the tightest budgets.
const (
	limitHealth   = 300
	limitStream   = 20
	limitSync     = 5
	limitUpload   = 30
	limitSessions = 60
	limitMessages = 100
	limitProfiles = 60
	limitModels   = 120
	limitUsage    = 120
	limitSearch   = 60
	limitLogs     = 60
)

// Deps carries everything the router needs.
type Deps struct {
	DB           *gorm.DB
	Config       *config.Config
	Sessions     *store.Sessions
	Messages     *store.Messages
	Profiles     *store.Profiles
	Catalog      *store.Catalog
	Usage        *store.Usage
	Search       *store.Search
	Documents    *documents.Store
	Resolver     *resolve.Resolver
	Orchestrator *stream.Orchestrator
	Upstream     *upstream.Client
	Caches       []*cache.TTLCache
}

// NewRouter builds the Gin engine with all routes registered under /api.
func NewRouter(d Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), RequestLogger(), CORS(d.Config.Origins))

	health := handlers.NewHealthHandler(d.DB)
	sessions := handlers.NewSessionHandler(d.Sessions, d.Messages)
	messages := handlers.NewMessageHandler(d.Messages)
	profiles := handlers.NewProfileHandler(d.Profiles)
	catalog := handlers.NewCatalogHandler(d.Catalog, d.Upstream)
	usage := handlers.NewUsageHandler(d.Usage, d.Sessions)
	search := handlers.NewSearchHandler(d.Search)
	docs := handlers.NewDocumentHandler(d.Documents, d.Sessions, d.Profiles, d.Messages, d.Resolver, d.Orchestrator)
	streaming := handlers.NewStreamHandler(d.Resolver, d.Orchestrator)
	logs := handlers.NewLogHandler(d.DB)
	caches := handlers.NewCacheHandler(d.Caches...)
	admin := handlers.NewAdminHandler(d.Config.DatabaseDSN, d.Config.BackupsDir)

	api := engine.Group("/api")

	api.GET("/health", RateLimit(limitHealth), health.Get)

	api.POST("/models/sync", RateLimit(limitSync), catalog.Sync)
	api.GET("/models", RateLimit(limitModels), catalog.List)

	profileGroup := api.Group("/profiles", RateLimit(limitProfiles))
	{
		profileGroup.POST("", profiles.Create)
		profileGroup.GET("", profiles.List)
		profileGroup.GET("/:id", profiles.Get)
		profileGroup.PUT("/:id", profiles.Update)
		profileGroup.DELETE("/:id", profiles.Delete)
	}

	sessionGroup := api.Group("/sessions", RateLimit(limitSessions))
	{
		sessionGroup.POST("", sessions.Create)
		sessionGroup.GET("", sessions.List)
		sessionGroup.GET("/:id", sessions.Get)
		sessionGroup.PATCH("/:id", sessions.Update)
		sessionGroup.DELETE("/:id", sessions.Delete)
		sessionGroup.GET("/:id/messages", sessions.Messages)
	}

	api.POST("/messages", RateLimit(limitMessages), messages.Create)

	usageGroup := api.Group("/usage", RateLimit(limitUsage))
	{
		usageGroup.POST("", usage.Record)
		usageGroup.GET("/sessions/:id", usage.BySession)
		usageGroup.GET("/models", usage.ByModel)
	}

	api.GET("/stream", RateLimit(limitStream), streaming.Run)
	api.GET("/search", RateLimit(limitSearch), search.Run)

	docGroup := api.Group("/documents")
	{
		docGroup.POST("/upload", RateLimit(limitUpload), docs.Upload)
		docGroup.GET("", RateLimit(limitModels), docs.List)
		docGroup.DELETE("/:id", RateLimit(limitUpload), docs.Delete)
		docGroup.POST("/:id/qa", RateLimit(limitStream), docs.QA)
	}

	api.POST("/logs/frontend", RateLimit(limitLogs), logs.Receive)

	api.GET("/cache/stats", RateLimit(limitModels), caches.Stats)
	api.POST("/cache/clear", RateLimit(limitProfiles), caches.Clear)

	adminGroup := api.Group("/admin", RateLimit(limitProfiles))
	{
		adminGroup.GET("/backup", admin.Backup)
		adminGroup.GET("/backups", admin.Backups)
		adminGroup.POST("/restore", admin.Restore)
	}

	return engine
}
