// Command server runs the console API: an SSE streaming relay for OpenRouter
// chat completions with session, profile, model catalog and usage accounting
// endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"llmconsole/internal/cache"
	"llmconsole/internal/config"
	"llmconsole/internal/db"
	"llmconsole/internal/documents"
	consolehttp "llmconsole/internal/http"
	"llmconsole/internal/logging"
	"llmconsole/internal/resolve"
	"llmconsole/internal/store"
	"llmconsole/internal/stream"
	"llmconsole/internal/upstream"
	"llmconsole/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, errLoad := config.Load(*configPath)
	if errLoad != nil {
		log.WithError(errLoad).Fatal("load configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFile)

	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		log.WithError(errOpen).Fatal("open database")
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		log.WithError(errMigrate).Fatal("migrate database")
	}

	profileCache := cache.New("profiles", 5*time.Minute)
	modelCache := cache.New("models", 10*time.Minute)

	sessions := store.NewSessions(conn)
	messages := store.NewMessages(conn)
	profiles := store.NewProfiles(conn, profileCache)
	catalog := store.NewCatalog(conn, modelCache)
	usage := store.NewUsage(conn)
	search := store.NewSearch(conn)

	docs, errDocs := documents.NewStore(cfg.UploadsDir)
	if errDocs != nil {
		log.WithError(errDocs).Fatal("prepare uploads directory")
	}

	client := upstream.NewClient(cfg.OpenRouter)
	if client.Configured() {
		log.Infof("using OpenRouter API key %s", util.MaskKey(cfg.OpenRouter.APIKey))
	} else {
		log.Warn("no OpenRouter API key configured, streaming endpoints will refuse requests")
	}
	resolver := resolve.NewResolver(sessions, profiles, catalog, messages, client)
	orchestrator := stream.NewOrchestrator(stream.NewClientOpener(client), messages, usage)

	retentionCtx, stopRetention := context.WithCancel(context.Background())
	defer stopRetention()
	store.NewLogRetentionCleaner(conn).Start(retentionCtx)

	gin.SetMode(gin.ReleaseMode)
	router := consolehttp.NewRouter(consolehttp.Deps{
		DB:           conn,
		Config:       &cfg,
		Sessions:     sessions,
		Messages:     messages,
		Profiles:     profiles,
		Catalog:      catalog,
		Usage:        usage,
		Search:       search,
		Documents:    docs,
		Resolver:     resolver,
		Orchestrator: orchestrator,
		Upstream:     client,
		Caches:       []*cache.TTLCache{profileCache, modelCache},
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{
			"addr":     cfg.Addr,
			"database": db.DialectName(conn),
		}).Info("server starting")
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			log.WithError(errServe).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		log.WithError(errShutdown).Error("graceful shutdown failed")
	}

	if sqlDB, errDB := conn.DB(); errDB == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}
