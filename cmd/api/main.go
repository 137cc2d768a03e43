package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dealdesk/api/internal/app"
	"dealdesk/api/internal/blob"
	"dealdesk/api/internal/config"
	"dealdesk/api/internal/crm"
	"dealdesk/api/internal/search"
	"dealdesk/api/internal/store"
	"dealdesk/api/internal/taskcache"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	taskCache, err := taskcache.NewStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer taskCache.Close()

	var docsIndex *search.MeiliDocs
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		log.Printf("Using Meilisearch for document search")
		docsIndex = search.NewMeiliDocs(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer docsIndex.Close()
	}

	var signer search.ObjectURLSigner
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		blobStore, err := blob.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("minio connection failed: %v", err)
		}
		signer = blobStore
	}

	sources := []search.Source{
		search.NewContractsSource(db),
		search.NewDocumentsSource(db, docsIndex, signer),
		search.NewTasksSource(db),
		search.NewWorkOrdersSource(db),
		search.NewSalesOrdersSource(db),
		search.NewExternalTasksSource(taskCache),
	}
	aggregator := search.NewAggregator(sources, cfg.SearchTimeout)

	var syncSources []app.TaskSyncSource
	if strings.TrimSpace(cfg.SalesforceInstanceURL) != "" {
		syncSources = append(syncSources, crm.NewSalesforce(cfg.SalesforceInstanceURL, cfg.SalesforceAccessToken))
	}
	if strings.TrimSpace(cfg.NotionToken) != "" {
		syncSources = append(syncSources, crm.NewNotion("", cfg.NotionToken, cfg.NotionDatabaseID))
	}

	service := app.New(cfg, dataStore, aggregator, taskCache, docsIndex, syncSources)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("DealDesk API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
