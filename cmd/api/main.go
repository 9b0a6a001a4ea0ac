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

	"quill/api/internal/app"
	"quill/api/internal/cache"
	"quill/api/internal/config"
	"quill/api/internal/oracle"
	"quill/api/internal/revision"
	"quill/api/internal/search"
	"quill/api/internal/store"
	"quill/api/internal/suggest"
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

	if err := os.MkdirAll(cfg.RevisionsDir, 0o755); err != nil {
		log.Fatalf("failed to create revisions dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	revisions := revision.New(cfg.RevisionsDir)
	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	var oracleClient oracle.Client
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client, err := oracle.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			log.Fatalf("oracle setup failed: %v", err)
		}
		log.Printf("Using OpenAI model %s for analysis", cfg.OpenAIModel)
		oracleClient = client
	} else {
		log.Printf("No OpenAI API key configured, using built-in mock analyzer")
		oracleClient = oracle.Mock{}
	}

	// Redis is optional; without it every analysis goes to the oracle.
	var analysisCache *cache.AnalysisCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		analysisCache, err = cache.New(cfg.RedisURL, cfg.AnalysisTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer analysisCache.Close()
		log.Printf("Using Redis for analysis result caching")
	}

	analyzeService := suggest.New(oracleClient, analysisCache)
	service := app.New(cfg, dataStore, revisions, analyzeService, oracleClient, searchService)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}
	service.ReindexSearch(ctx)

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
		log.Printf("Quill API listening on %s", cfg.Addr)
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
