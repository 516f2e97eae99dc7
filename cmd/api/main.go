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

	"github.com/stvreumi/CAMPUSbackend-sub000/internal/app"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/config"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/events"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/media"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/search"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/session"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/settings"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/store"
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

	sessionStore, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer sessionStore.Close()

	threshold := settings.NewThresholdProvider(dataStore, cfg.ThresholdPollInterval)
	if err := threshold.Refresh(ctx); err != nil {
		log.Printf("WARNING: threshold refresh: %v", err)
	}
	threshold.Start(ctx)
	defer threshold.Close()

	service := app.New(cfg, dataStore, sessionStore, threshold)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	searchService.ReindexAllFromPG(ctx)
	service.SetSearch(searchService)

	publisher, err := events.NewRedisPublisher(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis publisher failed: %v", err)
	}
	defer publisher.Close()
	service.SetEvents(publisher)

	if strings.TrimSpace(cfg.MediaEndpoint) != "" {
		mediaService, err := media.NewService(cfg.MediaEndpoint, cfg.MediaAccessKey, cfg.MediaSecretKey, cfg.MediaBucket, cfg.MediaUseSSL, 10*time.Minute)
		if err != nil {
			log.Fatalf("media service failed: %v", err)
		}
		if err := mediaService.EnsureBucket(ctx); err != nil {
			log.Printf("WARNING: media bucket check: %v", err)
		}
		service.SetMedia(mediaService)
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
		log.Printf("Campus tag API listening on %s", cfg.Addr)
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
