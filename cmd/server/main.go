package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kiraleos/reply-engine/internal/api"
	"github.com/kiraleos/reply-engine/internal/config"
	"github.com/kiraleos/reply-engine/internal/core"
	"github.com/kiraleos/reply-engine/internal/logger"
	"github.com/kiraleos/reply-engine/internal/metrics"
	"github.com/kiraleos/reply-engine/internal/store"
)

func main() {
	// Command line flag for history retention
	pruneFlag := flag.Int("prune", -1, "Keep only the newest N history entries per room, then exit")
	flag.Parse()

	// Load configuration; pruning needs only the storage settings
	if *pruneFlag >= 0 {
		config.LoadStorageConfig()
	} else {
		config.LoadConfig()
	}

	log := logger.NewLogger("server")
	defer logger.Sync()
	logger.SetDebug(config.AppConfig.LogLevel == "DEBUG")
	log.Debug("Service starting in DEBUG mode")

	// Storage backend is picked once here and never branched on again
	dataStore, err := store.Open(config.AppConfig.StorageBackend, config.AppConfig.DataDir, config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalw("failed to initialize storage", "backend", config.AppConfig.StorageBackend, "error", err)
	}
	defer dataStore.Close()

	if *pruneFlag >= 0 {
		removed, err := pruneHistory(dataStore, *pruneFlag)
		if err != nil {
			log.Fatalw("history pruning failed", "error", err)
		}
		log.Infow("history pruning complete", "removed", removed, "keep", *pruneFlag)
		return
	}

	rooms, err := core.LoadRoomRegistry(config.AppConfig.RoomsFile)
	if err != nil {
		log.Fatalw("failed to load rooms", "error", err)
	}

	completer, closeCompleter, err := newCompleter(config.AppConfig)
	if err != nil {
		log.Fatalw("failed to initialize completion client", "provider", config.AppConfig.CompletionProvider, "error", err)
	}
	defer closeCompleter()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	generationService := core.NewGenerationService(dataStore, rooms, completer, config.AppConfig.HistoryWindow, metrics.New(reg))
	accountService := core.NewAccountService(dataStore, config.AppConfig.JWTSecret)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(generationService, accountService)
	router := api.NewRouter(apiHandler, reg)

	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infow("starting server", "addr", serverAddr, "backend", config.AppConfig.StorageBackend, "provider", config.AppConfig.CompletionProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("could not listen", "addr", serverAddr, "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return
	}

	// closeCompleter and dataStore.Close run from their defers.
	log.Info("server exiting gracefully")
}

func newCompleter(cfg config.Config) (core.Completer, func(), error) {
	switch cfg.CompletionProvider {
	case config.ProviderGemini:
		gemini, err := core.NewGeminiCompleter(context.Background(), cfg.CompletionAPIKey, cfg.CompletionModel)
		if err != nil {
			return nil, nil, err
		}
		return gemini, gemini.Close, nil
	default:
		return core.NewOpenAICompleter(cfg.CompletionBaseURL, cfg.CompletionAPIKey, cfg.CompletionModel, nil), func() {}, nil
	}
}

func pruneHistory(s store.HistoryStore, keep int) (int, error) {
	rooms, err := s.ListRooms()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, room := range rooms {
		removed, err := s.PruneHistory(room, keep)
		if err != nil {
			return total, fmt.Errorf("room %s: %w", room, err)
		}
		total += removed
	}
	return total, nil
}
