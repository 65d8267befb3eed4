package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agricagent/agricagent/config"
	httpHandler "github.com/agricagent/agricagent/internal/adapters/primary/http"
	"github.com/agricagent/agricagent/internal/adapters/secondary/carrier"
	"github.com/agricagent/agricagent/internal/adapters/secondary/llm"
	carrierMedia "github.com/agricagent/agricagent/internal/adapters/secondary/media"
	"github.com/agricagent/agricagent/internal/adapters/secondary/repository"
	"github.com/agricagent/agricagent/internal/core/ports"
	"github.com/agricagent/agricagent/internal/core/services"
	"github.com/agricagent/agricagent/internal/logger"
	"github.com/agricagent/agricagent/internal/media"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debugMode {
		logLevel = slog.LevelDebug
	}
	log := logger.New(logLevel, os.Stdout)
	log.Info("Starting AgricAgent API")

	// Load configuration
	var cfg *config.Config
	var err error

	if *configPath != "" {
		log.Info("Loading configuration", "path", *configPath)
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
	} else {
		log.Info("Using default configuration")
		cfg = config.DefaultConfig()
	}

	// Initialize adapters
	log.Info("Initializing adapters")

	llmAdapter, err := llm.NewOpenAIAdapter(&cfg.LLM, log)
	if err != nil {
		log.Error("Failed to initialize LLM adapter", "error", err)
		os.Exit(1)
	}

	repo, err := repository.NewSQLiteRepository(cfg.Storage.DatabasePath, log)
	if err != nil {
		log.Error("Failed to open interaction store", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	fetcher := carrierMedia.NewCarrierFetcher(&cfg.Carrier, cfg.Media.MaxUploadBytes(), log)
	normalizer := media.NewNormalizer(fetcher, cfg.Media.MaxUploadBytes(), log)
	compressor := media.NewCompressor(cfg.Media.MaxEdgePixels, cfg.Media.JPEGQuality, log)

	advisor := services.NewAdvisorService(llmAdapter, repo, normalizer, compressor, cfg.Media, log)

	// Outbound push is optional; a nil sender disables /notify.
	var sender ports.CarrierPort
	if s := carrier.NewTwilioSender(&cfg.Carrier, log); s != nil {
		sender = s
	}

	handler := httpHandler.NewHandler(advisor, sender, cfg, log)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // inference calls can run long
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}
