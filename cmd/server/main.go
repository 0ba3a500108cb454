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

	"github.com/meetscribe/server/internal/api"
	"github.com/meetscribe/server/internal/config"
	"github.com/meetscribe/server/internal/ingest"
	"github.com/meetscribe/server/internal/recognition"
	"github.com/meetscribe/server/internal/rooms"
	"github.com/meetscribe/server/internal/storage/sqlite"
	"github.com/meetscribe/server/internal/summary"
	"github.com/meetscribe/server/internal/tasks"
	"github.com/meetscribe/server/internal/websocket"
	"github.com/meetscribe/server/pkg/logger"

	openaiprovider "github.com/meetscribe/server/internal/ai/openai"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting meetscribe server",
		logger.String("host", cfg.Server.Host),
		logger.Int("port", cfg.Server.Port),
	)

	// Initialize storage
	storage, err := sqlite.New(cfg.Storage.SQLitePath, log)
	if err != nil {
		log.Error("Failed to initialize storage", logger.Error(err))
		os.Exit(1)
	}
	defer storage.Close()

	transcriptStore := sqlite.NewTranscriptStorage(storage)
	summaryStore := sqlite.NewSummaryStorage(storage)
	meetingStore := sqlite.NewMeetingStorage(storage)
	userStore := sqlite.NewUserStorage(storage)

	// Initialize providers
	recognizer := recognition.NewClient(recognition.ClientConfig{
		APIKey:   cfg.Recognition.APIKey,
		BaseURL:  cfg.Recognition.BaseURL,
		Model:    cfg.Recognition.Model,
		Tier:     cfg.Recognition.Tier,
		MimeType: cfg.Recognition.MimeType,
		Timeout:  time.Duration(cfg.Recognition.TimeoutSeconds) * time.Second,
	}, log)

	chatProvider := openaiprovider.NewClient(cfg.Summarizer.APIKey, log)

	trelloClient := tasks.NewTrelloClient(tasks.TrelloConfig{
		APIKey:    cfg.Trello.APIKey,
		Token:     cfg.Trello.Token,
		ListID:    cfg.Trello.ListID,
		AILabelID: cfg.Trello.AILabelID,
		BaseURL:   cfg.Trello.BaseURL,
		Timeout:   time.Duration(cfg.Trello.TimeoutSeconds) * time.Second,
	}, log)

	tokenService := rooms.NewTokenService(rooms.Config{
		APIKey:    cfg.LiveKit.APIKey,
		APISecret: cfg.LiveKit.APISecret,
		ServerURL: cfg.LiveKit.ServerURL,
		TokenTTL:  time.Duration(cfg.LiveKit.TokenTTLHours) * time.Hour,
	}, log)

	// Initialize services
	ingestService := ingest.NewService(ingest.Config{
		UploadsDir:         cfg.Uploads.BaseDir,
		TranscriptsDir:     cfg.Uploads.TranscriptsDir,
		MaxSizeBytes:       int64(cfg.Uploads.MaxSizeMB) << 20,
		RecognitionTimeout: time.Duration(cfg.Recognition.TimeoutSeconds) * time.Second,
	}, recognizer, transcriptStore, meetingStore, log)

	extractor := summary.NewExtractor(summary.Config{
		Model:       cfg.Summarizer.Model,
		Temperature: *cfg.Summarizer.Temperature,
		Timeout:     time.Duration(cfg.Summarizer.TimeoutSeconds) * time.Second,
	}, chatProvider, transcriptStore, summaryStore, log)

	exporter := tasks.NewExporter(summaryStore, trelloClient, log)

	// Initialize WebSocket server
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Build the HTTP router
	handler := api.NewHandler(
		ingestService,
		extractor,
		exporter,
		tokenService,
		transcriptStore,
		summaryStore,
		meetingStore,
		userStore,
		wsServer,
		int64(cfg.Uploads.MaxSizeMB)<<20,
		log,
	)
	router := api.NewRouter(handler, cfg.Server.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}

	log.Info("Server stopped")
}
