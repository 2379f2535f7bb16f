package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardscout/cardworker/config"
	"cardscout/cardworker/internal/api"
	"cardscout/cardworker/internal/importer"
	"cardscout/cardworker/internal/scraper"
	"cardscout/cardworker/logger"
	"cardscout/cardworker/services/cache"
	"cardscout/cardworker/services/images"
	"cardscout/cardworker/services/publisher"
	"cardscout/cardworker/services/store"

	"github.com/joho/godotenv"
)

// streamTrimInterval bounds how fast the card-event streams can grow between
// trims
const streamTrimInterval = 10 * time.Minute

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("port", cfg.Port).
		Str("browser", cfg.BrowserAddr).
		Msg("Starting card worker")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Scrape sources, fetcher and importer
	sources := []scraper.Source{
		scraper.NewWalletHub(),
		scraper.NewRateHub(),
	}
	fetcher := scraper.NewFetcher(cfg.BrowserAddr, cfg.NavigationTimeout, services.Cache)
	imp := importer.New(
		fetcher,
		services.Cards,
		services.Images,
		services.Downloader,
		services.Publisher,
		sources,
		cfg.FetchDelay,
	)

	log.Info().Int("source_count", len(sources)).Msg("Created scrape sources")

	// HTTP server
	handler := api.NewHandler(imp, services.Cards, services.Images, cfg.BulkLimitMax)
	server := api.NewServer(":"+cfg.Port, handler, services.APIKeys)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	// Periodic stream trim keeps event streams bounded
	go trimStreams(ctx, services.Publisher)

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
	case err := <-serverDone:
		if err != nil {
			log.Error().Err(err).Msg("Server exited with error")
		} else {
			log.Info().Msg("Server exited normally")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

func trimStreams(ctx context.Context, pub publisher.Publisher) {
	ticker := time.NewTicker(streamTrimInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pub.TrimStreams(); err != nil {
				logger.ForPublisher().Warn().Err(err).Msg("stream trim failed")
			}
		}
	}
}

// Services holds all the initialized services
type Services struct {
	Cache      cache.CacheService
	Publisher  publisher.Publisher
	Cards      store.CardStore
	APIKeys    store.APIKeyStore
	Images     images.Store
	Downloader *images.Downloader

	closeMongo func()
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.closeMongo != nil {
		s.closeMongo()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Document store
	db, closeMongo, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	services.closeMongo = closeMongo

	if err := store.EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}
	services.Cards = store.NewMongoCardStore(db)
	services.APIKeys = store.NewMongoAPIKeyStore(db)

	logger.Info("Connected to MongoDB at %s (DB: %s)", cfg.MongoURI, cfg.MongoDB)

	// Image blob store and downloader
	imageStore, err := images.NewGridFSStore(db, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	services.Images = imageStore
	services.Downloader = images.NewDownloader()

	// Initialize cache service
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	if cacheService == nil {
		return nil, fmt.Errorf("failed to create cache service")
	}
	services.Cache = cacheService

	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if redisPublisher == nil {
		return nil, fmt.Errorf("failed to create redis publisher")
	}
	services.Publisher = redisPublisher

	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	return services, nil
}
