package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tradebidz-core-service/internal/adapters/broadcaster"
	"tradebidz-core-service/internal/adapters/db"
	"tradebidz-core-service/internal/adapters/notifier"
	redisadapter "tradebidz-core-service/internal/adapters/redis"
	"tradebidz-core-service/internal/adapters/ws"
	"tradebidz-core-service/internal/app"
	"tradebidz-core-service/internal/config"
	"tradebidz-core-service/internal/engine"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting TradeBidz core service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres ledger
	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	ledger := db.NewLedger(dbConn)
	users := db.NewUserDirectory(dbConn)
	log.Info().Msg("Database connection established")

	// Redis: live updates + notification stream
	redisClient, err := redisadapter.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	liveBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	redisNotifier := notifier.NewNotifier(notifier.RedisNotifierParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})

	// Core services
	resolutionEngine := engine.New(engine.Rules{
		SnipeWindow: cfg.Auction.SnipeWindow,
		ExtendBy:    cfg.Auction.ExtendBy,
	})

	biddingService := app.NewBiddingService(app.BiddingServiceParams{
		Ledger:      ledger,
		Users:       users,
		Notifier:    redisNotifier,
		Broadcaster: liveBroadcaster,
		Engine:      resolutionEngine,
		LockWait:    cfg.Auction.LockWaitTimeout,
		Logger:      log.Logger,
	})
	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		Ledger: ledger,
		Logger: log.Logger,
	})

	sweeper := app.NewExpirySweeper(app.ExpirySweeperParams{
		Ledger:       ledger,
		Users:        users,
		Notifier:     redisNotifier,
		Broadcaster:  liveBroadcaster,
		Interval:     cfg.Sweeper.Interval,
		CloseTimeout: cfg.Sweeper.CloseTimeout,
		Workers:      cfg.Sweeper.Workers,
		Logger:       log.Logger,
	})
	sweeper.Start()
	log.Info().Msg("Expiry sweeper started")

	wsServer := ws.NewServer(ws.ServerParams{
		Config:         cfg,
		BiddingService: biddingService,
		AuctionService: auctionService,
		Broadcaster:    liveBroadcaster,
		Logger:         log.Logger,
	})

	go func() {
		if err := wsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start WebSocket server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sweeper.Stop()
	log.Info().Msg("Expiry sweeper stopped")

	if err := wsServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping WebSocket server")
	}

	if err := liveBroadcaster.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing broadcaster")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}
