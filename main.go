// main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"restaurant-reservation/cmd"
	"restaurant-reservation/internal/data/repository"
	"restaurant-reservation/internal/usecase"
	"restaurant-reservation/internal/wire"
	"restaurant-reservation/pkg/clock"
	"restaurant-reservation/pkg/database"
	"restaurant-reservation/pkg/events"
	"restaurant-reservation/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("timezone", config.Reservation.Location().String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}
	logger.Info("Database connected successfully")

	// Optional reservation cache
	redisClient := database.NewRedisClient(config.Redis)
	if redisClient == nil {
		logger.Warn("Redis unavailable, reservation cache disabled", zap.String("addr", config.Redis.Addr))
	} else {
		defer redisClient.Close()
	}
	cache := repository.NewReservationCache(redisClient, config.Redis.TTL, logger)

	// Lifecycle events
	publisher, err := events.NewPublisher(config.Broker, logger)
	if err != nil {
		logger.Warn("Event broker unavailable, events disabled", zap.String("broker", config.Broker.Kind), zap.Error(err))
		publisher = events.NoopPublisher{}
	}
	defer publisher.Close()

	// Initialize all repositories and services
	repos := repository.NewRepository(db, cache, logger)
	service := usecase.NewService(repos, publisher, clock.System{Location: config.Reservation.Location()}, config, logger)
	if err := service.Init(ctx); err != nil {
		logger.Fatal("Failed to initialize reservation numbering", zap.Error(err))
	}

	// Wire all dependencies
	app := wire.Wiring(service, config, logger)

	go service.Sweeper.Run(ctx)

	// Start server
	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}
