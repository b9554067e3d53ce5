package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/adilzhan-dev/account-service/internal/adapter"
	"github.com/adilzhan-dev/account-service/internal/config"
	"github.com/adilzhan-dev/account-service/internal/hasher"
	"github.com/adilzhan-dev/account-service/internal/mailer"
	"github.com/adilzhan-dev/account-service/internal/repository"
	"github.com/adilzhan-dev/account-service/internal/token"
	"github.com/adilzhan-dev/account-service/internal/usecase"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; viper falls back to real env vars and defaults.
	_ = godotenv.Load()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.MongoDatabase)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	var sender mailer.Mailer
	switch cfg.MailerProvider {
	case "mailersend":
		sender = mailer.NewMailerSendService(cfg.MailerSendKey, cfg.SenderEmail, cfg.SenderName, logger)
	default:
		sender = mailer.NewSMTPMailerService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SenderEmail, cfg.SenderName, logger)
	}
	asyncSender := mailer.NewAsyncSender(sender, logger)

	userRepo := repository.NewUserRepository(db, redisClient, logger)
	tokenService := token.NewService(cfg.JWTSecret)
	passwordHasher := hasher.NewBcrypt(cfg.BcryptCost)
	accountUsecase := usecase.NewAccountUsecase(userRepo, passwordHasher, tokenService, asyncSender, cfg.BaseURL, logger)
	accountHandler := adapter.NewAccountHandler(accountUsecase, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: adapter.NewRouter(accountHandler, logger),
	}

	go func() {
		logger.Info("Starting Account Service", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	asyncSender.Wait()
}
