package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"questfeed/backend/internal/api/handler"
	"questfeed/backend/internal/auth"
	"questfeed/backend/internal/config"
	"questfeed/backend/internal/models"
	"questfeed/backend/internal/realtime"
	"questfeed/backend/internal/storage"
)

func setupDependencies(cfg *config.Config, logger *zap.Logger) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect PostgreSQL", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Fatal("failed to connect Redis", zap.Error(err))
	}

	if err := db.AutoMigrate(&models.User{}, &models.Conversation{}); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	logger.Info("database and Redis connections established, migrations complete")
	return db, rdb
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, rdb := setupDependencies(cfg, logger)
	s := storage.NewStorageService(db, rdb)

	// The hub and its collaborators are constructor-injected so the whole
	// realtime layer can be instantiated and torn down in tests.
	backplane := realtime.NewRedisBackplane(rdb, uuid.NewString(), logger)
	hub := realtime.NewHub(s, backplane, logger)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	ctx := context.Background()
	go hub.Run(ctx)
	go backplane.Listen(ctx, hub.DeliverRemote)

	r := gin.Default()
	h := handler.NewHandler(hub, verifier, s, logger)

	r.GET("/healthz", h.Healthz)
	r.GET("/ws", h.ServeWebSocket)
	r.GET("/api/presence/:userID", h.GetPresence)
	r.GET("/api/online", h.ListOnline)
	r.POST("/api/notify/:userID", h.NotifyUser)
	r.POST("/api/relay", h.Relay)

	server := &http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logger.Info("realtime server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
