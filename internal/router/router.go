package router

import (
	"log"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-feed/backend/internal/feedcache"
	"github.com/anonto42/nano-feed/backend/internal/flags"
	"github.com/anonto42/nano-feed/backend/internal/handlers"
	"github.com/anonto42/nano-feed/backend/internal/middleware"
	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/newsfeed"
	"github.com/anonto42/nano-feed/backend/internal/queue"
	"github.com/anonto42/nano-feed/backend/internal/repositories"
	"github.com/anonto42/nano-feed/backend/pkg/config"
	"github.com/anonto42/nano-feed/backend/pkg/kafka"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies.
// The graph store backend is chosen once here from the feature-flag store;
// a flag flip takes effect on the next restart.
func SetupRoutes(e *echo.Echo, db *config.DB, cfg *config.Config, flagStore flags.FlagStore, firebaseAuthClient *auth.Client) {
	// AutoMigrate PostgreSQL models
	err := db.Postgres.AutoMigrate(
		&models.User{},
		&models.Edge{},
		&models.FeedEntry{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"message": "Hello, World!"})
	})

	// --- Initialize Repositories ---
	mongoDB := db.Mongo.Database(cfg.MongoDatabase)

	var edgeRepo repositories.EdgeRepository
	var feedRepo repositories.NewsfeedRepository
	if flagStore.IsEnabled(flags.WideColumnGraph) {
		edgeRepo = repositories.NewMongoEdgeRepository(mongoDB)
		feedRepo = repositories.NewMongoNewsfeedRepository(mongoDB)
		log.Println("Graph store backend: wide-column (MongoDB).")
	} else {
		edgeRepo = repositories.NewPostgresEdgeRepository(db.Postgres)
		feedRepo = repositories.NewPostgresNewsfeedRepository(db.Postgres)
		log.Println("Graph store backend: relational (PostgreSQL).")
	}

	pgUserRepo := repositories.NewPostgresUserRepository(db.Postgres)
	userRepo := repositories.NewCachedUserRepository(pgUserRepo, db.Redis)
	postRepo := repositories.NewMongoPostRepository(mongoDB)

	// --- Fan-out pipeline ---
	feedCache := feedcache.NewRedisFeedCache(
		db.Redis, cfg.FeedCacheSize, time.Duration(cfg.FeedCacheTTLHours)*time.Hour)
	producer := kafka.NewProducer(cfg.KafkaBrokers)
	taskQueue := queue.NewKafkaTaskQueue(producer)

	feedService := newsfeed.NewService(edgeRepo, feedRepo, feedCache, taskQueue, newsfeed.Config{
		SyncThreshold: cfg.FanoutSyncThreshold,
		BatchSize:     cfg.FanoutBatchSize,
		CacheSize:     cfg.FeedCacheSize,
	})

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(pgUserRepo, firebaseAuthClient)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo, feedService)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Follow routes
	followHandler := handlers.NewFollowHandler(feedService, userRepo)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	// Feed routes
	feedHandler := handlers.NewFeedHandler(feedService, postRepo, userRepo)
	feedHandler.RegisterFeedRoutes(api)
	log.Println("Feed routes configured.")

	log.Println("All routes configured.")
}
