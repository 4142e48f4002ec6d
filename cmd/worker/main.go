package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/feedcache"
	"github.com/anonto42/nano-feed/backend/internal/flags"
	"github.com/anonto42/nano-feed/backend/internal/newsfeed"
	"github.com/anonto42/nano-feed/backend/internal/queue"
	"github.com/anonto42/nano-feed/backend/internal/repositories"
	"github.com/anonto42/nano-feed/backend/pkg/config"
	"github.com/anonto42/nano-feed/backend/pkg/kafka"
	segkafka "github.com/segmentio/kafka-go"
)

// The worker drains the delivery queue. It shares the storage wiring with
// the API server, so a flag flip that moves the graph store to the
// wide-column backend must be rolled out to both processes together.
func main() {
	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	flagStore := flags.NewEnvFlagStore()
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

	feedCache := feedcache.NewRedisFeedCache(
		db.Redis, cfg.FeedCacheSize, time.Duration(cfg.FeedCacheTTLHours)*time.Hour)

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()
	taskQueue := queue.NewKafkaTaskQueue(producer)

	feedService := newsfeed.NewService(edgeRepo, feedRepo, feedCache, taskQueue, newsfeed.Config{
		SyncThreshold: cfg.FanoutSyncThreshold,
		BatchSize:     cfg.FanoutBatchSize,
		CacheSize:     cfg.FeedCacheSize,
	})
	worker := newsfeed.NewWorker(feedService, taskQueue, cfg.FanoutMaxAttempts)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, newsfeed.FanoutQueue, "newsfeed-workers")
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = consumer.StartListening(ctx, func(m segkafka.Message) {
		task, err := queue.DecodeTask(m.Value)
		if err != nil {
			log.Printf("dropping undecodable task at offset %d: %v", m.Offset, err)
			return
		}
		worker.Handle(ctx, task)
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("consumer stopped: %v", err)
	}
	log.Println("Worker shut down.")
}
