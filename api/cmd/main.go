package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"camRelay/api/internal/config"
	"camRelay/api/internal/controller"
	"camRelay/api/internal/db"
	"camRelay/api/internal/events"
	"camRelay/api/internal/logger"
	"camRelay/api/internal/sink"
	"camRelay/api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustNew(os.Getenv(config.EnvConfigPath))

	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer closer.Close()
	defer log.Sync()

	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sinks []sink.Sink

	if cfg.RedisEnabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}

		mirror := db.NewFrameMirror(client, cfg.Redis.Key, cfg.Redis.TTL, log)
		defer mirror.Close()

		sinks = append(sinks, mirror)
	}

	if cfg.KafkaEnabled() {
		producer, err := events.ConnectProducer(cfg.Kafka.Brokers)
		if err != nil {
			log.Fatal("create producer failed", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Error(err))
		}

		notifier := events.NewNotifier(producer, cfg.Kafka.Topic, log)
		defer notifier.Close()

		sinks = append(sinks, notifier)
	}

	dispatcher := sink.New(log, cfg.Sink.Timeout, sinks...)

	srv := controller.NewServer(cfg, store.New(), dispatcher, log)
	if err := srv.Start(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		return
	}

	log.Info("server stopped")
}
