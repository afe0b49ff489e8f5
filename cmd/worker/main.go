package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-commerce-api/internal/config"
	"github.com/ariefcatur/go-commerce-api/internal/events"
	"github.com/ariefcatur/go-commerce-api/internal/inventory"
	kafkax "github.com/ariefcatur/go-commerce-api/internal/kafka"
	"github.com/ariefcatur/go-commerce-api/internal/orders"
	"github.com/ariefcatur/go-commerce-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}
	name := cfg.ServiceName + "-worker"
	log = log.With("service", name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	invalidator := &orders.CacheInvalidator{Redis: rdb, Log: log}
	watcher := &inventory.Watcher{
		Redis:     rdb,
		Threshold: cfg.LowStockThreshold,
		Name:      name,
		Log:       log,
	}

	// Consumers: order events and stock adjustments (two topics)
	run := []struct {
		topic   string
		handler kafkax.Handler
	}{
		{events.TopicOrderEvents, invalidator.HandleOrderEvent},
		{events.TopicStockAdjusted, watcher.HandleStockAdjusted},
	}

	var wg sync.WaitGroup
	for _, c := range run {
		group := cfg.WorkerGroup + "-" + c.topic
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, c.topic, cfg.WorkerConcurrency, log)
		wg.Add(1)
		go func(topic string, h kafkax.Handler) {
			defer wg.Done()
			log.Info("consumer started", "group", group, "topic", topic, "workers", cfg.WorkerConcurrency)
			if err := cons.Start(ctx, h); err != nil {
				log.Error("consumer exit", "topic", topic, "err", err)
				cancel()
			}
		}(c.topic, c.handler)
	}

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumers")
	cancel()
	wg.Wait()
}
