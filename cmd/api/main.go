package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-commerce-api/internal/auth"
	"github.com/ariefcatur/go-commerce-api/internal/catalog"
	"github.com/ariefcatur/go-commerce-api/internal/clients"
	"github.com/ariefcatur/go-commerce-api/internal/config"
	"github.com/ariefcatur/go-commerce-api/internal/events"
	"github.com/ariefcatur/go-commerce-api/internal/httpx"
	"github.com/ariefcatur/go-commerce-api/internal/inventory"
	kafkax "github.com/ariefcatur/go-commerce-api/internal/kafka"
	"github.com/ariefcatur/go-commerce-api/internal/memstore"
	"github.com/ariefcatur/go-commerce-api/internal/orders"
	"github.com/ariefcatur/go-commerce-api/internal/postgres"
	"github.com/ariefcatur/go-commerce-api/internal/redisx"
	"github.com/ariefcatur/go-commerce-api/internal/users"
)

type recordStore interface {
	catalog.Repo
	clients.Repo
	users.Repo
	orders.Repo
	inventory.Store
}

func main() {
	_ = godotenv.Load()
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err == nil {
		err = cfg.RequireJWT()
	}
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}
	log = log.With("service", cfg.ServiceName)
	mode, err := inventory.ParseMode(cfg.ReconcileMode)
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Record store
	var store recordStore
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store, data is lost on exit")
		store = memstore.New()
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("db connect", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("db migrate", "err", err)
			os.Exit(1)
		}
		store = &postgres.Store{DB: db}
	}

	// Redis: order read cache and idempotency keys
	var orderRepo orders.Repo = store
	oh := &httpx.OrdersHandler{Log: log}
	if cfg.CacheEnabled {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, cache calls will fall back to the store", "addr", cfg.RedisAddr, "err", err)
		}
		orderRepo = orders.NewCachedRepo(store, rdb, cfg.OrderCacheTTL, log)
		oh.Redis = rdb
	}

	wf := &orders.Workflow{
		Orders:  orderRepo,
		Clients: store,
		Stock:   &inventory.Reconciler{Store: store, Mode: mode, Log: log},
		Service: cfg.ServiceName,
		Log:     log,
	}

	// Kafka producers
	var producers []*kafkax.Producer
	if cfg.EventsEnabled {
		orderProd := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderEvents, 1024, log)
		orderProd.Start(ctx)
		stockProd := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicStockAdjusted, 1024, log)
		stockProd.Start(ctx)
		wf.OrderEvents, wf.StockEvents = orderProd, stockProd
		producers = append(producers, orderProd, stockProd)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	router := httpx.NewRouter(tokens, log)
	(&httpx.UsersHandler{Users: users.NewService(store, tokens), Log: log}).Register(router)
	(&httpx.ProductsHandler{Catalog: &catalog.Service{Repo: store}, Log: log}).Register(router)
	(&httpx.ClientsHandler{Clients: &clients.Service{Repo: store}, Log: log}).Register(router)
	oh.Orders = wf
	oh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "reconcile_mode", mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // close inbox, flush and close writer
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	cancel()
}
