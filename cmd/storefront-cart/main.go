package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/logger"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/merge"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/sequence"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("db connect", "error", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, log); err != nil {
			log.Fatal("db migrate", "error", err)
		}
	}

	// --- Identity ---
	var (
		guests    identity.GuestStore = identity.NewPostgresGuestStore(pool)
		forgetter *identity.CachedGuestStore
	)
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, guest lookups go to postgres until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
		forgetter = identity.NewCachedGuestStore(guests, rdb, cfg.GuestCacheTTL, log)
		guests = forgetter
	}

	resolver := identity.NewResolver(
		identity.NewJWTSessionProvider(cfg.SessionJWTSecret, cfg.SessionCookieName),
		guests,
		log,
		identity.ResolverOptions{GuestTTL: cfg.GuestSessionTTL, SecureCookie: cfg.Production()},
	)

	sweeper := identity.NewSweeper(guests, cfg.GuestSweepInterval, log)
	go sweeper.Run(ctx)

	// --- AMQP ---
	var publisher merge.EventPublisher = events.Nop{}
	if cfg.RabbitURL != "" {
		conn, err := events.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatal("rabbitmq connect", "error", err)
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn, sequence.NewRepository(pool), events.PublisherOptions{})
		if err != nil {
			log.Fatal("rabbitmq publisher", "error", err)
		}
		defer pub.Close()
		publisher = pub
	} else {
		log.Info("RABBITMQ_URL not set, CartMerged events are disabled")
	}

	// --- Domain ---
	variants := catalog.NewPostgresRepository(pool)
	carts := cart.NewService(cart.NewPostgresRepository(pool), variants, cfg.StockPolicy, log.With("component", "CartEngine"))

	mergeOpts := merge.Options{SecureCookie: cfg.Production()}
	if forgetter != nil {
		mergeOpts.Forget = forgetter
	}
	merger := merge.NewCoordinator(merge.NewPostgresRepository(pool), publisher, log.With("component", "MergeCoordinator"), mergeOpts)

	// --- HTTP ---
	h := httpapi.NewHandler(resolver, carts, variants, merger, log)
	r := httpapi.NewRouter(h, log, httpapi.RouterOptions{
		AllowOrigins:   cfg.CORSAllowOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "stockPolicy", cfg.StockPolicy, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("http server failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	log.Info("shutdown complete")
}
