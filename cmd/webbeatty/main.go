package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/maomauro/web-beatty-sub001/internal/cache"
	"github.com/maomauro/web-beatty-sub001/internal/checkout"
	"github.com/maomauro/web-beatty-sub001/internal/config"
	"github.com/maomauro/web-beatty-sub001/internal/httpapi"
	"github.com/maomauro/web-beatty-sub001/internal/remote"
	"github.com/maomauro/web-beatty-sub001/internal/session"
	"github.com/maomauro/web-beatty-sub001/internal/store"
	"github.com/maomauro/web-beatty-sub001/internal/syncer"
	"github.com/maomauro/web-beatty-sub001/internal/tax"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx := context.Background()

	st, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up local storage: %v", err)
	}
	defer cleanup()
	log.Printf("Local cart storage: %s", cfg.StoreBackend)

	creds := session.NewCredentials()
	if token := os.Getenv("WB_API_TOKEN"); token != "" {
		creds.SetToken(token)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	client := remote.NewClient(httpClient, cfg.APIBaseURL, creds.Token, log)

	taxes := tax.New(client, log)
	taxes.Load(ctx)

	cartCache := cache.New(st, taxes, log)
	cartCache.SetPushTimeout(cfg.PushTimeout)
	cartCache.Hydrate(ctx)
	log.Printf("Cart hydrated with %d item(s)", cartCache.ItemCount())

	cartSync := syncer.New(cartCache, st, client, creds.Token, log)
	cartCache.AttachPusher(cartSync)

	coordinator := checkout.New(cartCache, client, log)
	bridge := session.NewBridge(cartSync, creds, log)

	if creds.Token() != "" {
		bridge.OnLoginCompleted(ctx)
	}

	// Control surface for the host UI
	handler := httpapi.NewHandler(cartCache, coordinator, bridge, creds, log)
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/api/v1", handler.Routes())

	srv := &http.Server{
		Addr:         cfg.ControlAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Cart engine control API on %s", cfg.ControlAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("control server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down, pushing cart before logout...")
	if err := bridge.OnLogoutRequested(ctx); err != nil {
		log.Printf("Cart push failed, logging out anyway: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("control server forced to shutdown: %v", err)
	}
	log.Println("Cart engine stopped")
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return store.NewRedisStore(client), func() { client.Close() }, nil
	case "memory":
		return store.NewMemoryStore(), func() {}, nil
	default:
		return store.NewFileStore(cfg.CartFile), func() {}, nil
	}
}
