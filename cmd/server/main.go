// Command server is the process entrypoint: it wires RoomStore,
// RoomCache, PhaseClock, the word catalog, Engine, Lifecycle, the
// session layer, the canvas resync tracker and the websocket transport
// together behind one HTTP listener, grounded on the Server/NewServer
// wiring shape used elsewhere in the example pack.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/inkrush/inkrush-backend/internal/authtoken"
	"github.com/inkrush/inkrush-backend/internal/config"
	"github.com/inkrush/inkrush-backend/internal/engine"
	"github.com/inkrush/inkrush-backend/internal/logging"
	"github.com/inkrush/inkrush-backend/internal/phaseclock"
	"github.com/inkrush/inkrush-backend/internal/resync"
	"github.com/inkrush/inkrush-backend/internal/server"
	"github.com/inkrush/inkrush-backend/internal/session"
	"github.com/inkrush/inkrush-backend/internal/store"
	"github.com/inkrush/inkrush-backend/internal/transport/ws"
	"github.com/inkrush/inkrush-backend/internal/words"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.Dev)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rs := connectStoreWithRetry(ctx, cfg, log)
	defer rs.Close()

	cache := connectCache(cfg, log)

	clock := phaseclock.New(cache, log)
	catalog := words.NewCatalog()

	hub := ws.NewHub(log)
	e := engine.New(rs, cache, clock, catalog, hub, log)
	lc := engine.NewLifecycle(e)

	sessions := session.New(hub, cfg.GraceWindow, log)
	resyncTracker := resync.New()
	signer := authtoken.NewSigner(cfg.TokenSigningSecret)

	disp := ws.NewDispatcher(e, lc, sessions, resyncTracker, log)
	wsHandler := ws.NewHandler(hub, signer, disp, log)

	if err := lc.Start(ctx); err != nil {
		log.Fatalw("start lifecycle", "error", err)
	}
	defer lc.Stop()

	srv := server.New(rs, wsHandler)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("[server] listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("listen and serve", "error", err)
		}
	}()

	<-ctx.Done()
	log.Infow("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnw("[server] graceful shutdown failed", "error", err)
	}
}

// connectStoreWithRetry retries the initial Postgres connection with a
// bounded backoff: a DB-unavailable startup problem retries rather
// than exits, because by the time this runs the process
// has already committed to staying up.
func connectStoreWithRetry(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) *store.RoomStore {
	backoff := time.Second
	for {
		rs, err := store.NewRoomStore(ctx, cfg.DatabaseURL)
		if err == nil {
			return rs
		}
		log.Warnw("[server] database unavailable, retrying", "error", err, "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			os.Exit(1)
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func connectCache(cfg *config.Config, log *zap.SugaredLogger) store.RoomCache {
	if cfg.RedisAddr == "" {
		log.Infow("[server] REDIS_ADDR not set, using in-memory room cache")
		return store.NewMemoryCache()
	}
	cache, err := store.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Warnw("[server] redis unavailable, falling back to memory cache", "error", err)
		return store.NewMemoryCache()
	}
	log.Infow("[server] connected to redis", "addr", cfg.RedisAddr)
	return cache
}
