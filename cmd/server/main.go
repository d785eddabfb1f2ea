package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roomchat/relay/internal/broker"
	"github.com/roomchat/relay/internal/config"
	"github.com/roomchat/relay/internal/history"
	"github.com/roomchat/relay/internal/observability"
	"github.com/roomchat/relay/internal/relay"
	"github.com/roomchat/relay/internal/server"
	"github.com/roomchat/relay/internal/store"
	"github.com/roomchat/relay/internal/store/postgres"
	ws "github.com/roomchat/relay/internal/websocket"
)

func main() {
	cfg := config.Load()

	observability.InitLogger(cfg.ServiceName)
	log := observability.Log

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer tp.Shutdown(context.Background())
	}

	ctx, cancel := setupSignalHandler(log)
	defer cancel()

	st, closeStore := initStore(cfg, log)
	defer closeStore()

	bk := initBroker(ctx, cfg, log)

	rooms := history.NewRegistry(cfg.HistoryCapacity)
	reg := ws.NewRegistry()

	handler := ws.NewHandler(reg, rooms, bk, st, ws.Options{
		SendBuffer:  cfg.SendBuffer,
		Mode:        relay.Mode(cfg.DispatchMode),
		MaxInFlight: cfg.MaxInFlight,
	})

	obsSrv := initObservabilityServer(cfg)
	wsSrv := server.New(cfg.HTTPAddr, initMainRouter(handler), log)

	startServers(obsSrv, wsSrv, cfg, log)

	<-ctx.Done()
	performGracefulShutdown(obsSrv, wsSrv, reg, log)
}

func setupSignalHandler(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()
	return ctx, cancel
}

func initStore(cfg *config.Config, log *zap.Logger) (store.Store, func()) {
	switch cfg.StoreBackend {
	case "postgres":
		repo, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		log.Info("using postgres store")
		return repo, func() { repo.Close() }
	case "memory":
		log.Info("using in-memory store")
		return store.NewMemory(), func() {}
	default:
		log.Fatal("unknown store backend", zap.String("backend", cfg.StoreBackend))
		return nil, nil
	}
}

func initBroker(ctx context.Context, cfg *config.Config, log *zap.Logger) broker.Broker {
	switch cfg.BrokerBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		log.Info("using redis broker", zap.String("addr", cfg.RedisAddr))
		return broker.NewRedis(client)
	case "memory":
		log.Info("using in-memory broker")
		return broker.NewMemory()
	default:
		log.Fatal("unknown broker backend", zap.String("backend", cfg.BrokerBackend))
		return nil
	}
}

func initObservabilityServer(cfg *config.Config) *http.Server {
	mux := chi.NewRouter()
	mux.Use(observability.MetricsMiddleware(cfg.ServiceName))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Get("/health/live", observability.HealthLiveHandler)
	mux.Get("/health/ready", observability.HealthReadyHandler())
	return &http.Server{Addr: cfg.ObsHTTPAddr, Handler: mux}
}

func initMainRouter(handler http.Handler) http.Handler {
	mux := chi.NewRouter()
	mux.Handle("/chat", handler)
	return mux
}

func startServers(obsSrv *http.Server, wsSrv *server.Server, cfg *config.Config, log *zap.Logger) {
	go func() {
		log.Info("starting observability server", zap.String("addr", cfg.ObsHTTPAddr))
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("observability server error", zap.Error(err))
		}
	}()
	go func() {
		if err := wsSrv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()
}

func performGracefulShutdown(obsSrv *http.Server, wsSrv *server.Server, reg *ws.Registry, log *zap.Logger) {
	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := wsSrv.Shutdown(ctx); err != nil {
		log.Error("error during main server shutdown", zap.Error(err))
	}
	if err := obsSrv.Shutdown(ctx); err != nil {
		log.Error("error during observability server shutdown", zap.Error(err))
	}
	reg.CloseAll()
	log.Info("shutdown complete, exiting")
}
