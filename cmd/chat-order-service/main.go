// Package main boots the chat order service HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/chat-order-service/internal/config"
	httpapi "github.com/fairyhunter13/chat-order-service/internal/http"
	"github.com/fairyhunter13/chat-order-service/internal/notify"
	"github.com/fairyhunter13/chat-order-service/internal/obs"
	"github.com/fairyhunter13/chat-order-service/internal/pipeline"
	"github.com/fairyhunter13/chat-order-service/internal/queue"
	"github.com/fairyhunter13/chat-order-service/internal/store"
	"github.com/fairyhunter13/chat-order-service/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	obs.InitLogger()
	obs.Logger.Info("service_starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Storage
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			obs.Logger.Error("postgres_open_failed", "error", err)
			os.Exit(1)
		}
		if err := pg.Migrate(ctx); err != nil {
			obs.Logger.Error("postgres_migrate_failed", "error", err)
			os.Exit(1)
		}
		obs.Logger.Info("storage_ready", "backend", "postgres")
		st = pg
	} else {
		obs.Logger.Info("storage_ready", "backend", "memory")
		st = store.NewMemory()
	}

	hub := notify.NewHub(0)
	var sink notify.Sink = hub
	var kafkaSink *notify.KafkaSink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink = notify.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		sink = notify.Fanout{hub, kafkaSink}
		obs.Logger.Info("kafka_sink_enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	pipe := pipeline.New(st, sink, cfg.FallbackParserEnabled)

	q := queue.New(128)
	mgr := queue.NewManager(cfg, q, pipe)
	mgr.Start(ctx)

	app := httpapi.NewApp(cfg, st, pipe, hub, mgr)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	app.StartShutdown()
	obs.Logger.Info("shutdown_drain_begin", "backlog_size", mgr.BacklogSize(), "worker_count", mgr.WorkerCount())

	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()
	if drained := mgr.DrainUntil(ctxDrain); !drained {
		obs.Logger.Warn("shutdown_drain_timeout")
	} else {
		obs.Logger.Info("shutdown_drain_complete")
	}

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	mgr.Stop()
	if kafkaSink != nil {
		_ = kafkaSink.Close()
	}
	obs.Logger.Info("service_stopped")
}
