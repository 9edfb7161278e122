package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/nitesh/news_portal/internal/api"
	"github.com/nitesh/news_portal/internal/config"
	"github.com/nitesh/news_portal/internal/hotsearch"
	"github.com/nitesh/news_portal/internal/llm"
	"github.com/nitesh/news_portal/internal/logger"
	"github.com/nitesh/news_portal/internal/render"
	"github.com/nitesh/news_portal/internal/service"
	"github.com/nitesh/news_portal/internal/store"
)

func main() {
	log := logger.New("news-portal")
	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := sql.Open("postgres", cfg.DB.DSN())
	if err != nil {
		log.Error("db open", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	// db might still be starting in docker
	if err := waitForDB(ctx, log, db, cfg.DB.ConnectAttempts); err != nil {
		log.Error("could not connect to db", slog.Any("err", err))
		os.Exit(1)
	}

	if err := store.RunMigrations(db); err != nil {
		log.Error("migrations", slog.Any("err", err))
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis ping failed, hot searches degraded", slog.Any("err", err))
	}
	cancel()

	repo := store.NewPgStore(db, store.Options{
		PageSize:    cfg.PageSize,
		SearchLimit: cfg.SearchLimit,
		PopularTags: cfg.PopularTags,
	})

	renderer, err := render.NewTemplateRenderer()
	if err != nil {
		log.Error("templates", slog.Any("err", err))
		os.Exit(1)
	}

	svc := service.NewService(repo, repo, hotsearch.NewRecorder(rdb, cfg.HotSearchTTL), log)
	if cfg.LLM.URL != "" {
		svc.SetSummarizer(llm.NewClient(cfg.LLM.URL, cfg.LLM.Model, &http.Client{Timeout: cfg.LLM.Timeout}, log))
		log.Info("summaries enabled", slog.String("model", cfg.LLM.Model))
	}
	handler := api.NewHandler(svc, renderer, log, map[string]api.HealthCheck{
		"postgres": repo.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(handler, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info("listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

func waitForDB(ctx context.Context, log *slog.Logger, db *sql.DB, attempts int) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		log.Warn("waiting for db", slog.Int("attempt", i+1), slog.Any("err", err))
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
