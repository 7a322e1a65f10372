package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jukebox/internal/controller"
	"github.com/sharetube/jukebox/internal/eventlog"
	"github.com/sharetube/jukebox/internal/eventlog/redisstream"
	sqlitelog "github.com/sharetube/jukebox/internal/eventlog/sqlite"
	"github.com/sharetube/jukebox/internal/metrics"
	"github.com/sharetube/jukebox/internal/repository/connection/inmemory"
	queueredis "github.com/sharetube/jukebox/internal/repository/queue/redis"
	"github.com/sharetube/jukebox/internal/service/gateway"
	"github.com/sharetube/jukebox/internal/service/materializer"
	"github.com/sharetube/jukebox/pkg/ctxlogger"
	"github.com/sharetube/jukebox/pkg/redisclient"
	"github.com/sharetube/jukebox/pkg/ytcatalog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// NewLogger builds the process logger. level can be changed while the process runs.
func NewLogger(level *slog.LevelVar) *slog.Logger {
	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		}),
	}

	return slog.New(h)
}

type components struct {
	handler  http.Handler
	eventLog eventlog.Log
	// materialize consumes eventLog until ctx is canceled.
	materialize func(ctx context.Context) error
}

func newEventLog(ctx context.Context, cfg *AppConfig, rc *redis.Client) (eventlog.Log, error) {
	switch cfg.EventLog {
	case EventLogSQLite:
		return sqlitelog.Open(ctx, &sqlitelog.Config{
			Path:  cfg.SQLitePath,
			Group: cfg.Group,
		})
	default:
		return redisstream.New(ctx, rc, &redisstream.Config{
			Stream:   cfg.Stream,
			Group:    cfg.Group,
			Consumer: cfg.Consumer,
			MaxLen:   cfg.StreamMaxLen,
		})
	}
}

func build(ctx context.Context, cfg *AppConfig, rc *redis.Client, logger *slog.Logger) (*components, error) {
	eventLog, err := newEventLog(ctx, cfg, rc)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}

	m := metrics.New()
	queueRepo := queueredis.NewRepo(rc, cfg.RoomTTL)
	connRepo := inmemory.NewRepo()
	catalog := ytcatalog.New(&ytcatalog.Config{APIKey: cfg.YoutubeAPIKey})

	gatewayService := gateway.NewService(queueRepo, eventLog, connRepo, mediaCatalog{client: catalog}, m, &gateway.Config{
		MembersLimit:  cfg.MembersLimit,
		PlaylistLimit: cfg.PlaylistLimit,
	})
	materializerService := materializer.NewService(queueRepo, gatewayService, m, &materializer.Config{
		Lanes: cfg.MaterializerLanes,
	})
	ctrl := controller.NewController(gatewayService, catalog, m.Handler(), logger)

	return &components{
		handler:  ctrl.GetMux(),
		eventLog: eventLog,
		materialize: func(ctx context.Context) error {
			return materializerService.Run(ctx, eventLog)
		},
	}, nil
}

func Run(ctx context.Context, cfg *AppConfig, level *slog.LevelVar) error {
	logger := NewLogger(level)
	slog.SetDefault(logger)

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	c, err := build(ctx, cfg, rc, logger)
	if err != nil {
		return err
	}
	defer c.eventLog.Close()

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: c.handler}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.InfoContext(gctx, "starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := c.materialize(gctx); err != nil {
			return fmt.Errorf("materializer stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
