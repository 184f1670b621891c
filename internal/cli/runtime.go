package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/datadesk/internal/api"
	"github.com/user/datadesk/internal/cache"
	"github.com/user/datadesk/internal/config"
	"github.com/user/datadesk/internal/domain"
	"github.com/user/datadesk/internal/fetcher"
	"github.com/user/datadesk/internal/monitoring"
	"github.com/user/datadesk/internal/pipeline"
	"github.com/user/datadesk/internal/storage"
	"github.com/user/datadesk/pkg/logger"
)

// Runtime holds the per-run collaborators built from configuration.
type Runtime struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *monitoring.Metrics
	Progress *pipeline.Progress

	pg     *storage.PostgresStore
	redis  *storage.RedisStore
	server *api.Server
}

func (a *App) start(ctx context.Context) (*Runtime, error) {
	cfg, err := config.Load(a.Viper, a.Fs, a.EnvFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:   cfg,
		Logger:   log,
		Metrics:  monitoring.NewMetrics(),
		Progress: pipeline.NewProgress(),
	}

	var opts []api.Option
	if cfg.PostgresURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.pg = pg
		if err := pg.EnsureSchema(ctx); err != nil {
			rt.Close()
			return nil, err
		}
		opts = append(opts, api.WithDependency("postgres", pg), api.WithRunStore(pg))
	}
	if cfg.RedisAddr != "" {
		rt.redis = storage.NewRedisStore(cfg.RedisAddr)
		if err := rt.redis.Ping(ctx); err != nil {
			log.Warn("redis unavailable, page cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			rt.redis.Close()
			rt.redis = nil
		} else {
			opts = append(opts, api.WithDependency("redis", rt.redis))
		}
	}

	if cfg.StatusAddr != "" {
		rt.server = api.NewServer(cfg.StatusAddr, rt.Progress, rt.Metrics, log, opts...)
		go func() {
			if err := rt.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server stopped", zap.Error(err))
			}
		}()
		log.Info("status server started", zap.String("addr", cfg.StatusAddr))
	}
	return rt, nil
}

// Close releases everything start acquired. Safe to call more than once.
func (rt *Runtime) Close() {
	if rt.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rt.server.Shutdown(ctx); err != nil {
			rt.Logger.Warn("status server shutdown", zap.Error(err))
		}
		cancel()
		rt.server = nil
	}
	if rt.redis != nil {
		rt.redis.Close()
		rt.redis = nil
	}
	if rt.pg != nil {
		rt.pg.Close()
		rt.pg = nil
	}
	if rt.Logger != nil {
		_ = rt.Logger.Sync()
	}
}

// Fetcher wraps t with the page cache when Redis is configured and with the
// retry policy from configuration.
func (rt *Runtime) Fetcher(t fetcher.Transport) *fetcher.Fetcher {
	if rt.redis != nil {
		t = cache.NewPageCache(t, rt.redis, rt.Config.PageCacheTTL, rt.Logger)
	}
	return fetcher.New(t,
		fetcher.WithMaxAttempts(rt.Config.MaxAttempts),
		fetcher.WithBackoffUnit(rt.Config.BackoffUnit),
		fetcher.WithLogger(rt.Logger),
		fetcher.WithMetrics(rt.Metrics),
	)
}

// Runner returns a pipeline runner for dataset.
func (rt *Runtime) Runner(dataset string, delay time.Duration, sleeper fetcher.Sleeper) pipeline.Runner {
	return pipeline.Runner{
		Dataset:  dataset,
		Delay:    delay,
		Sleeper:  sleeper,
		Logger:   rt.Logger,
		Metrics:  rt.Metrics,
		Progress: rt.Progress,
	}
}

// persist copies rows to Postgres when configured. A failure is logged; the
// CSV remains the primary output.
func persist[R domain.Row](ctx context.Context, rt *Runtime, dataset string, header []string, rows []R) {
	if rt.pg == nil {
		return
	}
	id, err := storage.SaveRun(ctx, rt.pg, dataset, header, rows)
	if err != nil {
		rt.Logger.Error("failed to store run in postgres", zap.String("dataset", dataset), zap.Error(err))
		return
	}
	rt.Logger.Info("stored run in postgres",
		zap.String("dataset", dataset),
		zap.String("run_id", id.String()),
		zap.Int("rows", len(rows)))
}
