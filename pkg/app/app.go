// Package app 提供应用程序的初始化和配置功能.
//
// App 持有 HTTP 引擎、存储 Manager、调度器与消息路由，Run 阻塞到 ctx 取消后按序关闭.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/clipstudio/pkg/api"
	"github.com/yeisme/clipstudio/pkg/cache"
	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/internal/jobs"
	"github.com/yeisme/clipstudio/pkg/internal/service"
	"github.com/yeisme/clipstudio/pkg/internal/storage"
	dbc "github.com/yeisme/clipstudio/pkg/internal/storage/db"
	"github.com/yeisme/clipstudio/pkg/log"
	"github.com/yeisme/clipstudio/pkg/metrics"
	"github.com/yeisme/clipstudio/pkg/middleware"
	"github.com/yeisme/clipstudio/pkg/rule"
	"github.com/yeisme/clipstudio/pkg/scheduler"
	"github.com/yeisme/clipstudio/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Engine    *gin.Engine
	config    *configs.AppConfig
	manager   *storage.Manager
	scheduler *scheduler.Scheduler
	logger    zerolog.Logger
}

// NewApp 按已加载的全局配置初始化追踪、监控、存储与调度器，并组装路由.
func NewApp(ctx context.Context) (*App, error) {
	config := configs.GetConfig()

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if config.DB.AutoMigrate {
		if err := dbc.Migrate(ctx, manager.DB.GetDB()); err != nil {
			return nil, multierr.Append(fmt.Errorf("migrate: %w", err), manager.Close())
		}
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("init scheduler: %w", err), manager.Close())
	}

	a := &App{
		config:    config,
		manager:   manager,
		scheduler: sched,
		logger:    log.Component("app"),
	}

	if err := a.registerJobs(ctx); err != nil {
		return nil, multierr.Combine(err, sched.Shutdown(), manager.Close())
	}

	a.Engine = a.newEngine()

	return a, nil
}

// validateConfig 校验运行所需的配置段.
func validateConfig(cfg *configs.AppConfig) error {
	for _, section := range []any{
		&cfg.Server, &cfg.DB, &cfg.S3, &cfg.Stream, &cfg.Quota, &cfg.Composition, &cfg.Jobs,
	} {
		if err := rule.ValidateStruct(section); err != nil {
			return err
		}
	}

	return nil
}

// registerJobs 注册清理重试任务与删除事件消费者.
func (a *App) registerJobs(ctx context.Context) error {
	cleanup := service.NewCleanupService(service.FromManager(a.manager, a.config))

	if err := jobs.RegisterCronJobs(ctx, a.scheduler, cleanup, a.config.Jobs); err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}

	if a.manager.MQ == nil {
		return nil
	}

	if err := jobs.RegisterConsumers(a.manager.MQ, cleanup, a.config.Jobs); err != nil {
		return fmt.Errorf("register consumers: %w", err)
	}

	return nil
}

func (a *App) newEngine() *gin.Engine {
	config := a.config
	engine := gin.New()
	engine.MaxMultipartMemory = config.Server.MaxMultipart << 20

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine.Use(
		gin.Recovery(),
		middleware.CORSMiddleware(config.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
	)

	if config.Server.Compression {
		engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/debug/pprof"})))
	}

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	middleware.LogAuthMode(a.logger, config.Auth)

	engine.Use(
		middleware.StorageMiddleware(a.manager),
		middleware.AuthMiddleware(config.Auth),
		middleware.SchedulerMiddleware(a.scheduler),
	)

	var opts api.Options
	if a.manager.KV != nil {
		opts.TiersCache = cache.NewCache(a.manager.KV, cache.WithPrefix("resp:"))
	}

	api.RegisterGroup(engine, opts)

	return engine
}

// Run 启动调度器、消息路由与 HTTP 服务，ctx 取消后优雅关闭.
func (a *App) Run(ctx context.Context) error {
	addr := net.JoinHostPort(a.config.Server.Host, strconv.Itoa(a.config.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	a.scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)

	if a.manager.MQ != nil {
		g.Go(func() error {
			if err := a.manager.MQ.RunRouter(gctx); err != nil {
				return fmt.Errorf("mq router: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		a.logger.Info().Str("addr", addr).Msg("HTTP server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		a.logger.Info().Msg("shutting down")

		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	return multierr.Combine(err, a.Close())
}

// Close 停止调度器、关闭存储连接并刷新追踪数据.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return multierr.Combine(
		a.scheduler.Shutdown(),
		a.manager.Close(),
		tracing.ShutdownTracer(ctx),
	)
}
