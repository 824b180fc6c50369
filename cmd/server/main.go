package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"kluret.com/storefront/internal/config"
	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/eventbus"
	"kluret.com/storefront/internal/handler"
	"kluret.com/storefront/internal/infrastructure/kluret"
	"kluret.com/storefront/internal/pkg/retry"
	"kluret.com/storefront/internal/session"
	"kluret.com/storefront/internal/usecase"
)

const (
	sessionTTL        = 30 * 24 * time.Hour
	cartEventsChannel = "kluret:cart-mutated"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	if err := run(cfg, logger); err != nil {
		logger.Error("❌ server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("✅ server exited")
}

// run はSIGINT/SIGTERMを受けるまでサーバーを動かします
// 成功時もエラー時も、deferしたクローズ処理はすべて実行されてから戻ります
func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// redisが設定されていなければセッションとカートイベントはプロセス内に置く
	// 設定されていれば全インスタンスで共有する
	cartEvents := eventbus.New[model.CartMutated]()
	var (
		store     session.Store = session.NewMemoryStore()
		publisher usecase.CartEventPublisher
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("failed to close redis client", "error", err)
			}
		}()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "failed to connect to redis")
		}

		store = session.NewRedisStore(rdb, sessionTTL)
		bridge := eventbus.NewRedisBridge(cartEvents, rdb, cartEventsChannel, logger)
		publisher = bridge
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logger.Error("cart event bridge stopped", "error", err)
			}
		}()
		logger.Info("using redis for sessions and cart events", "addr", opts.Addr)
	}

	// 依存関係の組み立て（依存性注入）
	// リモートサービスはすべてリポジトリの裏に隠し、ユースケースからHTTPを見せない
	policy := retry.Policy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}
	workspaces := usecase.NewWorkspaces(usecase.Deps{
		Search:        kluret.NewSearchClient(cfg.APIBaseURL, cfg.HTTPTimeout, logger),
		Detail:        kluret.NewDetailClient(cfg.APIBaseURL, cfg.HTTPTimeout, policy, logger),
		Cart:          kluret.NewCartClient(cfg.APIBaseURL, cfg.HTTPTimeout),
		Auth:          kluret.NewAuthClient(cfg.APIBaseURL, cfg.HTTPTimeout),
		Chat:          kluret.NewChatClient(cfg.ChatBaseURL, cfg.HTTPTimeout),
		Store:         kluret.NewStoreClient(cfg.StoreBaseURL, cfg.HTTPTimeout),
		Sessions:      session.NewManager(store),
		CartEvents:    cartEvents,
		CartPublisher: publisher,
		PollInterval:  cfg.CartPollInterval,
		Logger:        logger,
	})
	defer workspaces.Close()
	go workspaces.RunSweeper(ctx, time.Minute, cfg.WorkspaceIdleTimeout)

	cookies, err := session.NewCookieCodec(cfg.SessionSecret)
	if err != nil {
		return errors.Wrap(err, "invalid session secret")
	}
	router := handler.NewRouter(handler.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		SecureCookie:   cfg.SecureCookie,
		Cookies:        cookies,
		Logger:         logger,
	}, handler.NewStorefrontHandler(workspaces, logger))

	// ストリームはページが開いている間ずっと続くのでWriteTimeoutは設定しない
	// シャットダウン時はベースコンテキスト経由でキャンセルする
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("🚀 server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "server failed to start")
	case <-ctx.Done():
	}
	logger.Info("🛑 shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	return nil
}
