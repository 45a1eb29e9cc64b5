package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/storefront/internal/apiclient"
	"github.com/hitoshi/storefront/internal/auth"
	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/catalog"
	"github.com/hitoshi/storefront/internal/config"
	"github.com/hitoshi/storefront/internal/dispatch"
	"github.com/hitoshi/storefront/internal/handler"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/notify"
	"github.com/hitoshi/storefront/internal/security"
	"github.com/hitoshi/storefront/internal/session"
	"github.com/hitoshi/storefront/internal/storefront"
	"github.com/hitoshi/storefront/internal/worker/expiry"
)

// Runtime はserveモードで動作する全コンポーネントを保持する。
type Runtime struct {
	Service *storefront.Service
	Router  http.Handler

	cfg         *config.Config
	logger      *slog.Logger
	loop        *dispatch.Loop
	rateLimiter *middleware.RateLimiter
	expiryJob   *expiry.Job
	storage     *storage
	started     bool
}

// Build は設定に従って全依存関係をワイヤリングする。
// ストレージへの接続は行うが、リアクションループとジョブはStartまで起動しない。
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// 1. ストレージ
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	logger.Info("storage opened", slog.String("backend", cfg.StorageBackend))

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 3. 外部APIクライアント
	authAPI, err := newAPIClient("auth", cfg, collector, logger)
	if err != nil {
		store.close()
		return nil, err
	}
	sanitizer := security.NewContentSanitizer()

	var source catalog.Source
	if cfg.CatalogFixture != "" {
		fixture, err := catalog.LoadFixture(cfg.CatalogFixture, sanitizer)
		if err != nil {
			store.close()
			return nil, err
		}
		logger.Info("using catalog fixture", slog.String("path", cfg.CatalogFixture))
		source = fixture
	} else {
		catalogAPI, err := newAPIClient("catalog", cfg, collector, logger)
		if err != nil {
			store.close()
			return nil, err
		}
		source = catalog.NewHTTPSource(catalogAPI, sanitizer)
	}

	// 4. ストアとサービス
	hub := notify.NewHub(logger)
	loop := dispatch.NewLoop(logger, dispatch.DefaultQueueSize)
	svc := storefront.NewService(storefront.Deps{
		Loop:    loop,
		Hub:     hub,
		Session: session.NewStore(store.repo, hub, logger),
		Cart:    cart.NewStore(hub, logger),
		Auth:    auth.NewClient(authAPI, logger),
		Catalog: source,
		Metrics: collector,
		Logger:  logger,
		Config: storefront.Config{
			ClearCartOnLogout: cfg.ClearCartOnLogout,
			TaxRateBPS:        cfg.TaxRateBPS,
		},
	})

	// 5. ルーター
	rlConfig := middleware.DefaultRateLimiterConfig()
	rlConfig.GeneralRate = middleware.PerMinute(cfg.RateLimitGeneral)
	rlConfig.GeneralBurst = cfg.RateLimitGeneral
	rlConfig.AuthRate = middleware.PerMinute(cfg.RateLimitAuth)
	rlConfig.AuthBurst = cfg.RateLimitAuth
	rateLimiter := middleware.NewRateLimiter(rlConfig, logger)

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRF:              middleware.CSRFConfig{CookieSecure: cfg.CookieSecure, Logger: logger},
		Logger:            logger,
		Auth:              svc,
		Products:          svc,
		Cart:              svc,
		Events:            svc,
		Health:            store.health,
		Metrics:           metrics.Handler(reg),
		Currency:          cfg.Currency,
	})

	return &Runtime{
		Service:     svc,
		Router:      router,
		cfg:         cfg,
		logger:      logger,
		loop:        loop,
		rateLimiter: rateLimiter,
		expiryJob:   expiry.NewJob(svc, logger),
		storage:     store,
	}, nil
}

// Start はリアクションループとセッション期限確認ジョブを起動し、保存済みセッションを復元する。
// プロフィールの再取得に失敗しても起動は継続する。
func (rt *Runtime) Start(ctx context.Context) error {
	rt.started = true
	go rt.loop.Run(ctx)

	if err := rt.Service.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}

	go rt.expiryJob.Start(ctx, rt.cfg.SessionCheckInterval)
	return nil
}

// Close はバックグラウンド処理を停止し、ストレージを解放する。
// Startを呼んだ場合は、先にStartへ渡したコンテキストをキャンセルすること。
// リアクションループの停止を待ってからストレージを閉じる。
func (rt *Runtime) Close() error {
	rt.rateLimiter.Stop()
	rt.Service.Close()
	if rt.started {
		<-rt.loop.Done()
	}
	return rt.storage.close()
}

func newAPIClient(name string, cfg *config.Config, recorder apiclient.Recorder, logger *slog.Logger) (*apiclient.Client, error) {
	client, err := apiclient.New(apiclient.Options{
		Name:          name,
		BaseURL:       cfg.APIURL,
		Timeout:       cfg.APITimeout,
		RatePerSecond: cfg.APIRateLimit,
		Recorder:      recorder,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s api client: %w", name, err)
	}
	return client, nil
}
