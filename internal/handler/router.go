package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRF              middleware.CSRFConfig
	Logger            *slog.Logger

	// サービス
	Auth     AuthServiceInterface
	Products ProductServiceInterface
	Cart     CartServiceInterface
	Events   EventSource

	// 運用
	Health         HealthChecker
	Metrics        http.Handler
	Currency       string
	EventHeartbeat time.Duration
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders → CORS → RateLimit(General) → CSRF
//
// /health と /metrics はAPIミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))

	r.Get("/health", NewHealthHandler(deps.Health))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	authHandler := NewAuthHandler(deps.Auth)
	productHandler := NewProductHandler(deps.Products, deps.Currency)
	cartHandler := NewCartHandler(deps.Cart, deps.Currency)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewSecurityHeadersMiddleware())
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				// ログイン・登録は認証専用レート制限を追加
				if deps.RateLimiter != nil {
					r.Use(deps.RateLimiter.AuthMiddleware())
				}
				r.Post("/login", authHandler.Login)
				r.Post("/register", authHandler.Register)
			})
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		// 商品
		r.Get("/products", productHandler.List)
		r.Get("/products/{id}", productHandler.Get)

		// カート
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.Get)
			r.Delete("/", cartHandler.Clear)
			r.Post("/items", cartHandler.AddItem)
			r.Route("/items/{id}", func(r chi.Router) {
				r.Get("/", cartHandler.GetItem)
				r.Put("/", cartHandler.UpdateItem)
				r.Delete("/", cartHandler.RemoveItem)
			})
		})

		if deps.Events != nil {
			eventsHandler := NewEventsHandler(deps.Events, deps.EventHeartbeat, logger)
			r.Get("/events", eventsHandler.Stream)
		}
	})

	return r
}
