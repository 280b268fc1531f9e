package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/voxly/internal/metrics"
	"github.com/hitoshi/voxly/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ロギング・メトリクス
	Logger          *slog.Logger
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer // nilの場合は/metricsを公開しない

	// ミドルウェア依存
	StateResolver     middleware.StateResolver
	RateLimiter       *middleware.RateLimiter
	CookieSecure      bool
	CookieDomain      string
	WorkspaceMaxAge   int
	CORSAllowedOrigin string
	FormMaxBytes      int64 // 0の場合はmiddleware.DefaultFormMaxBytes

	// 画面
	Renderer      PageRenderer
	StaticHandler http.Handler
	OwnedCatalog  CatalogLister
	PublicCatalog CatalogLister
	Synthesis     SynthesisService
	Subscriber    Subscriber

	// 認証
	AuthService AuthServiceInterface
	Sessions    SessionTerminator
	AuthConfig  AuthHandlerConfig

	// 決済セッション作成API。nilの場合はマウントしない
	TokenVerifier TokenVerifier
	Checkout      CheckoutSessionCreator

	// ヘルスチェック
	HealthChecks []HealthCheck
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → Workspace → FormLimit → CSRF → Session
//
// /health, /metrics, /static/* はWorkspace以降を通さない。
// /api/* はCSRFの代わりにCORSと短命トークンで保護する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))

	// --- ブラウザ状態を持たないルート ---

	health := NewHealthHandler(deps.HealthChecks...)
	r.Get("/health", health.Health)

	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}
	if deps.StaticHandler != nil {
		r.Handle("/static/*", deps.StaticHandler)
	}

	if deps.Checkout != nil && deps.TokenVerifier != nil {
		checkoutHandler := NewCheckoutHandler(deps.TokenVerifier, deps.Checkout)
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
			r.Options("/create-checkout-session", func(w http.ResponseWriter, r *http.Request) {})
			r.Post("/create-checkout-session", checkoutHandler.CreateSession)
		})
	}

	// --- 画面ルート ---
	// ミドルウェアスタック: Workspace → FormLimit → CSRF → Session

	browser := chi.Chain(
		middleware.NewWorkspaceMiddleware(middleware.WorkspaceConfig{
			CookieSecure: deps.CookieSecure,
			CookieDomain: deps.CookieDomain,
			MaxAge:       deps.WorkspaceMaxAge,
		}),
		middleware.NewFormLimitMiddleware(deps.FormMaxBytes),
		middleware.NewCSRFMiddleware(middleware.CSRFConfig{
			CookieSecure: deps.CookieSecure,
			CookieDomain: deps.CookieDomain,
		}),
		middleware.NewSessionMiddleware(deps.StateResolver),
	)

	pages := NewPageHandler(deps.Renderer, deps.OwnedCatalog, deps.PublicCatalog)
	tts := NewTTSHandler(deps.Renderer, deps.Synthesis, deps.OwnedCatalog, deps.PublicCatalog)
	pricing := NewPricingHandler(deps.Renderer, deps.Subscriber)
	authHandler := NewAuthHandler(deps.AuthService, deps.Sessions, deps.AuthConfig)

	r.Group(func(r chi.Router) {
		r.Use(browser...)

		r.Get("/", pages.Home)
		r.Get("/about", pages.About)
		r.Get("/contact", pages.Contact)
		r.Get("/login", pages.Login)
		r.Get("/profile", pages.Profile)
		r.Get("/my-models", pages.MyModels)
		r.Get("/browse-models", pages.BrowseModels)
		r.Get("/voice-cloning", pages.VoiceCloning)

		r.Route("/tts", func(r chi.Router) {
			r.Get("/", tts.Show)
			// 合成のみブラウザ単位でレート制限する
			r.With(deps.RateLimiter.SynthesisMiddleware()).Post("/", tts.Submit)
			r.Post("/model", tts.SelectModel)
			r.Get("/audio/{id}", tts.Audio)
		})

		r.Get("/pricing", pricing.Show)
		r.Post("/pricing/subscribe", pricing.Subscribe)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/google/login", authHandler.Login)
			r.Get("/google/callback", authHandler.Callback)
			r.Post("/logout", authHandler.Logout)
			r.With(middleware.NewRequireSignInMiddleware()).Get("/me", authHandler.Me)
		})
	})

	// 404ページにもヘッダーのログイン状態を表示する
	r.NotFound(browser.HandlerFunc(pages.NotFound).ServeHTTP)

	return r
}
