package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/voxly/internal/auth"
	"github.com/hitoshi/voxly/internal/billing"
	"github.com/hitoshi/voxly/internal/catalog"
	"github.com/hitoshi/voxly/internal/checkout"
	"github.com/hitoshi/voxly/internal/config"
	"github.com/hitoshi/voxly/internal/database"
	"github.com/hitoshi/voxly/internal/handler"
	"github.com/hitoshi/voxly/internal/logger"
	"github.com/hitoshi/voxly/internal/metrics"
	"github.com/hitoshi/voxly/internal/middleware"
	"github.com/hitoshi/voxly/internal/profile"
	"github.com/hitoshi/voxly/internal/repository"
	"github.com/hitoshi/voxly/internal/security"
	"github.com/hitoshi/voxly/internal/session"
	"github.com/hitoshi/voxly/internal/synthesis"
	"github.com/hitoshi/voxly/internal/view"
	"github.com/hitoshi/voxly/internal/worker/cleanup"
)

const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envを読み込む（既存の環境変数が優先）
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("docstore", cfg.DocstoreDriver),
		slog.String("session_store", cfg.SessionStore),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// stores は起動時に開いた外部ストアと、その後始末・疎通確認をまとめたもの。
type stores struct {
	documents repository.DocumentStore
	sessions  repository.SessionRepository
	db        *sql.DB // Postgresを使用しない構成ではnil
	checks    []handler.HealthCheck
	closers   []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("failed to close store", slog.String("error", err.Error()))
		}
	}
}

// openStores は設定されたドライバーに従って文書ストアとセッションストアを開く。
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}

	if cfg.DocstoreDriver == config.StorePostgres || cfg.SessionStore == config.StorePostgres {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.closers = append(s.closers, db.Close)

		if err := db.PingContext(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established")

		s.db = db
		s.checks = append(s.checks, handler.HealthCheck{Name: "database", Ping: db.PingContext})
	}

	switch cfg.DocstoreDriver {
	case config.StoreFirestore:
		client, err := database.OpenFirestore(ctx, database.FirestoreConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.GoogleApplicationCredentials,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		s.documents = repository.NewFirestoreDocumentRepo(client, cfg.DocstoreDatabaseID)
		slog.Info("firestore client initialized", slog.String("project_id", cfg.FirebaseProjectID))
	default:
		s.documents = repository.NewPostgresDocumentRepo(s.db, cfg.DocstoreDatabaseID)
	}

	switch cfg.SessionStore {
	case config.StoreRedis:
		client, err := database.OpenRedis(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		s.sessions = repository.NewRedisSessionRepo(client)
		s.checks = append(s.checks, handler.HealthCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
		slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
	default:
		s.sessions = repository.NewPostgresSessionRepo(s.db)
	}

	return s, nil
}

// runServe はWebサーバーモードで起動する。
// ストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. ストアの初期化
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc := metrics.NewCollector(reg)

	// 3. 認証・プロフィール
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, st.sessions,
		auth.NewTokenIssuer(cfg.SessionSecret, cfg.TokenTTL),
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	profiles := profile.NewService(st.documents, cfg.ProfileCollectionID, mc)

	// 4. 音声合成
	registry := synthesis.NewRegistry(synthesis.RegistryConfig{IdleTTL: cfg.WorkspaceIdleTTL})
	defer registry.Stop()

	synthesisService := synthesis.NewService(
		synthesis.NewClient(synthesis.ClientConfig{
			Endpoint: cfg.SynthesisURL,
			Timeout:  cfg.SynthesisTimeout,
		}),
		registry,
		synthesis.ServiceConfig{HistoryMax: cfg.AudioHistoryMax},
		mc,
	)

	sessions := session.NewProvider(authService, profiles, synthesisService)

	// 5. カタログ
	sanitizer := security.NewCatalogSanitizer()
	owned := catalog.New(catalog.OwnedSource(cfg.UserModelsCollectionID), st.documents, sanitizer, mc)
	public := catalog.New(catalog.PublicSource(cfg.PublicModelsCollectionID), st.documents, sanitizer, mc)

	// 6. 課金
	billingService := billing.NewService(
		authService,
		billing.NewCheckoutClient(billing.CheckoutClientConfig{
			Endpoint: cfg.CheckoutURL,
			Timeout:  cfg.CheckoutTimeout,
		}),
		mc,
	)

	var checkoutCreator handler.CheckoutSessionCreator
	if cfg.StripeSecretKey != "" {
		checkoutCreator = checkout.NewService(
			checkout.NewStripeSessionCreator(cfg.StripeSecretKey),
			checkout.Config{
				SuccessURL: cfg.BaseURL + "/profile",
				CancelURL:  cfg.BaseURL + "/pricing",
			},
		)
	} else {
		slog.Warn("STRIPE_SECRET_KEY is not set; checkout session endpoint is disabled")
	}

	// 7. 期限切れセッションの削除（RedisはTTLで失効する）
	if repo, ok := st.sessions.(cleanup.ExpiredSessionDeleter); ok {
		go cleanup.NewCleanupJob(repo, slog.Default()).Start(ctx)
	}

	// 8. ルーターの構築
	renderer, err := view.New()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(cfg.RateLimitSynthesis))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:          slog.Default(),
		Metrics:         mc,
		MetricsGatherer: reg,

		StateResolver:     sessions,
		RateLimiter:       rateLimiter,
		CookieSecure:      cfg.CookieSecure,
		CookieDomain:      cfg.CookieDomain,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,

		Renderer:      renderer,
		StaticHandler: view.StaticHandler(),
		OwnedCatalog:  owned,
		PublicCatalog: public,
		Synthesis:     synthesisService,
		Subscriber:    billingService,

		AuthService: authService,
		Sessions:    sessions,
		AuthConfig: handler.AuthHandlerConfig{
			SuccessURL:    cfg.OAuthSuccessURL,
			FailureURL:    cfg.OAuthFailureURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		TokenVerifier: authService,
		Checkout:      checkoutCreator,

		HealthChecks: st.checks,
	})

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// 合成エンドポイントの応答待ちを含む
		WriteTimeout: cfg.SynthesisTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
