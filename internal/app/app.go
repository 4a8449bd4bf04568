// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/msgboard/internal/auth"
	"github.com/hitoshi/msgboard/internal/config"
	"github.com/hitoshi/msgboard/internal/handler"
	"github.com/hitoshi/msgboard/internal/identity"
	"github.com/hitoshi/msgboard/internal/logger"
	"github.com/hitoshi/msgboard/internal/metrics"
	"github.com/hitoshi/msgboard/internal/middleware"
	"github.com/hitoshi/msgboard/internal/orgs"
	"github.com/hitoshi/msgboard/internal/portal"
	"github.com/hitoshi/msgboard/internal/security"
	"github.com/hitoshi/msgboard/internal/store"
)

// sessionCookieMaxAge はセッションCookieの有効期間（秒）。
// セッション自体の失効はプロバイダーが管理するため、Cookie側は長めに保持し、
// 失効済みセッションはゲートのリフレッシュ・破棄処理に委ねる。
const sessionCookieMaxAge = 7 * 24 * 60 * 60

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. IDプロバイダークライアントの初期化
	provider := identity.NewWorkOSProvider(identity.WorkOSConfig{
		APIKey:         cfg.WorkOSAPIKey,
		ClientID:       cfg.WorkOSClientID,
		CookiePassword: cfg.WorkOSCookiePassword,
		RedirectURL:    cfg.RedirectURL(),
		APIURL:         cfg.WorkOSAPIURL,
		Recorder:       collector,
	})

	// 3. ドメインサービスの初期化
	authService := auth.NewService(provider, collector)
	messageStore := store.NewMessageStore()
	sanitizer := security.NewMessageSanitizer()
	registryService := orgs.NewRegistry(provider)
	portalService := portal.NewService(registryService, provider, cfg.ClientOrigin)

	// 4. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.GeneralRate = rateLimitPerSecond(cfg.RateLimitGeneral)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitPortal > 0 {
		rateLimiterCfg.PortalRate = rateLimitPerSecond(cfg.RateLimitPortal)
		rateLimiterCfg.PortalBurst = cfg.RateLimitPortal
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	cookieConfig := middleware.CookieConfig{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
		MaxAge: sessionCookieMaxAge,
	}

	deps := &handler.RouterDeps{
		ClientOrigin: cfg.ClientOrigin,
		RateLimiter:  rateLimiter,
		Logger:       slog.Default(),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			ClientOrigin: cfg.ClientOrigin,
			Cookie:       cookieConfig,
		},

		MessageStore: messageStore,
		Sanitizer:    sanitizer,

		Registry:      registryService,
		PortalService: portalService,

		Collector: collector,
		Gatherer:  registry,
	}

	router := handler.NewRouter(deps)

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
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

// rateLimitPerSecond はreq/min単位の設定値をreq/sec単位のrate.Limitに変換する。
func rateLimitPerSecond(perMinute int) rate.Limit {
	return rate.Limit(float64(perMinute) / 60.0)
}
