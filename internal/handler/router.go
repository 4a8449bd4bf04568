package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/msgboard/internal/metrics"
	"github.com/hitoshi/msgboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	ClientOrigin string
	RateLimiter  *middleware.RateLimiter
	Logger       *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// メッセージ
	MessageStore MessageStoreInterface
	Sanitizer    MessageSanitizer

	// 組織・管理ポータル
	Registry      OrganizationRegistryInterface
	PortalService PortalServiceInterface

	// メトリクス。nilの場合は計測と/metricsの公開を行わない。
	Collector *metrics.Collector
	Gatherer  prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → RequestID → Logging → Recovery → SecurityHeaders
//
// 認証フロー（/login, /callback, /logout, /user）とメッセージ一覧は公開ルート。
// 変更系メッセージルートと組織・管理ポータルルートはセッションゲートと
// レート制限の内側に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 共通ミドルウェア（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.ClientOrigin))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, statusRecorder(deps.Collector)))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	msgHandler := NewMessageHandler(deps.MessageStore, deps.Sanitizer, messageRecorder(deps.Collector))
	orgHandler := NewOrganizationHandler(deps.Registry, deps.PortalService)

	// --- 認証不要のルート ---

	// 死活監視
	r.Get("/health", handleHealth)

	// Prometheusスクレイプ
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// 認証フロー
	r.Get("/login", authHandler.Login)
	r.Get("/callback", authHandler.Callback)
	r.Get("/logout", authHandler.Logout)
	r.Get("/user", authHandler.User)

	// メッセージ一覧は公開
	r.Get("/api/messages", msgHandler.ListMessages)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: SessionGate → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.AuthService, deps.AuthConfig.Cookie))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// メッセージ変更系
		r.Post("/api/messages", msgHandler.CreateMessage)
		r.Delete("/api/messages/{id}", msgHandler.DeleteMessage)

		// 組織
		r.Get("/api/organization", orgHandler.GetOrganization)

		// 管理ポータルリンク発行（専用レート制限を追加）
		r.With(deps.RateLimiter.PortalLinkMiddleware()).Post("/api/admin-portal", orgHandler.CreatePortalLink)
	})

	return r
}

// handleHealth は死活監視エンドポイント。
// 外部依存を持たないため、プロセスが応答できれば常に200を返す。
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// statusRecorder はCollectorをロギングミドルウェアのインターフェースに変換する。
// Collectorがnilの場合は型付きnilを渡さないようnilを返す。
func statusRecorder(c *metrics.Collector) middleware.StatusRecorder {
	if c == nil {
		return nil
	}
	return c
}

// messageRecorder はCollectorをメッセージハンドラーのインターフェースに変換する。
func messageRecorder(c *metrics.Collector) MessageRecorder {
	if c == nil {
		return nil
	}
	return c
}
