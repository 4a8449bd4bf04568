// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/msgboard/internal/model"
)

// SessionCookieName はsealed sessionを格納するCookieの名前。
// 外部IDプロバイダーのSDK慣例に合わせる。
const SessionCookieName = "wos-session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("authenticated_user")

// CookieConfig はセッションCookieの属性設定。
type CookieConfig struct {
	Secure bool
	Domain string
	MaxAge int // 秒
}

// SessionAuthenticator はセッションゲートが必要とする認証操作のインターフェース。
// auth.Serviceが実装する。第2戻り値はリフレッシュで発行された新しい
// sealed session（リフレッシュが発生しなかった場合は空文字列）。
type SessionAuthenticator interface {
	AuthenticateSession(ctx context.Context, sealed string) (*model.User, string, error)
}

// NewSessionMiddleware はsealed session Cookieを検証するセッションゲートを返す。
//
// リクエストごとの状態遷移:
//   - Cookieなし → 401。Cookieには触れない。
//   - 検証成功 → 認証済みユーザーをコンテキストに注入して続行。
//   - 検証失敗 → authenticatorが1回だけリフレッシュを試みる。
//     成功時は新しいsealed sessionでCookieを書き換えて続行、
//     失敗時はCookieを破棄して401。
func NewSessionMiddleware(authenticator SessionAuthenticator, cookie CookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからsealed sessionを取得
			c, err := r.Cookie(SessionCookieName)
			if err != nil || c.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. セッションを検証（必要なら1回だけリフレッシュ）
			user, newSealed, err := authenticator.AuthenticateSession(r.Context(), c.Value)
			if err != nil {
				slog.Warn("session rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				ClearSessionCookie(w, cookie)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. リフレッシュが発生した場合はCookieを書き換える
			if newSealed != "" {
				SetSessionCookie(w, cookie, newSealed)
			}

			// 4. 認証済みユーザーをコンテキストに注入
			ctx := ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie はsealed sessionをHTTP Only Cookieとして書き込む。
func SetSessionCookie(w http.ResponseWriter, config CookieConfig, sealed string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sealed,
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   config.MaxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを破棄する。
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// セッションゲートを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("authenticated user not found in context")
	}
	return user, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
