package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/msgboard/internal/auth"
	"github.com/hitoshi/msgboard/internal/identity"
	"github.com/hitoshi/msgboard/internal/middleware"
	"github.com/hitoshi/msgboard/internal/model"
)

// oauthStateCookie はOAuthフローのCSRF対策用stateを保持するCookieの名前。
const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	LoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*identity.SessionAuth, error)
	AuthenticateSession(ctx context.Context, sealed string) (*model.User, string, error)
	LogoutURL(ctx context.Context, sealed string) (string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// ClientOrigin はログイン完了後・ログアウト失敗時のリダイレクト先
	// （SPAフロントエンドのオリジン）。
	ClientOrigin string
	Cookie       middleware.CookieConfig
}

// AuthHandler はホステッド認証フロー関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// Login はプロバイダーのホステッドログイン画面へリダイレクトする。
// GET /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.LoginURL(state), http.StatusTemporaryRedirect)
}

// Callback は認可コードをセッションに交換し、sealed sessionをCookieに設定する。
// GET /callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingAuthCodeError())
		return
	}

	// 2. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	// 3. 認可コードをセッションに交換
	sa, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("callback failed", slog.String("error", err.Error()))
		middleware.WriteUpstreamFailureError(w)
		return
	}

	// 4. sealed sessionをHTTP Only Cookieに設定
	middleware.SetSessionCookie(w, h.config.Cookie, sa.SealedSession)

	// 5. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.ClientOrigin, http.StatusTemporaryRedirect)
}

// Logout はセッションCookieを破棄し、プロバイダーのログアウトURLへリダイレクトする。
// プロバイダー呼び出しに失敗した場合はフロントエンドへリダイレクトする。
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	redirectTo := h.config.ClientOrigin

	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		url, logoutErr := h.service.LogoutURL(r.Context(), cookie.Value)
		if logoutErr != nil {
			slog.Error("failed to get logout url", slog.String("error", logoutErr.Error()))
			// ログアウトURL取得に失敗してもCookieはクリアし、フロントエンドへ戻す
		} else {
			redirectTo = url
		}
	}

	middleware.ClearSessionCookie(w, h.config.Cookie)
	http.Redirect(w, r, redirectTo, http.StatusTemporaryRedirect)
}

// User は現在のログインユーザー情報を返す。
// 未認証・セッション無効の場合もエラーにせず、userをnullとして200を返す。
// セッションがリフレッシュされた場合はCookieを書き換える。
// GET /user
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		json.NewEncoder(w).Encode(map[string]any{"user": nil})
		return
	}

	user, newSealed, err := h.service.AuthenticateSession(r.Context(), cookie.Value)
	if err != nil {
		// 終端状態: Cookieを破棄して未認証として応答する
		middleware.ClearSessionCookie(w, h.config.Cookie)
		json.NewEncoder(w).Encode(map[string]any{"user": nil})
		return
	}

	if newSealed != "" {
		middleware.SetSessionCookie(w, h.config.Cookie, newSealed)
	}

	json.NewEncoder(w).Encode(map[string]any{"user": user})
}
