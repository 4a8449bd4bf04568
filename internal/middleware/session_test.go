package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/msgboard/internal/model"
)

// --- モック定義 ---

type mockSessionAuthenticator struct {
	authenticateFn func(ctx context.Context, sealed string) (*model.User, string, error)
}

func (m *mockSessionAuthenticator) AuthenticateSession(ctx context.Context, sealed string) (*model.User, string, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, sealed)
	}
	return nil, "", errors.New("not implemented")
}

func testCookieConfig() CookieConfig {
	return CookieConfig{Secure: false, MaxAge: 604800}
}

// sessionCookies はレスポンスからセッションCookieのみを抽出するヘルパー。
func sessionCookies(resp *http.Response) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			out = append(out, c)
		}
	}
	return out
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsUser(t *testing.T) {
	authenticator := &mockSessionAuthenticator{
		authenticateFn: func(ctx context.Context, sealed string) (*model.User, string, error) {
			if sealed != "sealed-valid" {
				t.Errorf("sealed = %q, want %q", sealed, "sealed-valid")
			}
			return &model.User{ID: "user-123", Email: "taro@example.com"}, "", nil
		},
	}

	mw := NewSessionMiddleware(authenticator, testCookieConfig())

	var capturedUser *model.User
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := UserFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedUser = user
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sealed-valid"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if capturedUser == nil || capturedUser.ID != "user-123" {
		t.Errorf("capturedUser = %v, want user-123", capturedUser)
	}
	// 有効なセッションではCookieに触れないこと
	if got := sessionCookies(resp); len(got) != 0 {
		t.Errorf("session cookies written = %d, want 0", len(got))
	}
}

func TestSessionMiddleware_NoCookie_Returns401WithoutTouchingCookie(t *testing.T) {
	authenticator := &mockSessionAuthenticator{
		authenticateFn: func(ctx context.Context, sealed string) (*model.User, string, error) {
			t.Fatal("authenticator should not be called without a cookie")
			return nil, "", nil
		},
	}
	mw := NewSessionMiddleware(authenticator, testCookieConfig())

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/messages", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	// Cookieなしの401ではCookie破棄ヘッダーも出さないこと
	if got := sessionCookies(resp); len(got) != 0 {
		t.Errorf("session cookies written = %d, want 0", len(got))
	}
}

func TestSessionMiddleware_EmptyCookie_Returns401(t *testing.T) {
	mw := NewSessionMiddleware(&mockSessionAuthenticator{}, testCookieConfig())

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/messages", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: ""})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_RefreshedSession_RewritesCookie(t *testing.T) {
	authenticator := &mockSessionAuthenticator{
		authenticateFn: func(ctx context.Context, sealed string) (*model.User, string, error) {
			return &model.User{ID: "user-123"}, "sealed-refreshed", nil
		},
	}
	mw := NewSessionMiddleware(authenticator, testCookieConfig())

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/organization", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sealed-expired"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// リフレッシュ成功時は新しいsealed sessionでCookieが1回だけ書き換わること
	cookies := sessionCookies(resp)
	if len(cookies) != 1 {
		t.Fatalf("session cookies written = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Value != "sealed-refreshed" {
		t.Errorf("cookie value = %q, want %q", c.Value, "sealed-refreshed")
	}
	if !c.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie SameSite = %v, want Lax", c.SameSite)
	}
}

func TestSessionMiddleware_TerminalSession_ClearsCookieAndReturns401(t *testing.T) {
	authenticator := &mockSessionAuthenticator{
		authenticateFn: func(ctx context.Context, sealed string) (*model.User, string, error) {
			return nil, "", errors.New("session could not be refreshed")
		},
	}
	mw := NewSessionMiddleware(authenticator, testCookieConfig())

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/messages", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sealed-dead"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	// 終端状態ではCookieを破棄すること
	cookies := sessionCookies(resp)
	if len(cookies) != 1 {
		t.Fatalf("session cookies written = %d, want 1", len(cookies))
	}
	if cookies[0].Value != "" || cookies[0].MaxAge >= 0 {
		t.Errorf("cookie should be cleared, got value=%q maxAge=%d", cookies[0].Value, cookies[0].MaxAge)
	}
}

func TestUserFromContext_NoValue_ReturnsError(t *testing.T) {
	_, err := UserFromContext(context.Background())
	if err == nil {
		t.Error("expected error for missing user in context")
	}
}

func TestUserFromContext_ValidValue_ReturnsUser(t *testing.T) {
	want := &model.User{ID: "user-456"}
	ctx := ContextWithUser(context.Background(), want)

	user, err := UserFromContext(ctx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if user.ID != "user-456" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-456")
	}
}
