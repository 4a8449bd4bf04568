package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/msgboard/internal/model"
)

const (
	defaultWorkOSAPIURL = "https://api.workos.com"

	// authkitプロバイダー指定でWorkOSのホステッドログイン画面を使用する。
	authkitProvider = "authkit"
)

// CallRecorder はプロバイダー呼び出しのメトリクスを記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type CallRecorder interface {
	RecordProviderCall(operation string, err error, duration time.Duration)
}

// WorkOSConfig はWorkOSクライアントの設定。
type WorkOSConfig struct {
	APIKey         string
	ClientID       string
	CookiePassword string
	RedirectURL    string

	// テスト用にオーバーライド可能なAPIベースURL
	APIURL string

	// プロバイダー呼び出しの計測。nilの場合は記録しない。
	Recorder CallRecorder
}

// WorkOSProvider はWorkOS User Management APIへの薄いHTTPクライアント。
// sealed sessionの暗号処理は一切行わず、cookie passwordとともに
// プロバイダーへ渡すのみ。
type WorkOSProvider struct {
	config WorkOSConfig
	client *http.Client
}

// NewWorkOSProvider はWorkOSProviderを生成する。
func NewWorkOSProvider(config WorkOSConfig) *WorkOSProvider {
	if config.APIURL == "" {
		config.APIURL = defaultWorkOSAPIURL
	}
	return &WorkOSProvider{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizationURL はWorkOSのホステッド認可URLを生成する。
func (p *WorkOSProvider) AuthorizationURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"provider":      {authkitProvider},
		"state":         {state},
	}
	return p.config.APIURL + "/user_management/authorize?" + params.Encode()
}

// workosUser はWorkOSのユーザー情報レスポンス。
type workosUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified bool   `json:"email_verified"`
}

func (u *workosUser) toModel() *model.User {
	return &model.User{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}

// authenticateResponse は認証系エンドポイント共通のレスポンス。
type authenticateResponse struct {
	Authenticated bool        `json:"authenticated"`
	Reason        string      `json:"reason"`
	User          *workosUser `json:"user"`
	SealedSession string      `json:"sealed_session"`
}

// AuthenticateWithCode は認可コードをsealed sessionに交換する。
// セッションの封印はプロバイダー側で行われる（seal_session: true）。
func (p *WorkOSProvider) AuthenticateWithCode(ctx context.Context, code string) (*SessionAuth, error) {
	reqBody := map[string]any{
		"client_id":     p.config.ClientID,
		"client_secret": p.config.APIKey,
		"grant_type":    "authorization_code",
		"code":          code,
		"session": map[string]any{
			"seal_session":    true,
			"cookie_password": p.config.CookiePassword,
		},
	}

	var resp authenticateResponse
	if err := p.doJSON(ctx, "authenticate_with_code", http.MethodPost, "/user_management/authenticate", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if resp.User == nil || resp.SealedSession == "" {
		return nil, fmt.Errorf("authenticate response is missing user or sealed session")
	}

	return &SessionAuth{
		User:          resp.User.toModel(),
		SealedSession: resp.SealedSession,
	}, nil
}

// AuthenticateWithSession はsealed sessionを検証する。
// プロバイダーがauthenticated=falseを返した場合はErrSessionInvalidを
// ラップしたエラーを返す（リフレッシュ試行の判断に使用する）。
func (p *WorkOSProvider) AuthenticateWithSession(ctx context.Context, sealed string) (*model.User, error) {
	reqBody := map[string]any{
		"session_data":    sealed,
		"cookie_password": p.config.CookiePassword,
	}

	var resp authenticateResponse
	if err := p.doJSON(ctx, "authenticate_with_session", http.MethodPost, "/user_management/sessions/authenticate", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to authenticate session: %w", err)
	}

	if !resp.Authenticated || resp.User == nil {
		return nil, fmt.Errorf("session rejected (reason=%s): %w", resp.Reason, ErrSessionInvalid)
	}

	return resp.User.toModel(), nil
}

// RefreshSession は期限切れセッションのリフレッシュを試みる。
// 拒否された場合はErrRefreshRejectedをラップしたエラーを返す。
func (p *WorkOSProvider) RefreshSession(ctx context.Context, sealed string) (*SessionAuth, error) {
	reqBody := map[string]any{
		"client_id":       p.config.ClientID,
		"session_data":    sealed,
		"cookie_password": p.config.CookiePassword,
	}

	var resp authenticateResponse
	if err := p.doJSON(ctx, "refresh_session", http.MethodPost, "/user_management/sessions/refresh", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	if !resp.Authenticated || resp.User == nil || resp.SealedSession == "" {
		return nil, fmt.Errorf("refresh rejected (reason=%s): %w", resp.Reason, ErrRefreshRejected)
	}

	return &SessionAuth{
		User:          resp.User.toModel(),
		SealedSession: resp.SealedSession,
	}, nil
}

// logoutURLResponse はログアウトURL取得エンドポイントのレスポンス。
type logoutURLResponse struct {
	URL string `json:"url"`
}

// LogoutURL はプロバイダー側セッションを破棄するログアウトURLを取得する。
func (p *WorkOSProvider) LogoutURL(ctx context.Context, sealed string) (string, error) {
	reqBody := map[string]any{
		"session_data":    sealed,
		"cookie_password": p.config.CookiePassword,
	}

	var resp logoutURLResponse
	if err := p.doJSON(ctx, "logout_url", http.MethodPost, "/user_management/sessions/logout_url", reqBody, &resp); err != nil {
		return "", fmt.Errorf("failed to get logout url: %w", err)
	}

	if resp.URL == "" {
		return "", fmt.Errorf("empty logout url in response")
	}

	return resp.URL, nil
}

// workosOrganization は組織作成エンドポイントのレスポンス。
type workosOrganization struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Domains []struct {
		Domain string `json:"domain"`
		State  string `json:"state"`
	} `json:"domains"`
}

// CreateOrganization はWorkOS上に組織を作成する。
// ドメインは検証保留（pending）状態で登録される。
func (p *WorkOSProvider) CreateOrganization(ctx context.Context, name, domain string) (*model.Organization, error) {
	reqBody := map[string]any{
		"name": name,
		"domain_data": []map[string]string{
			{"domain": domain, "state": model.DomainStatePending},
		},
	}

	var resp workosOrganization
	if err := p.doJSON(ctx, "create_organization", http.MethodPost, "/organizations", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	if resp.ID == "" {
		return nil, fmt.Errorf("empty organization id in response")
	}

	org := &model.Organization{
		ID:      resp.ID,
		Name:    resp.Name,
		Domains: make([]model.OrganizationDomain, 0, len(resp.Domains)),
	}
	for _, d := range resp.Domains {
		org.Domains = append(org.Domains, model.OrganizationDomain{
			Domain: d.Domain,
			State:  d.State,
		})
	}

	return org, nil
}

// portalLinkResponse はポータルリンク生成エンドポイントのレスポンス。
type portalLinkResponse struct {
	Link string `json:"link"`
}

// GeneratePortalLink は管理ポータルへの短命リンク（有効期間5分）を生成する。
// intentはプロバイダーが検証するためそのまま透過する。
func (p *WorkOSProvider) GeneratePortalLink(ctx context.Context, organizationID, intent, returnURL string) (string, error) {
	reqBody := map[string]any{
		"organization": organizationID,
		"intent":       intent,
		"return_url":   returnURL,
	}

	var resp portalLinkResponse
	if err := p.doJSON(ctx, "generate_portal_link", http.MethodPost, "/portal/generate_link", reqBody, &resp); err != nil {
		return "", fmt.Errorf("failed to generate portal link: %w", err)
	}

	if resp.Link == "" {
		return "", fmt.Errorf("empty link in response")
	}

	return resp.Link, nil
}

// doJSON はJSONリクエストを送信し、JSONレスポンスをoutにデコードする。
// 非2xxレスポンスはエラーとして返す。呼び出しの所要時間と成否をRecorderに記録する。
func (p *WorkOSProvider) doJSON(ctx context.Context, operation, method, path string, reqBody any, out any) (err error) {
	if p.config.Recorder != nil {
		start := time.Now()
		defer func() {
			p.config.Recorder.RecordProviderCall(operation, err, time.Since(start))
		}()
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.APIURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// compile-time interface check
var _ Provider = (*WorkOSProvider)(nil)
