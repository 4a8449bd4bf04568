// Package identity は外部IDプロバイダー（WorkOS）との連携を提供する。
//
// セッションの発行・封印・検証・リフレッシュはすべてプロバイダーのホステッド
// サービスが所有する。このパッケージはsealed sessionを不透明なバイト列として
// 扱い、検証やリフレッシュのたびにプロバイダーへ問い合わせる薄いクライアント。
package identity

import (
	"context"
	"errors"

	"github.com/hitoshi/msgboard/internal/model"
)

// SessionAuth は認証成功時にプロバイダーから返される結果を表す。
// SealedSessionはプロバイダーのみが復号できる不透明なトークンで、
// そのままHTTP Only Cookieに格納する。
type SessionAuth struct {
	User          *model.User
	SealedSession string
}

var (
	// ErrSessionInvalid はsealed sessionが検証に失敗したことを示す。
	// リフレッシュによって回復できる可能性がある。
	ErrSessionInvalid = errors.New("session is invalid")
	// ErrRefreshRejected はプロバイダーがリフレッシュを拒否したことを示す。
	// このセッションは終端状態であり、Cookieを破棄する必要がある。
	ErrRefreshRejected = errors.New("session refresh rejected")
)

// Provider は外部IDプロバイダーが公開する操作のインターフェース。
// テストではネットワークアクセスなしでプロバイダー応答を模倣できるよう、
// 利用側はこのインターフェースに依存する。
type Provider interface {
	// AuthorizationURL はホステッドログイン画面への認可URLを生成する。
	AuthorizationURL(state string) string
	// AuthenticateWithCode は認可コードをセッションに交換する。
	AuthenticateWithCode(ctx context.Context, code string) (*SessionAuth, error)
	// AuthenticateWithSession はsealed sessionを検証し、ユーザーを返す。
	// 検証失敗時はErrSessionInvalidをラップしたエラーを返す。
	AuthenticateWithSession(ctx context.Context, sealed string) (*model.User, error)
	// RefreshSession は期限切れセッションのリフレッシュを試みる。
	// 成功時は新しいsealed sessionを含むSessionAuthを返す。
	RefreshSession(ctx context.Context, sealed string) (*SessionAuth, error)
	// LogoutURL はプロバイダー側のセッションも破棄するログアウトURLを返す。
	LogoutURL(ctx context.Context, sealed string) (string, error)
	// CreateOrganization はプロバイダー上に組織を作成する。
	// domainは検証保留状態（pending）で登録される。
	CreateOrganization(ctx context.Context, name, domain string) (*model.Organization, error)
	// GeneratePortalLink は組織の管理ポータルへの短命リンクを生成する。
	// リンクの有効期間はプロバイダーのcontract上5分。
	GeneratePortalLink(ctx context.Context, organizationID, intent, returnURL string) (string, error)
}
