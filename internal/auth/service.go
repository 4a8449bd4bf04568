// Package auth は認証フローとセッションゲートのビジネスロジックを提供する。
//
// セッションの実体（発行・封印・検証・リフレッシュ）はすべて外部IDプロバイダーが
// 所有する。このパッケージはリクエストごとの状態機械のみを実装する:
// 有効 → 認証済み、無効 → 1回だけリフレッシュ試行、
// リフレッシュ失敗またはプロバイダー障害 → 終端（Cookie破棄）。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/msgboard/internal/identity"
	"github.com/hitoshi/msgboard/internal/model"
)

// ErrSessionTerminal はセッションが回復不能であることを示す。
// 呼び出し側はCookieを破棄し、未認証として扱う必要がある。
var ErrSessionTerminal = errors.New("session is terminally invalid")

// リフレッシュ結果のメトリクスラベル。
const (
	RefreshOutcomeSuccess  = "success"
	RefreshOutcomeRejected = "rejected"
)

// RefreshRecorder はセッションリフレッシュの成否を記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type RefreshRecorder interface {
	RecordSessionRefresh(outcome string)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	provider identity.Provider
	recorder RefreshRecorder // nilの場合は記録しない
}

// NewService はServiceを生成する。
func NewService(provider identity.Provider, recorder RefreshRecorder) *Service {
	return &Service{
		provider: provider,
		recorder: recorder,
	}
}

// LoginURL はプロバイダーのホステッドログイン画面への認可URLを返す。
func (s *Service) LoginURL(state string) string {
	return s.provider.AuthorizationURL(state)
}

// HandleCallback は認可コードをセッションに交換する。
// 返却されるsealed sessionをそのままセッションCookieに格納する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*identity.SessionAuth, error) {
	sa, err := s.provider.AuthenticateWithCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to handle callback: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", sa.User.ID),
	)

	return sa, nil
}

// AuthenticateSession はsealed cookieの値を検証し、認証済みユーザーを返す。
//
// 検証に失敗した場合はちょうど1回だけリフレッシュを試みる。
// リフレッシュに成功した場合、第2戻り値に新しいsealed sessionを返すので、
// 呼び出し側はCookieを書き換える必要がある。
// リフレッシュの失敗・拒否、およびプロバイダー障害はすべて終端として扱い、
// ErrSessionTerminalをラップしたエラーを返す。それ以上の再試行は行わない。
func (s *Service) AuthenticateSession(ctx context.Context, sealed string) (*model.User, string, error) {
	user, err := s.provider.AuthenticateWithSession(ctx, sealed)
	if err == nil {
		return user, "", nil
	}

	// 検証失敗の理由は問わず、1回だけリフレッシュを試みる
	refreshed, refreshErr := s.provider.RefreshSession(ctx, sealed)
	if refreshErr != nil {
		s.recordRefresh(RefreshOutcomeRejected)
		slog.Warn("session refresh failed",
			slog.String("error", refreshErr.Error()),
		)
		return nil, "", fmt.Errorf("session could not be refreshed: %w", ErrSessionTerminal)
	}

	s.recordRefresh(RefreshOutcomeSuccess)
	slog.Info("session refreshed",
		slog.String("user_id", refreshed.User.ID),
	)

	return refreshed.User, refreshed.SealedSession, nil
}

// LogoutURL はプロバイダー側セッションも破棄するログアウトURLを取得する。
func (s *Service) LogoutURL(ctx context.Context, sealed string) (string, error) {
	url, err := s.provider.LogoutURL(ctx, sealed)
	if err != nil {
		return "", fmt.Errorf("failed to get logout url: %w", err)
	}
	return url, nil
}

func (s *Service) recordRefresh(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordSessionRefresh(outcome)
	}
}

// GenerateState はOAuthフローのCSRF対策用stateを生成する。
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
