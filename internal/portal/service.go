// Package portal は管理ポータルへの設定リンク発行を提供する。
package portal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/msgboard/internal/model"
)

// 既知のintent。未知のintentも拒否せず、検証はプロバイダーに委ねる。
const (
	IntentSSO                = "sso"
	IntentDirectorySync      = "dsync"
	IntentDomainVerification = "domain_verification"
	IntentAuditLogs          = "audit_logs"
)

// OrganizationResolver はユーザーに対応する組織を解決するインターフェース。
// orgs.Registryが実装する。
type OrganizationResolver interface {
	GetOrCreate(ctx context.Context, user *model.User) (*model.Organization, error)
}

// LinkGenerator はポータルリンク生成に必要なプロバイダー操作のインターフェース。
// identity.Providerの部分集合として定義する。
type LinkGenerator interface {
	GeneratePortalLink(ctx context.Context, organizationID, intent, returnURL string) (string, error)
}

// Service は管理ポータルリンクの発行を行う。
// リンクはプロバイダー発行の短命URL（contract上5分有効）で、
// bearer credential相当として扱い、保存もフル値のログ出力も行わない。
type Service struct {
	orgs      OrganizationResolver
	generator LinkGenerator
	returnURL string
}

// NewService はServiceを生成する。
// returnURLはポータルでの設定完了後にユーザーを戻す固定URL。
func NewService(orgs OrganizationResolver, generator LinkGenerator, returnURL string) *Service {
	return &Service{
		orgs:      orgs,
		generator: generator,
		returnURL: returnURL,
	}
}

// IssueLink はユーザーの組織を解決（必要なら作成）し、
// 指定intentの管理ポータルリンクを発行する。
// リンクはそのまま返し、フォールバックの生成は行わない。
func (s *Service) IssueLink(ctx context.Context, user *model.User, intent string) (string, error) {
	org, err := s.orgs.GetOrCreate(ctx, user)
	if err != nil {
		return "", fmt.Errorf("failed to resolve organization: %w", err)
	}

	link, err := s.generator.GeneratePortalLink(ctx, org.ID, intent, s.returnURL)
	if err != nil {
		return "", fmt.Errorf("failed to generate portal link: %w", err)
	}

	// リンク値自体はbearer credentialのためログに出さない
	slog.Info("portal link issued",
		slog.String("user_id", user.ID),
		slog.String("organization_id", org.ID),
		slog.String("intent", intent),
	)

	return link, nil
}
