// Package orgs は認証済みユーザーと組織の対応を管理する。
package orgs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/msgboard/internal/model"
)

// fallbackDomain はメールアドレスからドメインを導出できない場合に使用する。
const fallbackDomain = "example.com"

// OrganizationCreator は組織作成に必要なプロバイダー操作のインターフェース。
// identity.Providerの部分集合として定義する。
type OrganizationCreator interface {
	CreateOrganization(ctx context.Context, name, domain string) (*model.Organization, error)
}

// Registry はユーザーIDから組織へのプロセスメモリ上のマッピング。
// 組織は初回アクセス時に遅延作成し、実際の作成はプロバイダーに委譲する。
// 1プロセス内でユーザーIDごとに高々1つの組織しか作成しない。
// 永続化しないため、再起動すると組織は再作成される（既知の制限）。
type Registry struct {
	creator OrganizationCreator

	// GetOrCreate全体をロックで覆うことで、同一ユーザーの並行リクエストが
	// プロバイダー上に組織を二重作成しないことを保証する。
	mu   sync.Mutex
	byID map[string]*model.Organization
}

// NewRegistry はRegistryを生成する。
func NewRegistry(creator OrganizationCreator) *Registry {
	return &Registry{
		creator: creator,
		byID:    make(map[string]*model.Organization),
	}
}

// GetOrCreate はユーザーに対応する組織を返す。
// 登録済みの場合はそのレコードを返す（冪等）。未登録の場合は
// ユーザープロフィールからデフォルトの組織名とドメインを導出し、
// プロバイダーに作成を依頼する。マッピングへの書き込みは
// プロバイダー応答の成功後にのみ行い、失敗時に部分状態を残さない。
func (r *Registry) GetOrCreate(ctx context.Context, user *model.User) (*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if org, ok := r.byID[user.ID]; ok {
		return org, nil
	}

	org, err := r.creator.CreateOrganization(ctx, defaultName(user), domainFromEmail(user.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to create organization for user %s: %w", user.ID, err)
	}

	r.byID[user.ID] = org

	slog.Info("organization created",
		slog.String("user_id", user.ID),
		slog.String("organization_id", org.ID),
	)

	return org, nil
}

// Count は現在登録されている組織数を返す。テストおよびメトリクス用。
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// defaultName はユーザーのファーストネームからデフォルトの組織名を導出する。
func defaultName(user *model.User) string {
	if user.FirstName != "" {
		return user.FirstName + "'s Organization"
	}
	return "My Organization"
}

// domainFromEmail はメールアドレスのホスト部をドメインとして返す。
func domainFromEmail(email string) string {
	idx := strings.LastIndex(email, "@")
	if idx < 0 || idx == len(email)-1 {
		return fallbackDomain
	}
	return email[idx+1:]
}
