package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/msgboard/internal/middleware"
	"github.com/hitoshi/msgboard/internal/model"
)

// OrganizationRegistryInterface は組織ハンドラーが必要とするレジストリ操作のインターフェース。
type OrganizationRegistryInterface interface {
	// GetOrCreate はユーザーに対応する組織を返す（必要なら作成する）。
	GetOrCreate(ctx context.Context, user *model.User) (*model.Organization, error)
}

// PortalServiceInterface はポータルリンク発行のインターフェース。
type PortalServiceInterface interface {
	// IssueLink は指定intentの管理ポータルリンクを発行する。
	IssueLink(ctx context.Context, user *model.User, intent string) (string, error)
}

// OrganizationHandler は組織・管理ポータル関連のHTTPハンドラー。
type OrganizationHandler struct {
	registry OrganizationRegistryInterface
	portal   PortalServiceInterface
}

// NewOrganizationHandler はOrganizationHandlerを生成する。
func NewOrganizationHandler(registry OrganizationRegistryInterface, portal PortalServiceInterface) *OrganizationHandler {
	return &OrganizationHandler{
		registry: registry,
		portal:   portal,
	}
}

// adminPortalRequest は管理ポータルリンク発行リクエストのボディ。
type adminPortalRequest struct {
	Intent string `json:"intent"`
}

// GetOrganization は認証済みユーザーの組織を返す。未作成の場合は遅延作成する。
// GET /api/organization
func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	org, err := h.registry.GetOrCreate(r.Context(), user)
	if err != nil {
		slog.Error("failed to get or create organization",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteUpstreamFailureError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"organization": org})
}

// CreatePortalLink は管理ポータルへの短命リンクを発行する。
// intentの妥当性はプロバイダーが検証するため、未知の値も透過する。
// POST /api/admin-portal
func (h *OrganizationHandler) CreatePortalLink(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req adminPortalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if req.Intent == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "MISSING_INTENT",
			Message:  "intentが指定されていません。",
			Category: "validation",
			Action:   "intentを指定してください（例: sso, dsync, domain_verification, audit_logs）。",
		})
		return
	}

	link, err := h.portal.IssueLink(r.Context(), user, req.Intent)
	if err != nil {
		slog.Error("failed to issue portal link",
			slog.String("user_id", user.ID),
			slog.String("intent", req.Intent),
			slog.String("error", err.Error()),
		)
		middleware.WriteUpstreamFailureError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"link": link})
}
