package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/msgboard/internal/middleware"
	"github.com/hitoshi/msgboard/internal/model"
)

// --- モック定義 ---

type mockOrganizationRegistry struct {
	getOrCreateFn func(ctx context.Context, user *model.User) (*model.Organization, error)
}

func (m *mockOrganizationRegistry) GetOrCreate(ctx context.Context, user *model.User) (*model.Organization, error) {
	if m.getOrCreateFn != nil {
		return m.getOrCreateFn(ctx, user)
	}
	return &model.Organization{ID: "org-001", Name: "Test Organization"}, nil
}

type mockPortalService struct {
	issueLinkFn func(ctx context.Context, user *model.User, intent string) (string, error)
}

func (m *mockPortalService) IssueLink(ctx context.Context, user *model.User, intent string) (string, error) {
	if m.issueLinkFn != nil {
		return m.issueLinkFn(ctx, user, intent)
	}
	return "https://portal.example.com/launch", nil
}

// --- テスト ---

func TestOrganizationHandler_GetOrganization_ReturnsOrganization(t *testing.T) {
	registry := &mockOrganizationRegistry{
		getOrCreateFn: func(ctx context.Context, user *model.User) (*model.Organization, error) {
			if user.ID != "user-1" {
				t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
			}
			return &model.Organization{
				ID:   "org-001",
				Name: "Taro's Organization",
				Domains: []model.OrganizationDomain{
					{Domain: "example.com", State: model.DomainStatePending},
				},
			}, nil
		},
	}
	h := NewOrganizationHandler(registry, &mockPortalService{})

	req := httptest.NewRequest(http.MethodGet, "/api/organization", nil)
	req = req.WithContext(authedContext(&model.User{ID: "user-1", Email: "taro@example.com"}))
	w := httptest.NewRecorder()

	h.GetOrganization(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]*model.Organization
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	org := body["organization"]
	if org == nil || org.ID != "org-001" {
		t.Fatalf("organization = %v, want org-001", org)
	}
	if len(org.Domains) != 1 || org.Domains[0].State != model.DomainStatePending {
		t.Errorf("domains = %v, want single pending domain", org.Domains)
	}
}

func TestOrganizationHandler_GetOrganization_Unauthenticated_Returns401(t *testing.T) {
	h := NewOrganizationHandler(&mockOrganizationRegistry{}, &mockPortalService{})

	req := httptest.NewRequest(http.MethodGet, "/api/organization", nil)
	w := httptest.NewRecorder()

	h.GetOrganization(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestOrganizationHandler_GetOrganization_ProviderFailure_Returns500(t *testing.T) {
	registry := &mockOrganizationRegistry{
		getOrCreateFn: func(ctx context.Context, user *model.User) (*model.Organization, error) {
			return nil, errors.New("provider unavailable")
		},
	}
	h := NewOrganizationHandler(registry, &mockPortalService{})

	req := httptest.NewRequest(http.MethodGet, "/api/organization", nil)
	req = req.WithContext(authedContext(&model.User{ID: "user-1"}))
	w := httptest.NewRecorder()

	h.GetOrganization(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}

	var errBody middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errBody.Code != model.ErrCodeProviderFailure {
		t.Errorf("code = %q, want %q", errBody.Code, model.ErrCodeProviderFailure)
	}
}

func TestOrganizationHandler_CreatePortalLink_ReturnsLink(t *testing.T) {
	portal := &mockPortalService{
		issueLinkFn: func(ctx context.Context, user *model.User, intent string) (string, error) {
			if intent != "sso" {
				t.Errorf("intent = %q, want %q", intent, "sso")
			}
			return "https://portal.example.com/launch?token=abc", nil
		},
	}
	h := NewOrganizationHandler(&mockOrganizationRegistry{}, portal)

	body := strings.NewReader(`{"intent": "sso"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin-portal", body)
	req = req.WithContext(authedContext(&model.User{ID: "user-1"}))
	w := httptest.NewRecorder()

	h.CreatePortalLink(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var respBody map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if respBody["link"] != "https://portal.example.com/launch?token=abc" {
		t.Errorf("link = %q, want portal link", respBody["link"])
	}
}

func TestOrganizationHandler_CreatePortalLink_MissingIntent_Returns400(t *testing.T) {
	h := NewOrganizationHandler(&mockOrganizationRegistry{}, &mockPortalService{})

	body := strings.NewReader(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin-portal", body)
	req = req.WithContext(authedContext(&model.User{ID: "user-1"}))
	w := httptest.NewRecorder()

	h.CreatePortalLink(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var errBody middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errBody.Code != "MISSING_INTENT" {
		t.Errorf("code = %q, want MISSING_INTENT", errBody.Code)
	}
}

func TestOrganizationHandler_CreatePortalLink_InvalidJSON_Returns400(t *testing.T) {
	h := NewOrganizationHandler(&mockOrganizationRegistry{}, &mockPortalService{})

	body := strings.NewReader(`{not json`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin-portal", body)
	req = req.WithContext(authedContext(&model.User{ID: "user-1"}))
	w := httptest.NewRecorder()

	h.CreatePortalLink(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestOrganizationHandler_CreatePortalLink_IssueFailure_Returns500(t *testing.T) {
	portal := &mockPortalService{
		issueLinkFn: func(ctx context.Context, user *model.User, intent string) (string, error) {
			return "", errors.New("provider unavailable")
		},
	}
	h := NewOrganizationHandler(&mockOrganizationRegistry{}, portal)

	body := strings.NewReader(`{"intent": "dsync"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin-portal", body)
	req = req.WithContext(authedContext(&model.User{ID: "user-1"}))
	w := httptest.NewRecorder()

	h.CreatePortalLink(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}
