package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cadenlabs/brandgov/internal/api/handlers"
	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Principal), args.Error(1)
}

type MockBrandService struct {
	mock.Mock
}

func (m *MockBrandService) CreateBrand(ctx context.Context, principal *domain.Principal, name string) (*domain.Brand, error) {
	args := m.Called(ctx, principal, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *MockBrandService) ListBrands(ctx context.Context, principal *domain.Principal) ([]*domain.Brand, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Brand), args.Error(1)
}

func (m *MockBrandService) GenerateManual(ctx context.Context, principal *domain.Principal, brandID string, params service.ManualParams) (*domain.Manual, error) {
	args := m.Called(ctx, principal, brandID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Manual), args.Error(1)
}

func (m *MockBrandService) IngestManual(ctx context.Context, principal *domain.Principal, brandID string, doc domain.ManualDocument) (*domain.Manual, error) {
	args := m.Called(ctx, principal, brandID, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Manual), args.Error(1)
}

func (m *MockBrandService) GetLatestManualStatus(ctx context.Context, principal *domain.Principal, brandID string) (*service.ManualStatus, error) {
	args := m.Called(ctx, principal, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ManualStatus), args.Error(1)
}

type MockGenerationService struct {
	mock.Mock
}

func (m *MockGenerationService) Generate(ctx context.Context, principal *domain.Principal, input service.GenerateInput) (*domain.ContentPiece, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentPiece), args.Error(1)
}

type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) Get(ctx context.Context, principal *domain.Principal, pieceID string) (*domain.ContentPiece, error) {
	args := m.Called(ctx, principal, pieceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentPiece), args.Error(1)
}

func (m *MockContentService) List(ctx context.Context, principal *domain.Principal, input service.ListInput) (*service.ContentPageResult, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ContentPageResult), args.Error(1)
}

func (m *MockContentService) Inbox(ctx context.Context, principal *domain.Principal) (*service.ContentPageResult, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ContentPageResult), args.Error(1)
}

type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) Approve(ctx context.Context, principal *domain.Principal, pieceID, feedback string) (*domain.ContentPiece, error) {
	args := m.Called(ctx, principal, pieceID, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentPiece), args.Error(1)
}

func (m *MockLifecycleService) Reject(ctx context.Context, principal *domain.Principal, pieceID, feedback string) (*domain.ContentPiece, error) {
	args := m.Called(ctx, principal, pieceID, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentPiece), args.Error(1)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) AuditImage(ctx context.Context, principal *domain.Principal, input service.AuditImageInput) (*domain.AuditRecord, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditRecord), args.Error(1)
}

func (m *MockAuditService) ListAudits(ctx context.Context, principal *domain.Principal, pieceID string) ([]*domain.AuditRecord, error) {
	args := m.Called(ctx, principal, pieceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AuditRecord), args.Error(1)
}

func setupRouter() (http.Handler, *MockAuthenticator, *MockBrandService, *MockContentService, *MockLifecycleService) {
	authenticator := new(MockAuthenticator)
	brandSvc := new(MockBrandService)
	generationSvc := new(MockGenerationService)
	contentSvc := new(MockContentService)
	lifecycleSvc := new(MockLifecycleService)
	auditSvc := new(MockAuditService)

	cfg := RouterConfig{
		Authenticator:     authenticator,
		BrandHandler:      handlers.NewBrandHandler(brandSvc),
		ContentHandler:    handlers.NewContentHandler(generationSvc, contentSvc),
		GovernanceHandler: handlers.NewGovernanceHandler(lifecycleSvc, auditSvc),
	}

	router := NewRouter(cfg)
	return router, authenticator, brandSvc, contentSvc, lifecycleSvc
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, authenticator, _, _, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/brands"},
		{http.MethodGet, "/brands"},
		{http.MethodPost, "/brands/b-1/manual"},
		{http.MethodPut, "/brands/b-1/manual"},
		{http.MethodGet, "/brands/b-1/manual"},
		{http.MethodPost, "/generate"},
		{http.MethodGet, "/content"},
		{http.MethodGet, "/content/p-1"},
		{http.MethodPost, "/content/p-1/approve"},
		{http.MethodPost, "/content/p-1/reject"},
		{http.MethodPost, "/content/p-1/audit-image"},
		{http.MethodGet, "/content/p-1/audits"},
		{http.MethodGet, "/inbox"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	authenticator.AssertExpectations(t)
}

func TestRouter_AuthenticatedRoutes_WithValidAuth(t *testing.T) {
	router, authenticator, _, contentSvc, _ := setupRouter()

	token := "bg_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	principal := &domain.Principal{
		ID:        "principal-1",
		Email:     "creator@example.com",
		Role:      domain.RoleCreator,
		CreatedAt: time.Now().UTC(),
	}
	authenticator.On("Authenticate", mock.Anything, token).Return(principal, nil)

	now := time.Now().UTC()
	expectedPiece := &domain.ContentPiece{
		ID:        "p-1",
		BrandID:   "b-1",
		ManualID:  "m-1",
		CreatorID: "principal-1",
		Type:      domain.ContentTypeScript,
		Brief:     "spring launch",
		Output:    "Fresh start, every morning.",
		Status:    domain.ContentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	contentSvc.On("Get", mock.Anything, principal, "p-1").Return(expectedPiece, nil)

	req := httptest.NewRequest(http.MethodGet, "/content/p-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	authenticator.AssertExpectations(t)
	contentSvc.AssertExpectations(t)
}

func TestRouter_Approve_RoutesToGovernance(t *testing.T) {
	router, authenticator, _, _, lifecycleSvc := setupRouter()

	token := "bg_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	principal := &domain.Principal{
		ID:    "principal-2",
		Email: "approver@example.com",
		Role:  domain.RoleApproverA,
	}
	authenticator.On("Authenticate", mock.Anything, token).Return(principal, nil)

	now := time.Now().UTC()
	approved := &domain.ContentPiece{
		ID:        "p-2",
		BrandID:   "b-1",
		ManualID:  "m-1",
		CreatorID: "principal-1",
		Type:      domain.ContentTypeDescription,
		Brief:     "summer sale",
		Output:    "Save big all summer long.",
		Status:    domain.ContentStatusApproved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	lifecycleSvc.On("Approve", mock.Anything, principal, "p-2", "").Return(approved, nil)

	req := httptest.NewRequest(http.MethodPost, "/content/p-2/approve", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "APPROVED", data["status"])
	lifecycleSvc.AssertExpectations(t)
}
