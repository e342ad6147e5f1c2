package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cadenlabs/brandgov/internal/api/middleware"
	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// withPrincipal injects an authenticated principal the way the auth
// middleware would.
func withPrincipal(p *domain.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.PrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func creatorPrincipal() *domain.Principal {
	return &domain.Principal{
		ID:        "principal-1",
		Email:     "creator@example.com",
		Role:      domain.RoleCreator,
		CreatedAt: time.Now().UTC(),
	}
}

// MockBrandService mocks the BrandService handler dependency
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

func newBrandRouter(svc *MockBrandService, principal *domain.Principal) http.Handler {
	h := NewBrandHandler(svc)
	r := chi.NewRouter()
	if principal != nil {
		r.Use(withPrincipal(principal))
	}
	r.Post("/brands", h.Create)
	r.Get("/brands", h.List)
	r.Post("/brands/{id}/manual", h.GenerateManual)
	r.Put("/brands/{id}/manual", h.IngestManual)
	r.Get("/brands/{id}/manual", h.GetManual)
	return r
}

func TestBrandHandler_Create(t *testing.T) {
	principal := creatorPrincipal()

	t.Run("creates a brand", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		svc.On("CreateBrand", mock.Anything, principal, "Driftwell").Return(&domain.Brand{
			ID:        "brand-1",
			Name:      "Driftwell",
			CreatedAt: time.Now().UTC(),
		}, nil)

		req := httptest.NewRequest(http.MethodPost, "/brands", strings.NewReader(`{"name":"Driftwell"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decodeEnvelope(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "brand-1", data["id"])
		assert.Equal(t, "Driftwell", data["name"])
		svc.AssertExpectations(t)
	})

	t.Run("missing name is a bad request", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		req := httptest.NewRequest(http.MethodPost, "/brands", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "CreateBrand", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		req := httptest.NewRequest(http.MethodPost, "/brands", strings.NewReader(`{not json`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate brand maps to conflict", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		svc.On("CreateBrand", mock.Anything, principal, "Driftwell").Return(nil, domain.ErrBrandAlreadyExists)

		req := httptest.NewRequest(http.MethodPost, "/brands", strings.NewReader(`{"name":"Driftwell"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("forbidden maps to 403", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		svc.On("CreateBrand", mock.Anything, principal, "Driftwell").Return(nil, domain.ErrForbidden)

		req := httptest.NewRequest(http.MethodPost, "/brands", strings.NewReader(`{"name":"Driftwell"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unauthenticated request is a 401", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, nil)

		req := httptest.NewRequest(http.MethodPost, "/brands", strings.NewReader(`{"name":"Driftwell"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestBrandHandler_List(t *testing.T) {
	principal := creatorPrincipal()

	t.Run("returns all brands", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		svc.On("ListBrands", mock.Anything, principal).Return([]*domain.Brand{
			{ID: "brand-1", Name: "Driftwell"},
			{ID: "brand-2", Name: "Northbeam"},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/brands", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeEnvelope(t, w)["data"].([]interface{})
		assert.Len(t, data, 2)
	})

	t.Run("empty list renders as an empty array", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		svc.On("ListBrands", mock.Anything, principal).Return([]*domain.Brand{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/brands", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})
}

func TestBrandHandler_GenerateManual(t *testing.T) {
	principal := creatorPrincipal()
	body := `{"product":"cold brew coffee","tone":"calm","audience":"remote workers"}`

	t.Run("generates a manual", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		svc.On("GenerateManual", mock.Anything, principal, "brand-1", mock.MatchedBy(func(p service.ManualParams) bool {
			return p.Product == "cold brew coffee" && p.Tone == "calm" && p.Audience == "remote workers"
		})).Return(&domain.Manual{
			ID:        "manual-1",
			BrandID:   "brand-1",
			Document:  domain.ManualDocument{BrandName: "Driftwell"},
			CreatedAt: time.Now().UTC(),
		}, nil)

		req := httptest.NewRequest(http.MethodPost, "/brands/brand-1/manual", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decodeEnvelope(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "manual-1", data["id"])
		svc.AssertExpectations(t)
	})

	t.Run("missing parameters are rejected before the service", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		for _, body := range []string{
			`{"tone":"calm","audience":"remote workers"}`,
			`{"product":"cold brew","audience":"remote workers"}`,
			`{"product":"cold brew","tone":"calm"}`,
		} {
			req := httptest.NewRequest(http.MethodPost, "/brands/brand-1/manual", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
		svc.AssertNotCalled(t, "GenerateManual", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown brand maps to 404", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		svc.On("GenerateManual", mock.Anything, principal, "ghost", mock.Anything).Return(nil, domain.ErrBrandNotFound)

		req := httptest.NewRequest(http.MethodPost, "/brands/ghost/manual", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBrandHandler_IngestManual(t *testing.T) {
	principal := creatorPrincipal()

	t.Run("ingests a document", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		svc.On("IngestManual", mock.Anything, principal, "brand-1", mock.MatchedBy(func(doc domain.ManualDocument) bool {
			return doc.BrandName == "Driftwell"
		})).Return(&domain.Manual{ID: "manual-2", BrandID: "brand-1"}, nil)

		req := httptest.NewRequest(http.MethodPut, "/brands/brand-1/manual", strings.NewReader(`{"brand_name":"Driftwell"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("malformed document is a bad request", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		req := httptest.NewRequest(http.MethodPut, "/brands/brand-1/manual", strings.NewReader(`not json`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBrandHandler_GetManual(t *testing.T) {
	principal := creatorPrincipal()

	t.Run("returns the latest manual with embedding status", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		svc.On("GetLatestManualStatus", mock.Anything, principal, "brand-1").Return(&service.ManualStatus{
			Manual: &domain.Manual{
				ID:      "manual-1",
				BrandID: "brand-1",
			},
			EmbeddedChunks: 4,
			PendingChunks:  2,
			Ready:          false,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/brands/brand-1/manual", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeEnvelope(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "manual-1", data["id"])
		embedding := data["embedding"].(map[string]interface{})
		assert.Equal(t, float64(4), embedding["embedded_chunks"])
		assert.Equal(t, float64(2), embedding["pending_chunks"])
		assert.Equal(t, false, embedding["ready"])
	})

	t.Run("fully embedded manual reports ready", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		svc.On("GetLatestManualStatus", mock.Anything, principal, "brand-1").Return(&service.ManualStatus{
			Manual:         &domain.Manual{ID: "manual-1", BrandID: "brand-1"},
			EmbeddedChunks: 6,
			PendingChunks:  0,
			Ready:          true,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/brands/brand-1/manual", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeEnvelope(t, w)["data"].(map[string]interface{})
		embedding := data["embedding"].(map[string]interface{})
		assert.Equal(t, true, embedding["ready"])
	})

	t.Run("missing manual maps to 404", func(t *testing.T) {
		svc := new(MockBrandService)
		router := newBrandRouter(svc, principal)

		svc.On("GetLatestManualStatus", mock.Anything, principal, "brand-1").Return(nil, domain.ErrManualNotFound)

		req := httptest.NewRequest(http.MethodGet, "/brands/brand-1/manual", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
