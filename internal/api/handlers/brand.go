package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cadenlabs/brandgov/internal/api"
	"github.com/cadenlabs/brandgov/internal/api/middleware"
	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/go-chi/chi/v5"
)

type BrandService interface {
	CreateBrand(ctx context.Context, principal *domain.Principal, name string) (*domain.Brand, error)
	ListBrands(ctx context.Context, principal *domain.Principal) ([]*domain.Brand, error)
	GenerateManual(ctx context.Context, principal *domain.Principal, brandID string, params service.ManualParams) (*domain.Manual, error)
	IngestManual(ctx context.Context, principal *domain.Principal, brandID string, doc domain.ManualDocument) (*domain.Manual, error)
	GetLatestManualStatus(ctx context.Context, principal *domain.Principal, brandID string) (*service.ManualStatus, error)
}

type BrandHandler struct {
	svc BrandService
}

func NewBrandHandler(svc BrandService) *BrandHandler {
	return &BrandHandler{svc: svc}
}

type CreateBrandRequest struct {
	Name string `json:"name"`
}

type BrandResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type GenerateManualRequest struct {
	BrandName        string            `json:"brand_name"`
	Product          string            `json:"product"`
	Tone             string            `json:"tone"`
	Audience         string            `json:"audience"`
	ExtraConstraints string            `json:"extra_constraints"`
	VisualRules      domain.VisualSpec `json:"visual_rules"`
}

type ManualResponse struct {
	ID        string                   `json:"id"`
	BrandID   string                   `json:"brand_id"`
	Document  domain.ManualDocument    `json:"document"`
	CreatedAt string                   `json:"created_at"`
	Embedding *EmbeddingStatusResponse `json:"embedding,omitempty"`
}

// EmbeddingStatusResponse reports embedding-worker progress on a manual.
// Only the GET endpoint includes it; create responses predate the worker run.
type EmbeddingStatusResponse struct {
	EmbeddedChunks int  `json:"embedded_chunks"`
	PendingChunks  int  `json:"pending_chunks"`
	Ready          bool `json:"ready"`
}

func brandToResponse(b *domain.Brand) *BrandResponse {
	return &BrandResponse{
		ID:        b.ID,
		Name:      b.Name,
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
}

func manualToResponse(m *domain.Manual) *ManualResponse {
	return &ManualResponse{
		ID:        m.ID,
		BrandID:   m.BrandID,
		Document:  m.Document,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func (h *BrandHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	brand, err := h.svc.CreateBrand(r.Context(), principal, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, brandToResponse(brand))
}

func (h *BrandHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	brands, err := h.svc.ListBrands(r.Context(), principal)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*BrandResponse, 0, len(brands))
	for _, b := range brands {
		responses = append(responses, brandToResponse(b))
	}
	api.Success(w, http.StatusOK, responses)
}

// GenerateManual runs the manual architect for a brand.
func (h *BrandHandler) GenerateManual(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	brandID := chi.URLParam(r, "id")
	if brandID == "" {
		api.Error(w, http.StatusBadRequest, "brand id is required")
		return
	}

	var req GenerateManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Product == "" {
		api.Error(w, http.StatusBadRequest, "product is required")
		return
	}
	if req.Tone == "" {
		api.Error(w, http.StatusBadRequest, "tone is required")
		return
	}
	if req.Audience == "" {
		api.Error(w, http.StatusBadRequest, "audience is required")
		return
	}

	manual, err := h.svc.GenerateManual(r.Context(), principal, brandID, service.ManualParams{
		BrandName:        req.BrandName,
		Product:          req.Product,
		Tone:             req.Tone,
		Audience:         req.Audience,
		ExtraConstraints: req.ExtraConstraints,
		VisualRules:      req.VisualRules,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, manualToResponse(manual))
}

// IngestManual accepts a pre-built manual document.
func (h *BrandHandler) IngestManual(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	brandID := chi.URLParam(r, "id")
	if brandID == "" {
		api.Error(w, http.StatusBadRequest, "brand id is required")
		return
	}

	var doc domain.ManualDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	manual, err := h.svc.IngestManual(r.Context(), principal, brandID, doc)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, manualToResponse(manual))
}

func (h *BrandHandler) GetManual(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	brandID := chi.URLParam(r, "id")
	if brandID == "" {
		api.Error(w, http.StatusBadRequest, "brand id is required")
		return
	}

	status, err := h.svc.GetLatestManualStatus(r.Context(), principal, brandID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := manualToResponse(status.Manual)
	resp.Embedding = &EmbeddingStatusResponse{
		EmbeddedChunks: status.EmbeddedChunks,
		PendingChunks:  status.PendingChunks,
		Ready:          status.Ready,
	}
	api.Success(w, http.StatusOK, resp)
}
