package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cadenlabs/brandgov/internal/api"
	"github.com/cadenlabs/brandgov/internal/api/middleware"
	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/go-chi/chi/v5"
)

type GenerationService interface {
	Generate(ctx context.Context, principal *domain.Principal, input service.GenerateInput) (*domain.ContentPiece, error)
}

type ContentService interface {
	Get(ctx context.Context, principal *domain.Principal, pieceID string) (*domain.ContentPiece, error)
	List(ctx context.Context, principal *domain.Principal, input service.ListInput) (*service.ContentPageResult, error)
	Inbox(ctx context.Context, principal *domain.Principal) (*service.ContentPageResult, error)
}

type ContentHandler struct {
	generation GenerationService
	content    ContentService
}

func NewContentHandler(generation GenerationService, content ContentService) *ContentHandler {
	return &ContentHandler{generation: generation, content: content}
}

type GenerateRequest struct {
	BrandID string `json:"brand_id"`
	Type    string `json:"type"`
	Brief   string `json:"brief"`
}

type ContextChunkResponse struct {
	ChunkID    string  `json:"chunk_id"`
	Section    string  `json:"section"`
	Ordinal    int     `json:"ordinal"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

type ContentPieceResponse struct {
	ID        string                 `json:"id"`
	BrandID   string                 `json:"brand_id"`
	ManualID  string                 `json:"manual_id"`
	CreatorID string                 `json:"creator_id"`
	Type      string                 `json:"type"`
	Brief     string                 `json:"brief"`
	Output    string                 `json:"output"`
	Context   []ContextChunkResponse `json:"context"`
	Status    string                 `json:"status"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
}

type ContentListResponse struct {
	Items      []*ContentPieceResponse `json:"items"`
	NextCursor string                  `json:"next_cursor,omitempty"`
	HasMore    bool                    `json:"has_more"`
}

func contentToResponse(p *domain.ContentPiece) *ContentPieceResponse {
	chunks := make([]ContextChunkResponse, 0, len(p.Context))
	for _, c := range p.Context {
		chunks = append(chunks, ContextChunkResponse{
			ChunkID:    c.ChunkID,
			Section:    c.Section,
			Ordinal:    c.Ordinal,
			Text:       c.Text,
			Similarity: c.Similarity,
		})
	}
	return &ContentPieceResponse{
		ID:        p.ID,
		BrandID:   p.BrandID,
		ManualID:  p.ManualID,
		CreatorID: p.CreatorID,
		Type:      string(p.Type),
		Brief:     p.Brief,
		Output:    p.Output,
		Context:   chunks,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

func contentPageToResponse(page *service.ContentPageResult) *ContentListResponse {
	items := make([]*ContentPieceResponse, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, contentToResponse(p))
	}
	return &ContentListResponse{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
}

// Generate runs the full retrieval-augmented generation pipeline and
// returns the new PENDING piece.
func (h *ContentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BrandID == "" {
		api.Error(w, http.StatusBadRequest, "brand_id is required")
		return
	}
	if req.Brief == "" {
		api.Error(w, http.StatusBadRequest, "brief is required")
		return
	}

	contentType := domain.ContentType(req.Type)
	if !domain.IsValidContentType(contentType) {
		api.Error(w, http.StatusBadRequest, "invalid content type")
		return
	}

	piece, err := h.generation.Generate(r.Context(), principal, service.GenerateInput{
		BrandID: req.BrandID,
		Type:    contentType,
		Brief:   req.Brief,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, contentToResponse(piece))
}

func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	piece, err := h.content.Get(r.Context(), principal, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, contentToResponse(piece))
}

func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.content.List(r.Context(), principal, service.ListInput{
		Status: domain.ContentStatus(r.URL.Query().Get("status")),
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, contentPageToResponse(page))
}

// Inbox returns the role-dependent worklist.
func (h *ContentHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, err := h.content.Inbox(r.Context(), principal)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, contentPageToResponse(page))
}
