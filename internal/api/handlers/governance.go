package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cadenlabs/brandgov/internal/api"
	"github.com/cadenlabs/brandgov/internal/api/middleware"
	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/go-chi/chi/v5"
)

// maxAuditImageBytes bounds multipart image uploads.
const maxAuditImageBytes = 10 << 20

type LifecycleService interface {
	Approve(ctx context.Context, principal *domain.Principal, pieceID, feedback string) (*domain.ContentPiece, error)
	Reject(ctx context.Context, principal *domain.Principal, pieceID, feedback string) (*domain.ContentPiece, error)
}

type AuditService interface {
	AuditImage(ctx context.Context, principal *domain.Principal, input service.AuditImageInput) (*domain.AuditRecord, error)
	ListAudits(ctx context.Context, principal *domain.Principal, pieceID string) ([]*domain.AuditRecord, error)
}

type GovernanceHandler struct {
	lifecycle LifecycleService
	audit     AuditService
}

func NewGovernanceHandler(lifecycle LifecycleService, audit AuditService) *GovernanceHandler {
	return &GovernanceHandler{lifecycle: lifecycle, audit: audit}
}

type DecisionRequest struct {
	Feedback string `json:"feedback"`
}

type ViolationResponse struct {
	Rule     string `json:"rule"`
	Evidence string `json:"evidence"`
	Fix      string `json:"fix"`
}

type AuditRecordResponse struct {
	ID             string                 `json:"id"`
	PieceID        string                 `json:"piece_id"`
	AuditorID      string                 `json:"auditor_id"`
	ImageKey       string                 `json:"image_key"`
	ImageURL       string                 `json:"image_url,omitempty"`
	Verdict        string                 `json:"verdict"`
	Explanation    string                 `json:"explanation,omitempty"`
	ValidatedRules []string               `json:"validated_rules"`
	Violations     []ViolationResponse    `json:"violations"`
	RuleContext    []ContextChunkResponse `json:"rule_context"`
	CreatedAt      string                 `json:"created_at"`
}

func auditToResponse(rec *domain.AuditRecord) *AuditRecordResponse {
	violations := make([]ViolationResponse, 0, len(rec.Violations))
	for _, v := range rec.Violations {
		violations = append(violations, ViolationResponse{Rule: v.Rule, Evidence: v.Evidence, Fix: v.Fix})
	}
	ruleContext := make([]ContextChunkResponse, 0, len(rec.RuleContext))
	for _, c := range rec.RuleContext {
		ruleContext = append(ruleContext, ContextChunkResponse{
			ChunkID:    c.ChunkID,
			Section:    c.Section,
			Ordinal:    c.Ordinal,
			Text:       c.Text,
			Similarity: c.Similarity,
		})
	}
	validated := rec.ValidatedRules
	if validated == nil {
		validated = []string{}
	}
	return &AuditRecordResponse{
		ID:             rec.ID,
		PieceID:        rec.PieceID,
		AuditorID:      rec.AuditorID,
		ImageKey:       rec.ImageKey,
		ImageURL:       rec.ImageURL,
		Verdict:        string(rec.Verdict),
		Explanation:    rec.Explanation,
		ValidatedRules: validated,
		Violations:     violations,
		RuleContext:    ruleContext,
		CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
	}
}

func (h *GovernanceHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.lifecycle.Approve)
}

func (h *GovernanceHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.lifecycle.Reject)
}

func (h *GovernanceHandler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, principal *domain.Principal, pieceID, feedback string) (*domain.ContentPiece, error)) {
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

	var req DecisionRequest
	if r.Body != nil {
		// Body is optional for approvals.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	piece, err := fn(r.Context(), principal, id, req.Feedback)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, contentToResponse(piece))
}

// AuditImage accepts a multipart image upload and runs the multimodal audit.
func (h *GovernanceHandler) AuditImage(w http.ResponseWriter, r *http.Request) {
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

	if err := r.ParseMultipartForm(maxAuditImageBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAuditImageBytes+1))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(data) > maxAuditImageBytes {
		api.Error(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	rec, err := h.audit.AuditImage(r.Context(), principal, service.AuditImageInput{
		PieceID:  id,
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Image:    data,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, auditToResponse(rec))
}

func (h *GovernanceHandler) ListAudits(w http.ResponseWriter, r *http.Request) {
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

	records, err := h.audit.ListAudits(r.Context(), principal, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*AuditRecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, auditToResponse(rec))
	}
	api.Success(w, http.StatusOK, responses)
}
