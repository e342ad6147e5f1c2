package service

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/telemetry"
)

// auditSystemPrompt instructs the vision model to return the structured
// report. The service re-derives the final verdict itself; the model's own
// verdict is never trusted directly.
const auditSystemPrompt = `You are a brand compliance auditor. Evaluate whether the image complies with the provided brand manual rules.
Return ONLY valid JSON with keys: verdict, validated_rules_count, validated_rules, violations, notes.
verdict: PASS, CHECK, or FAIL.
validated_rules_count: integer.
validated_rules: short list (1-5) of visual rules you could explicitly validate against the image.
violations: list of {"rule","evidence","fix"} objects.
notes: list of strings.

Verdict rules (mandatory):
1) You may only propose PASS if you validate AT LEAST 2 explicit visual rules and violations is empty.
2) Classify the image as an advertising piece (post/banner/ad with layout, CTA, or text) or a product photo (plain asset without layout). A missing logo is only a violation for advertising pieces; for product photos add a note instead.
3) If violations has at least one item, verdict MUST be FAIL.
4) Do not turn rules that cannot be judged from the image alone (copy, claims, reading level) into violations; mention them in notes.`

// auditRetrievalQuery is the fixed query for pulling visual-rule context.
// Image audits always target the same sections of the manual, so there is
// no per-request query to embed.
const auditRetrievalQuery = "visual guidelines logo rules colors typography image style"

const (
	auditMatchCount = 12
	auditKeepK      = 6
)

// VisionAnalyzer performs a multimodal completion over an image.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// ObjectStore uploads audit images and signs read URLs for them.
type ObjectStore interface {
	UploadObject(ctx context.Context, key string, contentType string, body []byte) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// AuditRepositoryInterface defines the repository interface for audit persistence
type AuditRepositoryInterface interface {
	Create(ctx context.Context, rec *domain.AuditRecord) error
	ListByPiece(ctx context.Context, pieceID string) ([]*domain.AuditRecord, error)
}

// AuditService runs multimodal image audits against the brand's latest
// manual. Audit records are immutable; re-auditing a piece appends a new
// record rather than replacing the previous one.
type AuditService struct {
	content   ContentRepositoryInterface
	manuals   ManualReader
	audits    AuditRepositoryInterface
	retriever ChunkRetriever
	vision    VisionAnalyzer
	store     ObjectStore
	tracer    TraceRecorder
	uuidGen   UUIDGenerator
	timeout   time.Duration
}

// NewAuditService creates a new AuditService instance
func NewAuditService(
	content ContentRepositoryInterface,
	manuals ManualReader,
	audits AuditRepositoryInterface,
	retriever ChunkRetriever,
	vision VisionAnalyzer,
	store ObjectStore,
	tracer TraceRecorder,
	timeout time.Duration,
) *AuditService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AuditService{
		content:   content,
		manuals:   manuals,
		audits:    audits,
		retriever: retriever,
		vision:    vision,
		store:     store,
		tracer:    tracer,
		uuidGen:   &DefaultUUIDGenerator{},
		timeout:   timeout,
	}
}

// NewAuditServiceWithUUIDGen creates an AuditService with a custom UUID generator (for testing)
func NewAuditServiceWithUUIDGen(
	content ContentRepositoryInterface,
	manuals ManualReader,
	audits AuditRepositoryInterface,
	retriever ChunkRetriever,
	vision VisionAnalyzer,
	store ObjectStore,
	tracer TraceRecorder,
	timeout time.Duration,
	uuidGen UUIDGenerator,
) *AuditService {
	svc := NewAuditService(content, manuals, audits, retriever, vision, store, tracer, timeout)
	svc.uuidGen = uuidGen
	return svc
}

// AuditImageInput represents the input for auditing an image against a content piece
type AuditImageInput struct {
	PieceID  string
	Filename string
	MimeType string
	Image    []byte
}

// AuditImage uploads the image, retrieves visual-rule context, calls the
// vision model, and persists the resulting audit record.
func (s *AuditService) AuditImage(ctx context.Context, principal *domain.Principal, input AuditImageInput) (*domain.AuditRecord, error) {
	if err := requireAction(principal, ActionAuditImage, Resource{}); err != nil {
		return nil, err
	}
	if len(input.Image) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "image is required")
	}
	if input.MimeType == "" {
		input.MimeType = "image/jpeg"
	}
	if input.Filename == "" {
		input.Filename = "image.jpg"
	}

	ctx, span := telemetry.StartSpan(ctx, "AuditService.AuditImage", telemetry.SpanAttributes{
		PieceID:     input.PieceID,
		PrincipalID: principal.ID,
		Operation:   "audit_image",
	})
	defer span.End()

	start := time.Now()
	trace := TraceRecord{
		Name:        "audit.image",
		PrincipalID: principal.ID,
		PieceID:     input.PieceID,
		Input: map[string]any{
			"filename":  input.Filename,
			"mime_type": input.MimeType,
			"size":      len(input.Image),
		},
		Status: TraceStatusOK,
	}
	var traceErr error
	defer func() {
		trace.LatencyMS = time.Since(start).Milliseconds()
		if traceErr != nil {
			trace.Status = TraceStatusError
			trace.Error = traceErr.Error()
		}
		s.tracer.Record(ctx, trace)
	}()

	piece, err := s.content.GetByID(ctx, input.PieceID)
	if err != nil {
		traceErr = err
		span.SetError(err)
		return nil, err
	}
	trace.BrandID = piece.BrandID

	manual, err := s.manuals.GetLatestByBrand(ctx, piece.BrandID)
	if err != nil {
		traceErr = err
		span.SetError(err)
		return nil, err
	}
	trace.ManualID = manual.ID

	imageKey := auditImageKey(principal.ID, piece.ID, input.Filename)
	if err := s.store.UploadObject(ctx, imageKey, input.MimeType, input.Image); err != nil {
		traceErr = err
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store audit image", err)
	}

	chunks, err := s.retriever.Retrieve(ctx, auditRetrievalQuery, manual.ID, auditMatchCount)
	if err != nil {
		traceErr = err
		span.SetError(err)
		return nil, err
	}
	reranked := RerankChunks(chunks, domain.ContentTypeImagePrompt, auditKeepK)
	trace.Context = contextSnapshot(reranked)

	prompt := buildAuditPrompt(reranked)
	trace.PromptUser = prompt

	visionCtx, cancel := context.WithTimeout(ctx, s.timeout)
	raw, err := s.vision.Analyze(visionCtx, input.Image, input.MimeType, prompt)
	cancel()
	if err != nil {
		traceErr = err
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailed, "vision model call failed", err)
	}
	trace.Output = raw

	rec := &domain.AuditRecord{
		ID:          s.uuidGen.NewString(),
		PieceID:     piece.ID,
		AuditorID:   principal.ID,
		ImageKey:    imageKey,
		RuleContext: trace.Context,
		CreatedAt:   time.Now().UTC(),
	}

	report, parseErr := ParseAuditReport(raw)
	if parseErr != nil {
		// Ambiguity never passes. Keep the raw output as the explanation so
		// an approver can see what the model actually said.
		rec.Verdict = domain.VerdictCheck
		rec.Explanation = fmt.Sprintf("unparseable model output: %s", truncate(raw, 4000))
	} else {
		rec.Verdict = MapVerdict(report)
		rec.ValidatedRules = report.ValidatedRules
		rec.Violations = report.Violations
		rec.Explanation = strings.Join(report.Notes, "\n")
	}

	if url, urlErr := s.store.GenerateDownloadURL(ctx, imageKey); urlErr == nil {
		rec.ImageURL = url
	} else {
		log.Printf("audit: failed to presign image URL for %s: %v", imageKey, urlErr)
	}

	if err := domain.ValidateAuditRecord(rec); err != nil {
		traceErr = err
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid audit record", err)
	}

	if err := s.audits.Create(ctx, rec); err != nil {
		traceErr = err
		span.SetError(err)
		return nil, err
	}

	return rec, nil
}

// ListAudits returns all audit records for a piece, newest first.
func (s *AuditService) ListAudits(ctx context.Context, principal *domain.Principal, pieceID string) ([]*domain.AuditRecord, error) {
	if err := requireAction(principal, ActionViewAudits, Resource{}); err != nil {
		return nil, err
	}

	if _, err := s.content.GetByID(ctx, pieceID); err != nil {
		return nil, err
	}

	return s.audits.ListByPiece(ctx, pieceID)
}

func auditImageKey(principalID, pieceID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image.jpg"
	}
	return fmt.Sprintf("audits/%s/%s/%s", principalID, pieceID, base)
}

func buildAuditPrompt(chunks []ScoredChunk) string {
	var b strings.Builder
	b.WriteString(auditSystemPrompt)
	b.WriteString("\n\nBrand manual rules (retrieved):\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "[%s] %s\n\n", c.Chunk.Section, c.Chunk.Text)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
