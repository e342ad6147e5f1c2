package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/llm"
	"github.com/cadenlabs/brandgov/internal/telemetry"
)

// BrandRepositoryInterface defines the repository interface for brand persistence
type BrandRepositoryInterface interface {
	Create(ctx context.Context, b *domain.Brand) error
	GetByID(ctx context.Context, id string) (*domain.Brand, error)
	GetByName(ctx context.Context, name string) (*domain.Brand, error)
	List(ctx context.Context) ([]*domain.Brand, error)
}

// ManualRepositoryInterface defines the repository interface for manual persistence
type ManualRepositoryInterface interface {
	Create(ctx context.Context, m *domain.Manual) error
	CreateChunks(ctx context.Context, chunks []*domain.ManualChunk) error
	GetByID(ctx context.Context, id string) (*domain.Manual, error)
	GetLatestByBrand(ctx context.Context, brandID string) (*domain.Manual, error)
	ListChunksWithoutEmbedding(ctx context.Context, manualID string) ([]*domain.ManualChunk, error)
	CountEmbeddedChunks(ctx context.Context, manualID string) (int, error)
}

// EmbeddingJobEnqueuer queues chunk-embedding work for a manual.
type EmbeddingJobEnqueuer interface {
	Enqueue(ctx context.Context, job *domain.EmbeddingJob) error
}

// ManualService owns brands and their Brand DNA manuals. A manual is
// immutable once created; re-generating or re-ingesting produces a new
// manual that becomes the brand's latest.
type ManualService struct {
	brands  BrandRepositoryInterface
	manuals ManualRepositoryInterface
	jobs    EmbeddingJobEnqueuer
	chat    ChatCompleter
	tracer  TraceRecorder
	uuidGen UUIDGenerator
}

// NewManualService creates a new ManualService instance
func NewManualService(
	brands BrandRepositoryInterface,
	manuals ManualRepositoryInterface,
	jobs EmbeddingJobEnqueuer,
	chat ChatCompleter,
	tracer TraceRecorder,
) *ManualService {
	return &ManualService{
		brands:  brands,
		manuals: manuals,
		jobs:    jobs,
		chat:    chat,
		tracer:  tracer,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewManualServiceWithUUIDGen creates a ManualService with a custom UUID generator (for testing)
func NewManualServiceWithUUIDGen(
	brands BrandRepositoryInterface,
	manuals ManualRepositoryInterface,
	jobs EmbeddingJobEnqueuer,
	chat ChatCompleter,
	tracer TraceRecorder,
	uuidGen UUIDGenerator,
) *ManualService {
	svc := NewManualService(brands, manuals, jobs, chat, tracer)
	svc.uuidGen = uuidGen
	return svc
}

// CreateBrand registers a new brand.
func (s *ManualService) CreateBrand(ctx context.Context, principal *domain.Principal, name string) (*domain.Brand, error) {
	if err := requireAction(principal, ActionManageManual, Resource{}); err != nil {
		return nil, err
	}

	brand := &domain.Brand{
		ID:        s.uuidGen.NewString(),
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateBrand(brand); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid brand", err)
	}

	if _, err := s.brands.GetByName(ctx, brand.Name); err == nil {
		return nil, domain.ErrBrandAlreadyExists
	} else if !errors.Is(err, domain.ErrBrandNotFound) {
		return nil, err
	}

	if err := s.brands.Create(ctx, brand); err != nil {
		return nil, err
	}
	return brand, nil
}

// ListBrands lists all brands. Any authenticated principal may list them.
func (s *ManualService) ListBrands(ctx context.Context, principal *domain.Principal) ([]*domain.Brand, error) {
	if principal == nil {
		return nil, domain.ErrForbidden
	}
	return s.brands.List(ctx)
}

// GenerateManual asks the manual architect model to produce a Brand DNA
// document for the brand, normalizes it, and ingests the result.
func (s *ManualService) GenerateManual(ctx context.Context, principal *domain.Principal, brandID string, params ManualParams) (*domain.Manual, error) {
	if err := requireAction(principal, ActionManageManual, Resource{}); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Product) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "product is required")
	}
	if strings.TrimSpace(params.Tone) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tone is required")
	}
	if strings.TrimSpace(params.Audience) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "audience is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "ManualService.GenerateManual", telemetry.SpanAttributes{
		BrandID:     brandID,
		PrincipalID: principal.ID,
		Operation:   "generate_manual",
	})
	defer span.End()

	start := time.Now()
	trace := TraceRecord{
		Name:        "manual.generate",
		PrincipalID: principal.ID,
		BrandID:     brandID,
		Input: map[string]any{
			"product":  params.Product,
			"tone":     params.Tone,
			"audience": params.Audience,
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

	if _, err := s.brands.GetByID(ctx, brandID); err != nil {
		traceErr = err
		span.SetError(err)
		return nil, err
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: manualSystemPrompt},
		{Role: llm.RoleUser, Content: buildManualPrompt(params)},
	}
	trace.PromptSys = manualSystemPrompt
	trace.PromptUser = messages[1].Content

	raw, err := s.chat.Complete(ctx, messages)
	if err != nil {
		traceErr = err
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailed, "manual generation failed", err)
	}
	trace.Output = raw

	doc, err := NormalizeManualDocument(raw)
	if err != nil {
		traceErr = err
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailed, "manual output could not be parsed", err)
	}
	if doc.BrandName == "" {
		doc.BrandName = params.BrandName
	}
	if doc.Product == "" {
		doc.Product = params.Product
	}
	if doc.Audience == "" {
		doc.Audience = params.Audience
	}

	manual, err := s.ingest(ctx, brandID, doc)
	if err != nil {
		traceErr = err
		span.SetError(err)
		return nil, err
	}
	trace.ManualID = manual.ID

	return manual, nil
}

// IngestManual stores a pre-built manual document directly, bypassing the
// architect model.
func (s *ManualService) IngestManual(ctx context.Context, principal *domain.Principal, brandID string, doc domain.ManualDocument) (*domain.Manual, error) {
	if err := requireAction(principal, ActionManageManual, Resource{}); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "ManualService.IngestManual", telemetry.SpanAttributes{
		BrandID:     brandID,
		PrincipalID: principal.ID,
		Operation:   "ingest_manual",
	})
	defer span.End()

	if _, err := s.brands.GetByID(ctx, brandID); err != nil {
		span.SetError(err)
		return nil, err
	}

	manual, err := s.ingest(ctx, brandID, doc)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return manual, nil
}

// ingest persists the manual, its section chunks, and queues the embedding
// job that makes the chunks retrievable.
func (s *ManualService) ingest(ctx context.Context, brandID string, doc domain.ManualDocument) (*domain.Manual, error) {
	sections := ChunkManual(doc)
	if len(sections) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "manual document has no content to chunk")
	}

	now := time.Now().UTC()
	manual := domain.NewManual(s.uuidGen.NewString(), brandID, doc, now)
	if err := domain.ValidateManual(manual); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid manual", err)
	}

	chunks := make([]*domain.ManualChunk, 0, len(sections))
	for i, sec := range sections {
		chunk := &domain.ManualChunk{
			ID:        s.uuidGen.NewString(),
			ManualID:  manual.ID,
			Section:   sec.Section,
			Ordinal:   i,
			Text:      sec.Text,
			CreatedAt: now,
		}
		if err := domain.ValidateManualChunk(chunk); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid manual chunk", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := s.manuals.Create(ctx, manual); err != nil {
		return nil, err
	}
	if err := s.manuals.CreateChunks(ctx, chunks); err != nil {
		return nil, err
	}

	job := &domain.EmbeddingJob{
		ID:        s.uuidGen.NewString(),
		ManualID:  manual.ID,
		Status:    domain.EmbeddingJobStatusPending,
		CreatedAt: now,
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	return manual, nil
}

// ManualStatus pairs a manual with the progress of its embedding job.
// Ready means every chunk has an embedding and retrieval can use the manual.
type ManualStatus struct {
	Manual         *domain.Manual
	EmbeddedChunks int
	PendingChunks  int
	Ready          bool
}

// GetLatestManualStatus returns the brand's current manual along with how
// many of its chunks the embedding worker has made retrievable.
func (s *ManualService) GetLatestManualStatus(ctx context.Context, principal *domain.Principal, brandID string) (*ManualStatus, error) {
	if principal == nil {
		return nil, domain.ErrForbidden
	}

	manual, err := s.manuals.GetLatestByBrand(ctx, brandID)
	if err != nil {
		return nil, err
	}

	embedded, err := s.manuals.CountEmbeddedChunks(ctx, manual.ID)
	if err != nil {
		return nil, err
	}
	pending, err := s.manuals.ListChunksWithoutEmbedding(ctx, manual.ID)
	if err != nil {
		return nil, err
	}

	return &ManualStatus{
		Manual:         manual,
		EmbeddedChunks: embedded,
		PendingChunks:  len(pending),
		Ready:          embedded > 0 && len(pending) == 0,
	}, nil
}
