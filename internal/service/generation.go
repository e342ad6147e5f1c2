package service

import (
	"context"
	"time"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/llm"
	"github.com/cadenlabs/brandgov/internal/telemetry"
)

// ChatCompleter defines the interface for language model completion
type ChatCompleter interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// ManualReader resolves the manual a generation or audit is scoped to.
type ManualReader interface {
	GetLatestByBrand(ctx context.Context, brandID string) (*domain.Manual, error)
}

// ContentWriter persists newly generated pieces.
type ContentWriter interface {
	Create(ctx context.Context, p *domain.ContentPiece) error
}

// ChunkRetriever is the retrieval dependency of the generation and audit
// pipelines.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query, manualID string, k int) ([]ScoredChunk, error)
}

// GenerationConfig tunes the generation pipeline.
type GenerationConfig struct {
	TopK         int
	MinChunks    int
	Timeout      time.Duration
	RetryBackoff time.Duration
}

// DefaultGenerationConfig provides the documented defaults.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		TopK:         6,
		MinChunks:    3,
		Timeout:      45 * time.Second,
		RetryBackoff: 2 * time.Second,
	}
}

// GenerationService runs the retrieval-augmented generation pipeline and
// creates the resulting piece in PENDING state.
type GenerationService struct {
	manuals   ManualReader
	retriever ChunkRetriever
	composer  *Composer
	chat      ChatCompleter
	content   ContentWriter
	tracer    TraceRecorder
	uuidGen   UUIDGenerator
	cfg       GenerationConfig
}

// NewGenerationService creates a new GenerationService instance
func NewGenerationService(
	manuals ManualReader,
	retriever ChunkRetriever,
	composer *Composer,
	chat ChatCompleter,
	content ContentWriter,
	tracer TraceRecorder,
	cfg GenerationConfig,
) *GenerationService {
	if cfg.TopK <= 0 {
		cfg.TopK = 6
	}
	if cfg.MinChunks <= 0 {
		cfg.MinChunks = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	return &GenerationService{
		manuals:   manuals,
		retriever: retriever,
		composer:  composer,
		chat:      chat,
		content:   content,
		tracer:    tracer,
		uuidGen:   &DefaultUUIDGenerator{},
		cfg:       cfg,
	}
}

// NewGenerationServiceWithUUIDGen creates a GenerationService with a custom UUID generator (for testing)
func NewGenerationServiceWithUUIDGen(
	manuals ManualReader,
	retriever ChunkRetriever,
	composer *Composer,
	chat ChatCompleter,
	content ContentWriter,
	tracer TraceRecorder,
	cfg GenerationConfig,
	uuidGen UUIDGenerator,
) *GenerationService {
	svc := NewGenerationService(manuals, retriever, composer, chat, content, tracer, cfg)
	svc.uuidGen = uuidGen
	return svc
}

// GenerateInput represents the input for generating a content piece
type GenerateInput struct {
	BrandID string
	Type    domain.ContentType
	Brief   string
}

// Generate runs the full pipeline: resolve manual, retrieve context, rerank,
// compose, invoke the model (one retry on provider failure), persist the
// PENDING piece. Exactly one trace record is emitted per call, on failure as
// well as success; no piece is persisted when generation fails.
func (s *GenerationService) Generate(ctx context.Context, principal *domain.Principal, input GenerateInput) (piece *domain.ContentPiece, err error) {
	if err := requireAction(principal, ActionGenerateContent, Resource{}); err != nil {
		return nil, err
	}

	if input.BrandID == "" || input.Brief == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if !domain.IsValidContentType(input.Type) {
		return nil, domain.ErrInvalidContentType
	}

	ctx, span := telemetry.StartSpan(ctx, "GenerationService.Generate", telemetry.SpanAttributes{
		BrandID:     input.BrandID,
		PrincipalID: principal.ID,
		Operation:   "generate",
	})
	defer span.End()

	start := time.Now()
	trace := TraceRecord{
		Name:        "content.generate",
		PrincipalID: principal.ID,
		BrandID:     input.BrandID,
		Input: map[string]any{
			"type":  string(input.Type),
			"brief": input.Brief,
		},
		Status: TraceStatusOK,
	}
	defer func() {
		trace.LatencyMS = time.Since(start).Milliseconds()
		if err != nil {
			trace.Status = TraceStatusError
			trace.Error = err.Error()
			span.SetError(err)
		}
		s.tracer.Record(ctx, trace)
	}()

	manual, err := s.manuals.GetLatestByBrand(ctx, input.BrandID)
	if err != nil {
		return nil, err
	}
	trace.ManualID = manual.ID

	chunks, err := s.retriever.Retrieve(ctx, input.Brief, manual.ID, s.cfg.TopK)
	if err != nil {
		return nil, err
	}
	if len(chunks) < s.cfg.MinChunks {
		return nil, domain.ErrRetrievalInsufficient
	}

	ranked := RerankChunks(chunks, input.Type, s.cfg.TopK)
	snapshot := contextSnapshot(ranked)
	trace.Context = snapshot

	prompt, err := s.composer.Compose(ranked, BrandRulesFromManual(manual.Document), input.Type, input.Brief)
	if err != nil {
		return nil, err
	}
	trace.PromptSys = prompt.System
	trace.PromptUser = prompt.User

	output, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	trace.Output = output

	now := time.Now().UTC()
	piece = &domain.ContentPiece{
		ID:        s.uuidGen.NewString(),
		BrandID:   input.BrandID,
		ManualID:  manual.ID,
		CreatorID: principal.ID,
		Type:      input.Type,
		Brief:     input.Brief,
		Output:    output,
		Context:   snapshot,
		Status:    domain.ContentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := domain.ValidateContentPiece(piece); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid content piece", err)
	}

	if err := s.content.Create(ctx, piece); err != nil {
		return nil, err
	}
	trace.PieceID = piece.ID

	return piece, nil
}

// complete invokes the model with a bounded timeout and retries once on
// provider failure before giving up.
func (s *GenerationService) complete(ctx context.Context, prompt FinalPrompt) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.System},
		{Role: llm.RoleUser, Content: prompt.User},
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 && s.cfg.RetryBackoff > 0 {
			select {
			case <-time.After(s.cfg.RetryBackoff):
			case <-ctx.Done():
				return "", domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailed, "generation cancelled", ctx.Err())
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		output, err := s.chat.Complete(callCtx, messages)
		cancel()
		if err == nil {
			return output, nil
		}
		lastErr = err
	}

	return "", domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailed, "language model call failed after retry", lastErr)
}

func contextSnapshot(chunks []ScoredChunk) []domain.ContextChunk {
	snapshot := make([]domain.ContextChunk, 0, len(chunks))
	for _, c := range chunks {
		snapshot = append(snapshot, domain.ContextChunk{
			ChunkID:    c.Chunk.ID,
			Section:    c.Chunk.Section,
			Ordinal:    c.Chunk.Ordinal,
			Text:       c.Chunk.Text,
			Similarity: c.Score,
		})
	}
	return snapshot
}
