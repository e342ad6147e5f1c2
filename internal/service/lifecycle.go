package service

import (
	"context"
	"strings"
	"time"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/pagination"
	"github.com/cadenlabs/brandgov/internal/telemetry"
)

// ContentRepositoryInterface defines the repository interface for content persistence
type ContentRepositoryInterface interface {
	Create(ctx context.Context, p *domain.ContentPiece) error
	GetByID(ctx context.Context, id string) (*domain.ContentPiece, error)
	// TransitionStatus performs a conditional update keyed on the expected
	// current status. It reports false when the piece was not in that
	// status, which is how concurrent transitions are serialized.
	TransitionStatus(ctx context.Context, id string, from, to domain.ContentStatus, updatedAt time.Time) (bool, error)
	ListByCreatorWithCursor(ctx context.Context, creatorID string, status domain.ContentStatus, cursor *pagination.Cursor, limit int) (*ContentPageResult, error)
	ListWithCursor(ctx context.Context, status domain.ContentStatus, cursor *pagination.Cursor, limit int) (*ContentPageResult, error)
}

// ApprovalRepositoryInterface defines the repository interface for approval persistence
type ApprovalRepositoryInterface interface {
	Create(ctx context.Context, a *domain.Approval) error
	GetByPieceID(ctx context.Context, pieceID string) (*domain.Approval, error)
}

// ContentPageResult is one page of a content listing.
type ContentPageResult struct {
	Items      []*domain.ContentPiece
	NextCursor string
	HasMore    bool
}

// LifecycleTxRunner runs the terminal transition and its approval record in
// one transaction.
type LifecycleTxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// TxRepositories exposes transactional repositories to service callbacks.
type TxRepositories interface {
	Content() ContentRepositoryInterface
	Approvals() ApprovalRepositoryInterface
}

// LifecycleService owns the PENDING → APPROVED/REJECTED state machine.
// Terminal states are never re-entered; a rejected piece is resubmitted by
// generating a new one.
type LifecycleService struct {
	content   ContentRepositoryInterface
	approvals ApprovalRepositoryInterface
	txRunner  LifecycleTxRunner
	tracer    TraceRecorder
	uuidGen   UUIDGenerator
}

// NewLifecycleService creates a new LifecycleService instance
func NewLifecycleService(
	content ContentRepositoryInterface,
	approvals ApprovalRepositoryInterface,
	txRunner LifecycleTxRunner,
	tracer TraceRecorder,
) *LifecycleService {
	return &LifecycleService{
		content:   content,
		approvals: approvals,
		txRunner:  txRunner,
		tracer:    tracer,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewLifecycleServiceWithUUIDGen creates a LifecycleService with a custom UUID generator (for testing)
func NewLifecycleServiceWithUUIDGen(
	content ContentRepositoryInterface,
	approvals ApprovalRepositoryInterface,
	txRunner LifecycleTxRunner,
	tracer TraceRecorder,
	uuidGen UUIDGenerator,
) *LifecycleService {
	svc := NewLifecycleService(content, approvals, txRunner, tracer)
	svc.uuidGen = uuidGen
	return svc
}

// Approve moves a PENDING piece to APPROVED and records the approval.
func (s *LifecycleService) Approve(ctx context.Context, principal *domain.Principal, pieceID, feedback string) (*domain.ContentPiece, error) {
	if err := requireAction(principal, ActionApproveContent, Resource{}); err != nil {
		return nil, err
	}
	return s.transition(ctx, principal, pieceID, domain.ContentStatusApproved, domain.DecisionApprove, feedback)
}

// Reject moves a PENDING piece to REJECTED. Feedback is mandatory so the
// creator knows what to fix in a resubmission.
func (s *LifecycleService) Reject(ctx context.Context, principal *domain.Principal, pieceID, feedback string) (*domain.ContentPiece, error) {
	if err := requireAction(principal, ActionRejectContent, Resource{}); err != nil {
		return nil, err
	}
	if strings.TrimSpace(feedback) == "" {
		return nil, domain.ErrFeedbackRequired
	}
	return s.transition(ctx, principal, pieceID, domain.ContentStatusRejected, domain.DecisionReject, feedback)
}

func (s *LifecycleService) transition(ctx context.Context, principal *domain.Principal, pieceID string, target domain.ContentStatus, decision domain.Decision, feedback string) (*domain.ContentPiece, error) {
	ctx, span := telemetry.StartSpan(ctx, "LifecycleService.transition", telemetry.SpanAttributes{
		PieceID:     pieceID,
		PrincipalID: principal.ID,
		Operation:   strings.ToLower(string(decision)),
	})
	defer span.End()

	start := time.Now()
	now := start.UTC()
	var piece *domain.ContentPiece

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		var err error
		piece, err = repos.Content().GetByID(ctx, pieceID)
		if err != nil {
			return err
		}

		ok, err := repos.Content().TransitionStatus(ctx, pieceID, domain.ContentStatusPending, target, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrContentNotPending
		}

		approval := &domain.Approval{
			ID:         s.uuidGen.NewString(),
			PieceID:    pieceID,
			ApproverID: principal.ID,
			Role:       principal.Role,
			Decision:   decision,
			Feedback:   feedback,
			CreatedAt:  now,
		}
		if err := domain.ValidateApproval(approval); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid approval", err)
		}

		return repos.Approvals().Create(ctx, approval)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	piece.Status = target
	piece.UpdatedAt = now

	s.tracer.Record(ctx, TraceRecord{
		Name:        "content." + strings.ToLower(string(decision)),
		PrincipalID: principal.ID,
		BrandID:     piece.BrandID,
		ManualID:    piece.ManualID,
		PieceID:     piece.ID,
		Input:       map[string]any{"feedback": feedback},
		Output:      string(target),
		Status:      TraceStatusOK,
		LatencyMS:   time.Since(start).Milliseconds(),
	})

	return piece, nil
}

// Get returns a single piece, enforcing creator ownership for non-approvers.
func (s *LifecycleService) Get(ctx context.Context, principal *domain.Principal, pieceID string) (*domain.ContentPiece, error) {
	piece, err := s.content.GetByID(ctx, pieceID)
	if err != nil {
		return nil, err
	}

	if err := requireAction(principal, ActionViewContent, Resource{OwnerID: piece.CreatorID}); err != nil {
		return nil, err
	}

	return piece, nil
}

// ListInput represents the input for listing content pieces
type ListInput struct {
	Status domain.ContentStatus
	Cursor string
	Limit  int
}

// List returns pieces visible to the principal: approvers see everything,
// creators only their own.
func (s *LifecycleService) List(ctx context.Context, principal *domain.Principal, input ListInput) (*ContentPageResult, error) {
	if principal == nil {
		return nil, domain.ErrForbidden
	}

	if input.Status != "" && !domain.IsValidContentStatus(input.Status) {
		return nil, domain.ErrInvalidContentStatus
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if principal.IsApprover() {
		return s.content.ListWithCursor(ctx, input.Status, cursor, limit)
	}
	return s.content.ListByCreatorWithCursor(ctx, principal.ID, input.Status, cursor, limit)
}

// Inbox is the role-dependent worklist: approvers get the PENDING queue,
// creators get their own recent pieces in any state.
func (s *LifecycleService) Inbox(ctx context.Context, principal *domain.Principal) (*ContentPageResult, error) {
	if principal == nil {
		return nil, domain.ErrForbidden
	}

	const inboxLimit = 50
	if principal.IsApprover() {
		return s.content.ListWithCursor(ctx, domain.ContentStatusPending, nil, inboxLimit)
	}
	return s.content.ListByCreatorWithCursor(ctx, principal.ID, "", nil, inboxLimit)
}
