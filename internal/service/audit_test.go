package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockVisionAnalyzer is a mock implementation of VisionAnalyzer
type MockVisionAnalyzer struct {
	mock.Mock
}

func (m *MockVisionAnalyzer) Analyze(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	args := m.Called(ctx, image, mimeType, prompt)
	return args.String(0), args.Error(1)
}

// MockObjectStore is a mock implementation of ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) UploadObject(ctx context.Context, key string, contentType string, body []byte) error {
	args := m.Called(ctx, key, contentType, body)
	return args.Error(0)
}

func (m *MockObjectStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// MockAuditRepository is a mock implementation of AuditRepositoryInterface
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, rec *domain.AuditRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByPiece(ctx context.Context, pieceID string) ([]*domain.AuditRecord, error) {
	args := m.Called(ctx, pieceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AuditRecord), args.Error(1)
}

type auditFixture struct {
	svc       *AuditService
	content   *MockContentRepository
	manuals   *MockManualReader
	audits    *MockAuditRepository
	retriever *MockChunkRetriever
	vision    *MockVisionAnalyzer
	store     *MockObjectStore
	tracer    *captureTracer
}

func newAuditFixture() *auditFixture {
	f := &auditFixture{
		content:   new(MockContentRepository),
		manuals:   new(MockManualReader),
		audits:    new(MockAuditRepository),
		retriever: new(MockChunkRetriever),
		vision:    new(MockVisionAnalyzer),
		store:     new(MockObjectStore),
		tracer:    &captureTracer{},
	}
	f.svc = NewAuditServiceWithUUIDGen(
		f.content, f.manuals, f.audits, f.retriever, f.vision, f.store, f.tracer,
		5*time.Second,
		NewMockUUIDGenerator("audit-1"),
	)
	return f
}

func visualChunks() []ScoredChunk {
	return []ScoredChunk{
		scoredChunk("c-1", "visual.logo_rules", 0, 0.91),
		scoredChunk("c-2", "visual.colors", 1, 0.88),
	}
}

// wireHappyPath sets up everything up to the vision call.
func (f *auditFixture) wireHappyPath(approver *domain.Principal) {
	f.content.On("GetByID", mock.Anything, "piece-1").Return(pendingPiece("piece-1"), nil)
	f.manuals.On("GetLatestByBrand", mock.Anything, "brand-1").Return(testManual(), nil)
	f.store.On("UploadObject", mock.Anything, "audits/"+approver.ID+"/piece-1/ad.png", "image/png", mock.Anything).Return(nil)
	f.retriever.On("Retrieve", mock.Anything, auditRetrievalQuery, "manual-1", 12).Return(visualChunks(), nil)
}

func TestAuditService_AuditImage(t *testing.T) {
	ctx := context.Background()
	approverB := principalWithRole(domain.RoleApproverB)
	input := AuditImageInput{PieceID: "piece-1", Filename: "ad.png", MimeType: "image/png", Image: []byte{0x89, 0x50}}

	t.Run("clean report yields PASS", func(t *testing.T) {
		f := newAuditFixture()
		f.wireHappyPath(approverB)
		f.vision.On("Analyze", mock.Anything, input.Image, "image/png", mock.MatchedBy(func(p string) bool {
			return strings.Contains(p, "[visual.logo_rules]")
		})).Return(`{"verdict":"PASS","validated_rules_count":3,"validated_rules":["logo placement","palette"],"violations":[],"notes":["clean asset"]}`, nil)
		f.store.On("GenerateDownloadURL", mock.Anything, "audits/"+approverB.ID+"/piece-1/ad.png").Return("https://signed.example/ad.png", nil)
		f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

		rec, err := f.svc.AuditImage(ctx, approverB, input)

		require.NoError(t, err)
		assert.Equal(t, domain.VerdictPass, rec.Verdict)
		assert.Equal(t, "audit-1", rec.ID)
		assert.Equal(t, "piece-1", rec.PieceID)
		assert.Equal(t, approverB.ID, rec.AuditorID)
		assert.Equal(t, "https://signed.example/ad.png", rec.ImageURL)
		assert.Len(t, rec.RuleContext, 2)
		assert.Equal(t, "clean asset", rec.Explanation)

		records := f.tracer.all()
		require.Len(t, records, 1)
		assert.Equal(t, "audit.image", records[0].Name)
		assert.Equal(t, TraceStatusOK, records[0].Status)
	})

	t.Run("violations force FAIL", func(t *testing.T) {
		f := newAuditFixture()
		f.wireHappyPath(approverB)
		f.vision.On("Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(
			`{"verdict":"PASS","validated_rules_count":4,"validated_rules":["logo"],"violations":[{"rule":"logo clear space","evidence":"text overlaps logo","fix":"move the headline"}],"notes":[]}`, nil)
		f.store.On("GenerateDownloadURL", mock.Anything, mock.Anything).Return("https://signed.example/ad.png", nil)
		f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

		rec, err := f.svc.AuditImage(ctx, approverB, input)

		require.NoError(t, err)
		assert.Equal(t, domain.VerdictFail, rec.Verdict)
		require.Len(t, rec.Violations, 1)
		assert.Equal(t, "logo clear space", rec.Violations[0].Rule)
	})

	t.Run("thin validation yields CHECK", func(t *testing.T) {
		f := newAuditFixture()
		f.wireHappyPath(approverB)
		f.vision.On("Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(
			`{"verdict":"PASS","validated_rules_count":1,"validated_rules":["logo"],"violations":[],"notes":[]}`, nil)
		f.store.On("GenerateDownloadURL", mock.Anything, mock.Anything).Return("https://signed.example/ad.png", nil)
		f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

		rec, err := f.svc.AuditImage(ctx, approverB, input)

		require.NoError(t, err)
		assert.Equal(t, domain.VerdictCheck, rec.Verdict)
	})

	t.Run("unparseable model output yields CHECK with raw explanation", func(t *testing.T) {
		f := newAuditFixture()
		f.wireHappyPath(approverB)
		f.vision.On("Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("the image looks fine to me", nil)
		f.store.On("GenerateDownloadURL", mock.Anything, mock.Anything).Return("https://signed.example/ad.png", nil)
		f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

		rec, err := f.svc.AuditImage(ctx, approverB, input)

		require.NoError(t, err)
		assert.Equal(t, domain.VerdictCheck, rec.Verdict)
		assert.Contains(t, rec.Explanation, "unparseable model output:")
		assert.Contains(t, rec.Explanation, "the image looks fine to me")
	})

	t.Run("approver_a cannot audit", func(t *testing.T) {
		f := newAuditFixture()

		_, err := f.svc.AuditImage(ctx, principalWithRole(domain.RoleApproverA), input)

		assert.ErrorIs(t, err, domain.ErrForbidden)
		f.content.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		assert.Empty(t, f.tracer.all())
	})

	t.Run("image is required", func(t *testing.T) {
		f := newAuditFixture()

		_, err := f.svc.AuditImage(ctx, approverB, AuditImageInput{PieceID: "piece-1"})

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	})

	t.Run("upload failure persists nothing", func(t *testing.T) {
		f := newAuditFixture()
		f.content.On("GetByID", mock.Anything, "piece-1").Return(pendingPiece("piece-1"), nil)
		f.manuals.On("GetLatestByBrand", mock.Anything, "brand-1").Return(testManual(), nil)
		f.store.On("UploadObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket unavailable"))

		_, err := f.svc.AuditImage(ctx, approverB, input)

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeInternalError, domainErr.Code)
		f.vision.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

		records := f.tracer.all()
		require.Len(t, records, 1)
		assert.Equal(t, TraceStatusError, records[0].Status)
	})

	t.Run("vision failure persists nothing", func(t *testing.T) {
		f := newAuditFixture()
		f.wireHappyPath(approverB)
		f.vision.On("Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("model timeout"))

		_, err := f.svc.AuditImage(ctx, approverB, input)

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeGenerationFailed, domainErr.Code)
		f.audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("presign failure still persists the record", func(t *testing.T) {
		f := newAuditFixture()
		f.wireHappyPath(approverB)
		f.vision.On("Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(
			`{"verdict":"PASS","validated_rules_count":2,"validated_rules":["logo","palette"],"violations":[],"notes":[]}`, nil)
		f.store.On("GenerateDownloadURL", mock.Anything, mock.Anything).Return("", errors.New("presign failed"))
		f.audits.On("Create", mock.Anything, mock.MatchedBy(func(rec *domain.AuditRecord) bool {
			return rec.ImageURL == "" && rec.ImageKey != ""
		})).Return(nil)

		rec, err := f.svc.AuditImage(ctx, approverB, input)

		require.NoError(t, err)
		assert.Empty(t, rec.ImageURL)
		f.audits.AssertExpectations(t)
	})

	t.Run("defaults mime type and filename", func(t *testing.T) {
		f := newAuditFixture()
		f.content.On("GetByID", mock.Anything, "piece-1").Return(pendingPiece("piece-1"), nil)
		f.manuals.On("GetLatestByBrand", mock.Anything, "brand-1").Return(testManual(), nil)
		f.store.On("UploadObject", mock.Anything, "audits/"+approverB.ID+"/piece-1/image.jpg", "image/jpeg", mock.Anything).Return(nil)
		f.retriever.On("Retrieve", mock.Anything, auditRetrievalQuery, "manual-1", 12).Return(visualChunks(), nil)
		f.vision.On("Analyze", mock.Anything, mock.Anything, "image/jpeg", mock.Anything).Return(
			`{"verdict":"PASS","validated_rules_count":2,"validated_rules":["logo","palette"],"violations":[],"notes":[]}`, nil)
		f.store.On("GenerateDownloadURL", mock.Anything, mock.Anything).Return("https://signed.example/image.jpg", nil)
		f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.svc.AuditImage(ctx, approverB, AuditImageInput{PieceID: "piece-1", Image: []byte{0x01}})

		require.NoError(t, err)
		f.store.AssertExpectations(t)
	})
}

func TestAuditService_ListAudits(t *testing.T) {
	ctx := context.Background()

	t.Run("returns records for both approver roles", func(t *testing.T) {
		f := newAuditFixture()

		recs := []*domain.AuditRecord{{ID: "audit-2"}, {ID: "audit-1"}}
		f.content.On("GetByID", mock.Anything, "piece-1").Return(pendingPiece("piece-1"), nil).Twice()
		f.audits.On("ListByPiece", mock.Anything, "piece-1").Return(recs, nil).Twice()

		for _, role := range []domain.Role{domain.RoleApproverA, domain.RoleApproverB} {
			got, err := f.svc.ListAudits(ctx, principalWithRole(role), "piece-1")
			require.NoError(t, err)
			assert.Equal(t, recs, got)
		}
	})

	t.Run("creators are forbidden", func(t *testing.T) {
		f := newAuditFixture()

		_, err := f.svc.ListAudits(ctx, principalWithRole(domain.RoleCreator), "piece-1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("missing piece surfaces not found", func(t *testing.T) {
		f := newAuditFixture()

		f.content.On("GetByID", mock.Anything, "nope").Return(nil, domain.ErrContentPieceNotFound)

		_, err := f.svc.ListAudits(ctx, principalWithRole(domain.RoleApproverA), "nope")
		assert.ErrorIs(t, err, domain.ErrContentPieceNotFound)
		f.audits.AssertNotCalled(t, "ListByPiece", mock.Anything, mock.Anything)
	})
}

func TestAuditImageKey(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain filename", "ad.png", "audits/p-1/piece-1/ad.png"},
		{"path is stripped", "uploads/2026/ad.png", "audits/p-1/piece-1/ad.png"},
		{"windows path is stripped", `C:\uploads\ad.png`, "audits/p-1/piece-1/ad.png"},
		{"empty falls back", "", "audits/p-1/piece-1/image.jpg"},
		{"dot falls back", ".", "audits/p-1/piece-1/image.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auditImageKey("p-1", "piece-1", tt.filename))
		})
	}
}
