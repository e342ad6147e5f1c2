package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cadenlabs/brandgov/internal/domain"
)

// TraceRecord captures one pipeline invocation end to end: the inputs, the
// retrieved context, the final prompt, the output or error, and latency.
type TraceRecord struct {
	Name        string
	PrincipalID string
	BrandID     string
	ManualID    string
	PieceID     string
	Input       map[string]any
	Context     []domain.ContextChunk
	PromptSys   string
	PromptUser  string
	Output      string
	Error       string
	Status      string
	LatencyMS   int64
	CreatedAt   time.Time
}

const (
	TraceStatusOK    = "ok"
	TraceStatusError = "error"
)

// TraceRecorder accepts trace records for an append-only backend.
type TraceRecorder interface {
	Record(ctx context.Context, rec TraceRecord)
}

// TraceLogRepository persists trace records.
type TraceLogRepository interface {
	CreateTrace(ctx context.Context, rec TraceRecord) (string, error)
}

// AsyncTraceRecorder writes traces off the request path. Recording never
// blocks and never fails the caller; a full queue or a failed write is
// logged for later reconciliation and otherwise dropped.
type AsyncTraceRecorder struct {
	repo    TraceLogRepository
	queue   chan TraceRecord
	done    chan struct{}
	timeout time.Duration
	once    sync.Once
}

// NewAsyncTraceRecorder creates and starts an AsyncTraceRecorder.
func NewAsyncTraceRecorder(repo TraceLogRepository) *AsyncTraceRecorder {
	r := &AsyncTraceRecorder{
		repo:    repo,
		queue:   make(chan TraceRecord, 256),
		done:    make(chan struct{}),
		timeout: 10 * time.Second,
	}
	go r.drain()
	return r
}

// Record enqueues the record without blocking the caller.
func (r *AsyncTraceRecorder) Record(_ context.Context, rec TraceRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	select {
	case r.queue <- rec:
	default:
		log.Printf("trace recorder: queue full, dropping trace %q", rec.Name)
	}
}

func (r *AsyncTraceRecorder) drain() {
	defer close(r.done)
	for rec := range r.queue {
		// The originating request context may already be cancelled;
		// trace writes get their own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if _, err := r.repo.CreateTrace(ctx, rec); err != nil {
			log.Printf("trace recorder: failed to persist trace %q: %v", rec.Name, err)
		}
		cancel()
	}
}

// Close flushes pending records and stops the recorder.
func (r *AsyncTraceRecorder) Close() {
	r.once.Do(func() {
		close(r.queue)
		<-r.done
	})
}

// NopTraceRecorder discards all records. Used when no trace backend is
// configured.
type NopTraceRecorder struct{}

func (NopTraceRecorder) Record(context.Context, TraceRecord) {}
