//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cadenlabs/brandgov/internal/api/handlers"
	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/jobs"
	"github.com/cadenlabs/brandgov/internal/llm"
	"github.com/cadenlabs/brandgov/internal/repository"
	"github.com/cadenlabs/brandgov/internal/server"
	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/cadenlabs/brandgov/internal/storage"
	"github.com/cadenlabs/brandgov/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	BinaryDir    string
	HTTPClient   *http.Client

	// Worker and stubs exposed so tests can drive them deterministically.
	EmbeddingWorker *jobs.EmbeddingWorker
	Vision          *scriptedVision

	CreatorID      string
	ApproverAID    string
	ApproverBID    string
	CreatorToken   string
	ApproverAToken string
	ApproverBToken string
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	// Start PostgreSQL container
	pgC := testutil.NewPostgresContainer(ctx, t)

	// Start RustFS container
	s3C := testutil.NewRustFSContainer(ctx, t)

	// Create connection pool and run migrations
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	// Create S3 client
	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "brandgov-audits",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	// Find free port for server
	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	env.startServer(port)
	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	// Clean up binaries
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// Bootstrap creates one principal per role and an API key for each.
// Principals are provisioned through the admin service rather than HTTP
// because the API has no open registration endpoint.
func (e *E2ETestEnv) Bootstrap() {
	principalRepo := repository.NewPrincipalRepository(e.Pool)
	apiKeyRepo := repository.NewAPIKeyRepository(e.Pool)
	authSvc := service.NewAuthService(principalRepo, apiKeyRepo, &service.DefaultUUIDGenerator{})

	create := func(email string, role domain.Role) (string, string) {
		p, err := authSvc.CreatePrincipal(e.Ctx, email, role)
		if err != nil {
			e.T.Fatalf("failed to create principal %s: %v", email, err)
		}
		token, err := authSvc.CreateAPIKey(e.Ctx, p.ID, "e2e")
		if err != nil {
			e.T.Fatalf("failed to create API key for %s: %v", email, err)
		}
		return p.ID, token
	}

	e.CreatorID, e.CreatorToken = create("creator@e2e.test", domain.RoleCreator)
	e.ApproverAID, e.ApproverAToken = create("approver-a@e2e.test", domain.RoleApproverA)
	e.ApproverBID, e.ApproverBToken = create("approver-b@e2e.test", domain.RoleApproverB)
}

// DrainEmbeddings runs the embedding worker until all queued jobs are
// processed, instead of waiting on the poll loop.
func (e *E2ETestEnv) DrainEmbeddings() {
	if err := e.EmbeddingWorker.ProcessJobs(e.Ctx); err != nil {
		e.T.Fatalf("failed to process embedding jobs: %v", err)
	}
}

// BuildBinaries builds the brandgov and brandgovd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "brandgov-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	// Build brandgovd
	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "brandgovd"), "./cmd/brandgovd")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build brandgovd: %v\n%s", err, out)
	}

	// Build brandgov
	cmd = exec.Command("go", "build", "-o", filepath.Join(tmpDir, "brandgov"), "./cmd/brandgov")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build brandgov: %v\n%s", err, out)
	}
}

// RunBrandgov runs the brandgov CLI command with the given API token
func (e *E2ETestEnv) RunBrandgov(workDir, token string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "brandgov"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("BRANDGOV_API_KEY=%s", token),
		fmt.Sprintf("BRANDGOV_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, int, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, int, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, int, error) {
	return e.doRequest("PUT", path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, int, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, 0, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	return e.send(req)
}

// PostImage uploads an image as multipart form data to the given path
func (e *E2ETestEnv) PostImage(path, authToken string, image []byte, filename string) (*APIResponse, int, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, 0, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, 0, err
	}
	if err := writer.Close(); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequest("POST", e.ServerURL+path, &buf)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return e.send(req)
}

func (e *E2ETestEnv) send(req *http.Request) (*APIResponse, int, error) {
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return &apiResp, resp.StatusCode, nil
}

// startServer wires the full stack against the test containers. Language
// model providers are replaced with deterministic stubs; everything else
// (postgres, pgvector search, object storage) is real.
func (e *E2ETestEnv) startServer(port int) {
	pool := e.Pool

	brandRepo := repository.NewBrandRepository(pool)
	manualRepo := repository.NewManualRepository(pool)
	contentRepo := repository.NewContentRepository(pool)
	approvalRepo := repository.NewApprovalRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	principalRepo := repository.NewPrincipalRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	tracer := service.NewAsyncTraceRecorder(repository.NewTraceLogRepository(pool))

	authSvc := service.NewAuthService(principalRepo, apiKeyRepo, &service.DefaultUUIDGenerator{})

	manualChat := &scriptedChat{output: sampleManualJSON}
	genChat := &scriptedChat{output: "Morning clarity in a can. Brewed slow, served bright, gone by noon."}
	embedder := &hashEmbedder{dims: 1536}
	e.Vision = &scriptedVision{output: PassingAuditReport()}

	retriever := service.NewRetriever(embedder, manualRepo)
	chunkEmbedSvc := service.NewChunkEmbeddingService(manualRepo, embedder)
	e.EmbeddingWorker = jobs.NewEmbeddingWorker(embeddingJobRepo, chunkEmbedSvc)

	composer := service.NewComposer(24000)
	manualSvc := service.NewManualService(brandRepo, manualRepo, embeddingJobRepo, manualChat, tracer)
	generationSvc := service.NewGenerationService(manualRepo, retriever, composer, genChat, contentRepo, tracer, service.GenerationConfig{
		TopK:    6,
		Timeout: 30 * time.Second,
	})
	lifecycleSvc := service.NewLifecycleService(contentRepo, approvalRepo, txRunner, tracer)
	auditSvc := service.NewAuditService(contentRepo, manualRepo, auditRepo, retriever, e.Vision, e.S3Client, tracer, 30*time.Second)

	router := server.NewRouter(server.RouterConfig{
		Authenticator:     authSvc,
		BrandHandler:      handlers.NewBrandHandler(manualSvc),
		ContentHandler:    handlers.NewContentHandler(generationSvc, lifecycleSvc),
		GovernanceHandler: handlers.NewGovernanceHandler(lifecycleSvc, auditSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	e.ServerURL = fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, e.ServerURL, 10*time.Second)

	e.ServerCloser = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		tracer.Close()
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// scriptedChat is a ChatCompleter that always returns a fixed completion.
type scriptedChat struct {
	output string
}

func (c *scriptedChat) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return c.output, nil
}

// scriptedVision returns a fixed audit report; tests swap the report to
// exercise different verdict outcomes.
type scriptedVision struct {
	mu     sync.Mutex
	output string
}

func (v *scriptedVision) SetOutput(output string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.output = output
}

func (v *scriptedVision) Analyze(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.output, nil
}

// hashEmbedder produces a deterministic embedding for any text. The first
// component dominates so all vectors sit in the same cosine neighborhood and
// nearest-neighbor search stays stable across runs.
type hashEmbedder struct {
	dims int
}

func (h *hashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, h.dims)
	for i := range vec {
		b := sum[(i*4)%len(sum)]
		vec[i] = float32(binary.LittleEndian.Uint16([]byte{b, sum[(i*7+1)%len(sum)]})) / 65535.0 * 0.01
	}
	vec[0] = 1.0
	return vec, nil
}

// PassingAuditReport returns a vision report that maps to a PASS verdict.
func PassingAuditReport() string {
	return `{
		"verdict": "PASS",
		"validated_rules_count": 3,
		"validated_rules": ["logo has clear space", "colors match palette", "no drop shadows"],
		"violations": [],
		"notes": ["copy legibility not judged from image"]
	}`
}

// FailingAuditReport returns a vision report that maps to a FAIL verdict.
func FailingAuditReport() string {
	return `{
		"verdict": "FAIL",
		"validated_rules_count": 1,
		"validated_rules": ["colors match palette"],
		"violations": [
			{"rule": "logo clear space", "evidence": "logo touches the left edge", "fix": "pad the logo by its own height"}
		],
		"notes": []
	}`
}

// sampleManualJSON is what the scripted manual-architect model returns.
const sampleManualJSON = `{
	"brand_name": "Driftwell",
	"product": "Cold brew coffee in recyclable cans",
	"audience": "Busy professionals aged 25-40",
	"tone": {
		"description": "Calm, dry-witted, confident without shouting",
		"dos": ["short declarative sentences", "concrete sensory detail"],
		"donts": ["exclamation marks", "hustle-culture slang"]
	},
	"messaging": {
		"value_props": ["slow-brewed for 18 hours", "no added sugar ever"],
		"taglines": ["Slow brew for fast lives"],
		"forbidden_claims": ["health benefits", "caffeine content comparisons"],
		"preferred_terms": ["slow-brewed", "small batch"],
		"forbidden_terms": ["energy drink", "buzz"]
	},
	"style_rules": {
		"reading_level": "8th grade",
		"length_guidelines": {"description": "under 120 words", "script": "under 90 seconds"}
	},
	"visual_guidelines": {
		"colors": ["deep navy #0B1F3A", "cream #F5EFE0"],
		"logo_rules": ["clear space equal to logo height", "never place on photography"],
		"typography": ["serif headlines", "sans-serif body"],
		"image_style": ["natural light", "no stock-photo smiles"],
		"notes": "Matte finishes only in product shots"
	},
	"examples": {
		"good": [{"type": "description", "text": "Eighteen hours in the tank. Ninety seconds in your hand.", "why": "concrete and calm"}],
		"bad": [{"type": "description", "text": "Get BUZZED with our insane cold brew!!!", "why": "forbidden term and tone"}]
	},
	"approval_checklist": ["no forbidden claims", "tagline usage correct"],
	"assumptions": ["US market only"]
}`
