package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cadenlabs/brandgov/internal/api/handlers"
	"github.com/cadenlabs/brandgov/internal/config"
	"github.com/cadenlabs/brandgov/internal/database"
	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/jobs"
	"github.com/cadenlabs/brandgov/internal/llm"
	"github.com/cadenlabs/brandgov/internal/repository"
	"github.com/cadenlabs/brandgov/internal/server"
	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/cadenlabs/brandgov/internal/storage"
	"github.com/cadenlabs/brandgov/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the brandgov API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	brandRepo := repository.NewBrandRepository(pool)
	manualRepo := repository.NewManualRepository(pool)
	contentRepo := repository.NewContentRepository(pool)
	approvalRepo := repository.NewApprovalRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	principalRepo := repository.NewPrincipalRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(principalRepo, apiKeyRepo, uuidGen)

	if cfg.InitPrincipalEmail != "" {
		if err := bootstrapInitialPrincipal(ctx, cfg, authSvc, principalRepo); err != nil {
			return fmt.Errorf("failed to bootstrap initial principal: %w", err)
		}
	}

	tracer := service.NewAsyncTraceRecorder(repository.NewTraceLogRepository(pool))
	defer tracer.Close()

	var chat service.ChatCompleter
	if cfg.HasLLM() {
		chat = llm.NewChatClient(llm.ChatConfig{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
		})
	} else {
		chat = &NoOpChatCompleter{}
		log.Println("chat provider not configured; generation endpoints will reject requests")
	}

	var retriever service.ChunkRetriever
	var embeddingWorker *jobs.Worker
	if cfg.HasEmbeddings() {
		embeddingClient := llm.NewEmbeddingClientWithConfig(llm.EmbeddingConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.EmbedModel,
			Dimensions: cfg.EmbedDim,
		})
		retriever = service.NewRetriever(embeddingClient, manualRepo)

		embeddingSvc := service.NewChunkEmbeddingService(manualRepo, embeddingClient)
		embeddingProcessor := jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc)
		embeddingWorker = jobs.NewWorker(embeddingProcessor, 10*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding worker started")
	} else {
		retriever = &NoOpRetriever{}
		log.Println("embedding provider not configured; retrieval endpoints will reject requests")
	}

	var store service.ObjectStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		store = s3Client
	} else {
		store = &NoOpObjectStore{}
		log.Println("object storage not configured; image audits will reject requests")
	}

	var vision service.VisionAnalyzer
	if cfg.HasVision() {
		vision = llm.NewVisionClient(llm.VisionConfig{
			APIKey:  cfg.VisionAPIKey,
			BaseURL: cfg.VisionBaseURL,
			Model:   cfg.VisionModel,
		})
	} else {
		vision = &NoOpVisionAnalyzer{}
		log.Println("vision provider not configured; image audits will reject requests")
	}

	composer := service.NewComposer(cfg.PromptBudget)

	manualSvc := service.NewManualService(brandRepo, manualRepo, embeddingJobRepo, chat, tracer)
	generationSvc := service.NewGenerationService(manualRepo, retriever, composer, chat, contentRepo, tracer, service.GenerationConfig{
		TopK:         cfg.RetrievalTopK,
		Timeout:      cfg.GenerateTimeout,
		RetryBackoff: 2 * time.Second,
	})
	lifecycleSvc := service.NewLifecycleService(contentRepo, approvalRepo, txRunner, tracer)
	auditSvc := service.NewAuditService(contentRepo, manualRepo, auditRepo, retriever, vision, store, tracer, cfg.AuditTimeout)

	routerCfg := server.RouterConfig{
		Authenticator:     authSvc,
		BrandHandler:      handlers.NewBrandHandler(manualSvc),
		ContentHandler:    handlers.NewContentHandler(generationSvc, lifecycleSvc),
		GovernanceHandler: handlers.NewGovernanceHandler(lifecycleSvc, auditSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// NoOpChatCompleter rejects completion requests when no chat provider is
// configured.
type NoOpChatCompleter struct{}

func (c *NoOpChatCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return "", domain.NewDomainError(domain.ErrCodeGenerationFailed, "chat provider not configured: LLM_API_KEY required")
}

// NoOpRetriever rejects retrieval when no embedding provider is configured.
type NoOpRetriever struct{}

func (r *NoOpRetriever) Retrieve(ctx context.Context, query, manualID string, k int) ([]service.ScoredChunk, error) {
	return nil, domain.NewDomainError(domain.ErrCodeRetrievalUnavailable, "embedding provider not configured: OPENAI_API_KEY required")
}

// NoOpObjectStore rejects uploads when no object storage is configured.
type NoOpObjectStore struct{}

func (s *NoOpObjectStore) UploadObject(ctx context.Context, key, contentType string, body []byte) error {
	return domain.NewDomainError(domain.ErrCodeInternalError, "object storage not configured: S3_ENDPOINT required")
}

func (s *NoOpObjectStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return "", domain.NewDomainError(domain.ErrCodeInternalError, "object storage not configured: S3_ENDPOINT required")
}

// NoOpVisionAnalyzer rejects audits when no vision provider is configured.
type NoOpVisionAnalyzer struct{}

func (v *NoOpVisionAnalyzer) Analyze(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	return "", domain.NewDomainError(domain.ErrCodeGenerationFailed, "vision provider not configured: VISION_API_KEY required")
}

func bootstrapInitialPrincipal(ctx context.Context, cfg *config.Config, authSvc *service.AuthService, principalRepo *repository.PrincipalRepository) error {
	principal, err := principalRepo.GetByEmail(ctx, cfg.InitPrincipalEmail)
	if err != nil && err != domain.ErrPrincipalNotFound {
		return fmt.Errorf("failed to check existing principal: %w", err)
	}

	if principal == nil {
		principal, err = authSvc.CreatePrincipal(ctx, cfg.InitPrincipalEmail, domain.Role(cfg.InitPrincipalRole))
		if err != nil {
			return fmt.Errorf("failed to create principal: %w", err)
		}
		log.Printf("bootstrap: created principal '%s' (id: %s, role: %s)", principal.Email, principal.ID, principal.Role)
	} else {
		log.Printf("bootstrap: principal '%s' already exists (id: %s)", principal.Email, principal.ID)
	}

	if cfg.InitAPIKey != "" {
		if !service.IsValidAPIToken(cfg.InitAPIKey) {
			return fmt.Errorf("invalid BRANDGOV_INIT_API_KEY format (expected 'bg_<64 hex chars>')")
		}

		existingKey, err := authSvc.GetAPIKeyByHash(ctx, cfg.InitAPIKey)
		if err == nil && existingKey != nil {
			log.Printf("bootstrap: API key already exists (id: %s)", existingKey.ID)
			return nil
		}

		if err := authSvc.CreateAPIKeyWithToken(ctx, principal.ID, "bootstrap", cfg.InitAPIKey); err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: created API key")
	}

	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
