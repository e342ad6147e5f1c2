package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Embedding provider (OpenAI)
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	EmbedModel    string `envconfig:"EMBED_MODEL" default:"text-embedding-3-small"`
	EmbedDim      int    `envconfig:"EMBED_DIM" default:"1536"`

	// Chat provider. BaseURL allows any OpenAI-compatible endpoint
	// (Groq etc.); empty means api.openai.com.
	LLMAPIKey  string `envconfig:"LLM_API_KEY"`
	LLMBaseURL string `envconfig:"LLM_BASE_URL"`
	LLMModel   string `envconfig:"LLM_MODEL" default:"llama-3.1-70b-versatile"`

	// Vision provider used by the image audit.
	VisionAPIKey  string `envconfig:"VISION_API_KEY"`
	VisionBaseURL string `envconfig:"VISION_BASE_URL"`
	VisionModel   string `envconfig:"VISION_MODEL" default:"gpt-4o-mini"`

	// Retrieval/composition tuning. PromptBudget is the documented total
	// character budget for a composed prompt; retrieved chunks are dropped
	// lowest-ranked-first to fit it.
	RetrievalTopK int `envconfig:"RETRIEVAL_TOP_K" default:"6"`
	PromptBudget  int `envconfig:"PROMPT_BUDGET" default:"24000"`

	// Provider call ceilings.
	GenerateTimeout time.Duration `envconfig:"GENERATE_TIMEOUT" default:"45s"`
	AuditTimeout    time.Duration `envconfig:"AUDIT_TIMEOUT" default:"60s"`

	// Object storage for audit images.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"brandgov-audits"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Bootstrap: create an initial principal and API key on startup.
	InitPrincipalEmail string `envconfig:"INIT_PRINCIPAL_EMAIL"`
	InitPrincipalRole  string `envconfig:"INIT_PRINCIPAL_ROLE" default:"creator"`
	InitAPIKey         string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("BRANDGOV", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasEmbeddings() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasLLM() bool {
	return c.LLMAPIKey != ""
}

func (c *Config) HasVision() bool {
	return c.VisionAPIKey != ""
}
