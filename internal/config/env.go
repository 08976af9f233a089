package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	SslCertPath  string

	AIAPIKey   string
	EmbedModel string
	EmbedDim   int
	GenModel   string

	LayoutAPIURL string
	LayoutAPIKey string

	Pipeline PipelineConfig

	Port string
}

// PipelineConfig holds the knobs the document pipeline recognizes. Defaults
// match production behavior; skip flags exist for degraded environments and
// backfills.
type PipelineConfig struct {
	SkipTextExtraction bool
	SkipLayoutAnalysis bool
	SkipChunking       bool
	SkipEmbedding      bool

	MaxRetries         int
	ProcessingTimeout  time.Duration // advisory, reported but not enforced
	UseADEForEmbedding bool

	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "docstream-docs"),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),
		EmbedModel:   getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:     getEnvInt("EMBED_DIM", 768),
		GenModel:     getEnv("GEN_MODEL", "gemini-1.5-flash"),
		LayoutAPIURL: getEnv("LAYOUT_API_URL", ""),
		LayoutAPIKey: getEnv("LAYOUT_API_KEY", ""),
		Pipeline: PipelineConfig{
			SkipTextExtraction: getEnvBool("SKIP_TEXT_EXTRACTION", false),
			SkipLayoutAnalysis: getEnvBool("SKIP_LAYOUT_ANALYSIS", false),
			SkipChunking:       getEnvBool("SKIP_CHUNKING", false),
			SkipEmbedding:      getEnvBool("SKIP_EMBEDDING", false),
			MaxRetries:         getEnvInt("MAX_RETRIES", 3),
			ProcessingTimeout:  time.Duration(getEnvInt("PROCESSING_TIMEOUT_MIN", 30)) * time.Minute,
			UseADEForEmbedding: getEnvBool("USE_ADE_FOR_EMBEDDING", false),
			ChunkSize:          getEnvInt("CHUNK_SIZE", 500),
			ChunkOverlap:       getEnvInt("CHUNK_OVERLAP", 100),
			EmbedBatchSize:     getEnvInt("EMBED_BATCH_SIZE", 25),
		},
		Port: getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}
