// Package config loads application configuration from environment
// variables. A Config is immutable once Load() returns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable named in SPEC_FULL.md's Configuration table,
// plus the ambient wiring (database, cache, Vertex AI) needed to construct
// the concrete adapters.
type Config struct {
	Port        int
	Environment string

	DatabaseURL      string
	DatabaseMaxConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GCPProject          string
	GCPRegion           string
	VertexAILocation    string
	VertexAIModel       string
	EmbeddingLocation   string
	EmbeddingModel      string
	EmbeddingDimensions int

	FirebaseProjectID  string
	InternalAuthSecret string
	FrontendURL        string

	// Retrieval tunables (SPEC_FULL.md §9 Configuration).
	SimilarityThreshold float64
	MaxChunks           int
	RRFK                float64
	MinResultsThreshold int
	EnableFallback      bool
	EnableDensityCalc   bool

	// Insight tunables.
	LLMTimeout       time.Duration
	CacheTTL         time.Duration
	EmbeddingTimeout time.Duration
}

// Load reads configuration from environment variables. DATABASE_URL and
// GOOGLE_CLOUD_PROJECT are required; everything else has a documented
// default.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required")
	}

	gcpProject := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if gcpProject == "" {
		return nil, fmt.Errorf("config.Load: GOOGLE_CLOUD_PROJECT is required")
	}

	cfg := &Config{
		Port:        envInt("PORT", 8080),
		Environment: envStr("ENVIRONMENT", "development"),

		DatabaseURL:      dbURL,
		DatabaseMaxConns: envInt("DATABASE_MAX_CONNS", 25),

		RedisAddr:     envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		GCPProject:          gcpProject,
		GCPRegion:           envStr("GCP_REGION", "us-east4"),
		VertexAILocation:    envStr("VERTEX_AI_LOCATION", "global"),
		VertexAIModel:       envStr("VERTEX_AI_MODEL", "gemini-2.5-flash"),
		EmbeddingLocation:   envStr("VERTEX_AI_EMBEDDING_LOCATION", envStr("GCP_REGION", "us-east4")),
		EmbeddingModel:      envStr("VERTEX_AI_EMBEDDING_MODEL", "text-embedding-004"),
		EmbeddingDimensions: envInt("EMBEDDING_DIMENSIONS", 384),

		FirebaseProjectID:  envStr("FIREBASE_PROJECT_ID", ""),
		InternalAuthSecret: envStr("INTERNAL_AUTH_SECRET", ""),
		FrontendURL:        envStr("FRONTEND_URL", "http://localhost:3000"),

		SimilarityThreshold: envFloat("SIMILARITY_THRESHOLD", 0.6),
		MaxChunks:           envInt("MAX_CHUNKS", 50),
		RRFK:                envFloat("RRF_K", 10),
		MinResultsThreshold: envInt("MIN_RESULTS_THRESHOLD", 3),
		EnableFallback:      envBool("ENABLE_FALLBACK", true),
		EnableDensityCalc:   envBool("ENABLE_DENSITY_CALC", true),

		LLMTimeout:       time.Duration(envInt("LLM_TIMEOUT_MS", 15_000)) * time.Millisecond,
		CacheTTL:         time.Duration(envInt("CACHE_TTL_SECONDS", 86_400)) * time.Second,
		EmbeddingTimeout: time.Duration(envInt("EMBEDDING_TIMEOUT_MS", 5_000)) * time.Millisecond,
	}

	if cfg.Environment != "development" && cfg.InternalAuthSecret == "" {
		return nil, fmt.Errorf("config.Load: INTERNAL_AUTH_SECRET is required in %s environment", cfg.Environment)
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
