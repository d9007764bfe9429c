package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/lumenlabs/insight-engine/internal/cache"
	"github.com/lumenlabs/insight-engine/internal/config"
	"github.com/lumenlabs/insight-engine/internal/insight"
	"github.com/lumenlabs/insight-engine/internal/llmclient"
	"github.com/lumenlabs/insight-engine/internal/middleware"
	"github.com/lumenlabs/insight-engine/internal/repository"
	"github.com/lumenlabs/insight-engine/internal/retrieval"
	"github.com/lumenlabs/insight-engine/internal/router"
	"github.com/lumenlabs/insight-engine/internal/service"
)

const Version = "0.3.0"

// newFirebaseAuthClient builds the Firebase auth.Client backing the bearer-
// token half of the identity hook (§6). Skipped when FirebaseProjectID is
// unset, leaving only the internal-service-token auth path usable.
func newFirebaseAuthClient(ctx context.Context, projectID string) (service.AuthClient, error) {
	if projectID == "" {
		return nil, nil
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithScopes("https://www.googleapis.com/auth/cloud-platform"))
	if err != nil {
		return nil, fmt.Errorf("newFirebaseAuthClient: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("newFirebaseAuthClient: %w", err)
	}
	return firebaseClientAdapter{client}, nil
}

type firebaseClientAdapter struct{ *auth.Client }

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("main: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("main: connect to database: %w", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	embeddingAdapter, err := llmclient.NewEmbeddingAdapter(ctx, cfg.GCPProject, cfg.EmbeddingLocation, cfg.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("main: init embedding adapter: %w", err)
	}
	cachedEmbedder := cache.NewCachedEmbedder(embeddingAdapter, 0)
	defer cachedEmbedder.Stop()

	genAIAdapter, err := llmclient.NewGenAIAdapter(ctx, cfg.GCPProject, cfg.VertexAILocation, cfg.VertexAIModel)
	if err != nil {
		return fmt.Errorf("main: init genai adapter: %w", err)
	}

	chunkRepo := repository.NewChunkRepo(pool)
	bm25Repo := repository.NewBM25Repository(pool)
	historyRepo := repository.NewHistoryRepo(pool)

	retriever := retrieval.New(cachedEmbedder, chunkRepo, bm25Repo, cfg.RRFK, cfg.MinResultsThreshold, cfg.EmbeddingTimeout, cfg.MaxChunks)
	orchestrator := insight.New(genAIAdapter, cfg.LLMTimeout)
	insightCache := cache.New(redisClient, cfg.CacheTTL)

	firebaseAuth, err := newFirebaseAuthClient(ctx, cfg.FirebaseProjectID)
	if err != nil {
		return fmt.Errorf("main: init firebase auth: %w", err)
	}
	authService := service.NewAuthService(firebaseAuth)

	metricsReg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(metricsReg)

	generalRateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		MaxRequests: 60,
		Window:      time.Minute,
	})
	defer generalRateLimiter.Stop()

	deps := &router.Dependencies{
		DB:                 pool,
		Cache:              insightCache,
		AuthService:        authService,
		FrontendURL:        cfg.FrontendURL,
		Version:            Version,
		Metrics:            metrics,
		MetricsReg:         metricsReg,
		InternalAuthSecret: cfg.InternalAuthSecret,
		Retriever:          retriever,
		Orchestrator:       orchestrator,
		History:            historyRepo,
		RateLimiter:        generalRateLimiter,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("insight-engine starting", "version", Version, "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received signal, shutting down gracefully", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
