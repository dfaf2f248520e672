package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"studynotes/api/internal/ai"
	"studynotes/api/internal/app"
	"studynotes/api/internal/config"
	"studynotes/api/internal/content"
	"studynotes/api/internal/export"
	"studynotes/api/internal/search"
	"studynotes/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	blobs, closeBlobs := openContent(cfg)
	defer closeBlobs()

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		go func() {
			reindexCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			searchService.ReindexAll(reindexCtx)
		}()
	}

	transformer := openTransformer(ctx, cfg)

	service := app.New(cfg, dataStore, blobs, searchService, export.NewService(), transformer)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// AI transforms and PDF rendering can take most of a minute.
		WriteTimeout: cfg.AITimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Study notes API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	searchService.Wait()
}

// openContent picks the blob backend: MinIO when an endpoint is configured,
// memory otherwise, with a Redis read-through cache in front when REDIS_URL
// is set.
func openContent(cfg config.Config) (content.Repository, func()) {
	var repo content.Repository
	if strings.TrimSpace(cfg.MinIOEndpoint) != "" {
		minioRepo, err := content.NewMinIO(content.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			log.Fatalf("content store failed: %v", err)
		}
		log.Printf("content: using bucket %s at %s", cfg.MinIOBucket, cfg.MinIOEndpoint)
		repo = minioRepo
	} else {
		log.Printf("content: MINIO_ENDPOINT not set, keeping note content in memory")
		repo = content.NewMemory()
	}

	if strings.TrimSpace(cfg.RedisURL) == "" {
		return repo, func() {}
	}
	cached, err := content.NewCached(repo, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	log.Printf("content: caching blobs in redis for %s", cfg.CacheTTL)
	return cached, func() {
		if err := cached.Close(); err != nil {
			log.Printf("content: close cache: %v", err)
		}
	}
}

// openTransformer returns nil when no provider credentials are configured;
// the AI endpoints then answer 503.
func openTransformer(ctx context.Context, cfg config.Config) *ai.Transformer {
	var provider ai.Provider
	switch cfg.AIProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Printf("ai: OPENAI_API_KEY not set, AI features disabled")
			return nil
		}
		provider = ai.NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case "gemini", "":
		if len(cfg.GeminiAPIKeys) == 0 {
			log.Printf("ai: GEMINI_API_KEYS not set, AI features disabled")
			return nil
		}
		gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKeys, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("gemini client failed: %v", err)
		}
		provider = gemini
	default:
		log.Fatalf("unknown AI_PROVIDER %q", cfg.AIProvider)
	}
	log.Printf("ai: using %s provider", cfg.AIProvider)
	return ai.NewTransformer(provider, cfg.AITimeout)
}
