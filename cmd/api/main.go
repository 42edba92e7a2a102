package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobarin/ugcstudio/internal/api"
	"github.com/bobarin/ugcstudio/internal/compositor"
	"github.com/bobarin/ugcstudio/internal/config"
	"github.com/bobarin/ugcstudio/internal/db"
	"github.com/bobarin/ugcstudio/internal/orchestrator"
	"github.com/bobarin/ugcstudio/internal/presets"
	"github.com/bobarin/ugcstudio/internal/services"
	"github.com/bobarin/ugcstudio/internal/session"
	"github.com/bobarin/ugcstudio/internal/storage"
	"github.com/bobarin/ugcstudio/internal/store"
)

func main() {
	log.Println("Starting UGC Studio API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Connect to database when the project store or render history needs it
	var database *db.DB
	if cfg.ProjectStore == config.StorePostgres || cfg.RecordHistory {
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		log.Println("Connected to database")
	}

	// Project store
	var kv store.KV
	switch cfg.ProjectStore {
	case config.StoreRedis:
		redisKV, err := store.NewRedisKV(cfg.RedisURL, cfg.RedisKeyPrefix)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisKV.Close()
		kv = redisKV
		log.Println("Project store: Redis")
	case config.StorePostgres:
		kv = database.ProjectStore()
		log.Println("Project store: Postgres")
	default:
		fileKV, err := store.NewFileKV(cfg.ProjectDir)
		if err != nil {
			log.Fatalf("Failed to open project directory: %v", err)
		}
		kv = fileKV
		log.Printf("Project store: %s", cfg.ProjectDir)
	}

	// Blob store. Memory blobs are served by the API itself.
	var blobs storage.BlobStore
	var memBlobs *storage.MemoryStore
	switch cfg.BlobStore {
	case config.BlobSupabase:
		blobs = storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket, cfg.BlobPrefix)
		log.Println("Blob store: Supabase storage")
	case config.BlobS3:
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			PublicURL:       cfg.S3PublicURL,
			Prefix:          cfg.BlobPrefix,
		})
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		blobs = s3Store
		log.Printf("Blob store: S3 bucket %s", cfg.S3Bucket)
	default:
		memBlobs = storage.NewMemoryStore()
		blobs = memBlobs
		log.Println("Blob store: in-memory")
	}

	// Preset catalog
	catalog := presets.Default()
	if cfg.PresetCatalogPath != "" {
		catalog, err = presets.LoadCatalog(cfg.PresetCatalogPath)
		if err != nil {
			log.Fatalf("Failed to load preset catalog: %v", err)
		}
		log.Printf("Loaded preset catalog from %s", cfg.PresetCatalogPath)
	}

	// Initialize services
	ffmpegSvc := services.NewFFmpegService(cfg.TempDir, cfg.FFmpegPath)
	prober := services.SelectProber(cfg.OpenAIKey, cfg.OpenAIBaseURL, ffmpegSvc)

	espeak := cfg.EspeakPath
	if espeak == "" {
		espeak = services.FindEspeak()
	}
	localSpeech := services.SelectSpeech(services.SpeechConfig{EspeakPath: espeak})
	log.Printf("Local speech provider: %s", localSpeech.Name())

	opts := orchestrator.Options{
		Blobs:   blobs,
		Encoder: ffmpegSvc,
		Prober:  prober,
		Overlay: compositor.Deps{
			Local: compositor.NewLocal(),
			NewRefiner: func(ctx context.Context, apiKey string) (compositor.Refiner, error) {
				return services.NewGeminiServiceWithOptions(apiKey, cfg.GeminiModel, cfg.GeminiBaseURL), nil
			},
		},
		LocalSpeech:  localSpeech,
		TickInterval: cfg.DemoTickInterval,
	}
	var history api.HistoryStore
	if cfg.RecordHistory {
		opts.Recorder = database
		history = database
		log.Println("Render history enabled")
	}

	sess := session.New(kv, orchestrator.New(opts), catalog)

	// Restore the last saved project, if any
	if _, found, err := sess.Load(ctx); err != nil {
		log.Printf("WARNING: Failed to restore saved project: %v", err)
	} else if !found {
		log.Println("No saved project, starting from defaults")
	}

	// Create API handler. A nil *MemoryStore must not become a non-nil interface.
	var blobSource api.BlobSource
	if memBlobs != nil {
		blobSource = memBlobs
	}
	handler := api.NewHandler(sess, blobSource, history)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Stop rendering and free session artifacts
	if err := sess.Close(shutdownCtx); err != nil {
		log.Printf("WARNING: Session close: %v", err)
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
