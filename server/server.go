package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AsciiTV/config"
	"AsciiTV/core/ascii"
	"AsciiTV/core/job"
	"AsciiTV/core/pipeline"
	"AsciiTV/core/sample"
	"AsciiTV/core/stream"
	"AsciiTV/core/video"
	"AsciiTV/logger"
	"AsciiTV/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutputPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	server := &http.Server{
		Addr:        cfg.ListenAddr,
		ReadTimeout: 30 * time.Second,
		// Playback streams are unbounded; no write timeout.
		IdleTimeout: 120 * time.Second,
	}

	// Create necessary directories if they don't exist.
	ensureDirExists(cfg.StorageDir)
	ensureDirExists(cfg.UploadDir)
	ensureDirExists(cfg.OwnerDir)

	store := storage.NewStore(cfg.UploadDir, cfg.OwnerDir)

	// Built-in sample stream, so /stream/owner works from the first start.
	if err := sample.Generate(store); err != nil {
		logger.Error("failed to generate owner stream", logger.ErrorField(err))
	}

	ffmpeg := video.NewFFmpeg(cfg.FFmpegPath)
	rasterizer := ascii.NewRasterizer(cfg.GridWidth, cfg.ColoredFrames)
	converter := pipeline.New(store, ffmpeg, ffmpeg, rasterizer)

	var jobStore job.Store
	if cfg.RedisEnabled {
		redisStore, err := job.NewRedisStore(
			cfg.RedisHost+":"+cfg.RedisPort,
			cfg.RedisPassword,
			cfg.RedisDB,
			time.Duration(cfg.JobTTLHours)*time.Hour,
		)
		if err != nil {
			log.Fatalf("Failed to connect to Redis job store: %v", err)
		}
		defer redisStore.Close()
		jobStore = redisStore
		log.Println("Using Redis-backed job store")
	} else {
		jobStore = job.NewMemoryStore()
	}
	registry := job.NewRegistry(jobStore, converter)

	apiHandler := NewAPIHandler(store, registry, cfg)
	streamHandler := NewStreamHandler(stream.NewPlayer(store))
	wsHandler := NewWSStreamHandler(store, registry)

	router := mux.NewRouter()

	// CORS middleware.
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// API endpoints.
	router.HandleFunc("/api/upload", apiHandler.UploadVideoHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/status/{video_id}", apiHandler.StatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/videos", apiHandler.ListVideosHandler).Methods(http.MethodGet)

	// Playback endpoints.
	router.Handle("/stream/{video_id}", streamHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/stream/{video_id}", wsHandler.ServeWS).Methods(http.MethodGet)
	router.HandleFunc("/audio/{video_id}", apiHandler.AudioHandler).Methods(http.MethodGet)
	router.HandleFunc("/info/{video_id}", apiHandler.InfoHandler).Methods(http.MethodGet)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s...", cfg.ListenAddr)
		log.Printf("Watch the sample stream: curl -N http://localhost%s/stream/owner", cfg.ListenAddr)
		log.Printf("Upload videos via POST to http://localhost%s/api/upload", cfg.ListenAddr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("Creating directory: %s", path)
		if err := os.MkdirAll(path, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", path, err)
		}
	} else if err != nil {
		log.Fatalf("Failed to check directory %s: %v", path, err)
	}
}
