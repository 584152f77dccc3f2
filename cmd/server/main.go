package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"hark/internal/engine"
	"hark/internal/handlers"
	"hark/internal/queue"
	"hark/internal/service"
)

func main() {
	_ = godotenv.Load()

	port := envOr("PORT", "9007")

	engineConfig := &engine.SherpaConfig{
		WhisperEncoder: os.Getenv("WHISPER_ENCODER"),
		WhisperDecoder: os.Getenv("WHISPER_DECODER"),
		WhisperTokens:  os.Getenv("WHISPER_TOKENS"),
		TaggingModel:   os.Getenv("TAGGING_MODEL"),
		TaggingLabels:  os.Getenv("TAGGING_LABELS"),
		Language:       os.Getenv("WHISPER_LANGUAGE"),
		NumThreads:     envInt("ENGINE_THREADS", 2),
	}

	log.Println("Loading recognition and tagging models")
	eng, err := engine.NewSherpaEngine(engineConfig)
	if err != nil {
		log.Fatalf("Failed to load engine: %v", err)
	}
	defer eng.Close()
	log.Println("Models loaded successfully")

	pipeline := service.NewPipeline(eng)
	store := queue.NewRedisStore(envOr("REDIS_ADDR", "localhost:6379"), os.Getenv("REDIS_PASSWORD"))
	defer store.Close()

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	transcribe := handlers.NewTranscribeHandler(pipeline)
	jobs := handlers.NewJobHandler(store)
	health := handlers.NewHealthHandler(pipeline, envOr("HEALTH_AUDIO", "test.wav"))

	e.GET("/", handlers.Home)
	e.POST("/transcribe", transcribe.Transcribe)
	e.POST("/transcribe/", transcribe.Transcribe)
	e.POST("/jobs", jobs.Submit)
	e.GET("/jobs/:id/result", jobs.Result)
	e.GET("/health", health.Check)

	log.Printf("Starting transcription server on port %s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
