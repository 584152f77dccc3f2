package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hark/internal/client"
	"hark/internal/queue"
)

func main() {
	_ = godotenv.Load()

	store := queue.NewRedisStore(envOr("REDIS_ADDR", "localhost:6379"), os.Getenv("REDIS_PASSWORD"))
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	log.Println("Connected to redis")

	serverURL := envOr("SERVER_URL", "http://localhost:9007")
	worker := queue.NewWorker(store, client.New(serverURL, 5*time.Minute))
	worker.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	worker.Stop()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
