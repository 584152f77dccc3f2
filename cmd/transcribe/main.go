package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"hark/internal/client"
	"hark/internal/engine"
)

func main() {
	url := flag.String("url", "http://localhost:9007", "Base URL of the transcription API")
	timeRes := flag.Int("time-res", 10, "Audio tagging time resolution in seconds")
	temperature := flag.Float64("temp", 0.01, "Temperature for sampling")
	noSpeech := flag.Float64("no-speech", 0.4, "No speech threshold")
	output := flag.String("output", "", "Path to save the transcription results as JSON")
	verbose := flag.Bool("verbose", false, "Print detailed information")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <audio file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	audioPath := flag.Arg(0)

	data, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("Failed to read audio file: %v", err)
	}

	c := client.New(*url, 10*time.Minute)
	ctx := context.Background()

	if !c.CheckServer(ctx) {
		log.Fatalf("Could not connect to the server at %s. Make sure the server is running and the URL is correct.", *url)
	}

	if *verbose {
		fmt.Printf("Sending file %s for transcription...\n", audioPath)
	}

	result, err := c.Transcribe(ctx, filepath.Base(audioPath), data, engine.Options{
		TimeResolution:    *timeRes,
		Temperature:       *temperature,
		NoSpeechThreshold: *noSpeech,
	})
	if err != nil {
		log.Fatalf("Transcription failed: %v", err)
	}

	if *verbose {
		fmt.Println("Transcription completed successfully.")
		fmt.Printf("Transcribed text: %s\n", result.Text)
	}

	if *output != "" {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode results: %v", err)
		}
		if err := os.WriteFile(*output, encoded, 0644); err != nil {
			log.Fatalf("Failed to save results: %v", err)
		}
		if *verbose {
			fmt.Printf("Results saved to %s\n", *output)
		}
	}

	if !*verbose {
		fmt.Println(result.Text)
	}
}
