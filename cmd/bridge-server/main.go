package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/birddigital/knowlarity-ai-bridge/pkg/bridge"
	"github.com/birddigital/knowlarity-ai-bridge/pkg/config"
	"github.com/birddigital/knowlarity-ai-bridge/pkg/elevenlabs"
	"github.com/birddigital/knowlarity-ai-bridge/pkg/server"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// A .env file is optional; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	agentClient := elevenlabs.NewClient(
		cfg.ElevenLabs.APIKey,
		cfg.ElevenLabs.AgentID,
		cfg.ElevenLabs.BaseURL,
	)
	b := bridge.NewBridge(agentClient)
	router := server.NewRouter(b)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Bridge server listening on %s", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCh
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	b.Close()
}
