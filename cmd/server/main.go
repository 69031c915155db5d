package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rocketfinder/backend/internal/config"
	"github.com/rocketfinder/backend/internal/framex"
	"github.com/rocketfinder/backend/internal/frontend"
	"github.com/rocketfinder/backend/internal/mock"
	"github.com/rocketfinder/backend/internal/session"
	"github.com/rocketfinder/backend/internal/status"
	"github.com/rocketfinder/backend/internal/ws"
)

func main() {
	mockMode := flag.Bool("mock", false, "Use a mock frame provider (no network)")
	mockFrames := flag.Int("mock-frames", 61696, "Frame count served by the mock provider")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	var provider session.FrameProvider
	if *mockMode {
		log.Printf("Starting in mock mode (%d synthetic frames)", *mockFrames)
		provider = mock.NewProvider(*mockFrames)
	} else {
		log.Printf("Using FrameX API at %s, video %q", cfg.Provider.BaseURL, cfg.Provider.Video)
		provider = framex.NewClient(cfg.Provider.BaseURL, cfg.Provider.Timeout)
	}

	hub := ws.NewHub(cfg.Server.MaxConnections)
	ctrl := session.NewController(provider, hub, cfg.Provider.Timeout, cfg.Session.QueueSize)
	server := ws.NewServer(cfg, ctrl, hub, status.NewCollector(), frontend.Handler())

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
