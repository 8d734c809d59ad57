/*
main.go - Bestdoc service entry point

PURPOSE:
  Starts the HTTP service wrapping the ingestion-and-render pipeline.
  Handles configuration, dependency wiring and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and the YAML config
  2. Open the SQLite-backed ledger store
  3. Wire ledger, renderer and processor into the HTTP handler
  4. Serve until SIGINT/SIGTERM, then drain for up to 30s

COMMAND-LINE FLAGS:
  -config  YAML config path (default: bestdoc.yaml, missing file is fine)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config; ":memory:" supported)
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/splach-coder/dkm-apis/api"
	"github.com/splach-coder/dkm-apis/bestdoc"
	"github.com/splach-coder/dkm-apis/canvas/plaintext"
	"github.com/splach-coder/dkm-apis/config"
	"github.com/splach-coder/dkm-apis/ledger"
	"github.com/splach-coder/dkm-apis/store/sqlite"
)

func main() {
	// Flags
	cfgPath := flag.String("config", "bestdoc.yaml", "YAML config path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	// .env is optional; environment overrides are read by config.Load.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire the pipeline
	led := newLedger(store, cfg)
	renderer := bestdoc.NewDocumentRenderer(func() bestdoc.DocumentCanvas {
		return plaintext.New(cfg.Page.BodyWidth, cfg.Page.BodyHeight)
	})
	processor := bestdoc.NewProcessor(led, renderer)
	handler := api.NewHandler(led, processor)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Bestdoc service starting on http://localhost:%d", cfg.Port)
		log.Printf("📊 API available at http://localhost:%d/api/bestdoc", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func newLedger(store ledger.Store, cfg config.Config) *ledger.Ledger {
	if cfg.StateKey != "" {
		return ledger.NewWithKey(store, cfg.StateKey)
	}
	return ledger.New(store)
}
