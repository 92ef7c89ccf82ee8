/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Practice Engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Configure logging
  3. Initialize SQLite store
  4. Seed system-default templates (and demo data when -seed is set)
  5. Build aggregator, ranker and API handler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: practice.db)
              Use ":memory:" for in-memory database
  -cache-ttl  Dashboard snapshot TTL (default: 5m)
  -log-level  logrus level: debug, info, warn, error (default: info)
  -seed       Load the demo book for practitioner "demo" (default: false)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/practice.db"

  # Run in-memory with demo data
  ./server -db=":memory:" -seed

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lexo/practice-engine/api"
	"github.com/lexo/practice-engine/dashboard"
	"github.com/lexo/practice-engine/practice"
	"github.com/lexo/practice-engine/store/sqlite"
	"github.com/lexo/practice-engine/templates"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "practice.db", "SQLite database path")
	cacheTTL := flag.Duration("cache-ttl", dashboard.DefaultTTL, "Dashboard snapshot TTL")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	seed := flag.Bool("seed", false, "Load demo data for practitioner \"demo\"")
	flag.Parse()

	// Logging
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("Unknown log level %q, using info", *logLevel)
	}

	// Store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	clock := practice.SystemClock{}
	ctx := context.Background()

	if err := api.SeedSystemTemplates(ctx, store, clock); err != nil {
		log.Fatalf("Failed to seed system templates: %v", err)
	}
	if *seed {
		if err := api.SeedDemo(ctx, store, clock, "demo"); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
		log.Info("Demo data loaded for practitioner \"demo\"")
	}

	// Services
	cache := dashboard.NewCache(*cacheTTL, clock)
	aggregator := dashboard.New(store, cache, log, clock)
	ranker := templates.New(store, log, clock)

	// Router
	handler := api.NewHandler(store, aggregator, ranker, log, clock)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped")
}
