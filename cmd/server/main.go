/*
main.go - HTTP server entry point

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load the configuration file (+ .env overrides)
  3. Open the destination (SQLite) and source (PostgreSQL) stores
  4. Create the runner, API handler and router
  5. Optionally start the periodic run scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -config    Configuration file (default: wfm_interface.yaml)
  -schedule  Run interval for the scheduler; 0 disables it (default: 0)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM the scheduler stops, in-flight requests get 30s, and a
  run still in progress is canceled and rolled back.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/wfm-interface/api"
	"github.com/warp/wfm-interface/config"
	"github.com/warp/wfm-interface/schedule"
	"github.com/warp/wfm-interface/store/roster"
	"github.com/warp/wfm-interface/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	configPath := flag.String("config", config.DefaultPath, "Configuration file")
	interval := flag.Duration("schedule", 0, "Scheduler run interval (0 disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize stores
	dest, err := sqlite.New(cfg.Destination.Path)
	if err != nil {
		log.Fatalf("Failed to initialize destination database: %v", err)
	}
	defer dest.Close()

	src, err := roster.Open(cfg.Source.Driver, cfg.Source.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize source database: %v", err)
	}
	defer src.Close()

	runner := schedule.NewRunner(dest, src, cfg.Run.CreatedBy)
	handler := api.NewHandler(dest, runner, cfg)
	router := api.NewRouter(handler)

	var scheduler *api.RunScheduler
	if *interval > 0 {
		scheduler = api.NewRunScheduler(handler)
		scheduler.CheckInterval = *interval
		scheduler.Start()
	}

	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()
	server := newServer(fmt.Sprintf(":%d", *port), router, runCtx)

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if scheduler != nil {
		scheduler.Stop()
	}
	// Request contexts derive from runCtx: an uncommitted run rolls back.
	cancelRuns()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// newServer builds the HTTP server. Every request context derives from base,
// so canceling base aborts in-flight runs.
func newServer(addr string, handler http.Handler, base context.Context) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		BaseContext:  func(net.Listener) context.Context { return base },
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // a run answers when it commits
		IdleTimeout:  60 * time.Second,
	}
}
