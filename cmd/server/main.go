package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/nicktill/linecsv/pkg/api"
	"github.com/nicktill/linecsv/pkg/config"
	"github.com/nicktill/linecsv/pkg/storage"
	"github.com/nicktill/linecsv/pkg/storage/badger"
)

func main() {
	log.Println("🚀 Starting linecsv server...")

	// Configuration from environment variables
	// LINECSV_PORT:           listen port (default 8080)
	// LINECSV_DATA_DIR:       BadgerDB directory (default ./data/linecsv)
	// LINECSV_RETENTION_DAYS: days to keep stored conversions (default 7)
	// LINECSV_MAX_BODY_MB:    per-request document cap in MB (default 8)
	// LINECSV_MAX_MEMORY_MB:  BadgerDB memory cap in MB (default 48)
	port := getEnv("LINECSV_PORT", config.DefaultPort)
	dataDir := getEnv("LINECSV_DATA_DIR", "./data/linecsv")
	retentionDays := getEnvInt64("LINECSV_RETENTION_DAYS", config.DefaultRetentionDays)
	maxBodyMB := getEnvInt64("LINECSV_MAX_BODY_MB", 0)
	maxMemoryMB := getEnvInt64("LINECSV_MAX_MEMORY_MB", 0)
	retention := time.Duration(retentionDays) * 24 * time.Hour

	log.Printf("⚙️  Configuration: port=%s, data=%s, retention=%dd", port, dataDir, retentionDays)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("❌ Failed to create data directory: %v", err)
	}

	log.Println("💾 Initializing BadgerDB conversion store...")
	store, err := badger.New(badger.Config{
		Path:        dataDir,
		MaxMemoryMB: maxMemoryMB,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize storage: %v", err)
	}
	defer store.Close()
	log.Println("✅ BadgerDB store initialized")

	// WebSocket hub for the live conversion event stream
	hub := api.NewConversionHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	log.Println("📡 WebSocket hub started for live conversion events")

	// Retention sweeper keeps the store bounded
	wg.Add(1)
	go runRetentionSweeper(ctx, store, retention, &wg)
	log.Printf("🧹 Retention sweeper started (keeps %d days, runs every %v)",
		retentionDays, config.RetentionSweepInterval)

	// BadgerDB garbage collection reclaims disk space from deleted conversions
	wg.Add(1)
	go runBadgerGC(ctx, store, &wg)
	log.Printf("🗑️  BadgerDB GC scheduler started (runs every %v)", config.BadgerGCInterval)

	handler := api.NewHandler(store, hub)
	if maxBodyMB > 0 {
		handler.SetMaxBodyBytes(maxBodyMB << 20)
	}

	router := mux.NewRouter()

	// CORS middleware for API access
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	// API routes
	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/convert", handler.HandleConvert).Methods("POST")
	v1.HandleFunc("/conversions", handler.HandleListConversions).Methods("GET")
	v1.HandleFunc("/conversions/{hash}", handler.HandleGetConversion).Methods("GET")
	v1.HandleFunc("/stats", handler.HandleStats).Methods("GET")
	v1.HandleFunc("/health", handler.HandleHealth).Methods("GET")
	v1.HandleFunc("/ws", handler.HandleWebSocket(hub)).Methods("GET")

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	go func() {
		log.Printf("🌐 Server starting on http://localhost:%s", port)
		log.Println("📡 API endpoints:")
		log.Println("   POST /v1/convert            - Convert line protocol to CSV")
		log.Println("   GET  /v1/conversions        - Recent conversions")
		log.Println("   GET  /v1/conversions/{hash} - Stored CSV by input hash")
		log.Println("   GET  /v1/stats              - Store statistics")
		log.Println("   GET  /v1/ws                 - Live conversion events")
		log.Println("✅ Server ready to accept requests")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutdown signal received...")

	// Cancel context first to stop the hub and background loops,
	// then drain in-flight HTTP requests
	log.Println("⏸️  Stopping background tasks...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	log.Println("🔄 Gracefully shutting down server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown warning: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("✅ All background tasks stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Println("⚠️  Some background tasks did not stop in time (forcing exit)")
	}

	log.Println("👋 linecsv server exited cleanly")
}

// runRetentionSweeper periodically deletes conversions past the retention window
func runRetentionSweeper(ctx context.Context, store storage.Storage, retention time.Duration, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(config.RetentionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Stopping retention sweeper")
			return
		case <-ticker.C:
			start := time.Now()
			cutoff := time.Now().Add(-retention)
			if err := store.Delete(ctx, cutoff); err != nil {
				log.Printf("❌ Retention sweep failed: %v", err)
			} else {
				log.Printf("🧹 Retention sweep completed in %v (dropped conversions before %s)",
					time.Since(start).Round(time.Millisecond), cutoff.Format(time.RFC3339))
			}
		}
	}
}

// runBadgerGC runs BadgerDB value log garbage collection periodically.
// Deleted conversions accumulate in the value log until GC rewrites it.
func runBadgerGC(ctx context.Context, store *badger.Storage, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(config.BadgerGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Stopping BadgerDB GC scheduler")
			return
		case <-ticker.C:
			start := time.Now()
			// Reclaim space when at least half of a value log file is garbage
			if err := store.RunGC(0.5); err != nil {
				log.Printf("🗑️  GC completed in %v (no rewrite needed)", time.Since(start).Round(time.Millisecond))
			} else {
				log.Printf("✅ GC completed in %v (disk space reclaimed)", time.Since(start).Round(time.Millisecond))
			}
		}
	}
}

// getEnv gets a string from an environment variable or returns the default
func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvInt64 gets an int64 from an environment variable or returns the default
func getEnvInt64(key string, defaultValue int64) int64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
		log.Printf("⚠️  Invalid value for %s: %q, using default %d", key, val, defaultValue)
	}
	return defaultValue
}
