package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/migration/internal/api"
	"example.com/migration/internal/config"
	"example.com/migration/internal/migration"
	"example.com/migration/internal/notecrypt"
	persistence "example.com/migration/internal/persistence/postgres"
	"example.com/migration/internal/source"
	httptransport "example.com/migration/internal/transport/http"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repos := persistence.New(pool)

	src := source.New(cfg.LegacyURL, cfg.LegacyAPIKey,
		source.WithHealthWindow(cfg.HealthCheckWindow))

	key, err := notecrypt.LoadKey(cfg.SecretsDir)
	if err != nil {
		log.Fatalf("failed to read encryption key: %v", err)
	}
	if key == "" {
		log.Printf("no encryption key found in %s; encrypted notes will be replaced with a sentinel", cfg.SecretsDir)
	}

	migrator := migration.NewMigrator(migration.MigratorParams{
		Source:     src,
		Activities: repos.Activities,
		Timeslices: repos.Timeslices,
		Notes:      repos.Notes,
		States:     repos.States,
		Processor:  notecrypt.NewProcessor(key),
		Timezone:   cfg.Timezone,
		Sizes: migration.Sizes{
			TimeslicePage:  cfg.TimeslicePageSize,
			NotePage:       cfg.NotePageSize,
			StatePage:      cfg.StatePageSize,
			TimesliceBatch: cfg.TimesliceBatchSize,
			NoteBatch:      cfg.NoteBatchSize,
			StateBatch:     cfg.StateBatchSize,
		},
	})
	orchestrator := migration.NewOrchestrator(migrator)

	handler := api.NewHandler(orchestrator)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:     cfg.HTTPAddress,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}, logger(cors(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("migration-service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	if err := src.Close(context.Background()); err != nil {
		log.Printf("legacy sign-out failed: %v", err)
	}
}
