package main

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/formloop/formloop/internal/api"
	"github.com/formloop/formloop/internal/cache"
	"github.com/formloop/formloop/internal/db"
	"github.com/formloop/formloop/internal/middleware"
	"github.com/formloop/formloop/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	addr := utils.SafeEnv("FORMLOOP_ADDR", ":8080")
	commit := os.Getenv("FORMLOOP_COMMIT")
	buildTime := os.Getenv("FORMLOOP_BUILD_TIME")

	store, closeStore, err := buildStore()
	if err != nil {
		slog.Error("store init failed", "error", err)
		os.Exit(1)
	}
	if closeStore != nil {
		defer closeStore()
	}

	summaries := buildSummaryCache()

	mux := http.NewServeMux()
	api.NewRouterWithStore(store, summaries).Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Formloop API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	handler := middleware.CORS(middleware.SecureHeaders(middleware.NoStore(middleware.WithAuth(mux))))

	server := http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		server.Close()
	}()

	slog.Info("listening", "addr", addr)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("server closed", "error", err)
		os.Exit(1)
	}
	slog.Info("server closed")
}

// buildStore selects the persistence backend: sqlite when FORMLOOP_DB is set,
// otherwise the in-memory store.
func buildStore() (api.Store, func(), error) {
	dsn := os.Getenv("FORMLOOP_DB")
	if dsn == "" {
		slog.Info("using in-memory store")
		return api.NewMemoryStore(), nil, nil
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	if err := db.RunMigrations(conn, os.Getenv("FORMLOOP_MIGRATIONS_DIR")); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	store, err := db.NewStore(conn)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	slog.Info("using sqlite store", "dsn", dsn)
	return store, func() { _ = conn.Close() }, nil
}

// buildSummaryCache wires the optional Redis analytics cache.
func buildSummaryCache() *cache.SummaryCache {
	redisAddr := os.Getenv("FORMLOOP_REDIS_ADDR")
	if redisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("FORMLOOP_REDIS_PASSWORD"),
	})
	ttl := 5 * time.Minute
	if v := os.Getenv("FORMLOOP_SUMMARY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			ttl = d
		}
	}
	slog.Info("analytics summary cache enabled", "redis", redisAddr, "ttl", ttl)
	return cache.NewSummaryCache(client, ttl)
}
