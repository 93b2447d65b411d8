// sealregistryd is the credential registry and proposal verifier: it
// registers biometric-anchored identities, issues single-use challenges,
// verifies signed proposal envelopes, and mints session tokens.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sealwrite/sealwrite/internal/api"
	"github.com/sealwrite/sealwrite/internal/version"
	"github.com/sealwrite/sealwrite/pkg/store"
)

var (
	listenAddr   = flag.String("listen", ":18090", "HTTP listen address")
	dbPath       = flag.String("db", "", "Database path (default: ~/.local/share/sealregistryd/sealwrite.db)")
	tokenKeyPath = flag.String("token-key", "", "Session token signing key path (default: alongside the database)")
	challengeTTL = flag.Duration("challenge-ttl", 5*time.Minute, "Challenge validity window")
	tokenTTL     = flag.Duration("token-ttl", time.Hour, "Session token validity window")
)

func main() {
	flag.CommandLine.SetOutput(os.Stdout)
	flag.Parse()

	log.Printf("sealregistryd %s starting...", version.String())

	store.SetCLIName("sealregistryd")
	path := *dbPath
	if path == "" {
		path = store.DefaultPath()
	}

	db, err := store.Open(path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	keyPath := *tokenKeyPath
	if keyPath == "" {
		keyPath = filepath.Join(filepath.Dir(path), "session-signing.pem")
	}
	tokens, err := api.LoadOrGenerateTokenIssuer(keyPath)
	if err != nil {
		log.Fatalf("Failed to load session signing key: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	server := api.NewServerWithConfig(db, tokens, logger, api.ServerConfig{
		ChallengeTTL:    *challengeTTL,
		SessionTokenTTL: *tokenTTL,
	})
	defer server.Close()

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: loggingMiddleware(mux),
	}

	// Handle shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}()

	log.Printf("HTTP server listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}

	log.Println("Registry stopped")
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusResponseWriter{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(sw, r)
		log.Printf("%s %s %d %dms", r.Method, r.URL.Path, sw.statusCode, time.Since(start).Milliseconds())
	})
}
