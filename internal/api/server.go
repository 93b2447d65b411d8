// Package api implements the registry/verifier HTTP server: credential
// registration, challenge issuance, proposal verification and session
// authentication.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sealwrite/sealwrite/pkg/audit"
	"github.com/sealwrite/sealwrite/pkg/challenge"
	"github.com/sealwrite/sealwrite/pkg/protocol"
	"github.com/sealwrite/sealwrite/pkg/store"
)

// UUIDShortLength is the number of characters used when truncating UUIDs
// for identifiers, e.g. "reg_" + uuid.New().String()[:UUIDShortLength].
const UUIDShortLength = 8

// ServerConfig holds configuration options for the API server.
type ServerConfig struct {
	// ChallengeTTL is the validity window for issued challenges.
	// Defaults to challenge.DefaultTTL if zero.
	ChallengeTTL time.Duration

	// SessionTokenTTL is the validity window for minted session tokens.
	// Defaults to 1 hour if zero.
	SessionTokenTTL time.Duration
}

// Server is the registry/verifier HTTP server.
type Server struct {
	store      *store.Store
	challenges *challenge.Store
	tokens     *TokenIssuer
	audit      *audit.Emitter
	logger     *slog.Logger
}

// NewServer creates a server with default configuration.
func NewServer(s *store.Store, tokens *TokenIssuer, logger *slog.Logger) *Server {
	return NewServerWithConfig(s, tokens, logger, ServerConfig{})
}

// NewServerWithConfig creates a server with the given configuration.
func NewServerWithConfig(s *store.Store, tokens *TokenIssuer, logger *slog.Logger, cfg ServerConfig) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.ChallengeTTL
	if ttl == 0 {
		ttl = challenge.DefaultTTL
	}
	if cfg.SessionTokenTTL > 0 && tokens != nil {
		tokens.ttl = cfg.SessionTokenTTL
	}
	return &Server{
		store:      s,
		challenges: challenge.NewStore(challenge.WithTTL(ttl)),
		tokens:     tokens,
		audit:      audit.NewEmitter(logger),
		logger:     logger,
	}
}

// Challenges exposes the challenge store for tests.
func (s *Server) Challenges() *challenge.Store {
	return s.challenges
}

// Close releases server resources.
func (s *Server) Close() error {
	return s.challenges.Close()
}

// RegisterRoutes registers all API routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/register", s.handleRegister)
	mux.HandleFunc("GET /api/v1/challenge", s.handleChallenge)
	mux.HandleFunc("POST /api/v1/proposals", s.handleSubmitProposal)
	mux.HandleFunc("POST /api/v1/auth/challenge", s.handleAuthChallenge)
	mux.HandleFunc("POST /api/v1/auth/verify", s.handleAuthVerify)
	mux.HandleFunc("GET /api/v1/session", s.handleSession)

	mux.HandleFunc("GET /health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes a plain error envelope for malformed requests.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, protocol.ErrorResponse{Code: "request.invalid", Message: message})
}

// writeProtocolError maps a typed protocol error onto the wire. Unexpected
// errors become a 500 without leaking internals.
func (s *Server) writeProtocolError(w http.ResponseWriter, err error) {
	var pe *protocol.Error
	if errors.As(err, &pe) {
		writeJSON(w, pe.HTTPStatus(), protocol.ErrorResponse{Code: pe.Code, Message: pe.Message})
		return
	}
	s.logger.Error("internal error", "error", err)
	writeJSON(w, http.StatusInternalServerError,
		protocol.ErrorResponse{Code: "internal.error", Message: "internal server error"})
}
