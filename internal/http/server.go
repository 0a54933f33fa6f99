// Package http exposes the garage API: vehicle, maintenance, and mod
// CRUD, uploads, the login endpoint, and the dashboard.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"garage/internal/auth"
	"garage/internal/core"
	"garage/internal/fleet"
	"garage/internal/services"
	"garage/internal/uploads"
)

// maxUploadBytes caps photo and receipt request bodies.
const maxUploadBytes = 10 << 20

type ctxKey string

const requestIDKey ctxKey = "request_id"
const usernameKey ctxKey = "username"

type Server struct {
	http.Server

	store       fleet.Store
	records     *services.RecordService
	uploads     *uploads.Store
	tokens      *auth.TokenIssuer
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

func NewServer(addr string, store fleet.Store, records *services.RecordService, uploadStore *uploads.Store, tokens *auth.TokenIssuer) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		store:       store,
		records:     records,
		uploads:     uploadStore,
		tokens:      tokens,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /api/health", s.with(s.handleHealth))
	mux.HandleFunc("POST /api/auth/login", s.with(s.handleLogin))
	mux.HandleFunc("GET /api/auth/me", s.with(s.requireAuth(s.handleMe)))

	mux.HandleFunc("GET /api/vehicles", s.with(s.requireAuth(s.handleListVehicles)))
	mux.HandleFunc("POST /api/vehicles", s.with(s.requireAuth(s.handleCreateVehicle)))
	mux.HandleFunc("GET /api/vehicles/{id}", s.with(s.requireAuth(s.handleGetVehicle)))
	mux.HandleFunc("PATCH /api/vehicles/{id}", s.with(s.requireAuth(s.handleUpdateVehicle)))
	mux.HandleFunc("DELETE /api/vehicles/{id}", s.with(s.requireAuth(s.handleDeleteVehicle)))
	mux.HandleFunc("POST /api/vehicles/{id}/photo", s.with(s.requireAuth(s.handleUploadVehiclePhoto)))

	mux.HandleFunc("GET /api/vehicles/{id}/maintenance", s.with(s.requireAuth(s.handleListMaintenance)))
	mux.HandleFunc("POST /api/vehicles/{id}/maintenance", s.with(s.requireAuth(s.handleCreateMaintenance)))
	mux.HandleFunc("GET /api/vehicles/{id}/maintenance/{mid}", s.with(s.requireAuth(s.handleGetMaintenance)))
	mux.HandleFunc("PATCH /api/vehicles/{id}/maintenance/{mid}", s.with(s.requireAuth(s.handleUpdateMaintenance)))
	mux.HandleFunc("DELETE /api/vehicles/{id}/maintenance/{mid}", s.with(s.requireAuth(s.handleDeleteMaintenance)))
	mux.HandleFunc("POST /api/vehicles/{id}/maintenance/{mid}/receipt", s.with(s.requireAuth(s.handleUploadReceipt)))

	mux.HandleFunc("GET /api/vehicles/{id}/mods", s.with(s.requireAuth(s.handleListMods)))
	mux.HandleFunc("POST /api/vehicles/{id}/mods", s.with(s.requireAuth(s.handleCreateMod)))
	mux.HandleFunc("GET /api/vehicles/{id}/mods/{mid}", s.with(s.requireAuth(s.handleGetMod)))
	mux.HandleFunc("PATCH /api/vehicles/{id}/mods/{mid}", s.with(s.requireAuth(s.handleUpdateMod)))
	mux.HandleFunc("DELETE /api/vehicles/{id}/mods/{mid}", s.with(s.requireAuth(s.handleDeleteMod)))

	mux.HandleFunc("GET /api/dashboard/stats", s.with(s.requireAuth(s.handleDashboardStats)))

	// Stored uploads, served as-is
	if uploadStore != nil {
		files := http.StripPrefix(uploads.URLPrefix+"/", http.FileServer(http.Dir(uploadStore.Root())))
		mux.Handle("GET "+uploads.URLPrefix+"/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			files.ServeHTTP(w, r)
		}))
	}

	return s
}

// with adds request logging, security headers, and POST rate limiting.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// requireAuth gates a handler behind a bearer token. The verified
// username lands in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			writeErrorMessage(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		username, err := s.tokens.Verify(header[len(prefix):])
		if err != nil {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if _, err := s.store.GetUserByUsername(r.Context(), username); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				writeErrorMessage(w, http.StatusUnauthorized, "user not found")
				return
			}
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), usernameKey, username)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID parses a numeric path segment. A non-numeric id is treated as
// a missing resource.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
