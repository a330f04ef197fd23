// Package http is the JSON presentation surface over the ledger. Handlers
// stay thin: parse, call the store, map errors; all business rules live in
// the ledger package.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/monikanaramsetti/spendwise/internal/cache"
	"github.com/monikanaramsetti/spendwise/internal/core"
	"github.com/monikanaramsetti/spendwise/internal/ledger"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/remote"
	"github.com/monikanaramsetti/spendwise/internal/report"
)

// Authenticator resolves credentials against the collaborator server. Nil
// means no server is configured and sign-in falls back to local identities.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (core.Identity, error)
	CreateUser(ctx context.Context, name, email, password string) (*remote.User, error)
}

// ReportPublisher emits a report rebuild request to the sync worker. Nil
// disables the export trigger endpoint's publish step.
type ReportPublisher interface {
	PublishReportSync(ctx context.Context, userID string, year, month int) error
}

type Server struct {
	http.Server

	store       *ledger.Store
	auth        Authenticator
	publisher   ReportPublisher
	rateLimiter *rateLimiter
	logger      *applog.Logger

	reportCache *cache.LRUCache[report.MonthlySummary]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Options carries the optional collaborators for NewServer.
type Options struct {
	Auth            Authenticator
	Publisher       ReportPublisher
	Logger          *applog.Logger
	ReportCacheSize int
	ReportCacheTTL  time.Duration
	RateLimit       int // mutating requests per IP per minute
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store *ledger.Store, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.ReportCacheSize <= 0 {
		opts.ReportCacheSize = 64
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = 5 * time.Minute
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 60
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:            store,
		auth:             opts.Auth,
		publisher:        opts.Publisher,
		rateLimiter:      newRateLimiter(opts.RateLimit),
		logger:           opts.Logger.WithComponent(applog.ComponentHTTP),
		reportCache:      cache.NewLRUCache[report.MonthlySummary](opts.ReportCacheSize, opts.ReportCacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/signin", s.wrap(s.handleSignIn))
	mux.HandleFunc("POST /api/auth/signup", s.wrap(s.handleSignUp))
	mux.HandleFunc("POST /api/auth/logout", s.wrap(s.handleLogout))
	mux.HandleFunc("GET /api/session", s.wrap(s.handleSession))

	mux.HandleFunc("GET /api/transactions", s.wrap(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.wrap(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.wrap(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.wrap(s.handleDeleteTransaction))
	mux.HandleFunc("DELETE /api/transactions", s.wrap(s.handleClearTransactions))

	mux.HandleFunc("GET /api/bills", s.wrap(s.handleListBills))
	mux.HandleFunc("POST /api/bills", s.wrap(s.handleCreateBill))
	mux.HandleFunc("PUT /api/bills/{id}", s.wrap(s.handleUpdateBill))
	mux.HandleFunc("DELETE /api/bills/{id}", s.wrap(s.handleDeleteBill))

	mux.HandleFunc("GET /api/goals", s.wrap(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.wrap(s.handleCreateGoal))
	mux.HandleFunc("POST /api/goals/{id}/contribute", s.wrap(s.handleContributeGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.wrap(s.handleDeleteGoal))

	mux.HandleFunc("GET /api/settings", s.wrap(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.wrap(s.handleUpdateSettings))

	mux.HandleFunc("GET /api/sparechange", s.wrap(s.handleSpareChange))
	mux.HandleFunc("POST /api/sparechange/transfer", s.wrap(s.handleSpareTransfer))
	mux.HandleFunc("POST /api/sparechange/reset", s.wrap(s.handleSpareReset))

	mux.HandleFunc("PUT /api/profile", s.wrap(s.handleUpdateProfile))
	mux.HandleFunc("GET /api/profile/savelogs", s.wrap(s.handleSaveLogs))
	mux.HandleFunc("DELETE /api/profile/savelogs", s.wrap(s.handleClearSaveLogs))

	mux.HandleFunc("GET /api/reports/{year}/{month}", s.wrap(s.handleMonthlyReport))
	mux.HandleFunc("POST /api/reports/{year}/{month}/export", s.wrap(s.handleExportReport))

	return s
}

// wrap adds request-ID tracing, logging, security headers and rate limiting
// on mutating methods.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		logger := s.logger.With(applog.FieldRequestID, requestID)
		ctx := r.Context()

		logger.InfoContext(ctx, "Request started", applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.Header.Get("User-Agent")).
			WithClientIP(clientIP).
			ToSlice()...)

		if mutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		level := slog.LevelInfo
		if rw.statusCode >= 500 {
			level = slog.LevelError
		} else if rw.statusCode >= 400 {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "Request completed", applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, "").
			WithHTTPResponse(rw.statusCode, time.Since(start).Milliseconds()).
			WithClientIP(clientIP).
			ToSlice()...)
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
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
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.reportCache.CleanExpired(); cleaned > 0 {
				s.logger.Debug("Report cache cleanup", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines along with the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateReports drops every cached report for the user after a mutation.
func (s *Server) invalidateReports(userID string) {
	s.reportCache.DeletePrefix("report:" + userID + ":")
}
