package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/hr-portal/internal/backend"
	"github.com/jonathan/hr-portal/internal/config"
	"github.com/jonathan/hr-portal/internal/guard"
	"github.com/jonathan/hr-portal/internal/server/middleware"
	"github.com/jonathan/hr-portal/internal/server/ratelimit"
	"github.com/jonathan/hr-portal/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CORS headers sent on every response.
const (
	corsAllowOrigin  = "*"
	corsAllowHeaders = "authorization, x-client-info, apikey, content-type"
	corsAllowMethods = "POST, GET, OPTIONS"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	admin       *backend.Client
	resolver    *guard.Resolver
	policy      *guard.Policy
	passwords   *config.PasswordConfig
	tokens      middleware.TokenValidator
	rateLimiter *ratelimit.Limiter
	validate    *validator.Validate
	logger      *zap.Logger
}

// Config holds server configuration
type Config struct {
	Port    int
	Backend *config.Backend
	// PolicyPath names a YAML route policy; empty uses the built-in one.
	PolicyPath string
	// ResolveTimeout bounds role lookups; zero means no timeout.
	ResolveTimeout time.Duration
	RateLimit      *ratelimit.Config
	// Passwords enables a local password policy check; nil leaves it to the backend.
	Passwords  *config.PasswordConfig
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend configuration is required")
	}
	if err := cfg.Backend.RequireServiceKey(); err != nil {
		return nil, fmt.Errorf("edge handlers need privileged access: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	policy, err := guard.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}

	admin := backend.New(cfg.Backend.URL, cfg.Backend.ServiceKey,
		backend.WithHTTPClient(cfg.HTTPClient),
		backend.WithLogger(logger.Named("backend")))

	s := &Server{
		admin:     admin,
		policy:    policy,
		passwords: cfg.Passwords,
		resolver:  &guard.Resolver{Fetcher: guard.ProfileRoles{Client: admin}, Timeout: cfg.ResolveTimeout},
		validate:  types.NewValidator(),
		logger:    logger,
	}

	// Tokens are checked locally when the project secret is known.
	if jwtConfig, err := config.NewJWTConfig(cfg.Backend); err == nil {
		s.tokens = NewJWTService(jwtConfig).AsTokenValidator()
	} else {
		logger.Info("verifying access tokens through the backend", zap.String("reason", err.Error()))
		s.tokens = RemoteValidator(backend.New(cfg.Backend.URL, cfg.Backend.Key(false),
			backend.WithHTTPClient(cfg.HTTPClient),
			backend.WithLogger(logger.Named("backend"))))
	}

	s.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /functions/v1/admin-reset-password", s.handleAdminResetPassword)
	mux.HandleFunc("POST /functions/v1/create-employee-auth", s.handleCreateEmployeeAuth)
	mux.HandleFunc("POST /functions/v1/request-password-reset", s.handleRequestPasswordReset)
	mux.HandleFunc("GET /api/me/role", s.handleMyRole)
	mux.HandleFunc("GET /api/admin/hires/{job_id}", s.handleHireCount)
	mux.HandleFunc("GET "+middleware.NotAuthorizedPath, s.handleNotAuthorized)
	mux.HandleFunc("GET /health", s.handleHealth)

	var h http.Handler = mux
	h = middleware.RequireRole(s.policy, s.resolver)(h)
	h = middleware.Authenticate(s.tokens)(h)
	h = s.withRateLimit(h)
	h = s.withLogging(h)
	h = s.withRecover(h)
	return s.withCORS(h)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.Close()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		defer s.Close()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}

// withCORS adds CORS headers and answers pre-flight requests.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", corsAllowOrigin)
		w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
		w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRecover converts a panicking handler into a 500 JSON response.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("handler panic",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))
				s.errorResponse(w, http.StatusInternalServerError, fmt.Sprint(rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID keys rate limits by the remote IP address.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	if info.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(info.RetryAfter.Seconds()+0.5)))
	}
	s.logger.Warn("rate limit exceeded",
		zap.String("path", r.URL.Path),
		zap.String("client", clientID(r)),
		zap.Int("limit", info.Limit))
	s.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, types.Response{Success: false, Error: message})
}

// fail maps err to a status and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	s.errorResponse(w, status, ErrorMessage(err))
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleNotAuthorized is the landing route for denied callers.
func (s *Server) handleNotAuthorized(w http.ResponseWriter, _ *http.Request) {
	s.errorResponse(w, http.StatusForbidden, "not authorized")
}

// handleMyRole reports the caller's role lookup result.
func (s *Server) handleMyRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, ok := guard.ResultFrom(ctx)
	if !ok {
		result = s.resolver.Resolve(ctx, guard.IdentityFrom(ctx))
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// Close releases background resources. Run and Serve call it on shutdown.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}
