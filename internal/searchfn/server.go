package searchfn

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/veilscan/veilscan/internal/scan"
)

// signedURLTTL is the validity window of the signed URL handed to the
// search provider.
const signedURLTTL = time.Hour

// Verifier validates a bearer token and resolves the user it belongs to.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*scan.User, error)
}

// Signer creates a time-boxed URL granting read access to an uploaded
// object.
type Signer interface {
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Server handles HTTP requests for the search function.
type Server struct {
	verifier Verifier
	signer   Signer
	provider Provider
	history  History
	limiter  *rate.Limiter
	mux      *http.ServeMux
	now      func() time.Time
}

// NewServer creates a new Server with default mux. searchesPerSecond and
// burst bound how fast the upstream provider is hit.
func NewServer(verifier Verifier, signer Signer, provider Provider, history History, searchesPerSecond float64, burst int) *Server {
	return NewServerWithMux(verifier, signer, provider, history, searchesPerSecond, burst, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing.
func NewServerWithMux(verifier Verifier, signer Signer, provider Provider, history History, searchesPerSecond float64, burst int, mux *http.ServeMux) *Server {
	s := &Server{
		verifier: verifier,
		signer:   signer,
		provider: provider,
		history:  history,
		limiter:  rate.NewLimiter(rate.Limit(searchesPerSecond), burst),
		mux:      mux,
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to every response and short-circuits
// preflight requests before any body processing.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// setCORSHeaders sets permissive CORS headers on a response.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, apikey")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all function routes on the server's mux.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /functions/v1/reverse-image-search", s.handleSearch)
	s.mux.HandleFunc("GET /functions/v1/scan-history", s.handleHistory)
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	slog.Info("Starting search function server", "address", addr)
	return http.ListenAndServe(addr, s.corsMiddleware(s.mux))
}

// ServeHTTP implements http.Handler for testing. Requests pass through the
// same CORS middleware as Start.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(s.mux).ServeHTTP(w, r)
}
