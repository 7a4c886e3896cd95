package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kjannette/vitanova-gold/internal/models"
)

const maxQueryLimit = 1000

type PriceService interface {
	FetchCurrent(ctx context.Context) (*models.Quote, error)
	History(ctx context.Context, timeframe, start, end string) (*models.PriceHistory, error)
	Stats(ctx context.Context) (*models.PriceStats, error)
}

type OrderStore interface {
	Record(ctx context.Context, o *models.Order) (*models.Order, error)
	GetByCustomer(ctx context.Context, customerID string) ([]models.Order, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// PollerStatus is the background price poller as seen by /health.
type PollerStatus interface {
	Running() bool
	LastSuccess() time.Time
}

type Deps struct {
	Prices PriceService
	Orders OrderStore   // nil disables order routes
	Stream http.Handler // nil disables /ws/price
	DB     Pinger       // optional, reported by /health
	Cache  Pinger       // optional, reported by /health
	Poller PollerStatus // optional, reported by /health
}

type Options struct {
	Port       int
	APIKey     string
	CORSOrigin string
}

type Server struct {
	deps       Deps
	handler    http.Handler
	httpServer *http.Server
	apiKey     string
}

func NewServer(deps Deps, opts Options) *Server {
	s := &Server{
		deps:   deps,
		apiKey: opts.APIKey,
	}

	mux := http.NewServeMux()

	// Price routes
	mux.HandleFunc("GET /price", s.handlePrice)
	mux.HandleFunc("GET /price/history", s.handlePriceHistory)
	mux.HandleFunc("GET /price/stats", s.handlePriceStats)
	if deps.Stream != nil {
		mux.Handle("GET /ws/price", deps.Stream)
	}

	// Order routes
	mux.HandleFunc("POST /orders", s.handleCreateOrder)
	mux.HandleFunc("GET /orders/customer/{id}", s.handleCustomerOrders)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.handler = s.authMiddleware(corsMiddleware(mux, opts.CORSOrigin))

	// WriteTimeout stays zero: /ws/price connections are long-lived.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	if s.apiKey != "" {
		fmt.Println("[API] Authentication: enabled (Bearer token)")
	} else {
		fmt.Println("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		// Browsers cannot set headers on a websocket handshake.
		if r.URL.Path == "/ws/price" && r.URL.Query().Get("token") == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
