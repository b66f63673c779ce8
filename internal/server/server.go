package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"stockflow/internal/nse"
)

// Checker runs one announcement check cycle.
type Checker interface {
	CheckAndNotify(ctx context.Context)
}

// StockSearcher answers symbol/name lookups for the search endpoint.
type StockSearcher interface {
	Search(query string) []nse.Stock
}

// Server exposes the manual trigger and a health probe. It carries no
// application state beyond the pipeline handle; all domain work happens in
// the monitor service.
type Server struct {
	httpServer *http.Server
	checker    Checker
	stocks     StockSearcher
	started    time.Time
	log        zerolog.Logger
}

func New(addr string, checker Checker, stocks StockSearcher, log zerolog.Logger) *Server {
	s := &Server{
		checker: checker,
		stocks:  stocks,
		started: time.Now(),
		log:     log.With().Str("component", "server").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/notifications/check", s.handleCheck)
	mux.HandleFunc("GET /api/stocks/search", s.handleStockSearch)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleCheck kicks off a cycle in the background and returns immediately.
// The spawned cycle is detached from the request context so a client
// disconnect cannot cancel a check mid-flight.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Msg("triggered check panicked")
			}
		}()
		s.checker.CheckAndNotify(context.Background())
	}()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Notification check started",
	})
}

func (s *Server) handleStockSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results := s.stocks.Search(query)
	if results == nil {
		results = []nse.Stock{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stocks":  results,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
