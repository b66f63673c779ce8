package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/nse"
)

type stubChecker struct {
	calls atomic.Int32
	done  chan struct{}
}

func (s *stubChecker) CheckAndNotify(ctx context.Context) {
	s.calls.Add(1)
	if s.done != nil {
		close(s.done)
	}
}

type stubSearcher struct {
	results []nse.Stock
}

func (s *stubSearcher) Search(query string) []nse.Stock {
	return s.results
}

func newTestServer(checker Checker, stocks StockSearcher) *Server {
	if stocks == nil {
		stocks = &stubSearcher{}
	}
	return New(":0", checker, stocks, zerolog.Nop())
}

func TestTriggerRespondsImmediately(t *testing.T) {
	checker := &stubChecker{done: make(chan struct{})}
	srv := newTestServer(checker, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/notifications/check", nil)
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Notification check started", body["message"])

	select {
	case <-checker.done:
	case <-time.After(2 * time.Second):
		t.Fatal("check cycle was never started")
	}
	assert.EqualValues(t, 1, checker.calls.Load())
}

func TestTriggerRejectsGet(t *testing.T) {
	srv := newTestServer(&stubChecker{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/check", nil)
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestStockSearch(t *testing.T) {
	srv := newTestServer(&stubChecker{}, &stubSearcher{results: []nse.Stock{
		{Symbol: "TCS", Name: "Tata Consultancy Services"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/stocks/search?q=tata", nil)
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Success bool        `json:"success"`
		Stocks  []nse.Stock `json:"stocks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Stocks, 1)
	assert.Equal(t, "TCS", body.Stocks[0].Symbol)
}

func TestStockSearchEmptyResultIsArray(t *testing.T) {
	srv := newTestServer(&stubChecker{}, &stubSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/stocks/search?q=zz", nil)
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"stocks":[]`)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubChecker{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["uptime"])
}
