package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebot/goledger/internal/kvstore"
	"github.com/tradebot/goledger/internal/ledger"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := kvstore.Open(kvstore.OpenOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := ledger.NewService(store)
	perf := ledger.NewAggregator(store)
	srv, err := New(Config{StreamInterval: time.Second}, svc, perf, store)
	require.NoError(t, err)
	return srv.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	envelope := map[string]json.RawMessage{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func executeTrade(t *testing.T, h http.Handler) string {
	t.Helper()
	w, env := doJSON(t, h, http.MethodPost, "/trade/execute", map[string]any{
		"mode":       "paper",
		"exchange":   "binance",
		"symbol":     "BTC/USDT",
		"side":       "buy",
		"amount":     2,
		"price":      100,
		"strategyId": "grid-dca",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var trade struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env["trade"], &trade))
	require.NotEmpty(t, trade.ID)
	return trade.ID
}

func TestExecuteTradeEnvelope(t *testing.T) {
	h := newTestServer(t)
	w, env := doJSON(t, h, http.MethodPost, "/trade/execute", map[string]any{
		"symbol": "ETH/USDT", "side": "sell", "amount": 1.5, "price": 2000,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, "true", string(env["success"]))

	var trade map[string]any
	require.NoError(t, json.Unmarshal(env["trade"], &trade))
	assert.Equal(t, "open", trade["status"])
	assert.Equal(t, 2000.0, trade["entryPrice"])
	assert.Equal(t, 2000.0, trade["currentPrice"])
	// mode defaults to paper when omitted
	assert.Equal(t, "paper", trade["mode"])
}

func TestExecuteTradeValidation(t *testing.T) {
	h := newTestServer(t)
	w, env := doJSON(t, h, http.MethodPost, "/trade/execute", map[string]any{
		"symbol": "BTC/USDT", "side": "buy", "amount": -1, "price": 100,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, "false", string(env["success"]))
	assert.NotEmpty(t, env["error"])
}

func TestCloseTradeFlow(t *testing.T) {
	h := newTestServer(t)
	tradeID := executeTrade(t, h)

	w, env := doJSON(t, h, http.MethodPost, fmt.Sprintf("/trade/%s/close", tradeID), map[string]any{"exitPrice": 110})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var trade map[string]any
	require.NoError(t, json.Unmarshal(env["trade"], &trade))
	assert.Equal(t, "closed", trade["status"])
	assert.Equal(t, 20.0, trade["pnl"])
	assert.Equal(t, 10.0, trade["pnlPercent"])

	// second close conflicts
	w, env = doJSON(t, h, http.MethodPost, fmt.Sprintf("/trade/%s/close", tradeID), map[string]any{"exitPrice": 150})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, "false", string(env["success"]))
}

func TestCloseUnknownTrade(t *testing.T) {
	h := newTestServer(t)
	w, _ := doJSON(t, h, http.MethodPost, "/trade/does-not-exist/close", map[string]any{"exitPrice": 100})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestActiveTradesListsOnlyOpen(t *testing.T) {
	h := newTestServer(t)

	keep := executeTrade(t, h)
	closeMe := executeTrade(t, h)
	w, _ := doJSON(t, h, http.MethodPost, fmt.Sprintf("/trade/%s/close", closeMe), map[string]any{"exitPrice": 90})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := doJSON(t, h, http.MethodGet, "/trades/active", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var trades []map[string]any
	require.NoError(t, json.Unmarshal(env["trades"], &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, keep, trades[0]["id"])
}

func TestActiveTradesEmptyIsArray(t *testing.T) {
	h := newTestServer(t)
	w, _ := doJSON(t, h, http.MethodGet, "/trades/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"trades":[]`)
}

func TestPerformanceEndpoint(t *testing.T) {
	h := newTestServer(t)

	tradeID := executeTrade(t, h)
	w, _ := doJSON(t, h, http.MethodPost, fmt.Sprintf("/trade/%s/close", tradeID), map[string]any{"exitPrice": 110})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := doJSON(t, h, http.MethodGet, "/performance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var perf map[string]any
	require.NoError(t, json.Unmarshal(env["performance"], &perf))
	assert.Equal(t, 1.0, perf["totalTrades"])
	assert.Equal(t, 100.0, perf["winRate"])
	assert.Equal(t, 20.0, perf["totalPnL"])
	assert.Equal(t, 1.0, perf["winningTrades"])
	assert.Equal(t, 0.0, perf["losingTrades"])
}

func TestSignalsRoundTrip(t *testing.T) {
	h := newTestServer(t)

	// empty store yields an empty list, not an error
	w, env := doJSON(t, h, http.MethodGet, "/signals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env["signals"]))

	signals := []map[string]any{
		{"symbol": "BTC/USDT", "signal": "buy", "confidence": 0.8},
		{"symbol": "ETH/USDT", "signal": "sell", "confidence": 0.6},
	}
	w, _ = doJSON(t, h, http.MethodPost, "/signals", map[string]any{"signals": signals})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = doJSON(t, h, http.MethodGet, "/signals", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(env["signals"], &got))
	assert.Len(t, got, 2)
	assert.Equal(t, "BTC/USDT", got[0]["symbol"])
}

func TestReconcileEndpoint(t *testing.T) {
	h := newTestServer(t)
	executeTrade(t, h)

	w, env := doJSON(t, h, http.MethodPost, "/admin/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report map[string]any
	require.NoError(t, json.Unmarshal(env["report"], &report))
	assert.Equal(t, 1.0, report["tradesScanned"])
	assert.Equal(t, true, report["consistent"])
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
