// Package server exposes the trade ledger over HTTP. Responses use the
// {"success": ...} envelope the dashboard frontend expects.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradebot/goledger/internal/kvstore"
	"github.com/tradebot/goledger/internal/ledger"
)

type Config struct {
	// StreamInterval is the push cadence of the websocket trade stream.
	StreamInterval time.Duration
}

type Server struct {
	cfg    Config
	ledger *ledger.Service
	perf   *ledger.Aggregator
	store  *kvstore.Store // signals pass-through only, never ledger keys
}

func New(cfg Config, svc *ledger.Service, perf *ledger.Aggregator, store *kvstore.Store) (*Server, error) {
	if svc == nil {
		return nil, errors.New("ledger service is required")
	}
	if perf == nil {
		return nil, errors.New("aggregator is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = 5 * time.Second
	}
	return &Server{cfg: cfg, ledger: svc, perf: perf, store: store}, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.POST("/trade/execute", s.handleTradeExecute)
	r.POST("/trade/:tradeID/close", s.handleTradeClose)
	r.GET("/trades/active", s.handleTradesActive)

	r.GET("/performance", s.handlePerformance)

	r.POST("/signals", s.handleSignalsSave)
	r.GET("/signals", s.handleSignalsGet)

	admin := r.Group("/admin")
	admin.POST("/reconcile", s.handleReconcile)

	r.GET("/ws/trades", s.handleTradeStream)

	return r
}
