package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradebot/goledger/internal/domain"
)

const requestTimeout = 5 * time.Second

func (s *Server) handleTradeExecute(c *gin.Context) {
	var intent domain.TradeIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		respondError(c, http.StatusBadRequest, "invalid json body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	rec, err := s.ledger.ExecuteTrade(ctx, intent)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"trade": rec})
}

type closeTradeRequest struct {
	ExitPrice float64 `json:"exitPrice"`
}

func (s *Server) handleTradeClose(c *gin.Context) {
	tradeID := strings.TrimSpace(c.Param("tradeID"))
	if tradeID == "" {
		respondError(c, http.StatusBadRequest, "trade id is required")
		return
	}

	var req closeTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid json body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	rec, err := s.ledger.CloseTrade(ctx, tradeID, req.ExitPrice)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"trade": rec})
}

func (s *Server) handleTradesActive(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	trades, err := s.ledger.ListActiveTrades(ctx)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	// Ensure JSON is [] not null when empty.
	if trades == nil {
		trades = []*domain.TradeRecord{}
	}
	respondOK(c, http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleReconcile(c *gin.Context) {
	// The sweep walks every trade record; give it more room than a point op.
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	report, err := s.ledger.Reconcile(ctx)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"report": report})
}
