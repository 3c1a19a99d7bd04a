package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tradebot/goledger/internal/kvstore"
)

// signalsKey lives outside the ledger's trade:/index: namespace. Signals are
// an opaque pass-through; the ledger never reads them.
const signalsKey = "signals:latest"

type saveSignalsRequest struct {
	Signals json.RawMessage `json:"signals"`
}

func (s *Server) handleSignalsSave(c *gin.Context) {
	var req saveSignalsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Signals) == 0 {
		respondError(c, http.StatusBadRequest, "invalid json body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := s.store.Set(ctx, signalsKey, req.Signals); err != nil {
		respondError(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondOK(c, http.StatusOK, gin.H{})
}

func (s *Server) handleSignalsGet(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	var signals json.RawMessage
	err := s.store.Get(ctx, signalsKey, &signals)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			respondOK(c, http.StatusOK, gin.H{"signals": []any{}})
			return
		}
		respondError(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondOK(c, http.StatusOK, gin.H{"signals": signals})
}
