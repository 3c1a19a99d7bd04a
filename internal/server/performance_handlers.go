package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handlePerformance(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	summary, err := s.perf.Summarize(ctx)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"performance": summary})
}
