package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradebot/goledger/internal/ledger"
)

// respondOK writes the success envelope with extra payload fields.
func respondOK(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondError writes the failure envelope.
func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// respondLedgerError maps the ledger error taxonomy onto HTTP statuses.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case ledger.IsValidation(err):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrAlreadyClosed):
		respondError(c, http.StatusConflict, err.Error())
	case ledger.IsStoreUnavailable(err):
		respondError(c, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}

// requestID tags every request with an id for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("requestID", rid)
		c.Header("X-Request-ID", rid)
		c.Next()
	}
}
