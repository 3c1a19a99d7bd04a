package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tradebot/goledger/internal/domain"
)

var log = logrus.WithField("component", "http_server")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type tradeStreamFrame struct {
	Type   string                `json:"type"`
	Time   time.Time             `json:"time"`
	Trades []*domain.TradeRecord `json:"trades"`
}

// handleTradeStream pushes active-trade snapshots over a websocket on a fixed
// interval. It is the push-flavored equivalent of polling GET /trades/active;
// the stream is read-only and holds no ledger state.
func (s *Server) handleTradeStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Warnf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Drain client frames so we notice the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.StreamInterval)
	defer ticker.Stop()

	for {
		trades, err := s.ledger.ListActiveTrades(ctx)
		if err != nil {
			log.Warnf("ws snapshot failed: %v", err)
		} else {
			if trades == nil {
				trades = []*domain.TradeRecord{}
			}
			frame := tradeStreamFrame{Type: "trades", Time: time.Now().UTC(), Trades: trades}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(frame); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debugf("ws write failed: %v", err)
				}
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
