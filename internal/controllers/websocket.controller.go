package controllers

import (
	"context"
	"time"

	"opsdash/internal/models"
	"opsdash/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// StreamController pushes usage frames over a WebSocket, one sampler read per frame.
type StreamController struct {
	usage    UsageReader
	interval time.Duration
	upgrader websocket.Upgrader
	log      logger.Logger
}

// NewStreamController sends a frame every interval per connection.
func NewStreamController(usage UsageReader, interval time.Duration, log logger.Logger) *StreamController {
	return &StreamController{
		usage:    usage,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log.Named("stream"),
	}
}

// StreamMetrics upgrades the request and streams until either side closes.
func (sc *StreamController) StreamMetrics(c *gin.Context) {
	conn, err := sc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sc.log.Warn(c.Request.Context(), "upgrade failed", logger.String("ip", c.ClientIP()), logger.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sc.log.Debug(ctx, "stream opened", logger.String("ip", c.ClientIP()))
	go sc.readPump(ctx, cancel, conn)
	sc.writePump(ctx, conn)
	sc.log.Debug(ctx, "stream closed", logger.String("ip", c.ClientIP()))
}

// readPump drains client frames so control messages are processed; it cancels on any read error.
func (sc *StreamController) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sc.log.Warn(ctx, "stream read error", logger.Error(err))
			}
			return
		}
	}
}

// writePump owns every write on conn.
func (sc *StreamController) writePump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()
	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	if err := sc.send(ctx, conn); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			if err := sc.send(ctx, conn); err != nil {
				return
			}

		case <-pinger.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (sc *StreamController) send(ctx context.Context, conn *websocket.Conn) error {
	msg := models.StreamMessage{
		Type:      "metrics",
		Timestamp: time.Now().UTC(),
		Data:      sc.usage.Usage(ctx),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			sc.log.Warn(ctx, "stream write error", logger.Error(err))
		}
		return err
	}
	return nil
}
