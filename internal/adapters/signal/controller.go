package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/app"
	"github.com/groupdesk/realtime/internal/config"
	"github.com/groupdesk/realtime/internal/core"
)

// Controller terminates the persistent signaling transport: one
// WebSocket per client, one read pump and one write pump per
// connection, all room logic delegated to the app.Service.
type Controller struct {
	Svc     *app.Service
	cfg     *config.Config
	cursors *CursorLimiter
}

func NewController(svc *app.Service, cfg *config.Config) *Controller {
	return &Controller{
		Svc:     svc,
		cfg:     cfg,
		cursors: NewCursorLimiter(cfg.Cursor.Limit, cfg.Cursor.Interval),
	}
}

// wsConn is the per-connection send queue. The directory only ever
// posts frames here; posting to a closed or full queue is a droppable
// condition, never a blocking one.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the credential, upgrades, registers the
// connection and starts the pumps. A failed verification terminates
// the attempt before anything is registered.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	credential := c.Query("token")
	if credential == "" {
		credential = c.GetHeader("Authorization")
	}
	if credential == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	sc := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 64),
	}

	conn, err := ctl.Svc.Connect(ctx, credential, sc)
	if err != nil {
		var authErr *core.AuthenticationError
		if errors.As(err, &authErr) {
			log.Warn().Str("module", "signal").Err(err).Msg("connection rejected")
		} else {
			log.Error().Err(err).Str("module", "signal").Msg("connect")
		}
		ctl.writeDirect(sc, app.Encode(app.EvError, errorPayload{Message: "authentication failed"}))
		sc.Close()
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(conn.ID)).Str("user", string(conn.Identity.UserID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, sc)
	go ctl.readPump(ctx, cancel, conn, sc)
}

// writeDirect bypasses the send queue for the pre-pump error reply.
func (ctl *Controller) writeDirect(c *wsConn, frame core.Frame) {
	if frame == nil {
		return
	}
	_ = c.conn.WriteMessage(websocket.TextMessage, frame)
}

type errorPayload struct {
	Message string `json:"message"`
}

func (ctl *Controller) sendEvent(conn *app.Connection, event string, payload any) {
	frame := app.Encode(event, payload)
	if frame == nil {
		return
	}
	if err := conn.Signal().TrySend(frame); err != nil {
		log.Warn().Str("module", "signal").Str("conn", string(conn.ID)).Str("event", event).Err(err).Msg("send dropped")
	}
}

func (ctl *Controller) sendError(conn *app.Connection, message string) {
	ctl.sendEvent(conn, app.EvError, errorPayload{Message: message})
}

func decode[T any](raw json.RawMessage) (T, bool) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}
