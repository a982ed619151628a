package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/app"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump is the single reader of a connection. Every inbound message
// is handled serially here, which gives each (sender, room) pair its
// FIFO delivery order for free.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, conn *app.Connection, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(conn.ID)).Msg("readPump closing")
		ctl.Svc.Disconnect(conn.ID)
		ctl.cursors.Forget(conn.ID)
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.cfg.ReadLimit)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn.ID)).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(ctx, conn, data)
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, conn *app.Connection, data []byte) {
	var env app.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn.ID)).Msg("bad envelope")
		ctl.sendError(conn, "malformed message")
		return
	}

	switch env.Event {
	case app.EvJoinGroup:
		ctl.handleJoinGroup(ctx, conn, env.Payload)
	case app.EvJoinCall:
		ctl.handleJoinCall(ctx, conn, env.Payload)
	case app.EvLeaveCall:
		ctl.handleLeaveCall(conn, env.Payload)
	case app.EvWebRTCOffer, app.EvWebRTCAnswer, app.EvWebRTCICECandidate:
		ctl.handleDirectedSignal(conn, env.Event, env.Payload)
	case app.EvScreenShareStarted, app.EvScreenShareStopped:
		ctl.handleScreenShareState(conn, env.Event, env.Payload)
	case app.EvScreenShareOffer:
		ctl.handleScreenShareOffer(conn, env.Payload)
	case app.EvScreenShareAnswer, app.EvScreenShareCandidate:
		ctl.handleDirectedSignal(conn, env.Event, env.Payload)
	case app.EvCreateBreakoutRoom:
		ctl.handleCreateBreakout(conn, env.Payload)
	case app.EvReturnToMainRoom:
		ctl.handleReturnToMain(conn, env.Payload)
	case app.EvCloseBreakoutRoom:
		ctl.handleCloseBreakout(conn, env.Payload)
	case app.EvWhiteboardJoin:
		ctl.handleWhiteboardJoin(ctx, conn, env.Payload)
	case app.EvWhiteboardLeave:
		ctl.handleWhiteboardLeave(conn, env.Payload)
	case app.EvAddElement:
		ctl.handleAddElement(conn, env.Payload)
	case app.EvUpdateElement:
		ctl.handleUpdateElement(conn, env.Payload)
	case app.EvDeleteElement:
		ctl.handleDeleteElement(conn, env.Payload)
	case app.EvClearCanvas:
		ctl.handleClearCanvas(conn, env.Payload)
	case app.EvCursorMove, app.EvCursorLeave:
		ctl.handleCursor(conn, env.Event, env.Payload)
	default:
		log.Warn().Str("module", "signal").Str("event", env.Event).Msg("unknown event")
	}
}
