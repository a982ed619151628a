package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/app"
	"github.com/groupdesk/realtime/internal/core"
	"github.com/groupdesk/realtime/internal/domain"
)

func (ctl *Controller) handleWhiteboardJoin(ctx context.Context, conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		WhiteboardID string `json:"whiteboardId"`
	}](raw)
	if !ok || p.WhiteboardID == "" {
		ctl.sendError(conn, "bad whiteboard_join payload")
		return
	}

	elements, users, err := ctl.Svc.JoinWhiteboard(ctx, conn, p.WhiteboardID)
	if err != nil {
		var authz *core.AuthorizationError
		if errors.As(err, &authz) {
			ctl.sendError(conn, "no access to this whiteboard")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("whiteboard", p.WhiteboardID).Msg("whiteboard join")
		ctl.sendError(conn, "could not join whiteboard")
		return
	}

	ctl.sendEvent(conn, app.EvWhiteboardJoined, struct {
		WhiteboardID string            `json:"whiteboardId"`
		Elements     []domain.Element  `json:"elements"`
		Users        []domain.Identity `json:"users"`
	}{WhiteboardID: p.WhiteboardID, Elements: elements, Users: users})
}

func (ctl *Controller) handleWhiteboardLeave(conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		WhiteboardID string `json:"whiteboardId"`
	}](raw)
	if !ok || p.WhiteboardID == "" {
		ctl.sendError(conn, "bad whiteboard_leave payload")
		return
	}
	ctl.Svc.LeaveWhiteboard(conn, p.WhiteboardID)
}

func (ctl *Controller) handleAddElement(conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		WhiteboardID string         `json:"whiteboardId"`
		Element      domain.Element `json:"element"`
	}](raw)
	if !ok || p.WhiteboardID == "" || p.Element.ID == "" {
		ctl.sendError(conn, "bad add_element payload")
		return
	}

	if err := ctl.Svc.AddElement(conn, p.WhiteboardID, p.Element); err != nil {
		// Duplicate relay from a network retry; warn the sender only.
		log.Warn().Str("module", "signal").Str("whiteboard", p.WhiteboardID).Str("element", string(p.Element.ID)).Msg("duplicate element dropped")
		ctl.sendError(conn, "element already exists")
	}
}

func (ctl *Controller) handleUpdateElement(conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		WhiteboardID string              `json:"whiteboardId"`
		ElementID    domain.ElementID    `json:"elementId"`
		Update       domain.ElementPatch `json:"update"`
	}](raw)
	if !ok || p.WhiteboardID == "" || p.ElementID == "" {
		ctl.sendError(conn, "bad update_element payload")
		return
	}
	ctl.Svc.UpdateElement(conn, p.WhiteboardID, p.ElementID, p.Update)
}

func (ctl *Controller) handleDeleteElement(conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		WhiteboardID string           `json:"whiteboardId"`
		ElementID    domain.ElementID `json:"elementId"`
	}](raw)
	if !ok || p.WhiteboardID == "" || p.ElementID == "" {
		ctl.sendError(conn, "bad delete_element payload")
		return
	}
	ctl.Svc.DeleteElement(conn, p.WhiteboardID, p.ElementID)
}

func (ctl *Controller) handleClearCanvas(conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		WhiteboardID string `json:"whiteboardId"`
	}](raw)
	if !ok || p.WhiteboardID == "" {
		ctl.sendError(conn, "bad clear_canvas payload")
		return
	}
	ctl.Svc.ClearCanvas(conn, p.WhiteboardID)
}

// handleCursor relays the best-effort cursor stream. Rate limiting here
// is a broadcast-volume bound, not a correctness concern: over-limit
// updates are dropped and the next one repairs the cursor position.
func (ctl *Controller) handleCursor(conn *app.Connection, event string, raw json.RawMessage) {
	p, ok := decode[struct {
		WhiteboardID string `json:"whiteboardId"`
	}](raw)
	if !ok || p.WhiteboardID == "" {
		return
	}
	if event == app.EvCursorMove && !ctl.cursors.Allow(conn.ID) {
		return
	}
	fields, ok := stamp(raw, conn.Identity)
	if !ok {
		return
	}
	ctl.Svc.RelayCursor(conn, p.WhiteboardID, app.Encode(event, fields))
}
