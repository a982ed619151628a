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

func (ctl *Controller) handleJoinCall(ctx context.Context, conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		CallID  string `json:"callId"`
		GroupID string `json:"groupId"`
	}](raw)
	if !ok || p.CallID == "" {
		ctl.sendError(conn, "bad join_call payload")
		return
	}

	roster := ctl.Svc.JoinCall(ctx, conn, p.CallID, p.GroupID)
	ctl.sendEvent(conn, app.EvCallJoined, struct {
		CallID  string            `json:"callId"`
		Members []domain.Identity `json:"members"`
	}{CallID: p.CallID, Members: roster})
}

func (ctl *Controller) handleLeaveCall(conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		CallID string `json:"callId"`
	}](raw)
	if !ok || p.CallID == "" {
		ctl.sendError(conn, "bad leave_call payload")
		return
	}
	ctl.Svc.LeaveCall(conn, p.CallID)
}

// stamp adds the sender's identity to a payload without touching any
// other field; offer/answer/candidate bodies pass through untouched.
func stamp(raw json.RawMessage, identity domain.Identity) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	from, err := json.Marshal(identity)
	if err != nil {
		return nil, false
	}
	fields["from"] = from
	return fields, true
}

// handleDirectedSignal relays offer/answer/candidate-style messages to
// the one named target in the call room. An absent target is a normal
// race (it already left): ICE and screen-share legs drop silently,
// offer/answer report back so the caller can give up early.
func (ctl *Controller) handleDirectedSignal(conn *app.Connection, event string, raw json.RawMessage) {
	p, ok := decode[struct {
		CallID       string        `json:"callId"`
		TargetUserID domain.UserID `json:"targetUserId"`
	}](raw)
	if !ok || p.CallID == "" || p.TargetUserID == "" {
		ctl.sendError(conn, "bad "+event+" payload")
		return
	}

	fields, ok := stamp(raw, conn.Identity)
	if !ok {
		ctl.sendError(conn, "bad "+event+" payload")
		return
	}

	err := ctl.Svc.RelayToCallPeer(p.CallID, p.TargetUserID, app.Encode(event, fields))
	if err == nil {
		return
	}
	var nf *core.NotFoundError
	if !errors.As(err, &nf) {
		log.Error().Err(err).Str("module", "signal").Str("event", event).Msg("relay")
		return
	}
	log.Debug().Str("module", "signal").Str("event", event).Str("call", p.CallID).Str("target", string(p.TargetUserID)).Msg("target not in call, dropped")
	if event == app.EvWebRTCOffer || event == app.EvWebRTCAnswer {
		ctl.sendError(conn, "target is not in the call")
	}
}

func (ctl *Controller) handleScreenShareState(conn *app.Connection, event string, raw json.RawMessage) {
	p, ok := decode[struct {
		CallID string `json:"callId"`
	}](raw)
	if !ok || p.CallID == "" {
		ctl.sendError(conn, "bad "+event+" payload")
		return
	}
	fields, ok := stamp(raw, conn.Identity)
	if !ok {
		ctl.sendError(conn, "bad "+event+" payload")
		return
	}
	ctl.Svc.BroadcastToCall(conn, p.CallID, app.Encode(event, fields))
}

// handleScreenShareOffer broadcasts to the whole call room: the sharer
// does not yet know which peers need the offer.
func (ctl *Controller) handleScreenShareOffer(conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		CallID string `json:"callId"`
	}](raw)
	if !ok || p.CallID == "" {
		ctl.sendError(conn, "bad screen_share_offer payload")
		return
	}
	fields, ok := stamp(raw, conn.Identity)
	if !ok {
		ctl.sendError(conn, "bad screen_share_offer payload")
		return
	}
	ctl.Svc.BroadcastToCall(conn, p.CallID, app.Encode(app.EvScreenShareOffer, fields))
}
