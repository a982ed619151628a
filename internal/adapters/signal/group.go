package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/app"
	"github.com/groupdesk/realtime/internal/core"
)

func (ctl *Controller) handleJoinGroup(ctx context.Context, conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		GroupID string `json:"groupId"`
	}](raw)
	if !ok || p.GroupID == "" {
		ctl.sendError(conn, "bad join_group payload")
		return
	}

	if err := ctl.Svc.JoinGroup(ctx, conn, p.GroupID); err != nil {
		var authz *core.AuthorizationError
		if errors.As(err, &authz) {
			log.Info().Str("module", "signal").Str("conn", string(conn.ID)).Str("group", p.GroupID).Msg("group join refused")
			ctl.sendError(conn, "not a member of this group")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("group", p.GroupID).Msg("group join")
		ctl.sendError(conn, "could not join group")
		return
	}

	ctl.sendEvent(conn, app.EvGroupJoined, struct {
		GroupID string `json:"groupId"`
	}{GroupID: p.GroupID})
}
