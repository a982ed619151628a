package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/app"
	"github.com/groupdesk/realtime/internal/core"
	"github.com/groupdesk/realtime/internal/domain"
)

func (ctl *Controller) handleCreateBreakout(conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		CallID       string          `json:"callId"`
		RoomName     string          `json:"roomName"`
		Participants []domain.UserID `json:"participants"`
	}](raw)
	if !ok || p.CallID == "" || len(p.Participants) == 0 {
		ctl.sendError(conn, "bad create_breakout_room payload")
		return
	}

	id, moved := ctl.Svc.Breakouts.Create(p.CallID, p.RoomName, p.Participants)
	if moved == 0 {
		log.Info().Str("module", "signal").Str("call", p.CallID).Msg("no listed participant present, breakout not created")
		ctl.sendError(conn, "no listed participant is in the call")
		return
	}
	log.Info().Str("module", "signal").Str("breakout", id).Int("moved", moved).Msg("breakout created")
}

func (ctl *Controller) handleReturnToMain(conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		CallID         string `json:"callId"`
		BreakoutRoomID string `json:"breakoutRoomId"`
	}](raw)
	if !ok || p.BreakoutRoomID == "" {
		ctl.sendError(conn, "bad return_to_main_room payload")
		return
	}

	if err := ctl.Svc.Breakouts.ReturnToMain(p.BreakoutRoomID, conn); err != nil {
		var nf *core.NotFoundError
		if errors.As(err, &nf) {
			ctl.sendError(conn, "breakout room does not exist")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("breakout", p.BreakoutRoomID).Msg("return to main")
	}
}

func (ctl *Controller) handleCloseBreakout(conn *app.Connection, raw json.RawMessage) {
	p, ok := decode[struct {
		BreakoutRoomID string `json:"breakoutRoomId"`
	}](raw)
	if !ok || p.BreakoutRoomID == "" {
		ctl.sendError(conn, "bad close_breakout_room payload")
		return
	}

	if err := ctl.Svc.Breakouts.Close(p.BreakoutRoomID); err != nil {
		var nf *core.NotFoundError
		if errors.As(err, &nf) {
			ctl.sendError(conn, "breakout room does not exist")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("breakout", p.BreakoutRoomID).Msg("close breakout")
	}
}
