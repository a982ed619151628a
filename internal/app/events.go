package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/core"
)

// Inbound event names.
const (
	EvJoinGroup            = "join_group"
	EvJoinCall             = "join_call"
	EvLeaveCall            = "leave_call"
	EvWebRTCOffer          = "webrtc_offer"
	EvWebRTCAnswer         = "webrtc_answer"
	EvWebRTCICECandidate   = "webrtc_ice_candidate"
	EvScreenShareStarted   = "screen_share_started"
	EvScreenShareStopped   = "screen_share_stopped"
	EvScreenShareOffer     = "screen_share_offer"
	EvScreenShareAnswer    = "screen_share_answer"
	EvScreenShareCandidate = "screen_share_ice_candidate"
	EvCreateBreakoutRoom   = "create_breakout_room"
	EvReturnToMainRoom     = "return_to_main_room"
	EvCloseBreakoutRoom    = "close_breakout_room"
	EvWhiteboardJoin       = "whiteboard_join"
	EvWhiteboardLeave      = "whiteboard_leave"
	EvAddElement           = "add_element"
	EvUpdateElement        = "update_element"
	EvDeleteElement        = "delete_element"
	EvClearCanvas          = "clear_canvas"
	EvCursorMove           = "cursor_move"
	EvCursorLeave          = "cursor_leave"
)

// Outbound event names.
const (
	EvError                = "error"
	EvGroupJoined          = "group_joined"
	EvCallJoined           = "call_joined"
	EvUserJoinedCall       = "user_joined_call"
	EvUserLeftCall         = "user_left_call"
	EvGroupCallStarted     = "group_call_started"
	EvGroupCallEnded       = "group_call_ended"
	EvGroupCallStatus      = "group_call_status"
	EvMovedToBreakoutRoom  = "moved_to_breakout_room"
	EvReturnedToMainRoom   = "returned_to_main_room"
	EvBreakoutRoomClosed   = "breakout_room_closed"
	EvWhiteboardJoined     = "whiteboard_joined"
	EvUserJoinedWhiteboard = "user_joined_whiteboard"
	EvUserLeftWhiteboard   = "user_left_whiteboard"
)

// Envelope is the logical wire format: one event name plus its payload.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode builds an outbound frame. Payloads are our own types, so a
// marshal failure is a programming error; it is logged and the frame
// dropped rather than propagated.
func Encode(event string, payload any) core.Frame {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Str("event", event).Msg("encode payload")
		return nil
	}
	frame, err := json.Marshal(Envelope{Event: event, Payload: raw})
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Str("event", event).Msg("encode envelope")
		return nil
	}
	return frame
}
