package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/core"
	"github.com/groupdesk/realtime/internal/domain"
)

// CallSession is derived call state: who started the call and which
// group, if any, owns it. Participants live in the Directory only.
type CallSession struct {
	CallID    string
	GroupID   string
	StartedBy domain.Identity
}

// CallTracker derives call-lifecycle state from membership events and
// emits the group-facing notifications. Empty -> Active on first join
// (the joiner becomes starter), Active -> Empty when the room drains,
// at which point the starter is cleared so a later re-join starts a
// fresh session.
type CallTracker struct {
	mu       sync.Mutex
	sessions map[string]*CallSession

	dir    *Directory
	notify core.NotificationSink
}

func NewCallTracker(dir *Directory, notify core.NotificationSink) *CallTracker {
	return &CallTracker{
		sessions: make(map[string]*CallSession),
		dir:      dir,
		notify:   notify,
	}
}

type callStartedPayload struct {
	CallID    string          `json:"callId"`
	GroupID   string          `json:"groupId"`
	StartedBy domain.Identity `json:"startedBy"`
}

type callEndedPayload struct {
	CallID  string `json:"callId"`
	GroupID string `json:"groupId"`
}

type callStatusPayload struct {
	CallID       string            `json:"callId"`
	GroupID      string            `json:"groupId"`
	Participants []domain.Identity `json:"participants"`
	StartedBy    domain.Identity   `json:"startedBy"`
}

// MemberJoined records a join. On the Empty -> Active transition of a
// group-owned call it broadcasts group_call_started to the group room
// and hands the event to the notification sink; the sink owns durable
// fan-out, so its errors are logged and absorbed.
func (t *CallTracker) MemberJoined(ctx context.Context, callID, groupID string, joiner *Connection, first bool) {
	t.mu.Lock()
	sess, ok := t.sessions[callID]
	if first || !ok {
		sess = &CallSession{CallID: callID, GroupID: groupID, StartedBy: joiner.Identity}
		t.sessions[callID] = sess
		ok = false
	}
	groupID = sess.GroupID
	t.mu.Unlock()

	if !ok && groupID != "" {
		groupRoom := domain.GroupRoom(groupID)
		t.dir.Broadcast(groupRoom.ID, Encode(EvGroupCallStarted, callStartedPayload{
			CallID:    callID,
			GroupID:   groupID,
			StartedBy: sess.StartedBy,
		}), joiner.ID)
		if err := t.notify.GroupCallStarted(ctx, groupID, callID, sess.StartedBy); err != nil {
			log.Warn().Str("module", "app.calls").Str("call", callID).Err(err).Msg("notification sink")
		}
		log.Info().Str("module", "app.calls").Str("call", callID).Str("group", groupID).Str("starter", string(sess.StartedBy.UserID)).Msg("call started")
	}

	t.emitStatus(callID)
}

// MemberLeft records a leave. When the room drains the session is
// cleared and group_call_ended broadcast; otherwise a fresh status
// snapshot goes out (repeats are fine, consumers tolerate them).
func (t *CallTracker) MemberLeft(callID string, remaining int) {
	if remaining > 0 {
		t.emitStatus(callID)
		return
	}

	t.mu.Lock()
	sess, ok := t.sessions[callID]
	delete(t.sessions, callID)
	t.mu.Unlock()
	if !ok {
		return
	}
	if sess.GroupID != "" {
		t.dir.Broadcast(domain.GroupRoom(sess.GroupID).ID, Encode(EvGroupCallEnded, callEndedPayload{
			CallID:  callID,
			GroupID: sess.GroupID,
		}), "")
	}
	log.Info().Str("module", "app.calls").Str("call", callID).Msg("call ended")
}

// Session returns the live session for a call, if any.
func (t *CallTracker) Session(callID string) (CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[callID]
	if !ok {
		return CallSession{}, false
	}
	return *sess, true
}

func (t *CallTracker) emitStatus(callID string) {
	t.mu.Lock()
	sess, ok := t.sessions[callID]
	t.mu.Unlock()
	if !ok || sess.GroupID == "" {
		return
	}

	members := t.dir.Members(domain.CallRoom(callID).ID)
	participants := make([]domain.Identity, 0, len(members))
	for _, m := range members {
		participants = append(participants, m.Identity)
	}
	t.dir.Broadcast(domain.GroupRoom(sess.GroupID).ID, Encode(EvGroupCallStatus, callStatusPayload{
		CallID:       callID,
		GroupID:      sess.GroupID,
		Participants: participants,
		StartedBy:    sess.StartedBy,
	}), "")
}
