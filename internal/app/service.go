package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/core"
	"github.com/groupdesk/realtime/internal/domain"
)

// Service is the coordination layer's single entry point. It owns the
// registry, the room directory and the per-concern trackers, and holds
// the injected collaborators (identity verifier, membership checker,
// notification sink). Constructed once in the composition root; no
// package-level mutable state.
type Service struct {
	Registry    *Registry
	Rooms       *Directory
	Calls       *CallTracker
	Breakouts   *BreakoutManager
	Whiteboards *WhiteboardLog

	verifier   core.IdentityVerifier
	membership core.MembershipChecker
}

func NewService(verifier core.IdentityVerifier, membership core.MembershipChecker, notify core.NotificationSink) *Service {
	dir := NewDirectory()
	return &Service{
		Registry:    NewRegistry(),
		Rooms:       dir,
		Calls:       NewCallTracker(dir, notify),
		Breakouts:   NewBreakoutManager(dir),
		Whiteboards: NewWhiteboardLog(),
		verifier:    verifier,
		membership:  membership,
	}
}

type userEventPayload struct {
	CallID string          `json:"callId,omitempty"`
	User   domain.Identity `json:"user"`
}

type whiteboardUserPayload struct {
	WhiteboardID string          `json:"whiteboardId"`
	User         domain.Identity `json:"user"`
}

// Connect resolves the credential and registers the connection. An
// unverifiable credential yields an AuthenticationError and the
// connection is never registered.
func (s *Service) Connect(ctx context.Context, credential string, signal core.SignalConnection) (*Connection, error) {
	identity, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}
	return s.Registry.Register(identity, signal), nil
}

// Disconnect removes the connection from every joined room, emitting
// the kind-appropriate departure events, then drops the registry
// record. Membership is gone before any event goes out, so no room
// broadcast can reach the departed connection.
func (s *Service) Disconnect(connID ConnectionID) {
	conn, ok := s.Registry.Get(connID)
	if !ok {
		return
	}
	for _, room := range s.Rooms.Drop(connID) {
		remaining := len(s.Rooms.Members(room.ID))
		switch room.Kind {
		case domain.KindCall:
			s.Rooms.Broadcast(room.ID, Encode(EvUserLeftCall, userEventPayload{CallID: room.Key, User: conn.Identity}), "")
			s.Calls.MemberLeft(room.Key, s.callPopulation(room.Key))
		case domain.KindBreakout:
			_, callID, ok := s.Breakouts.Info(room.Key)
			if !ok {
				break
			}
			s.Rooms.Broadcast(room.ID, Encode(EvUserLeftCall, userEventPayload{CallID: callID, User: conn.Identity}), "")
			if remaining == 0 {
				s.Breakouts.Forget(room.Key)
			}
			s.Calls.MemberLeft(callID, s.callPopulation(callID))
		case domain.KindWhiteboard:
			s.Rooms.Broadcast(room.ID, Encode(EvUserLeftWhiteboard, whiteboardUserPayload{WhiteboardID: room.Key, User: conn.Identity}), "")
			if remaining == 0 {
				s.Whiteboards.Forget(room.Key)
			}
		case domain.KindGroup:
			// Group rooms carry no per-connection departure event.
		}
	}
	s.Registry.Unregister(connID)
}

// JoinGroup joins the persistent group room after the external
// membership check passes. The check runs before any lock is taken;
// the member set is untouched on failure.
func (s *Service) JoinGroup(ctx context.Context, conn *Connection, groupID string) error {
	ok, err := s.membership.IsGroupMember(ctx, groupID, conn.Identity.UserID)
	if err != nil {
		return fmt.Errorf("group membership check: %w", err)
	}
	if !ok {
		return &core.AuthorizationError{Room: "group:" + groupID, Reason: "not a group member"}
	}
	s.Rooms.Join(domain.GroupRoom(groupID), conn)
	return nil
}

// JoinCall joins the call room (membership is purely "who joined") and
// feeds the call tracker. Returns the roster after the join.
func (s *Service) JoinCall(ctx context.Context, conn *Connection, callID, groupID string) []domain.Identity {
	room := domain.CallRoom(callID)
	members, first := s.Rooms.Join(room, conn)
	s.Calls.MemberJoined(ctx, callID, groupID, conn, first)
	s.Rooms.Broadcast(room.ID, Encode(EvUserJoinedCall, userEventPayload{CallID: callID, User: conn.Identity}), conn.ID)

	roster := make([]domain.Identity, 0, len(members))
	for _, m := range members {
		roster = append(roster, m.Identity)
	}
	return roster
}

// LeaveCall removes the connection from the call. A member currently
// inside a breakout room of the call leaves through that room; breakout
// membership is call membership, so either path feeds the tracker the
// combined population.
func (s *Service) LeaveCall(conn *Connection, callID string) {
	room := domain.CallRoom(callID)
	_, wasMember := s.Rooms.Leave(room.ID, conn.ID)
	if !wasMember {
		for _, r := range s.Rooms.RoomsOf(conn.ID) {
			if r.Kind == domain.KindBreakout && r.Parent == room.ID {
				s.leaveBreakout(conn, r)
				return
			}
		}
		return
	}
	s.Rooms.Broadcast(room.ID, Encode(EvUserLeftCall, userEventPayload{CallID: callID, User: conn.Identity}), "")
	s.Calls.MemberLeft(callID, s.callPopulation(callID))
}

func (s *Service) leaveBreakout(conn *Connection, room domain.Room) {
	_, callID, ok := s.Breakouts.Info(room.Key)
	remaining, wasMember := s.Rooms.Leave(room.ID, conn.ID)
	if !wasMember || !ok {
		return
	}
	s.Rooms.Broadcast(room.ID, Encode(EvUserLeftCall, userEventPayload{CallID: callID, User: conn.Identity}), "")
	if remaining == 0 {
		s.Breakouts.Forget(room.Key)
	}
	s.Calls.MemberLeft(callID, s.callPopulation(callID))
}

// callPopulation counts every participant of a call: the parent room
// plus all of its breakout rooms. The tracker ends the session only
// when this reaches zero, so a call whose members are all off in
// breakout rooms stays active.
func (s *Service) callPopulation(callID string) int {
	n := len(s.Rooms.Members(domain.CallRoom(callID).ID))
	for _, id := range s.Breakouts.RoomsOf(callID) {
		n += len(s.Rooms.Members(domain.RoomID(id)))
	}
	return n
}

// RelayToCallPeer unicasts a pre-encoded, sender-stamped frame to the
// target user's connection inside the call room. An absent target is
// reported as NotFoundError; the caller decides whether that surfaces
// (offer/answer) or is silently dropped (a normal already-left race).
func (s *Service) RelayToCallPeer(callID string, target domain.UserID, frame core.Frame) error {
	room := domain.CallRoom(callID)
	peer, ok := s.Rooms.MemberByUser(room.ID, target)
	if !ok {
		return &core.NotFoundError{Kind: "call peer", ID: string(target)}
	}
	if err := s.Rooms.Unicast(peer, frame); err != nil {
		log.Warn().Str("module", "app.service").Str("call", callID).Str("target", string(target)).Err(err).Msg("relay dropped")
	}
	return nil
}

// BroadcastToCall fans a frame out to the call room minus the sender.
func (s *Service) BroadcastToCall(conn *Connection, callID string, frame core.Frame) {
	s.Rooms.Broadcast(domain.CallRoom(callID).ID, frame, conn.ID)
}

// JoinWhiteboard authorizes against the ownership/group store, joins
// the room, and returns the element log plus the user list for the
// whiteboard_joined reply. The check happens once, at join time.
func (s *Service) JoinWhiteboard(ctx context.Context, conn *Connection, whiteboardID string) ([]domain.Element, []domain.Identity, error) {
	ok, err := s.membership.CanAccessWhiteboard(ctx, whiteboardID, conn.Identity.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("whiteboard access check: %w", err)
	}
	if !ok {
		return nil, nil, &core.AuthorizationError{Room: "whiteboard:" + whiteboardID, Reason: "no access to whiteboard"}
	}

	room := domain.WhiteboardRoom(whiteboardID)
	members, _ := s.Rooms.Join(room, conn)
	s.Rooms.Broadcast(room.ID, Encode(EvUserJoinedWhiteboard, whiteboardUserPayload{WhiteboardID: whiteboardID, User: conn.Identity}), conn.ID)

	users := make([]domain.Identity, 0, len(members))
	for _, m := range members {
		users = append(users, m.Identity)
	}
	return s.Whiteboards.Snapshot(whiteboardID), users, nil
}

func (s *Service) LeaveWhiteboard(conn *Connection, whiteboardID string) {
	room := domain.WhiteboardRoom(whiteboardID)
	remaining, wasMember := s.Rooms.Leave(room.ID, conn.ID)
	if !wasMember {
		return
	}
	s.Rooms.Broadcast(room.ID, Encode(EvUserLeftWhiteboard, whiteboardUserPayload{WhiteboardID: whiteboardID, User: conn.Identity}), "")
	if remaining == 0 {
		s.Whiteboards.Forget(whiteboardID)
	}
}

type elementPayload struct {
	WhiteboardID string         `json:"whiteboardId"`
	Element      domain.Element `json:"element"`
}

type elementUpdatePayload struct {
	WhiteboardID string              `json:"whiteboardId"`
	ElementID    domain.ElementID    `json:"elementId"`
	Update       domain.ElementPatch `json:"update"`
}

type elementDeletePayload struct {
	WhiteboardID string           `json:"whiteboardId"`
	ElementID    domain.ElementID `json:"elementId"`
}

type clearCanvasPayload struct {
	WhiteboardID string          `json:"whiteboardId"`
	ClearedBy    domain.Identity `json:"clearedBy"`
}

// AddElement records a new element and relays it to the other room
// members. A duplicate id is dropped and reported to the sender only.
func (s *Service) AddElement(conn *Connection, whiteboardID string, el domain.Element) error {
	el.Author = conn.Identity.UserID
	if err := s.Whiteboards.Add(whiteboardID, el); err != nil {
		return err
	}
	s.Rooms.Broadcast(domain.WhiteboardRoom(whiteboardID).ID, Encode(EvAddElement, elementPayload{WhiteboardID: whiteboardID, Element: el}), conn.ID)
	return nil
}

// UpdateElement merges the patch into the log and relays it. An
// untracked id still relays: the log may have been cleared while the
// update was in flight, and receivers run the same merge rule.
func (s *Service) UpdateElement(conn *Connection, whiteboardID string, id domain.ElementID, patch domain.ElementPatch) {
	if !s.Whiteboards.Update(whiteboardID, id, patch) {
		log.Debug().Str("module", "app.service").Str("whiteboard", whiteboardID).Str("element", string(id)).Msg("update for untracked element")
	}
	s.Rooms.Broadcast(domain.WhiteboardRoom(whiteboardID).ID, Encode(EvUpdateElement, elementUpdatePayload{WhiteboardID: whiteboardID, ElementID: id, Update: patch}), conn.ID)
}

// DeleteElement is idempotent; deleting an absent id relays anyway so
// every replica converges on "gone".
func (s *Service) DeleteElement(conn *Connection, whiteboardID string, id domain.ElementID) {
	s.Whiteboards.Delete(whiteboardID, id)
	s.Rooms.Broadcast(domain.WhiteboardRoom(whiteboardID).ID, Encode(EvDeleteElement, elementDeletePayload{WhiteboardID: whiteboardID, ElementID: id}), conn.ID)
}

func (s *Service) ClearCanvas(conn *Connection, whiteboardID string) {
	s.Whiteboards.Clear(whiteboardID)
	s.Rooms.Broadcast(domain.WhiteboardRoom(whiteboardID).ID, Encode(EvClearCanvas, clearCanvasPayload{WhiteboardID: whiteboardID, ClearedBy: conn.Identity}), conn.ID)
}

// RelayCursor is the lossy, unordered cursor stream: pure fan-out,
// no log, no delivery contract.
func (s *Service) RelayCursor(conn *Connection, whiteboardID string, frame core.Frame) {
	s.Rooms.Broadcast(domain.WhiteboardRoom(whiteboardID).ID, frame, conn.ID)
}
