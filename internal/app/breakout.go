package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/core"
	"github.com/groupdesk/realtime/internal/domain"
)

type breakoutInfo struct {
	ID     string
	Name   string
	CallID string
}

// BreakoutManager creates and tears down sub-rooms of an active call,
// re-using Directory primitives for every membership move. It owns
// only the id -> {name, parent} table; membership stays in the
// Directory. A connection is in the parent room or in one breakout
// room, never both: every move leaves one room before joining the
// other.
type BreakoutManager struct {
	mu    sync.Mutex
	rooms map[string]*breakoutInfo

	dir *Directory

	// now is swappable in tests; ids embed a timestamp.
	now func() time.Time
}

func NewBreakoutManager(dir *Directory) *BreakoutManager {
	return &BreakoutManager{
		rooms: make(map[string]*breakoutInfo),
		dir:   dir,
		now:   time.Now,
	}
}

type movedPayload struct {
	BreakoutRoomID string            `json:"breakoutRoomId"`
	RoomName       string            `json:"roomName"`
	CallID         string            `json:"callId"`
	Members        []domain.Identity `json:"members"`
}

type returnedPayload struct {
	CallID  string            `json:"callId"`
	Members []domain.Identity `json:"members"`
}

type closedPayload struct {
	BreakoutRoomID string `json:"breakoutRoomId"`
	RoomName       string `json:"roomName"`
	CallID         string `json:"callId"`
}

// Create moves each listed user currently present in the parent call
// room into a new breakout room and notifies each mover individually
// with the breakout roster. Users not present in the parent room are
// skipped; that is the normal already-left race, not an error. The
// returned id is empty when no listed user could be moved (the room is
// then never created).
func (m *BreakoutManager) Create(callID, name string, users []domain.UserID) (string, int) {
	id := fmt.Sprintf("%s_breakout_%d", callID, m.now().UnixMilli())
	parentID := domain.CallRoom(callID).ID
	room := domain.BreakoutRoom(id, callID)

	moved := make([]*Connection, 0, len(users))
	for _, user := range users {
		conn, ok := m.dir.MemberByUser(parentID, user)
		if !ok {
			log.Debug().Str("module", "app.breakout").Str("call", callID).Str("user", string(user)).Msg("participant not in parent room, skipped")
			continue
		}
		m.dir.Leave(parentID, conn.ID)
		m.dir.Join(room, conn)
		moved = append(moved, conn)
	}
	if len(moved) == 0 {
		return "", 0
	}

	m.mu.Lock()
	m.rooms[id] = &breakoutInfo{ID: id, Name: name, CallID: callID}
	m.mu.Unlock()

	roster := m.memberIdentities(room.ID)
	frame := Encode(EvMovedToBreakoutRoom, movedPayload{
		BreakoutRoomID: id,
		RoomName:       name,
		CallID:         callID,
		Members:        roster,
	})
	for _, conn := range moved {
		if err := m.dir.Unicast(conn, frame); err != nil {
			log.Warn().Str("module", "app.breakout").Str("conn", string(conn.ID)).Err(err).Msg("move notice dropped")
		}
	}
	log.Info().Str("module", "app.breakout").Str("breakout", id).Str("call", callID).Int("moved", len(moved)).Msg("breakout room created")
	return id, len(moved)
}

// ReturnToMain moves one connection from a breakout room back to its
// parent call room. The breakout room is destroyed when this empties it.
func (m *BreakoutManager) ReturnToMain(breakoutID string, conn *Connection) error {
	m.mu.Lock()
	info, ok := m.rooms[breakoutID]
	m.mu.Unlock()
	if !ok {
		return &core.NotFoundError{Kind: "breakout room", ID: breakoutID}
	}

	remaining, wasMember := m.dir.Leave(domain.RoomID(breakoutID), conn.ID)
	if wasMember && remaining == 0 {
		m.Forget(breakoutID)
	}
	m.dir.Join(domain.CallRoom(info.CallID), conn)

	if err := m.dir.Unicast(conn, Encode(EvReturnedToMainRoom, returnedPayload{
		CallID:  info.CallID,
		Members: m.memberIdentities(domain.CallRoom(info.CallID).ID),
	})); err != nil {
		log.Warn().Str("module", "app.breakout").Str("conn", string(conn.ID)).Err(err).Msg("return notice dropped")
	}
	return nil
}

// Close returns every remaining member to the parent room, destroys
// the breakout room, and tells the parent room it is gone.
func (m *BreakoutManager) Close(breakoutID string) error {
	m.mu.Lock()
	info, ok := m.rooms[breakoutID]
	delete(m.rooms, breakoutID)
	m.mu.Unlock()
	if !ok {
		return &core.NotFoundError{Kind: "breakout room", ID: breakoutID}
	}

	parent := domain.CallRoom(info.CallID)
	for _, conn := range m.dir.Connections(domain.RoomID(breakoutID)) {
		m.dir.Leave(domain.RoomID(breakoutID), conn.ID)
		m.dir.Join(parent, conn)
	}

	m.dir.Broadcast(parent.ID, Encode(EvBreakoutRoomClosed, closedPayload{
		BreakoutRoomID: breakoutID,
		RoomName:       info.Name,
		CallID:         info.CallID,
	}), "")
	log.Info().Str("module", "app.breakout").Str("breakout", breakoutID).Msg("breakout room closed")
	return nil
}

// Forget drops the id table entry after a breakout room emptied out
// (last member returned, or disconnected).
func (m *BreakoutManager) Forget(breakoutID string) {
	m.mu.Lock()
	delete(m.rooms, breakoutID)
	m.mu.Unlock()
}

// RoomsOf lists the live breakout rooms parented to a call. Breakout
// members still count as call participants, so call-lifecycle
// accounting sums the parent room and every room listed here.
func (m *BreakoutManager) RoomsOf(callID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, info := range m.rooms {
		if info.CallID == callID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Info resolves a breakout id to its parent call, for departure
// handling on disconnect.
func (m *BreakoutManager) Info(breakoutID string) (name, callID string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.rooms[breakoutID]
	if !ok {
		return "", "", false
	}
	return info.Name, info.CallID, true
}

func (m *BreakoutManager) memberIdentities(roomID domain.RoomID) []domain.Identity {
	members := m.dir.Members(roomID)
	out := make([]domain.Identity, 0, len(members))
	for _, mem := range members {
		out = append(out, mem.Identity)
	}
	return out
}
