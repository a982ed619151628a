package app

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/core"
	"github.com/groupdesk/realtime/internal/domain"
)

// Member is a read-only view of a room member (no transport fields).
type Member struct {
	Conn     ConnectionID    `json:"-"`
	Identity domain.Identity `json:"identity"`
}

// RoomInfo is a diagnostic view for the HTTP API.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	Kind        string        `json:"kind"`
	MemberCount int           `json:"memberCount"`
}

type roomState struct {
	meta    domain.Room
	members map[ConnectionID]*Connection
}

// Directory maps rooms to their member connections and is the only
// writer of membership state. One lock guards both the forward index
// (room to members) and the reverse index (connection to rooms), so a
// concurrent broadcast can never observe them disagreeing.
type Directory struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*roomState
	byConn map[ConnectionID]map[domain.RoomID]domain.Room
}

func NewDirectory() *Directory {
	return &Directory{
		rooms:  make(map[domain.RoomID]*roomState),
		byConn: make(map[ConnectionID]map[domain.RoomID]domain.Room),
	}
}

// Join adds the connection to the room, creating the room lazily.
// It returns the member list after the join, with the first flag set
// when the join created the room. Authorization checks belong to the
// caller and must happen before the write lock is taken.
func (d *Directory) Join(room domain.Room, conn *Connection) (members []Member, first bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.rooms[room.ID]
	if !ok {
		st = &roomState{meta: room, members: make(map[ConnectionID]*Connection)}
		d.rooms[room.ID] = st
		first = true
	}
	st.members[conn.ID] = conn

	joined := d.byConn[conn.ID]
	if joined == nil {
		joined = make(map[domain.RoomID]domain.Room)
		d.byConn[conn.ID] = joined
	}
	joined[room.ID] = room

	log.Info().Str("module", "app.directory").Str("room", string(room.ID)).Str("conn", string(conn.ID)).Int("members", len(st.members)).Msg("joined room")
	return d.membersLocked(st), first
}

// Leave removes the connection from the room. Leaving a room one is
// not a member of is a no-op. Ephemeral rooms are destroyed when their
// last member leaves.
func (d *Directory) Leave(roomID domain.RoomID, connID ConnectionID) (remaining int, wasMember bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leaveLocked(roomID, connID)
}

func (d *Directory) leaveLocked(roomID domain.RoomID, connID ConnectionID) (remaining int, wasMember bool) {
	st, ok := d.rooms[roomID]
	if !ok {
		return 0, false
	}
	if _, wasMember = st.members[connID]; !wasMember {
		return len(st.members), false
	}
	delete(st.members, connID)
	if joined := d.byConn[connID]; joined != nil {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(d.byConn, connID)
		}
	}
	remaining = len(st.members)
	if remaining == 0 && st.meta.Ephemeral() {
		delete(d.rooms, roomID)
		log.Info().Str("module", "app.directory").Str("room", string(roomID)).Msg("room destroyed")
	}
	log.Info().Str("module", "app.directory").Str("room", string(roomID)).Str("conn", string(connID)).Int("members", remaining).Msg("left room")
	return remaining, true
}

// Drop removes the connection from every room it joined and returns
// those rooms so the caller can emit the per-kind departure events.
func (d *Directory) Drop(connID ConnectionID) []domain.Room {
	d.mu.Lock()
	defer d.mu.Unlock()

	joined := d.byConn[connID]
	out := make([]domain.Room, 0, len(joined))
	for _, room := range joined {
		out = append(out, room)
	}
	for _, room := range out {
		d.leaveLocked(room.ID, connID)
	}
	return out
}

// Broadcast delivers a frame to every current member except the
// optionally-excluded sender. Delivery is fire-and-forget per member:
// a full queue or a just-closed connection is skipped, never retried,
// and never aborts the rest of the fan-out.
func (d *Directory) Broadcast(roomID domain.RoomID, frame core.Frame, exclude ConnectionID) {
	if frame == nil {
		return
	}
	d.mu.RLock()
	st, ok := d.rooms[roomID]
	if !ok {
		d.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(st.members))
	for id, conn := range st.members {
		if id == exclude {
			continue
		}
		targets = append(targets, conn)
	}
	d.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.Signal().TrySend(frame); err != nil {
			if errors.Is(err, core.ErrConnClosed) {
				continue
			}
			log.Warn().Str("module", "app.directory").Str("room", string(roomID)).Str("conn", string(conn.ID)).Err(err).Msg("broadcast delivery dropped")
		}
	}
}

// Unicast delivers a frame to a single member connection.
func (d *Directory) Unicast(conn *Connection, frame core.Frame) error {
	return conn.Signal().TrySend(frame)
}

func (d *Directory) Members(roomID domain.RoomID) []Member {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	return d.membersLocked(st)
}

func (d *Directory) membersLocked(st *roomState) []Member {
	out := make([]Member, 0, len(st.members))
	for id, conn := range st.members {
		out = append(out, Member{Conn: id, Identity: conn.Identity})
	}
	return out
}

// Connections returns the live connections in a room, for components
// that move members between rooms.
func (d *Directory) Connections(roomID domain.RoomID) []*Connection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]*Connection, 0, len(st.members))
	for _, conn := range st.members {
		out = append(out, conn)
	}
	return out
}

// MemberByUser locates a user's live connection within a room. Used by
// the relay and the breakout manager; an absent user is a normal race.
func (d *Directory) MemberByUser(roomID domain.RoomID, user domain.UserID) (*Connection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st, ok := d.rooms[roomID]
	if !ok {
		return nil, false
	}
	for _, conn := range st.members {
		if conn.Identity.UserID == user {
			return conn, true
		}
	}
	return nil, false
}

// RoomsOf returns the rooms the connection has currently joined.
func (d *Directory) RoomsOf(connID ConnectionID) []domain.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	joined := d.byConn[connID]
	out := make([]domain.Room, 0, len(joined))
	for _, room := range joined {
		out = append(out, room)
	}
	return out
}

// List returns a diagnostic snapshot of all rooms.
func (d *Directory) List() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RoomInfo, 0, len(d.rooms))
	for id, st := range d.rooms {
		out = append(out, RoomInfo{ID: id, Kind: st.meta.Kind.String(), MemberCount: len(st.members)})
	}
	return out
}
