package domain

import "fmt"

type RoomID string

// RoomKind is an explicit tag; room behavior is dispatched on it,
// never parsed back out of the id string.
type RoomKind int

const (
	KindGroup RoomKind = iota
	KindCall
	KindWhiteboard
	KindBreakout
)

func (k RoomKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindCall:
		return "call"
	case KindWhiteboard:
		return "whiteboard"
	case KindBreakout:
		return "breakout"
	}
	return "unknown"
}

// Room is a named broadcast domain. Key is the kind-local identifier
// (group id, call id, whiteboard id, breakout id) carried structurally
// so nothing ever has to parse it back out of the room id. Parent is
// set only for breakout rooms and names the owning call room.
type Room struct {
	ID     RoomID
	Kind   RoomKind
	Key    string
	Parent RoomID
}

func GroupRoom(groupID string) Room {
	return Room{ID: RoomID("group:" + groupID), Kind: KindGroup, Key: groupID}
}

func CallRoom(callID string) Room {
	return Room{ID: RoomID("call:" + callID), Kind: KindCall, Key: callID}
}

func WhiteboardRoom(whiteboardID string) Room {
	return Room{ID: RoomID("whiteboard:" + whiteboardID), Kind: KindWhiteboard, Key: whiteboardID}
}

func BreakoutRoom(breakoutID, parentCallID string) Room {
	return Room{
		ID:     RoomID(breakoutID),
		Kind:   KindBreakout,
		Key:    breakoutID,
		Parent: CallRoom(parentCallID).ID,
	}
}

// Ephemeral rooms are torn down when their last member leaves;
// group rooms persist for the process lifetime.
func (r Room) Ephemeral() bool {
	return r.Kind != KindGroup
}

func (r Room) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, r.Key)
}
