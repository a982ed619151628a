package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestRoomKinds(t *testing.T) {
	cases := []struct {
		room      Room
		kind      RoomKind
		ephemeral bool
	}{
		{GroupRoom("g1"), KindGroup, false},
		{CallRoom("c1"), KindCall, true},
		{WhiteboardRoom("wb1"), KindWhiteboard, true},
		{BreakoutRoom("c1_breakout_1", "c1"), KindBreakout, true},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			if tc.room.Kind != tc.kind {
				t.Errorf("kind = %v, want %v", tc.room.Kind, tc.kind)
			}
			if tc.room.Ephemeral() != tc.ephemeral {
				t.Errorf("ephemeral = %v, want %v", tc.room.Ephemeral(), tc.ephemeral)
			}
		})
	}
}

func TestRoomIDsDoNotCollide(t *testing.T) {
	// The same bare id names different rooms for different kinds.
	if GroupRoom("x").ID == CallRoom("x").ID {
		t.Error("group and call rooms share an id")
	}
	if CallRoom("x").ID == WhiteboardRoom("x").ID {
		t.Error("call and whiteboard rooms share an id")
	}
}

func TestBreakoutRoomParent(t *testing.T) {
	room := BreakoutRoom("c1_breakout_1700000000000", "c1")
	if room.Parent != CallRoom("c1").ID {
		t.Errorf("parent = %s, want %s", room.Parent, CallRoom("c1").ID)
	}
	if room.Key != "c1_breakout_1700000000000" {
		t.Errorf("key = %s", room.Key)
	}
}

func TestNewIdentity(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		id, err := NewIdentity("u1", "Alice", "alice@example.com")
		if err != nil {
			t.Fatal(err)
		}
		if id.UserID != "u1" || id.Name != "Alice" {
			t.Errorf("identity = %+v", id)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		if _, err := NewIdentity("u1", "", ""); !errors.Is(err, ErrNameEmpty) {
			t.Errorf("err = %v, want ErrNameEmpty", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		long := strings.Repeat("x", MaxDisplayNameLen+1)
		if _, err := NewIdentity("u1", long, ""); !errors.Is(err, ErrNameTooLong) {
			t.Errorf("err = %v, want ErrNameTooLong", err)
		}
	})
}
