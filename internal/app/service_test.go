package app

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/groupdesk/realtime/internal/core"
	"github.com/groupdesk/realtime/internal/domain"
	"github.com/groupdesk/realtime/internal/mocks"
)

type serviceFixture struct {
	svc        *Service
	verifier   *mocks.MockIdentityVerifier
	membership *mocks.MockMembershipChecker
	sink       *mocks.MockNotificationSink
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &serviceFixture{
		verifier:   mocks.NewMockIdentityVerifier(ctrl),
		membership: mocks.NewMockMembershipChecker(ctrl),
		sink:       mocks.NewMockNotificationSink(ctrl),
	}
	f.svc = NewService(f.verifier, f.membership, f.sink)
	return f
}

func (f *serviceFixture) join(t *testing.T, user string) (*Connection, *fakeConn) {
	t.Helper()
	fc := &fakeConn{}
	return f.svc.Registry.Register(testIdentity(user), fc), fc
}

func TestServiceConnect(t *testing.T) {
	t.Run("verified credential registers", func(t *testing.T) {
		f := newServiceFixture(t)
		f.verifier.EXPECT().Verify(gomock.Any(), "good-token").Return(testIdentity("alice"), nil)

		conn, err := f.svc.Connect(context.Background(), "good-token", &fakeConn{})
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		if conn.Identity.UserID != "alice" {
			t.Errorf("identity = %s, want alice", conn.Identity.UserID)
		}
		if f.svc.Registry.Count() != 1 {
			t.Errorf("registry count = %d, want 1", f.svc.Registry.Count())
		}
	})

	t.Run("rejected credential never registers", func(t *testing.T) {
		f := newServiceFixture(t)
		f.verifier.EXPECT().Verify(gomock.Any(), "bad-token").
			Return(domain.Identity{}, &core.AuthenticationError{Reason: "invalid token"})

		_, err := f.svc.Connect(context.Background(), "bad-token", &fakeConn{})
		var authErr *core.AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("err = %v, want AuthenticationError", err)
		}
		if f.svc.Registry.Count() != 0 {
			t.Errorf("registry count = %d, want 0", f.svc.Registry.Count())
		}
	})
}

func TestServiceJoinGroup(t *testing.T) {
	t.Run("member joins", func(t *testing.T) {
		f := newServiceFixture(t)
		f.membership.EXPECT().IsGroupMember(gomock.Any(), "g1", domain.UserID("alice")).Return(true, nil)

		a, _ := f.join(t, "alice")
		if err := f.svc.JoinGroup(context.Background(), a, "g1"); err != nil {
			t.Fatalf("join: %v", err)
		}
		if len(f.svc.Rooms.Members(domain.GroupRoom("g1").ID)) != 1 {
			t.Error("member not in group room")
		}
	})

	t.Run("non-member is rejected and excluded", func(t *testing.T) {
		f := newServiceFixture(t)
		f.membership.EXPECT().IsGroupMember(gomock.Any(), "g1", domain.UserID("mallory")).Return(false, nil)

		m, _ := f.join(t, "mallory")
		err := f.svc.JoinGroup(context.Background(), m, "g1")
		var authz *core.AuthorizationError
		if !errors.As(err, &authz) {
			t.Fatalf("err = %v, want AuthorizationError", err)
		}
		if len(f.svc.Rooms.Members(domain.GroupRoom("g1").ID)) != 0 {
			t.Error("rejected user ended up in the member set")
		}
		if len(f.svc.Rooms.RoomsOf(m.ID)) != 0 {
			t.Error("rejected user holds a room in the reverse index")
		}
	})

	t.Run("checker failure propagates", func(t *testing.T) {
		f := newServiceFixture(t)
		f.membership.EXPECT().IsGroupMember(gomock.Any(), "g1", gomock.Any()).
			Return(false, errors.New("store down"))

		a, _ := f.join(t, "alice")
		if err := f.svc.JoinGroup(context.Background(), a, "g1"); err == nil {
			t.Error("expected an error from the failing checker")
		}
	})
}

func TestServiceCallRelay(t *testing.T) {
	f := newServiceFixture(t)
	f.sink.EXPECT().GroupCallStarted(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	a, _ := f.join(t, "alice")
	b, fb := f.join(t, "bob")
	f.svc.JoinCall(context.Background(), a, "c1", "")
	roster := f.svc.JoinCall(context.Background(), b, "c1", "")
	if len(roster) != 2 {
		t.Errorf("roster size = %d, want 2", len(roster))
	}

	t.Run("present peer receives the frame", func(t *testing.T) {
		if err := f.svc.RelayToCallPeer("c1", "bob", Encode("offer", nil)); err != nil {
			t.Fatalf("relay: %v", err)
		}
		if got := fb.countEvent(t, "offer"); got != 1 {
			t.Errorf("target got %d frames, want 1", got)
		}
	})

	t.Run("absent peer reports NotFoundError", func(t *testing.T) {
		err := f.svc.RelayToCallPeer("c1", "ghost", Encode("offer", nil))
		var nf *core.NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("err = %v, want NotFoundError", err)
		}
	})
}

func TestServiceWhiteboardFlow(t *testing.T) {
	f := newServiceFixture(t)
	f.membership.EXPECT().CanAccessWhiteboard(gomock.Any(), "wb1", gomock.Any()).Return(true, nil).AnyTimes()

	a, _ := f.join(t, "alice")
	b, fb := f.join(t, "bob")

	ctx := context.Background()
	if _, _, err := f.svc.JoinWhiteboard(ctx, a, "wb1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, _, err := f.svc.JoinWhiteboard(ctx, b, "wb1"); err != nil {
		t.Fatalf("join: %v", err)
	}

	el := penElement("e1", 3)

	t.Run("add relays to peers once", func(t *testing.T) {
		if err := f.svc.AddElement(a, "wb1", el); err != nil {
			t.Fatalf("add: %v", err)
		}
		if got := fb.countEvent(t, EvAddElement); got != 1 {
			t.Errorf("peer got %d add_element, want 1", got)
		}
	})

	t.Run("duplicate add is reported and not relayed", func(t *testing.T) {
		if err := f.svc.AddElement(a, "wb1", el); !errors.Is(err, ErrDuplicateElement) {
			t.Fatalf("err = %v, want ErrDuplicateElement", err)
		}
		if got := fb.countEvent(t, EvAddElement); got != 1 {
			t.Errorf("peer got %d add_element after duplicate, want 1", got)
		}
	})

	t.Run("late joiner sees the element in the snapshot", func(t *testing.T) {
		c, _ := f.join(t, "carol")
		elements, users, err := f.svc.JoinWhiteboard(ctx, c, "wb1")
		if err != nil {
			t.Fatalf("join: %v", err)
		}
		if len(elements) != 1 || elements[0].ID != "e1" {
			t.Errorf("snapshot = %v, want [e1]", elements)
		}
		if elements[0].Author != "alice" {
			t.Errorf("author = %s, want alice", elements[0].Author)
		}
		if len(users) != 3 {
			t.Errorf("user list size = %d, want 3", len(users))
		}
	})

	t.Run("unauthorized joiner is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		f.membership.EXPECT().CanAccessWhiteboard(gomock.Any(), "wb1", domain.UserID("mallory")).Return(false, nil)

		m, _ := f.join(t, "mallory")
		_, _, err := f.svc.JoinWhiteboard(ctx, m, "wb1")
		var authz *core.AuthorizationError
		if !errors.As(err, &authz) {
			t.Fatalf("err = %v, want AuthorizationError", err)
		}
		if len(f.svc.Rooms.Members(domain.WhiteboardRoom("wb1").ID)) != 0 {
			t.Error("rejected user ended up in the room")
		}
	})
}

func TestServiceBreakoutDisconnectEndsCall(t *testing.T) {
	f := newServiceFixture(t)
	f.sink.EXPECT().GroupCallStarted(gomock.Any(), "g1", "c1", gomock.Any()).Return(nil)

	observer, fo := f.join(t, "olga")
	f.svc.Rooms.Join(domain.GroupRoom("g1"), observer)

	a, _ := f.join(t, "alice")
	f.svc.JoinCall(context.Background(), a, "c1", "g1")
	id, moved := f.svc.Breakouts.Create("c1", "design", []domain.UserID{"alice"})
	if moved != 1 {
		t.Fatalf("moved = %d, want 1", moved)
	}

	// The sole participant drops while inside the breakout room: the
	// call has drained and must end like any other drain.
	f.svc.Disconnect(a.ID)

	if _, ok := f.svc.Calls.Session("c1"); ok {
		t.Error("call session survived its last participant disconnecting from a breakout room")
	}
	if got := fo.countEvent(t, EvGroupCallEnded); got != 1 {
		t.Errorf("group room got %d group_call_ended, want 1", got)
	}
	if _, _, ok := f.svc.Breakouts.Info(id); ok {
		t.Error("emptied breakout room was not forgotten")
	}
}

func TestServiceLeaveCallFromBreakout(t *testing.T) {
	f := newServiceFixture(t)
	f.sink.EXPECT().GroupCallStarted(gomock.Any(), "g1", "c1", gomock.Any()).Return(nil)

	observer, fo := f.join(t, "olga")
	f.svc.Rooms.Join(domain.GroupRoom("g1"), observer)

	ctx := context.Background()
	a, _ := f.join(t, "alice")
	b, _ := f.join(t, "bob")
	f.svc.JoinCall(ctx, a, "c1", "g1")
	f.svc.JoinCall(ctx, b, "c1", "g1")
	id, _ := f.svc.Breakouts.Create("c1", "design", []domain.UserID{"bob"})

	t.Run("breakout members keep the call alive", func(t *testing.T) {
		f.svc.LeaveCall(a, "c1")
		if _, ok := f.svc.Calls.Session("c1"); !ok {
			t.Error("call ended while a breakout member remains")
		}
		if got := fo.countEvent(t, EvGroupCallEnded); got != 0 {
			t.Errorf("group room got %d group_call_ended, want 0", got)
		}
	})

	t.Run("leave_call reaches a breakout member", func(t *testing.T) {
		f.svc.LeaveCall(b, "c1")
		if inRoom(f.svc.Rooms, domain.RoomID(id), b.ID) {
			t.Error("leaver still in the breakout room")
		}
		if _, _, ok := f.svc.Breakouts.Info(id); ok {
			t.Error("emptied breakout room was not forgotten")
		}
		if _, ok := f.svc.Calls.Session("c1"); ok {
			t.Error("call session survived losing every participant")
		}
		if got := fo.countEvent(t, EvGroupCallEnded); got != 1 {
			t.Errorf("group room got %d group_call_ended, want 1", got)
		}
	})
}

func TestServiceDisconnect(t *testing.T) {
	f := newServiceFixture(t)
	f.sink.EXPECT().GroupCallStarted(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.membership.EXPECT().CanAccessWhiteboard(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()

	ctx := context.Background()
	a, _ := f.join(t, "alice")
	b, fb := f.join(t, "bob")
	f.svc.JoinCall(ctx, a, "c1", "")
	f.svc.JoinCall(ctx, b, "c1", "")
	if _, _, err := f.svc.JoinWhiteboard(ctx, a, "wb1"); err != nil {
		t.Fatal(err)
	}

	f.svc.Disconnect(a.ID)

	if got := fb.countEvent(t, EvUserLeftCall); got != 1 {
		t.Errorf("peer got %d user_left_call, want 1", got)
	}
	if _, ok := f.svc.Registry.Get(a.ID); ok {
		t.Error("disconnected connection still registered")
	}
	if len(f.svc.Rooms.RoomsOf(a.ID)) != 0 {
		t.Error("disconnected connection still holds rooms")
	}

	// Last member leaving tears the session down.
	f.svc.Disconnect(b.ID)
	if _, ok := f.svc.Calls.Session("c1"); ok {
		t.Error("call session survived losing every member")
	}
}
