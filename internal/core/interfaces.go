package core

import (
	"context"

	"github.com/groupdesk/realtime/internal/domain"
)

//go:generate mockgen -source=interfaces.go -destination=../mocks/collaborators.go -package=mocks

// Frame is one encoded outbound message.
type Frame []byte

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues a frame without blocking. ErrBackpressure on a
	// full queue, ErrConnClosed after Close; both are droppable.
	TrySend(Frame) error
	Close()
}

// IdentityVerifier resolves a client credential to a verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}

// MembershipChecker answers the read-only authorization questions asked
// at room-join time. It is consulted before the room's member set is
// touched; a failed check leaves membership unchanged.
type MembershipChecker interface {
	IsGroupMember(ctx context.Context, groupID string, user domain.UserID) (bool, error)
	CanAccessWhiteboard(ctx context.Context, whiteboardID string, user domain.UserID) (bool, error)
}

// NotificationSink receives call-lifecycle events that an external
// collaborator turns into durable notification records.
type NotificationSink interface {
	GroupCallStarted(ctx context.Context, groupID, callID string, startedBy domain.Identity) error
}
