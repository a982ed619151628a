// Package membership answers room-authorization questions from the
// platform's Redis-backed membership store.
package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/groupdesk/realtime/internal/core"
	"github.com/groupdesk/realtime/internal/domain"
)

// Store reads the membership records the main platform maintains:
// group member sets plus per-whiteboard owner and owning-group keys.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

var _ core.MembershipChecker = (*Store)(nil)

func groupMembersKey(groupID string) string {
	return "group:" + groupID + ":members"
}

func whiteboardOwnerKey(whiteboardID string) string {
	return "whiteboard:" + whiteboardID + ":owner"
}

func whiteboardGroupKey(whiteboardID string) string {
	return "whiteboard:" + whiteboardID + ":group"
}

func (s *Store) IsGroupMember(ctx context.Context, groupID string, user domain.UserID) (bool, error) {
	ok, err := s.client.SIsMember(ctx, groupMembersKey(groupID), string(user)).Result()
	if err != nil {
		return false, fmt.Errorf("group membership lookup: %w", err)
	}
	return ok, nil
}

// CanAccessWhiteboard grants access to the whiteboard's owner and to
// members of its owning group, when either record exists.
func (s *Store) CanAccessWhiteboard(ctx context.Context, whiteboardID string, user domain.UserID) (bool, error) {
	owner, err := s.client.Get(ctx, whiteboardOwnerKey(whiteboardID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("whiteboard owner lookup: %w", err)
	}
	if err == nil && owner == string(user) {
		return true, nil
	}

	groupID, err := s.client.Get(ctx, whiteboardGroupKey(whiteboardID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("whiteboard group lookup: %w", err)
	}
	return s.IsGroupMember(ctx, groupID, user)
}
