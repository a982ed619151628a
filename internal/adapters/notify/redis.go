// Package notify hands call-lifecycle events to the platform's
// notification pipeline.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/groupdesk/realtime/internal/core"
	"github.com/groupdesk/realtime/internal/domain"
)

const notificationTTL = 24 * time.Hour

// Sink appends notification documents to a per-group Redis list that
// the notification worker drains into durable records. This service
// only triggers; fan-out to individual group members happens there.
type Sink struct {
	client *redis.Client
}

func NewSink(client *redis.Client) *Sink {
	return &Sink{client: client}
}

var _ core.NotificationSink = (*Sink)(nil)

type callStartedDoc struct {
	Type      string    `json:"type"`
	GroupID   string    `json:"groupId"`
	CallID    string    `json:"callId"`
	StartedBy string    `json:"startedBy"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Sink) GroupCallStarted(ctx context.Context, groupID, callID string, startedBy domain.Identity) error {
	doc, err := json.Marshal(callStartedDoc{
		Type:      "group_call_started",
		GroupID:   groupID,
		CallID:    callID,
		StartedBy: string(startedBy.UserID),
		Name:      startedBy.Name,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	key := "notifications:group:" + groupID
	if err := s.client.RPush(ctx, key, doc).Err(); err != nil {
		return err
	}
	s.client.Expire(ctx, key, notificationTTL)
	return nil
}
