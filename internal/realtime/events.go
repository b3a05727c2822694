package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// EventChannel is the redis pub/sub channel every instance subscribes
// to, so lifecycle events reach sockets held by other instances.
const EventChannel = "automate:events"

// Event is a request-lifecycle notification. Exactly one of TargetRole
// or TargetUser is set.
type Event struct {
	Type       string      `json:"type"` // request_created | request_accepted | request_completed | request_rejected
	TargetRole string      `json:"target_role,omitempty"`
	TargetUser string      `json:"target_user,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Bridge publishes events to redis and fans incoming ones out to the
// local hub. Publishing is best-effort: a redis failure is logged and
// never propagated into the HTTP write path.
type Bridge struct {
	Hub *Hub
	RDB *redis.Client
}

func NewBridge(hub *Hub, rdb *redis.Client) *Bridge {
	return &Bridge{Hub: hub, RDB: rdb}
}

func (b *Bridge) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).Error("marshal event")
		return
	}
	if err := b.RDB.Publish(ctx, EventChannel, payload).Err(); err != nil {
		logrus.WithError(err).WithField("type", ev.Type).Error("publish event")
	}
}

// Run blocks on the subscription and dispatches events to local
// sockets until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.RDB.Subscribe(ctx, EventChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logrus.WithError(err).Error("decode event")
				continue
			}
			b.dispatch(ev)
		}
	}
}

func (b *Bridge) dispatch(ev Event) {
	out := map[string]interface{}{
		"type":    ev.Type,
		"payload": ev.Payload,
	}
	if ev.TargetRole != "" {
		b.Hub.SendToRole(ev.TargetRole, out)
		return
	}
	if ev.TargetUser != "" {
		uid, err := uuid.Parse(ev.TargetUser)
		if err != nil {
			return
		}
		b.Hub.SendToUser(uid, out)
	}
}
