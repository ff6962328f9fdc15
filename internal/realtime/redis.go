package realtime

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func NewRedis(addr, password string, db int) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	log.Infof("redis client created (addr: %s)", addr)
	return rdb
}

// NotificationChannel is the per-user pub/sub channel push workers subscribe to.
func NotificationChannel(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

// Notifier pushes an event to the hub and mirrors it on Redis for
// consumers outside this process.
type Notifier struct {
	Hub *Hub
	RDB *redis.Client
}

func NewNotifier(hub *Hub, rdb *redis.Client) *Notifier {
	return &Notifier{Hub: hub, RDB: rdb}
}

func (n *Notifier) Notify(ctx context.Context, ev Event, users ...uuid.UUID) {
	if n == nil {
		return
	}
	seen := make(map[uuid.UUID]bool, len(users))
	for _, u := range users {
		if u == uuid.Nil || seen[u] {
			continue
		}
		seen[u] = true
		if n.Hub != nil {
			n.Hub.SendToUser(u, ev)
		}
		n.publish(ctx, u, ev)
	}
}

func (n *Notifier) publish(ctx context.Context, userID uuid.UUID, ev Event) {
	if n.RDB == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("notifier: marshal %s: %v", ev.Type, err)
		return
	}
	if err := n.RDB.Publish(ctx, NotificationChannel(userID), payload).Err(); err != nil {
		log.Warnf("notifier: publish %s to %s: %v", ev.Type, userID, err)
	}
}
