package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// InventoryPubSub fans inventory changes out to every instance so that each
// can drop its local view of the event.
type InventoryPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewInventoryPubSub(rdb *redis.Client) *InventoryPubSub {
	return &InventoryPubSub{
		rdb:     rdb,
		channel: ChannelInventoryChanged(),
	}
}

type inventoryChangedMsg struct {
	Type    string `json:"type"`
	EventID int64  `json:"event_id"`
	TsUnix  int64  `json:"ts_unix"`
}

func (p *InventoryPubSub) PublishInventoryChanged(ctx context.Context, eventID int64) error {
	b, err := json.Marshal(inventoryChangedMsg{
		Type:    "inventory_changed",
		EventID: eventID,
		TsUnix:  time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe calls handler for every change message until ctx is done.
func (p *InventoryPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, eventID int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg inventoryChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil && msg.EventID != 0 {
				handler(ctx, msg.EventID)
			}
		}
	}
}

// Notifier invalidates the cached layout and announces the change. Failures
// are logged only; the cache entry expires on its own.
type Notifier struct {
	cache  *Cache
	pubsub *InventoryPubSub
	logger *slog.Logger
}

func NewNotifier(cache *Cache, pubsub *InventoryPubSub, logger *slog.Logger) *Notifier {
	return &Notifier{cache: cache, pubsub: pubsub, logger: logger}
}

func (n *Notifier) InventoryChanged(ctx context.Context, eventID int64) {
	if err := n.cache.InvalidateEvent(ctx, eventID); err != nil {
		n.logger.Warn("layout cache invalidation failed", "event_id", eventID, "error", err)
	}

	if n.pubsub == nil {
		return
	}
	if err := n.pubsub.PublishInventoryChanged(ctx, eventID); err != nil {
		n.logger.Warn("inventory change publish failed", "event_id", eventID, "error", err)
	}
}
