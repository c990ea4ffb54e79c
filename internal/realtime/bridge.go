package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const bridgeChannel = "realtime:events"

// Bridge relays broadcast envelopes through Redis pub/sub so that every
// process behind the load balancer delivers to its own local rooms.
// Delivery inherits pub/sub semantics: fire-and-forget, at-most-once.
type Bridge struct {
	rdb *redis.Client
	hub *Hub
	log *slog.Logger
}

func NewBridge(rdb *redis.Client, hub *Hub, log *slog.Logger) *Bridge {
	return &Bridge{rdb: rdb, hub: hub, log: log}
}

func (b *Bridge) Publish(env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(context.Background(), bridgeChannel, raw).Err()
}

// Run subscribes and delivers received envelopes to the local hub,
// including the ones this process published itself.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, bridgeChannel)
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.log.Warn("bridge receive failed", "error", err)
			continue
		}
		var env Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			b.log.Warn("bridge envelope decode failed", "error", err)
			continue
		}
		b.hub.deliver(env)
	}
}
