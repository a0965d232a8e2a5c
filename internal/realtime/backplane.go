package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"questfeed/backend/internal/models"
)

// backplaneChannel is the Redis Pub/Sub channel all processes share for
// cross-instance broadcast fan-out.
const backplaneChannel = "realtime:events"

// Broadcast scopes carried on the backplane.
const (
	ScopeGlobal = "global"
	ScopeRoom   = "room"
)

// RemoteFrame is a broadcast replicated to the other processes of a
// horizontally scaled deployment. Origin identifies the publishing process
// so subscribers can skip their own frames.
type RemoteFrame struct {
	Origin string          `json:"origin"`
	Scope  string          `json:"scope"`
	Room   string          `json:"room,omitempty"`
	Event  models.Envelope `json:"event"`
}

// Backplane replicates broadcasts across processes. The hub publishes every
// locally originated broadcast; frames arriving from other processes are fed
// back into the hub loop for local fan-out only.
type Backplane interface {
	Publish(frame RemoteFrame) error
	// Listen blocks, delivering remote frames until the context is cancelled.
	Listen(ctx context.Context, deliver func(RemoteFrame))
}

// RedisBackplane fans broadcasts out over a shared Redis channel.
type RedisBackplane struct {
	origin string
	rdb    *redis.Client
	log    *zap.Logger
}

func NewRedisBackplane(rdb *redis.Client, origin string, log *zap.Logger) *RedisBackplane {
	return &RedisBackplane{origin: origin, rdb: rdb, log: log}
}

func (b *RedisBackplane) Publish(frame RemoteFrame) error {
	frame.Origin = b.origin
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return b.rdb.Publish(context.Background(), backplaneChannel, data).Err()
}

func (b *RedisBackplane) Listen(ctx context.Context, deliver func(RemoteFrame)) {
	pubsub := b.rdb.Subscribe(ctx, backplaneChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var frame RemoteFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				b.log.Warn("undecodable backplane frame", zap.Error(err))
				continue
			}
			if frame.Origin == b.origin {
				continue
			}
			deliver(frame)
		}
	}
}

// NoopBackplane serves single-process deployments and tests.
type NoopBackplane struct{}

func (NoopBackplane) Publish(RemoteFrame) error { return nil }

func (NoopBackplane) Listen(ctx context.Context, _ func(RemoteFrame)) {
	<-ctx.Done()
}
