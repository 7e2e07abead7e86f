package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// envelope is the message published on the redis channel.
type envelope struct {
	Room string          `json:"room,omitempty"`
	Data json.RawMessage `json:"data"`
}

// RedisRelay publishes events to a redis channel so every API instance can
// deliver them to its own websocket clients. When publishing fails the event
// is delivered to the local hub only.
type RedisRelay struct {
	rdb     *redis.Client
	hub     *Hub
	channel string
}

func NewRedisRelay(rdb *redis.Client, hub *Hub, channel string) *RedisRelay {
	return &RedisRelay{rdb: rdb, hub: hub, channel: channel}
}

func (r *RedisRelay) BroadcastAll(event string, payload any) {
	r.publish("", event, payload)
}

func (r *RedisRelay) BroadcastToChannel(channel, event string, payload any) {
	if channel == "" {
		return
	}
	r.publish(channel, event, payload)
}

func (r *RedisRelay) publish(room, event string, payload any) {
	frame, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		log.WithError(err).WithField("event", event).Error("encode notification")
		return
	}
	msg, err := encodeEnvelope(room, frame)
	if err != nil {
		log.WithError(err).WithField("event", event).Error("encode relayed notification")
		return
	}

	if err := r.rdb.Publish(context.Background(), r.channel, msg).Err(); err != nil {
		log.WithError(err).WithField("event", event).Warn("redis publish failed; delivering locally")
		r.hub.deliver(room, frame)
	}
}

func encodeEnvelope(room string, frame []byte) ([]byte, error) {
	return json.Marshal(envelope{Room: room, Data: frame})
}

// Listen forwards relayed events to the local hub until ctx is done.
func (r *RedisRelay) Listen(ctx context.Context) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	log.WithField("channel", r.channel).Info("listening for relayed notifications")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.WithError(err).Warn("invalid relayed notification")
				continue
			}
			r.hub.deliver(env.Room, env.Data)
		}
	}
}
