package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruggine/chatcore/internal/wire"
)

// maxBackoff caps the RedisBridge's reconnect delay: it doubles on
// each failed attempt up to this ceiling.
const maxBackoff = 30 * time.Second

var subscribedPatterns = []string{"private:*", "group:*", "system", "notifications"}

// Bridge cross-connects a local Hub to every other server instance
// through Redis pub/sub, grounded on original_source's
// start_redis_subscriber in src/server/websocket.rs.
type Bridge struct {
	hub    *Hub
	client *redis.Client
}

// NewBridge builds a Bridge that republishes locally-originated events
// onto Redis and demultiplexes every event Redis echoes back -
// local or remote in origin - into hub.
func NewBridge(hub *Hub, redisURL string) (*Bridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 5
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	return &Bridge{hub: hub, client: redis.NewClient(opts)}, nil
}

// Publish implements messages.Publisher: it does not deliver locally
// itself. It only republishes the frame on Redis; this node's own
// subscribeLoop is subscribed to the same channel patterns and
// delivers to local connections when the message echoes back, exactly
// as every other node's subscriber does. A node publishing and
// delivering through the same single code path is what keeps delivery
// at-most-once: if Publish also delivered locally up front, the
// subsequent echo from Redis would deliver the same frame a second
// time to anyone still local to this node.
func (b *Bridge) Publish(channel, senderID string, frame wire.DataFrame) error {
	payload, err := json.Marshal(publishedFrame{Channel: channel, SenderID: senderID, Frame: frame})
	if err != nil {
		return err
	}
	return b.client.Publish(context.Background(), channel, payload).Err()
}

// publishedFrame is the envelope actually carried over the Redis
// channel: it repeats the channel name, and the subscriber side routes
// on this field rather than on the channel go-redis reports for the
// pub/sub message; the two are not compared. SenderID is
// the originating user's id, used to exclude them from their own
// group/broadcast fan-out; wire.DataFrame.Sender carries the display
// username instead and is never used for routing decisions.
type publishedFrame struct {
	Channel  string         `json:"channel"`
	SenderID string         `json:"sender_id"`
	Frame    wire.DataFrame `json:"frame"`
}

// Run subscribes to every channel pattern the fan-out plane uses and
// demultiplexes incoming messages into the local Hub until ctx is
// canceled. It transparently reconnects with exponential backoff
// capped at maxBackoff.
func (b *Bridge) Run(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := b.subscribeLoop(ctx); err != nil {
			log.Printf("realtime: redis subscriber: %v, retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
	}
}

func (b *Bridge) subscribeLoop(ctx context.Context) error {
	sub := b.client.PSubscribe(ctx, subscribedPatterns...)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errRedisChannelClosed
			}
			b.deliver(msg)
		}
	}
}

func (b *Bridge) deliver(msg *redis.Message) {
	var pf publishedFrame
	if err := json.Unmarshal([]byte(msg.Payload), &pf); err != nil {
		log.Printf("realtime: malformed redis payload on %s: %v", msg.Channel, err)
		return
	}
	if err := b.hub.route(pf.Channel, pf.Frame, pf.SenderID); err != nil {
		log.Printf("realtime: route from redis on %s: %v", pf.Channel, err)
	}
}

// Close releases the Redis client.
func (b *Bridge) Close() error {
	return b.client.Close()
}

type bridgeError string

func (e bridgeError) Error() string { return string(e) }

const errRedisChannelClosed = bridgeError("redis subscriber channel closed")
