package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultChannel = "jobboard:session-changes"

// RedisRelay publishes session changes on a redis channel and feeds every
// change seen on that channel, including its own, into the local hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  zerolog.Logger

	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisRelay(client *redis.Client, hub *Hub, logger zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: DefaultChannel,
		hub:     hub,
		logger:  logger.With().Str("component", "redis-relay").Logger(),
		done:    make(chan struct{}),
	}
}

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (r *RedisRelay) Publish(ctx context.Context, change models.SessionChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode session change: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish session change: %w", err)
	}
	return nil
}

// Start subscribes and waits for the subscription to be confirmed before
// relaying in the background.
func (r *RedisRelay) Start(ctx context.Context) error {
	r.pubsub = r.client.Subscribe(ctx, r.channel)
	if _, err := r.pubsub.Receive(ctx); err != nil {
		_ = r.pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	go r.relay(ctx, r.pubsub.Channel())
	return nil
}

func (r *RedisRelay) relay(ctx context.Context, messages <-chan *redis.Message) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var change models.SessionChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				r.logger.Warn().Err(err).Msg("discarding malformed session change")
				continue
			}
			if err := r.hub.Publish(ctx, change); err != nil {
				return
			}
		}
	}
}

// Close ends the subscription and waits for the relay goroutine to exit.
func (r *RedisRelay) Close() error {
	if r.pubsub == nil {
		return nil
	}
	err := r.pubsub.Close()
	<-r.done
	return err
}
