// Package events is the outbound boundary for live tag changes. The service
// layer emits an event after the corresponding store write commits; fan-out to
// subscribers, delivery guarantees and backpressure all belong to the
// transport behind the Publisher interface.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stvreumi/CAMPUSbackend-sub000/internal/store"
)

type Type string

const (
	TagAdded    Type = "added"
	TagUpdated  Type = "updated"
	TagArchived Type = "archived"
	TagDeleted  Type = "deleted"
)

// Event carries the full tag snapshot as of the committed write.
type Event struct {
	Type Type      `json:"type"`
	Tag  store.Tag `json:"tag"`
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

const defaultChannel = "campus.tag-changes"

// RedisPublisher fans events out over a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(redisURL string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisPublisher{client: client, channel: defaultChannel}, nil
}

// NewRedisPublisherWithClient wraps an existing client.
func NewRedisPublisherWithClient(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, channel: defaultChannel}
}

func (p *RedisPublisher) Channel() string {
	return p.channel
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
