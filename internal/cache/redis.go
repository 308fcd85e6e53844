package cache

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

// invalidateChannel carries cache invalidation notifications between
// tracker instances sharing one database.
const invalidateChannel = "urltracker:cache:invalidate"

var Client *redis.Client

// InitRedis initializes Redis connection
func InitRedis(addr, password string, db int) error {
	Client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx := context.Background()
	if err := Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("✓ Redis connected successfully")
	return nil
}

// Close closes the Redis connection
func Close() error {
	if Client != nil {
		return Client.Close()
	}
	return nil
}

// PublishInvalidation tells other instances a redirect mutation committed.
// Best effort: a failed publish is logged, the local invalidation already
// happened.
func PublishInvalidation() {
	if Client == nil {
		return
	}
	if err := Client.Publish(context.Background(), invalidateChannel, "redirects").Err(); err != nil {
		log.Printf("[cache] warning: publish invalidation failed: %v", err)
	}
}

// SubscribeInvalidation invokes fn for every invalidation published by other
// instances. Blocks until ctx is cancelled; run in a goroutine.
func SubscribeInvalidation(ctx context.Context, fn func()) {
	if Client == nil {
		return
	}
	sub := Client.Subscribe(ctx, invalidateChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
			fn()
		case <-ctx.Done():
			return
		}
	}
}
