package redis

import (
	"context"
	"fmt"

	"github.com/haopham98/commerce/internal/domain"

	"github.com/go-redis/redis/v8"
)

const bidEventChannel = "listing_events"

type RedisEventPublisher struct {
	client *redis.Client
}

func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{client: client}
}

func (r *RedisEventPublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	eventData := fmt.Sprintf("%s:%s:%s:%s:%d",
		event.ListingID, event.Type, event.UserID,
		event.Amount.StringFixed(2), event.Timestamp.Unix())

	return r.client.Publish(ctx, bidEventChannel, eventData).Err()
}
