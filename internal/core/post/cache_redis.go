// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/risyyz/ABCD-sub000/internal/platform/constants"
)

// redisPublishedCache implements [PublishedCache] with JSON values and a TTL.
type redisPublishedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPublishedCache constructs a Redis backed [PublishedCache].
func NewRedisPublishedCache(client *redis.Client, ttl time.Duration) PublishedCache {
	return &redisPublishedCache{client: client, ttl: ttl}
}

func (cache *redisPublishedCache) Get(context context.Context, blogID BlogID, segment PathSegment) (*PublishedPost, bool, error) {
	payload, err := cache.client.Get(context, publishedKey(blogID.Int(), segment.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: failed to read published post: %w", err)
	}

	var view PublishedPost
	if err := json.Unmarshal(payload, &view); err != nil {
		return nil, false, fmt.Errorf("redis: corrupt published post entry: %w", err)
	}
	return &view, true, nil
}

func (cache *redisPublishedCache) Set(context context.Context, view *PublishedPost) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("redis: failed to encode published post: %w", err)
	}

	if err := cache.client.Set(context, publishedKey(view.BlogID, view.PathSegment), payload, cache.ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to store published post: %w", err)
	}
	return nil
}

func (cache *redisPublishedCache) Invalidate(context context.Context, blogID BlogID, segments ...PathSegment) error {
	keys := make([]string, 0, len(segments))
	for _, segment := range segments {
		if !segment.IsZero() {
			keys = append(keys, publishedKey(blogID.Int(), segment.String()))
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := cache.client.Del(context, keys...).Err(); err != nil {
		return fmt.Errorf("redis: failed to invalidate published posts: %w", err)
	}
	return nil
}

// publishedKey builds "post:published:<blog>:<segment>".
func publishedKey(blogID int, segment string) string {
	return fmt.Sprintf("%s%d:%s", constants.RedisPrefixPublishedPost, blogID, segment)
}
