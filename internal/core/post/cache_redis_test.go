// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risyyz/ABCD-sub000/internal/core/post"
	"github.com/risyyz/ABCD-sub000/internal/platform/redis"
	"github.com/risyyz/ABCD-sub000/pkg/pointer"
)

const cacheTTL = 5 * time.Minute

func newRedisCache(t *testing.T) (*miniredis.Miniredis, post.PublishedCache) {
	t.Helper()

	server := miniredis.RunT(t)
	client, err := redis.NewClient(context.Background(), "redis://"+server.Addr(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return server, post.NewRedisPublishedCache(client, cacheTTL)
}

func publishedView(segment string) *post.PublishedPost {
	return &post.PublishedPost{
		BlogID:      testBlogID,
		PostID:      12,
		Title:       "Hello",
		PathSegment: segment,
		Path:        "/" + segment,
		PublishedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Fragments: []post.PublishedFragment{
			{Type: post.FragmentHeading, Position: 1, Content: pointer.To("# Hello")},
			{Type: post.FragmentCode, Position: 2},
		},
	}
}

/*
TestRedisPublishedCache_ReadThrough verifies misses, stored entries, and the TTL.
*/
func TestRedisPublishedCache_ReadThrough(t *testing.T) {
	server, cache := newRedisCache(t)
	ctx := context.Background()
	blogID := post.MustBlogID(testBlogID)
	segment := post.MustPathSegment("hello-world")

	_, found, err := cache.Get(ctx, blogID, segment)
	require.NoError(t, err)
	assert.False(t, found)

	view := publishedView("hello-world")
	require.NoError(t, cache.Set(ctx, view))

	key := "post:published:1:hello-world"
	assert.True(t, server.Exists(key))
	assert.Equal(t, cacheTTL, server.TTL(key))

	cached, found, err := cache.Get(ctx, blogID, segment)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, view.PostID, cached.PostID)
	assert.Equal(t, view.Path, cached.Path)
	assert.True(t, view.PublishedAt.Equal(cached.PublishedAt))
	assert.Equal(t, view.Fragments, cached.Fragments)

	server.FastForward(cacheTTL + time.Second)
	_, found, err = cache.Get(ctx, blogID, segment)
	require.NoError(t, err)
	assert.False(t, found)
}

/*
TestRedisPublishedCache_Invalidate verifies every named segment is dropped and zero segments are skipped.
*/
func TestRedisPublishedCache_Invalidate(t *testing.T) {
	server, cache := newRedisCache(t)
	ctx := context.Background()
	blogID := post.MustBlogID(testBlogID)

	for _, segment := range []string{"first", "second", "kept"} {
		require.NoError(t, cache.Set(ctx, publishedView(segment)))
	}

	require.NoError(t, cache.Invalidate(ctx, blogID,
		post.MustPathSegment("first"), post.PathSegment{}, post.MustPathSegment("second")))

	assert.False(t, server.Exists("post:published:1:first"))
	assert.False(t, server.Exists("post:published:1:second"))
	assert.True(t, server.Exists("post:published:1:kept"))

	require.NoError(t, cache.Invalidate(ctx, blogID, post.PathSegment{}))
}

/*
TestRedisPublishedCache_Failures verifies corrupt entries and an unreachable server surface as errors.
*/
func TestRedisPublishedCache_Failures(t *testing.T) {
	server, cache := newRedisCache(t)
	ctx := context.Background()
	blogID := post.MustBlogID(testBlogID)
	segment := post.MustPathSegment("broken")

	require.NoError(t, server.Set("post:published:1:broken", "{not json"))
	_, found, err := cache.Get(ctx, blogID, segment)
	assert.Error(t, err)
	assert.False(t, found)

	server.Close()
	_, _, err = cache.Get(ctx, blogID, segment)
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, publishedView("broken")))
	assert.Error(t, cache.Invalidate(ctx, blogID, segment))
}
