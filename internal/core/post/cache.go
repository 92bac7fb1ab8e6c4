// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import "context"

// PublishedCache stores [PublishedPost] projections keyed by blog and path segment.
//
// A cache failure must never fail a read: the service logs it and falls back
// to the repository.
type PublishedCache interface {
	// Get returns the cached view and whether it was present.
	Get(context context.Context, blogID BlogID, segment PathSegment) (*PublishedPost, bool, error)

	// Set stores view under its blog and path segment.
	Set(context context.Context, view *PublishedPost) error

	// Invalidate drops the entries for every given segment.
	Invalidate(context context.Context, blogID BlogID, segments ...PathSegment) error
}

// noopCache is used when no Redis is configured.
type noopCache struct{}

// NewNoopCache returns a [PublishedCache] that never stores anything.
func NewNoopCache() PublishedCache { return noopCache{} }

func (noopCache) Get(context.Context, BlogID, PathSegment) (*PublishedPost, bool, error) {
	return nil, false, nil
}

func (noopCache) Set(context.Context, *PublishedPost) error { return nil }

func (noopCache) Invalidate(context.Context, BlogID, ...PathSegment) error { return nil }
