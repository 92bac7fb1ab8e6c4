// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risyyz/ABCD-sub000/internal/core/post"
	"github.com/risyyz/ABCD-sub000/pkg/pointer"
)

/*
TestNewPublishedPost verifies the reader projection.
*/
func TestNewPublishedPost(t *testing.T) {
	root := storedPost(t, postFixture{id: 1, segment: "guides", published: true})
	child := storedPost(t, postFixture{id: 2, segment: "go", published: true, parent: root})
	leaf := storedPost(t, postFixture{id: 3, title: "Channels", segment: "channels", published: true, parent: child, fragments: 3})

	require.NoError(t, leaf.SetFragmentContent(post.MustFragmentID(301), pointer.To("intro")))
	_, err := leaf.ToggleFragmentActive(post.MustFragmentID(302))
	require.NoError(t, err)

	view := post.NewPublishedPost(leaf)

	assert.Equal(t, testBlogID, view.BlogID)
	assert.Equal(t, 3, view.PostID)
	assert.Equal(t, "Channels", view.Title)
	assert.Equal(t, "channels", view.PathSegment)
	assert.Equal(t, "/guides/go/channels", view.Path)
	assert.Equal(t, *leaf.DateLastPublished(), view.PublishedAt)

	require.Len(t, view.Fragments, 2)
	assert.Equal(t, 1, view.Fragments[0].Position)
	assert.Equal(t, "intro", *view.Fragments[0].Content)
	assert.Equal(t, 3, view.Fragments[1].Position)
	assert.Nil(t, view.Fragments[1].Content)
}

/*
TestNewPublishedPost_NoFragments verifies an empty, non-nil fragment list.
*/
func TestNewPublishedPost_NoFragments(t *testing.T) {
	view := post.NewPublishedPost(storedPost(t, postFixture{id: 1, segment: "about", published: true}))

	assert.Equal(t, "/about", view.Path)
	assert.NotNil(t, view.Fragments)
	assert.Empty(t, view.Fragments)
}
