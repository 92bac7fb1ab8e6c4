// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"strings"
	"time"
)

// PublishedPost is the reader-facing projection of a published post.
type PublishedPost struct {
	BlogID      int                 `json:"blog_id"`
	PostID      int                 `json:"post_id"`
	Title       string              `json:"title"`
	PathSegment string              `json:"path_segment"`
	Path        string              `json:"path"`
	PublishedAt time.Time           `json:"published_at"`
	Fragments   []PublishedFragment `json:"fragments"`
}

// PublishedFragment is an active fragment as rendered to readers.
type PublishedFragment struct {
	Type     FragmentType `json:"type"`
	Position int          `json:"position"`
	Content  *string      `json:"content"`
}

// NewPublishedPost projects post. Inactive fragments are left out and Path
// joins the segments from the root ancestor down to the post.
func NewPublishedPost(post *Post) *PublishedPost {
	view := &PublishedPost{
		BlogID:      post.blogID.Int(),
		PostID:      post.id.Int(),
		Title:       post.title,
		PathSegment: post.pathSegment.String(),
		Path:        fullPath(post),
		Fragments:   []PublishedFragment{},
	}

	if post.dateLastPublished != nil {
		view.PublishedAt = *post.dateLastPublished
	}

	for _, fragment := range post.fragments {
		if !fragment.active {
			continue
		}
		view.Fragments = append(view.Fragments, PublishedFragment{
			Type:     fragment.fragmentType,
			Position: fragment.position,
			Content:  cloneString(fragment.content),
		})
	}

	return view
}

func fullPath(post *Post) string {
	var segments []string
	visited := map[*Post]bool{}
	for current := post; current != nil && !visited[current]; current = current.parent {
		visited[current] = true
		segments = append(segments, current.pathSegment.String())
	}

	for left, right := 0, len(segments)-1; left < right; left, right = left+1, right-1 {
		segments[left], segments[right] = segments[right], segments[left]
	}
	return "/" + strings.Join(segments, "/")
}
