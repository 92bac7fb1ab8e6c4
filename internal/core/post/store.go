// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
)

// # Post Data Access

// Filter narrows a post listing.
type Filter struct {
	// Statuses keeps only posts in one of these states; empty keeps all.
	Statuses []Status
}

// PostRepository defines the data access contract for the post aggregate.
//
// Every write that changes an existing post is guarded by the post's
// [VersionToken]: a stored token that no longer matches fails with a
// VERSION_CONFLICT error and nothing is written.
type PostRepository interface {

	/*
		FindByID loads a post with its fragments and its ancestor chain.

		Parameters:
		  - context: context.Context
		  - blogID: BlogID
		  - postID: PostID

		Returns:
		  - *Post: The hydrated aggregate
		  - error: NOT_FOUND if missing
	*/
	FindByID(context context.Context, blogID BlogID, postID PostID) (*Post, error)

	/*
		ListByBlog returns one page of a blog's posts ordered by id.

		Parameters:
		  - context: context.Context
		  - blogID: BlogID
		  - filter: Filter
		  - limit: int
		  - offset: int

		Returns:
		  - []*Post: Hydrated posts
		  - int: Total matching posts
		  - error: Storage failures
	*/
	ListByBlog(context context.Context, blogID BlogID, filter Filter, limit, offset int) ([]*Post, int, error)

	/*
		FindByTitle returns the post of a blog whose title matches, ignoring case.

		Returns:
		  - *Post: The matching post
		  - error: NOT_FOUND if no post has that title
	*/
	FindByTitle(context context.Context, blogID BlogID, title string) (*Post, error)

	/*
		FindByPathSegment returns the post of a blog addressed by segment.

		Returns:
		  - *Post: The matching post
		  - error: NOT_FOUND if no post uses that segment
	*/
	FindByPathSegment(context context.Context, blogID BlogID, segment PathSegment) (*Post, error)

	/*
		Create persists a new post and its fragments.

		Parameters:
		  - context: context.Context
		  - post: *Post (without an id)

		Returns:
		  - *Post: The stored aggregate with ids and version assigned
		  - error: CONFLICT on a duplicate path segment
	*/
	Create(context context.Context, post *Post) (*Post, error)

	/*
		Update saves the post row and synchronises its fragments: removed ones
		are deleted, kept ones rewritten, new ones inserted.

		Returns:
		  - *Post: The reloaded aggregate carrying the new version
		  - error: VERSION_CONFLICT, NOT_FOUND or CONFLICT
	*/
	Update(context context.Context, post *Post) (*Post, error)

	/*
		SwapFragmentPositions persists a single-step move in one transaction:
		moved goes to a temporary out-of-range position, displaced goes to its
		final position, then moved goes to its final position.

		Parameters:
		  - context: context.Context
		  - post: *Post (carrying the expected version)
		  - moved: *Fragment
		  - displaced: *Fragment

		Returns:
		  - *Post: The reloaded aggregate carrying the new version
		  - error: VERSION_CONFLICT or NOT_FOUND
	*/
	SwapFragmentPositions(context context.Context, post *Post, moved, displaced *Fragment) (*Post, error)

	/*
		Delete removes the post and its fragments.

		Returns:
		  - error: VERSION_CONFLICT, NOT_FOUND, or CONFLICT while child posts reference it
	*/
	Delete(context context.Context, post *Post) error
}

// # Shared Storage Mapping

// temporaryPosition is the out-of-range slot used while swapping two fragments.
const temporaryPosition = MinPosition - 1

// postRecord is one post row as both SQL stores read it.
type postRecord struct {
	id                int
	blogID            int
	parentID          *int
	title             string
	status            string
	pathSegment       *string
	dateLastPublished *time.Time
	rowVersion        int64
}

// fragmentRecord is one fragment row as both SQL stores read it.
type fragmentRecord struct {
	id           int
	postID       int
	fragmentType string
	position     int
	content      *string
	active       bool
}

// buildPost assembles an aggregate from its ancestor chain, ordered from the
// post itself (index 0) up to the farthest ancestor, plus the post's fragments.
//
// The chain queries stop at the first id they have already visited, so a
// farthest ancestor that still names a parent means the stored tree loops.
func buildPost(chain []postRecord, fragmentRows []fragmentRecord) (*Post, error) {
	if len(chain) == 0 {
		return nil, apperr.NotFound("Post")
	}
	if top := chain[len(chain)-1]; top.parentID != nil {
		return nil, apperr.Internal(fmt.Errorf("post: ancestor cycle above post %d at parent %d", top.id, *top.parentID))
	}

	var parent *Post
	for index := len(chain) - 1; index >= 1; index-- {
		ancestor, err := chain[index].toPost(parent, nil)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("post: corrupt ancestor %d: %w", chain[index].id, err))
		}
		parent = ancestor
	}

	fragments := make([]*Fragment, 0, len(fragmentRows))
	for _, row := range fragmentRows {
		fragment, err := ReconstituteFragment(
			FragmentID{row.id}, PostID{row.postID}, FragmentType(row.fragmentType),
			row.position, row.content, row.active,
		)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("post: corrupt fragment %d: %w", row.id, err))
		}
		fragments = append(fragments, fragment)
	}

	post, err := chain[0].toPost(parent, fragments)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("post: corrupt post %d: %w", chain[0].id, err))
	}
	return post, nil
}

func (record postRecord) toPost(parent *Post, fragments []*Fragment) (*Post, error) {
	var segment PathSegment
	if record.pathSegment != nil {
		parsed, err := NewPathSegment(*record.pathSegment)
		if err != nil {
			return nil, err
		}
		segment = parsed
	}

	var published *time.Time
	if record.dateLastPublished != nil {
		utc := record.dateLastPublished.UTC()
		published = &utc
	}

	return Reconstitute(State{
		ID:                PostID{record.id},
		BlogID:            BlogID{record.blogID},
		Title:             record.title,
		Status:            Status(record.status),
		PathSegment:       segment,
		DateLastPublished: published,
		Parent:            parent,
		Fragments:         fragments,
		Version:           versionFromRowVersion(record.rowVersion),
	})
}

// versionFromRowVersion encodes a row version counter as an 8-byte token.
func versionFromRowVersion(rowVersion int64) VersionToken {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(rowVersion))
	return VersionToken{raw: raw}
}

// rowVersionOf decodes a token produced by versionFromRowVersion. Any other
// shape can never match a stored row.
func rowVersionOf(token VersionToken) (int64, error) {
	if len(token.raw) != 8 {
		return 0, apperr.VersionConflict("Post")
	}
	return int64(binary.BigEndian.Uint64(token.raw)), nil
}

// nullableSegment maps the zero segment to NULL.
func nullableSegment(segment PathSegment) *string {
	if segment.IsZero() {
		return nil
	}
	value := segment.String()
	return &value
}

// nullableID maps the zero post id to NULL.
func nullableID(id PostID) *int {
	if id.IsZero() {
		return nil
	}
	value := id.Int()
	return &value
}

func statusNames(statuses []Status) []string {
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	return names
}
