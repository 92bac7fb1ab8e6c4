// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"context"
	"log/slog"

	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
	"github.com/risyyz/ABCD-sub000/internal/platform/ctxutil"
	"github.com/risyyz/ABCD-sub000/pkg/slug"
)

// # Service Layer

// BlogDirectory answers whether a blog exists. It is satisfied by the blog service.
type BlogDirectory interface {
	EnsureBlog(context context.Context, blogID BlogID) error
}

// Service orchestrates the post commands: every mutation loads the aggregate,
// checks the caller's version token, applies the change and persists it.
type Service struct {
	posts  PostRepository
	blogs  BlogDirectory
	cache  PublishedCache
	logger *slog.Logger
}

// NewService constructs a new [Service]. A nil cache disables caching.
func NewService(posts PostRepository, blogs BlogDirectory, cache PublishedCache, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NewNoopCache()
	}
	return &Service{posts: posts, blogs: blogs, cache: cache, logger: logger}
}

// # Command Inputs

// CreatePostInput carries the attributes of a new post.
type CreatePostInput struct {
	Title       string
	PathSegment PathSegment
	ParentID    PostID
}

// UpdatePostInput carries a partial edit. Nil fields are left unchanged; a
// zero PathSegment or ParentID clears the attribute.
type UpdatePostInput struct {
	Version     VersionToken
	Title       *string
	PathSegment *PathSegment
	ParentID    *PostID
}

// AddFragmentInput describes a fragment to insert. A nil Position appends.
type AddFragmentInput struct {
	Version  VersionToken
	Type     FragmentType
	Position *int
	Content  *string
}

// UpdateFragmentInput edits a fragment's content and/or flips its active flag.
type UpdateFragmentInput struct {
	Version      VersionToken
	Content      *string
	ToggleActive bool
}

// # Post Lookups

// GetPost returns the aggregate with its fragments and ancestor chain.
func (service *Service) GetPost(context context.Context, blogID BlogID, postID PostID) (*Post, error) {
	return service.posts.FindByID(context, blogID, postID)
}

// ListPosts returns a page of the blog's posts.
func (service *Service) ListPosts(context context.Context, blogID BlogID, filter Filter, limit, offset int) ([]*Post, int, error) {
	if err := service.blogs.EnsureBlog(context, blogID); err != nil {
		return nil, 0, err
	}
	return service.posts.ListByBlog(context, blogID, filter, limit, offset)
}

// Eligibility reports whether the post could be published right now.
func (service *Service) Eligibility(context context.Context, blogID BlogID, postID PostID) (Eligibility, error) {
	post, err := service.posts.FindByID(context, blogID, postID)
	if err != nil {
		return Eligibility{}, err
	}
	return post.EligibleForPublishing(), nil
}

/*
GetPublishedPost resolves the reader view of a published post by path segment.

Description: Reads through the [PublishedCache]. A cache failure is logged and
the repository is used instead. Drafts are reported as missing.

Parameters:
  - context: context.Context
  - blogID: BlogID
  - segment: PathSegment

Returns:
  - *PublishedPost: The projection with active fragments only
  - error: NOT_FOUND when no published post uses the segment
*/
func (service *Service) GetPublishedPost(context context.Context, blogID BlogID, segment PathSegment) (*PublishedPost, error) {
	view, found, err := service.cache.Get(context, blogID, segment)
	if err != nil {
		service.logger.Warn("published_cache_read_failed", slog.Int("blog_id", blogID.Int()), slog.String("path_segment", segment.String()), slog.Any("error", err))
	}
	if found {
		return view, nil
	}

	post, err := service.posts.FindByPathSegment(context, blogID, segment)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished() {
		return nil, apperr.NotFound("Published post")
	}

	view = NewPublishedPost(post)
	if err := service.cache.Set(context, view); err != nil {
		service.logger.Warn("published_cache_write_failed", slog.Int("post_id", post.ID().Int()), slog.Any("error", err))
	}
	return view, nil
}

// SuggestPathSegment derives a path segment from a title.
func (service *Service) SuggestPathSegment(title string) (PathSegment, error) {
	candidate := slug.From(title)
	if len(candidate) > PathSegmentMaxLength {
		candidate = candidate[:PathSegmentMaxLength]
		for len(candidate) > 0 && candidate[len(candidate)-1] == '-' {
			candidate = candidate[:len(candidate)-1]
		}
	}
	return NewPathSegment(candidate)
}

// # Post Management

/*
CreatePost persists a new draft post.

Description: The blog must exist; title and path segment must be unused in
the blog. When ParentID is set the parent is loaded and attached.

Parameters:
  - context: context.Context
  - blogID: BlogID
  - input: CreatePostInput

Returns:
  - *Post: The stored aggregate with its id and version
  - error: VALIDATION_ERROR, NOT_FOUND or CONFLICT
*/
func (service *Service) CreatePost(context context.Context, blogID BlogID, input CreatePostInput) (*Post, error) {
	if err := service.blogs.EnsureBlog(context, blogID); err != nil {
		return nil, err
	}

	if err := service.ensureTitleFree(context, blogID, input.Title, PostID{}); err != nil {
		return nil, err
	}
	if err := service.ensureSegmentFree(context, blogID, input.PathSegment, PostID{}); err != nil {
		return nil, err
	}

	post, err := NewPost(blogID, input.Title)
	if err != nil {
		return nil, err
	}
	post.SetPathSegment(input.PathSegment)

	if !input.ParentID.IsZero() {
		parent, err := service.posts.FindByID(context, blogID, input.ParentID)
		if err != nil {
			return nil, err
		}
		if err := post.SetParent(parent); err != nil {
			return nil, err
		}
	}

	created, err := service.posts.Create(context, post)
	if err != nil {
		return nil, err
	}

	service.logger.Info("post_created",
		slog.Int("blog_id", blogID.Int()),
		slog.Int("post_id", created.ID().Int()),
		slog.String("actor", actor(context)),
	)
	return created, nil
}

// UpdatePost edits title, path segment and parent of a post.
func (service *Service) UpdatePost(context context.Context, blogID BlogID, postID PostID, input UpdatePostInput) (*Post, error) {
	post, err := service.loadForWrite(context, blogID, postID, input.Version)
	if err != nil {
		return nil, err
	}
	previousSegment := post.PathSegment()

	if input.Title != nil {
		if err := service.ensureTitleFree(context, blogID, *input.Title, postID); err != nil {
			return nil, err
		}
		if err := post.SetTitle(*input.Title); err != nil {
			return nil, err
		}
	}

	if input.PathSegment != nil {
		if err := service.ensureSegmentFree(context, blogID, *input.PathSegment, postID); err != nil {
			return nil, err
		}
		post.SetPathSegment(*input.PathSegment)
	}

	if input.ParentID != nil {
		var parent *Post
		if !input.ParentID.IsZero() {
			parent, err = service.posts.FindByID(context, blogID, *input.ParentID)
			if err != nil {
				return nil, err
			}
		}
		if err := post.SetParent(parent); err != nil {
			return nil, err
		}
	}

	updated, err := service.posts.Update(context, post)
	if err != nil {
		return nil, err
	}

	service.invalidate(context, blogID, previousSegment, updated.PathSegment())
	service.logger.Info("post_updated", slog.Int("post_id", postID.Int()), slog.String("actor", actor(context)))
	return updated, nil
}

// DeletePost removes a post and its fragments.
func (service *Service) DeletePost(context context.Context, blogID BlogID, postID PostID, version VersionToken) error {
	post, err := service.loadForWrite(context, blogID, postID, version)
	if err != nil {
		return err
	}

	if err := service.posts.Delete(context, post); err != nil {
		return err
	}

	service.invalidate(context, blogID, post.PathSegment())
	service.logger.Warn("post_deleted", slog.Int("post_id", postID.Int()), slog.String("actor", actor(context)))
	return nil
}

// # Publishing

// Publish moves an eligible draft to Published.
func (service *Service) Publish(context context.Context, blogID BlogID, postID PostID, version VersionToken) (*Post, error) {
	post, err := service.loadForWrite(context, blogID, postID, version)
	if err != nil {
		return nil, err
	}

	if err := post.Publish(); err != nil {
		return nil, err
	}

	updated, err := service.posts.Update(context, post)
	if err != nil {
		return nil, err
	}

	service.invalidate(context, blogID, updated.PathSegment())
	service.logger.Info("post_published", slog.Int("post_id", postID.Int()), slog.String("actor", actor(context)))
	return updated, nil
}

// Unpublish returns a published post to Draft.
func (service *Service) Unpublish(context context.Context, blogID BlogID, postID PostID, version VersionToken) (*Post, error) {
	post, err := service.loadForWrite(context, blogID, postID, version)
	if err != nil {
		return nil, err
	}

	if err := post.Unpublish(); err != nil {
		return nil, err
	}

	updated, err := service.posts.Update(context, post)
	if err != nil {
		return nil, err
	}

	service.invalidate(context, blogID, updated.PathSegment())
	service.logger.Info("post_unpublished", slog.Int("post_id", postID.Int()), slog.String("actor", actor(context)))
	return updated, nil
}

// # Fragment Management

// AddFragment inserts a fragment and persists the reordered post.
func (service *Service) AddFragment(context context.Context, blogID BlogID, postID PostID, input AddFragmentInput) (*Post, error) {
	post, err := service.loadForWrite(context, blogID, postID, input.Version)
	if err != nil {
		return nil, err
	}

	fragment, err := post.AddFragment(input.Type, input.Position)
	if err != nil {
		return nil, err
	}
	fragment.setContent(input.Content)

	return service.saveFragments(context, post, "fragment_added")
}

// RemoveFragment deletes a fragment and closes the gap it leaves.
func (service *Service) RemoveFragment(context context.Context, blogID BlogID, postID PostID, fragmentID FragmentID, version VersionToken) (*Post, error) {
	post, err := service.loadForWrite(context, blogID, postID, version)
	if err != nil {
		return nil, err
	}

	if err := post.RemoveFragment(fragmentID); err != nil {
		return nil, err
	}

	return service.saveFragments(context, post, "fragment_removed")
}

// UpdateFragment replaces content and/or toggles the active flag of a fragment.
func (service *Service) UpdateFragment(context context.Context, blogID BlogID, postID PostID, fragmentID FragmentID, input UpdateFragmentInput) (*Post, error) {
	if input.Content == nil && !input.ToggleActive {
		return nil, apperr.ValidationError("Nothing to update", apperr.FieldError{Field: "content", Message: "Provide content or toggle_active"})
	}

	post, err := service.loadForWrite(context, blogID, postID, input.Version)
	if err != nil {
		return nil, err
	}

	if input.Content != nil {
		if err := post.SetFragmentContent(fragmentID, input.Content); err != nil {
			return nil, err
		}
	}
	if input.ToggleActive {
		if _, err := post.ToggleFragmentActive(fragmentID); err != nil {
			return nil, err
		}
	}

	return service.saveFragments(context, post, "fragment_updated")
}

/*
ChangeFragmentPosition moves a fragment one step and persists the swap.

Parameters:
  - context: context.Context
  - blogID: BlogID
  - postID: PostID
  - fragmentID: FragmentID
  - newPosition: int (adjacent to the current position)
  - version: VersionToken (as last read by the caller)

Returns:
  - *Post: The reloaded aggregate
  - error: FRAGMENT_POSITION, VERSION_CONFLICT or NOT_FOUND
*/
func (service *Service) ChangeFragmentPosition(context context.Context, blogID BlogID, postID PostID, fragmentID FragmentID, newPosition int, version VersionToken) (*Post, error) {
	post, err := service.loadForWrite(context, blogID, postID, version)
	if err != nil {
		return nil, err
	}

	moved, displaced, err := post.ChangeFragmentPosition(fragmentID, newPosition)
	if err != nil {
		return nil, err
	}

	updated, err := service.posts.SwapFragmentPositions(context, post, moved, displaced)
	if err != nil {
		return nil, err
	}

	service.invalidate(context, blogID, updated.PathSegment())
	service.logger.Info("fragment_moved",
		slog.Int("post_id", postID.Int()),
		slog.Int("fragment_id", fragmentID.Int()),
		slog.Int("position", newPosition),
		slog.String("actor", actor(context)),
	)
	return updated, nil
}

// # Internal Helpers

// loadForWrite loads the aggregate and rejects a stale or missing token.
func (service *Service) loadForWrite(context context.Context, blogID BlogID, postID PostID, version VersionToken) (*Post, error) {
	if version.IsZero() {
		return nil, apperr.ValidationError("Version token is required", apperr.FieldError{Field: "version", Message: "Required"})
	}

	post, err := service.posts.FindByID(context, blogID, postID)
	if err != nil {
		return nil, err
	}

	if !post.Version().Equal(version) {
		return nil, apperr.VersionConflict("Post")
	}
	return post, nil
}

func (service *Service) saveFragments(context context.Context, post *Post, event string) (*Post, error) {
	updated, err := service.posts.Update(context, post)
	if err != nil {
		return nil, err
	}

	service.invalidate(context, post.BlogID(), updated.PathSegment())
	service.logger.Info(event, slog.Int("post_id", post.ID().Int()), slog.String("actor", actor(context)))
	return updated, nil
}

func (service *Service) ensureTitleFree(context context.Context, blogID BlogID, title string, self PostID) error {
	normalized, err := validateTitle(title)
	if err != nil {
		return err
	}

	existing, err := service.posts.FindByTitle(context, blogID, normalized)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID() != self {
		return apperr.Conflict("A post with this title already exists in the blog")
	}
	return nil
}

func (service *Service) ensureSegmentFree(context context.Context, blogID BlogID, segment PathSegment, self PostID) error {
	if segment.IsZero() {
		return nil
	}

	existing, err := service.posts.FindByPathSegment(context, blogID, segment)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID() != self {
		return apperr.Conflict("A post with this path segment already exists in the blog")
	}
	return nil
}

func (service *Service) invalidate(context context.Context, blogID BlogID, segments ...PathSegment) {
	if err := service.cache.Invalidate(context, blogID, segments...); err != nil {
		service.logger.Warn("published_cache_invalidate_failed", slog.Int("blog_id", blogID.Int()), slog.Any("error", err))
	}
}

// actor names the authenticated caller for audit log lines.
func actor(context context.Context) string {
	if claims := ctxutil.GetAuthUser(context); claims != nil {
		return claims.UserID
	}
	return "anonymous"
}
