// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package post implements the blog post aggregate and everything around it.

A [Post] owns an ordered list of [Fragment] content blocks whose positions
always run 1..N without gaps, tracks its Draft/Published lifecycle, and may
hang under a parent post to form a URL hierarchy. The package also defines
the storage port ([PostRepository]) with PostgreSQL and SQLite adapters, a
Redis cache for the published read model, the application [Service], and
the chi HTTP handler.
*/
package post

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
)

// # Status

// Status is the publication lifecycle state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusPublished
}

// # Aggregate

// Post is the aggregate root for a blog post and its fragments.
//
// Invariants held after every successful operation:
//   - the title contains at least one word character;
//   - a published post has a DateLastPublished;
//   - fragment positions are exactly 1..N;
//   - once the post has an id, it never appears in its own ancestor chain.
//
// The parent is a borrowed reference loaded together with this post; the
// repository never saves it through this aggregate.
type Post struct {
	id                PostID
	blogID            BlogID
	title             string
	status            Status
	pathSegment       PathSegment
	dateLastPublished *time.Time
	parent            *Post
	fragments         []*Fragment
	version           VersionToken
}

// State carries the stored attributes of a post into [Reconstitute].
type State struct {
	ID                PostID
	BlogID            BlogID
	Title             string
	Status            Status
	PathSegment       PathSegment
	DateLastPublished *time.Time
	Parent            *Post
	Fragments         []*Fragment
	Version           VersionToken
}

// NewPost starts an unsaved draft with no fragments.
func NewPost(blogID BlogID, title string) (*Post, error) {
	if blogID.IsZero() {
		return nil, apperr.ValidationError("A post must belong to a blog", apperr.FieldError{Field: "blog_id", Message: "This field is required"})
	}

	normalized, err := validateTitle(title)
	if err != nil {
		return nil, err
	}

	return &Post{blogID: blogID, title: normalized, status: StatusDraft}, nil
}

// Reconstitute rebuilds a stored post. Fragments may arrive in any order but
// their positions must form the run 1..N.
func Reconstitute(state State) (*Post, error) {
	if state.BlogID.IsZero() || state.ID.IsZero() {
		return nil, apperr.ValidationError("A stored post needs a blog id and a post id")
	}

	title, err := validateTitle(state.Title)
	if err != nil {
		return nil, err
	}

	if !state.Status.IsValid() {
		return nil, apperr.ValidationError(fmt.Sprintf("Unknown post status %q", state.Status))
	}

	if state.Status == StatusPublished && state.DateLastPublished == nil {
		return nil, apperr.ValidationError("A published post must have a publication date")
	}

	fragments := slices.Clone(state.Fragments)
	slices.SortFunc(fragments, compareFragments)
	for index, fragment := range fragments {
		if fragment == nil {
			return nil, apperr.ValidationError("Fragment list contains an empty entry")
		}
		if fragment.postID != state.ID {
			return nil, apperr.ValidationError(fmt.Sprintf("Fragment %s belongs to post %s", fragment.id, fragment.postID))
		}
		if fragment.position != index+MinPosition {
			return nil, apperr.FragmentPosition("Fragment positions must run consecutively from 1")
		}
	}

	post := &Post{
		id:                state.ID,
		blogID:            state.BlogID,
		title:             title,
		status:            state.Status,
		pathSegment:       state.PathSegment,
		dateLastPublished: cloneTime(state.DateLastPublished),
		fragments:         fragments,
		version:           state.Version,
	}

	if err := post.SetParent(state.Parent); err != nil {
		return nil, err
	}

	return post, nil
}

// # Accessors

func (post *Post) ID() PostID { return post.id }
func (post *Post) BlogID() BlogID { return post.blogID }
func (post *Post) Title() string { return post.title }
func (post *Post) Status() Status { return post.status }
func (post *Post) PathSegment() PathSegment { return post.pathSegment }
func (post *Post) Parent() *Post { return post.parent }
func (post *Post) Version() VersionToken { return post.version }
func (post *Post) IsPublished() bool { return post.status == StatusPublished }
func (post *Post) DateLastPublished() *time.Time { return cloneTime(post.dateLastPublished) }

// ParentID returns the parent's id, or the zero id when there is no parent.
func (post *Post) ParentID() PostID {
	if post.parent == nil {
		return PostID{}
	}
	return post.parent.id
}

// Fragments returns the fragments ordered by position.
func (post *Post) Fragments() []*Fragment {
	return slices.Clone(post.fragments)
}

// Fragment looks up a fragment by id.
func (post *Post) Fragment(id FragmentID) (*Fragment, bool) {
	index := post.indexOf(id)
	if index < 0 {
		return nil, false
	}
	return post.fragments[index], true
}

// # Attribute Mutators

// SetTitle replaces the title.
func (post *Post) SetTitle(title string) error {
	normalized, err := validateTitle(title)
	if err != nil {
		return err
	}
	post.title = normalized
	return nil
}

// SetPathSegment replaces the path segment; the zero value clears it.
func (post *Post) SetPathSegment(segment PathSegment) {
	post.pathSegment = segment
}

// SetParent attaches the post under parent, or detaches it when parent is nil.
// A stored post may not end up in its own ancestor chain.
func (post *Post) SetParent(parent *Post) error {
	if parent == nil {
		post.parent = nil
		return nil
	}

	if !post.id.IsZero() {
		visited := map[*Post]bool{}
		for ancestor := parent; ancestor != nil && !visited[ancestor]; ancestor = ancestor.parent {
			visited[ancestor] = true
			if ancestor.blogID == post.blogID && ancestor.id == post.id {
				return ancestorCycle()
			}
		}
	}

	post.parent = parent
	return nil
}

// # Fragment Ordering

// AddFragment inserts a new fragment at position, or appends it when position
// is nil. Fragments at or after the position shift down by one.
func (post *Post) AddFragment(fragmentType FragmentType, position *int) (*Fragment, error) {
	count := len(post.fragments)
	target := count + 1
	if position != nil {
		target = *position
	}

	if target < MinPosition || target > count+1 {
		return nil, apperr.FragmentPosition(fmt.Sprintf("Fragment position must be between %d and %d", MinPosition, count+1))
	}

	fragment, err := newFragment(post.id, fragmentType, target)
	if err != nil {
		return nil, err
	}

	for index := count - 1; index >= 0 && post.fragments[index].position >= target; index-- {
		if err := post.fragments[index].MoveDown(count + 1); err != nil {
			return nil, err
		}
	}

	post.fragments = slices.Insert(post.fragments, target-MinPosition, fragment)
	post.sortFragments()
	return fragment, nil
}

// RemoveFragment deletes a fragment; the ones after it move up by one.
func (post *Post) RemoveFragment(id FragmentID) error {
	index := post.indexOf(id)
	if index < 0 {
		return unknownFragment(id)
	}

	post.fragments = slices.Delete(post.fragments, index, index+1)
	for _, fragment := range post.fragments[index:] {
		if err := fragment.MoveUp(); err != nil {
			return err
		}
	}

	post.sortFragments()
	return nil
}

// ChangeFragmentPosition moves a fragment one step up or down, swapping it
// with its neighbour. It returns the moved fragment and the displaced one.
func (post *Post) ChangeFragmentPosition(id FragmentID, newPosition int) (moved, displaced *Fragment, err error) {
	index := post.indexOf(id)
	if index < 0 {
		return nil, nil, apperr.FragmentPosition(fmt.Sprintf("Fragment %s does not exist in this post", id))
	}

	fragment := post.fragments[index]
	current := fragment.position
	count := len(post.fragments)

	if newPosition == current {
		return nil, nil, apperr.FragmentPosition(fmt.Sprintf("Fragment is already at position %d", current))
	}
	if count < 2 {
		return nil, nil, apperr.FragmentPosition(fmt.Sprintf("Cannot move fragment when %d fragment exists", count))
	}
	if newPosition != current-1 && newPosition != current+1 {
		return nil, nil, apperr.FragmentPosition("Fragment can only be moved one position at a time")
	}
	if newPosition < MinPosition || newPosition > count {
		return nil, nil, apperr.FragmentPosition(fmt.Sprintf("Fragment position must be between %d and %d", MinPosition, count))
	}

	neighbour := post.fragments[newPosition-MinPosition]
	if newPosition < current {
		if err := fragment.MoveUp(); err != nil {
			return nil, nil, err
		}
		if err := neighbour.MoveDown(count); err != nil {
			return nil, nil, err
		}
	} else {
		if err := fragment.MoveDown(count); err != nil {
			return nil, nil, err
		}
		if err := neighbour.MoveUp(); err != nil {
			return nil, nil, err
		}
	}

	post.sortFragments()
	return fragment, neighbour, nil
}

// SetFragmentContent replaces a fragment's content; nil clears it.
func (post *Post) SetFragmentContent(id FragmentID, content *string) error {
	fragment, ok := post.Fragment(id)
	if !ok {
		return unknownFragment(id)
	}
	fragment.setContent(content)
	return nil
}

// ToggleFragmentActive flips whether a fragment is rendered.
func (post *Post) ToggleFragmentActive(id FragmentID) (*Fragment, error) {
	fragment, ok := post.Fragment(id)
	if !ok {
		return nil, unknownFragment(id)
	}
	fragment.ToggleActive()
	return fragment, nil
}

// # Lifecycle

// Publish moves a draft that satisfies every publishing rule to Published
// and stamps DateLastPublished with the current UTC time.
func (post *Post) Publish() error {
	eligibility := post.EligibleForPublishing()
	if !eligibility.CanPublish() {
		details := make([]apperr.FieldError, len(eligibility.reasons))
		for i, reason := range eligibility.reasons {
			details[i] = apperr.FieldError{Field: "post", Message: reason}
		}
		return apperr.IllegalOperation(eligibility.Error(), details...)
	}

	now := time.Now().UTC()
	post.status = StatusPublished
	post.dateLastPublished = &now
	return nil
}

// Unpublish returns a published post to Draft. DateLastPublished is kept.
func (post *Post) Unpublish() error {
	if post.status != StatusPublished {
		return apperr.IllegalOperation("Only a published post can be unpublished")
	}
	post.status = StatusDraft
	return nil
}

// # Internal Helpers

func (post *Post) indexOf(id FragmentID) int {
	if id.IsZero() {
		return -1
	}
	return slices.IndexFunc(post.fragments, func(fragment *Fragment) bool {
		return fragment.id == id
	})
}

func (post *Post) sortFragments() {
	slices.SortFunc(post.fragments, compareFragments)
}

func compareFragments(a, b *Fragment) int {
	if a == nil || b == nil {
		return 0
	}
	return a.position - b.position
}

// validateTitle trims title and requires at least one letter, digit or underscore.
func validateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", apperr.ValidationError("Title is required", apperr.FieldError{Field: "title", Message: "This field is required"})
	}

	hasWord := strings.ContainsFunc(trimmed, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
	})
	if !hasWord {
		return "", apperr.ValidationError("Title must contain at least one word", apperr.FieldError{Field: "title", Message: "Must contain at least one word"})
	}

	return trimmed, nil
}

func ancestorCycle() error {
	return apperr.ValidationError("A post cannot be its own ancestor", apperr.FieldError{Field: "parent_id", Message: "Creates a cycle"})
}

func unknownFragment(id FragmentID) error {
	return apperr.ValidationError(fmt.Sprintf("Fragment %s does not exist in this post", id), apperr.FieldError{Field: "fragment_id", Message: "Unknown fragment"})
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
