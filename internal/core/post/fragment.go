// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"fmt"
	"strings"

	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
)

// MinPosition is the position of the first fragment in a post.
const MinPosition = 1

// # Fragment Types

// FragmentType is the kind of content block a fragment holds.
type FragmentType string

const (
	FragmentCode     FragmentType = "code"
	FragmentHeading  FragmentType = "heading"
	FragmentTable    FragmentType = "table"
	FragmentImage    FragmentType = "image"
	FragmentRichText FragmentType = "richtext"
)

// FragmentTypes lists every supported type in display order.
var FragmentTypes = []FragmentType{FragmentCode, FragmentHeading, FragmentTable, FragmentImage, FragmentRichText}

// ParseFragmentType accepts a type name in any case.
func ParseFragmentType(raw string) (FragmentType, error) {
	candidate := FragmentType(strings.ToLower(strings.TrimSpace(raw)))
	if !candidate.IsValid() {
		names := make([]string, len(FragmentTypes))
		for i, fragmentType := range FragmentTypes {
			names[i] = string(fragmentType)
		}
		return "", apperr.ValidationError("Invalid fragment type", apperr.FieldError{
			Field:   "type",
			Message: "Must be one of: " + strings.Join(names, ", "),
		})
	}
	return candidate, nil
}

func (t FragmentType) IsValid() bool {
	switch t {
	case FragmentCode, FragmentHeading, FragmentTable, FragmentImage, FragmentRichText:
		return true
	}
	return false
}

// # Fragment

// Fragment is one ordered content block of a [Post].
//
// Its position is owned by the post: callers go through the post's
// AddFragment, RemoveFragment and ChangeFragmentPosition. The low-level
// MoveUp and MoveDown only guard the edges.
type Fragment struct {
	id           FragmentID
	postID       PostID
	fragmentType FragmentType
	position     int
	content      *string
	active       bool
}

// newFragment creates an unsaved, active fragment at position.
func newFragment(postID PostID, fragmentType FragmentType, position int) (*Fragment, error) {
	if !fragmentType.IsValid() {
		return nil, apperr.ValidationError(fmt.Sprintf("Unknown fragment type %q", fragmentType))
	}
	if position < MinPosition {
		return nil, apperr.FragmentPosition(fmt.Sprintf("Fragment position must be at least %d", MinPosition))
	}
	return &Fragment{
		postID:       postID,
		fragmentType: fragmentType,
		position:     position,
		active:       true,
	}, nil
}

// ReconstituteFragment rebuilds a stored fragment.
func ReconstituteFragment(id FragmentID, postID PostID, fragmentType FragmentType, position int, content *string, active bool) (*Fragment, error) {
	if id.IsZero() || postID.IsZero() {
		return nil, apperr.ValidationError("A stored fragment needs a fragment id and a post id")
	}

	fragment, err := newFragment(postID, fragmentType, position)
	if err != nil {
		return nil, err
	}

	fragment.id = id
	fragment.content = cloneString(content)
	fragment.active = active
	return fragment, nil
}

func (fragment *Fragment) ID() FragmentID { return fragment.id }
func (fragment *Fragment) PostID() PostID { return fragment.postID }
func (fragment *Fragment) Type() FragmentType { return fragment.fragmentType }
func (fragment *Fragment) Position() int { return fragment.position }
func (fragment *Fragment) Active() bool { return fragment.active }
func (fragment *Fragment) Content() *string { return cloneString(fragment.content) }

// MoveUp moves the fragment one position towards the start.
func (fragment *Fragment) MoveUp() error {
	if fragment.position <= MinPosition {
		return apperr.IllegalOperation("Fragment is already at the first position")
	}
	fragment.position--
	return nil
}

// MoveDown moves the fragment one position towards the end. maxPosition is
// the last position currently allowed in the owning post.
func (fragment *Fragment) MoveDown(maxPosition int) error {
	if fragment.position >= maxPosition {
		return apperr.IllegalOperation("Fragment is already at the last position")
	}
	fragment.position++
	return nil
}

// ToggleActive flips whether the fragment is rendered.
func (fragment *Fragment) ToggleActive() {
	fragment.active = !fragment.active
}

func (fragment *Fragment) setContent(content *string) {
	fragment.content = cloneString(content)
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
