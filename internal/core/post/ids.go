// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"fmt"
	"math"
	"strconv"

	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
)

// # Identifiers
//
// Every id wraps a strictly positive 32-bit integer. The zero value means
// "not assigned yet": a Post or Fragment that was never persisted.

// BlogID identifies a blog.
type BlogID struct{ value int }

// PostID identifies a post within the whole store.
type PostID struct{ value int }

// FragmentID identifies a fragment within the whole store.
type FragmentID struct{ value int }

// NewBlogID validates value as a [BlogID].
func NewBlogID(value int) (BlogID, error) {
	v, err := positiveID("blog_id", value)
	return BlogID{v}, err
}

// NewPostID validates value as a [PostID].
func NewPostID(value int) (PostID, error) {
	v, err := positiveID("post_id", value)
	return PostID{v}, err
}

// NewFragmentID validates value as a [FragmentID].
func NewFragmentID(value int) (FragmentID, error) {
	v, err := positiveID("fragment_id", value)
	return FragmentID{v}, err
}

// MustBlogID is like [NewBlogID] but panics on invalid input.
func MustBlogID(value int) BlogID { return must(NewBlogID(value)) }

// MustPostID is like [NewPostID] but panics on invalid input.
func MustPostID(value int) PostID { return must(NewPostID(value)) }

// MustFragmentID is like [NewFragmentID] but panics on invalid input.
func MustFragmentID(value int) FragmentID { return must(NewFragmentID(value)) }

// ParseBlogID parses a decimal string, as found in URL parameters.
func ParseBlogID(raw string) (BlogID, error) { return NewBlogID(atoi(raw)) }

// ParsePostID parses a decimal string, as found in URL parameters.
func ParsePostID(raw string) (PostID, error) { return NewPostID(atoi(raw)) }

// ParseFragmentID parses a decimal string, as found in URL parameters.
func ParseFragmentID(raw string) (FragmentID, error) { return NewFragmentID(atoi(raw)) }

func (id BlogID) Int() int { return id.value }
func (id BlogID) IsZero() bool { return id.value == 0 }
func (id BlogID) String() string { return strconv.Itoa(id.value) }
func (id PostID) Int() int { return id.value }
func (id PostID) IsZero() bool { return id.value == 0 }
func (id PostID) String() string { return strconv.Itoa(id.value) }
func (id FragmentID) Int() int { return id.value }
func (id FragmentID) IsZero() bool { return id.value == 0 }
func (id FragmentID) String() string { return strconv.Itoa(id.value) }

// positiveID is the single validation rule behind every id constructor.
func positiveID(field string, value int) (int, error) {
	if value <= 0 || value > math.MaxInt32 {
		return 0, apperr.ValidationError(
			fmt.Sprintf("Invalid %s", field),
			apperr.FieldError{Field: field, Message: fmt.Sprintf("Must be between 1 and %d", math.MaxInt32)},
		)
	}
	return value, nil
}

// atoi maps unparsable input to 0 so that positiveID rejects it.
func atoi(raw string) int {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}

func must[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}
