// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"strings"

	"github.com/risyyz/ABCD-sub000/internal/platform/validate"
)

const (
	// PathSegmentMinLength and PathSegmentMaxLength bound a segment in characters.
	PathSegmentMinLength = 3
	PathSegmentMaxLength = 50

	fieldPathSegment = "path_segment"
)

// PathSegment is the URL-safe slug that addresses a post within its blog.
//
// Values are lower-cased at construction, so two segments built from inputs
// that differ only by case are equal. The zero value means "not set".
type PathSegment struct{ value string }

// NewPathSegment normalizes raw to lower case and validates it: 3 to 50
// characters from [a-z0-9-], no leading or trailing dash, no "--".
func NewPathSegment(raw string) (PathSegment, error) {
	normalized := strings.ToLower(raw)

	validator := &validate.Validator{}
	validator.MinLen(fieldPathSegment, normalized, PathSegmentMinLength)
	validator.MaxLen(fieldPathSegment, normalized, PathSegmentMaxLength)
	validator.Slug(fieldPathSegment, normalized)

	if err := validator.Err(); err != nil {
		return PathSegment{}, err
	}

	return PathSegment{value: normalized}, nil
}

// MustPathSegment is like [NewPathSegment] but panics on invalid input.
func MustPathSegment(raw string) PathSegment { return must(NewPathSegment(raw)) }

func (segment PathSegment) String() string { return segment.value }

func (segment PathSegment) IsZero() bool { return segment.value == "" }

// Equal reports whether both segments address the same path.
func (segment PathSegment) Equal(other PathSegment) bool {
	return segment.value == other.value
}
