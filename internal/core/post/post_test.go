// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risyyz/ABCD-sub000/internal/core/post"
	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
	"github.com/risyyz/ABCD-sub000/pkg/pointer"
)

/*
TestNewPost verifies a new post starts as an unsaved, empty draft.
*/
func TestNewPost(t *testing.T) {
	p, err := post.NewPost(post.MustBlogID(1), "  Hello, World  ")
	require.NoError(t, err)

	assert.True(t, p.ID().IsZero())
	assert.Equal(t, "Hello, World", p.Title())
	assert.Equal(t, post.StatusDraft, p.Status())
	assert.Empty(t, p.Fragments())
	assert.Nil(t, p.DateLastPublished())
	assert.Nil(t, p.Parent())
}

/*
TestPost_TitleRules verifies a title needs at least one word character.
*/
func TestPost_TitleRules(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"words", "Release notes", false},
		{"digits_only", "2026", false},
		{"underscore", "_", false},
		{"empty", "", true},
		{"whitespace", "   \t", true},
		{"punctuation", "?!-", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := post.NewPost(post.MustBlogID(1), tt.title)
			if tt.wantErr {
				requireCode(t, err, apperr.CodeValidation)
				return
			}
			require.NoError(t, err)
		})
	}

	_, err := post.NewPost(post.BlogID{}, "No blog")
	requireCode(t, err, apperr.CodeValidation)

	p := storedPost(t, postFixture{id: 1, title: "Original"})
	requireCode(t, p.SetTitle("..."), apperr.CodeValidation)
	assert.Equal(t, "Original", p.Title())
}

/*
TestReconstitute verifies every integrity check applied to stored rows.
*/
func TestReconstitute(t *testing.T) {
	postID := post.MustPostID(5)
	fragment := func(id, position int, owner post.PostID) *post.Fragment {
		f, err := post.ReconstituteFragment(post.MustFragmentID(id), owner, post.FragmentHeading, position, nil, true)
		require.NoError(t, err)
		return f
	}
	base := func() post.State {
		return post.State{ID: postID, BlogID: post.MustBlogID(1), Title: "Stored", Status: post.StatusDraft}
	}

	t.Run("sorts_fragments", func(t *testing.T) {
		state := base()
		state.Fragments = []*post.Fragment{fragment(2, 2, postID), fragment(1, 1, postID)}

		p, err := post.Reconstitute(state)
		require.NoError(t, err)
		assert.Equal(t, map[int]int{1: 1, 2: 2}, positions(p))
		assert.Equal(t, 1, p.Fragments()[0].ID().Int())
	})

	t.Run("gap", func(t *testing.T) {
		state := base()
		state.Fragments = []*post.Fragment{fragment(1, 1, postID), fragment(2, 3, postID)}
		_, err := post.Reconstitute(state)
		requireCode(t, err, apperr.CodeFragmentPosition)
	})

	t.Run("duplicate_position", func(t *testing.T) {
		state := base()
		state.Fragments = []*post.Fragment{fragment(1, 1, postID), fragment(2, 1, postID)}
		_, err := post.Reconstitute(state)
		requireCode(t, err, apperr.CodeFragmentPosition)
	})

	t.Run("foreign_fragment", func(t *testing.T) {
		state := base()
		state.Fragments = []*post.Fragment{fragment(1, 1, post.MustPostID(6))}
		_, err := post.Reconstitute(state)
		requireCode(t, err, apperr.CodeValidation)
	})

	t.Run("missing_ids", func(t *testing.T) {
		state := base()
		state.ID = post.PostID{}
		_, err := post.Reconstitute(state)
		requireCode(t, err, apperr.CodeValidation)
	})

	t.Run("unknown_status", func(t *testing.T) {
		state := base()
		state.Status = post.Status("archived")
		_, err := post.Reconstitute(state)
		requireCode(t, err, apperr.CodeValidation)
	})

	t.Run("published_without_date", func(t *testing.T) {
		state := base()
		state.Status = post.StatusPublished
		_, err := post.Reconstitute(state)
		requireCode(t, err, apperr.CodeValidation)
	})
}

/*
TestPost_AddFragment verifies insertion, appending and the 1..N+1 range.
*/
func TestPost_AddFragment(t *testing.T) {
	t.Run("append_to_empty", func(t *testing.T) {
		p := storedPost(t, postFixture{id: 1})

		fragment, err := p.AddFragment(post.FragmentCode, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, fragment.Position())
		assert.True(t, fragment.ID().IsZero())
		assert.Equal(t, p.ID(), fragment.PostID())
		assert.True(t, fragment.Active())
	})

	t.Run("insert_in_middle", func(t *testing.T) {
		p := storedPost(t, postFixture{id: 1, fragments: 3})

		fragment, err := p.AddFragment(post.FragmentImage, pointer.To(2))
		require.NoError(t, err)
		assert.Equal(t, 2, fragment.Position())
		assert.Equal(t, map[int]int{101: 1, 102: 3, 103: 4, 0: 2}, positions(p))

		for index, f := range p.Fragments() {
			assert.Equal(t, index+1, f.Position())
		}
	})

	t.Run("sequential_appends_then_insert", func(t *testing.T) {
		p, err := post.NewPost(post.MustBlogID(1), "Fresh")
		require.NoError(t, err)

		first, err := p.AddFragment(post.FragmentHeading, nil)
		require.NoError(t, err)
		second, err := p.AddFragment(post.FragmentRichText, nil)
		require.NoError(t, err)
		third, err := p.AddFragment(post.FragmentCode, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, []int{first.Position(), second.Position(), third.Position()})

		fourth, err := p.AddFragment(post.FragmentImage, pointer.To(2))
		require.NoError(t, err)

		assert.Equal(t, []int{1, 2, 3, 4}, []int{first.Position(), fourth.Position(), second.Position(), third.Position()})
		ordered := p.Fragments()
		require.Len(t, ordered, 4)
		assert.Same(t, first, ordered[0])
		assert.Same(t, fourth, ordered[1])
		assert.Same(t, second, ordered[2])
		assert.Same(t, third, ordered[3])
	})

	t.Run("insert_at_end", func(t *testing.T) {
		p := storedPost(t, postFixture{id: 1, fragments: 2})

		fragment, err := p.AddFragment(post.FragmentTable, pointer.To(3))
		require.NoError(t, err)
		assert.Equal(t, 3, fragment.Position())
		assert.Equal(t, map[int]int{101: 1, 102: 2, 0: 3}, positions(p))
	})

	t.Run("out_of_range", func(t *testing.T) {
		p := storedPost(t, postFixture{id: 1, fragments: 3})

		for _, position := range []int{0, 5, -1} {
			_, err := p.AddFragment(post.FragmentCode, pointer.To(position))
			appErr := requireCode(t, err, apperr.CodeFragmentPosition)
			assert.Equal(t, "Fragment position must be between 1 and 4", appErr.Message)
		}
		assert.Len(t, p.Fragments(), 3)
	})

	t.Run("unknown_type", func(t *testing.T) {
		p := storedPost(t, postFixture{id: 1, fragments: 1})
		_, err := p.AddFragment(post.FragmentType("video"), nil)
		requireCode(t, err, apperr.CodeValidation)
		assert.Equal(t, map[int]int{101: 1}, positions(p))
	})
}

/*
TestPost_RemoveFragment verifies the gap closes after removal.
*/
func TestPost_RemoveFragment(t *testing.T) {
	p := storedPost(t, postFixture{id: 1, fragments: 4})

	require.NoError(t, p.RemoveFragment(post.MustFragmentID(102)))
	assert.Equal(t, map[int]int{101: 1, 103: 2, 104: 3}, positions(p))

	require.NoError(t, p.RemoveFragment(post.MustFragmentID(104)))
	assert.Equal(t, map[int]int{101: 1, 103: 2}, positions(p))

	requireCode(t, p.RemoveFragment(post.MustFragmentID(999)), apperr.CodeValidation)
	assert.Len(t, p.Fragments(), 2)
}

/*
TestPost_PositionsStayConsecutive runs a seeded mix of inserts, removals, and
moves and checks positions form exactly 1..N after every step.
*/
func TestPost_PositionsStayConsecutive(t *testing.T) {
	random := rand.New(rand.NewPCG(2026, 10))
	p := storedPost(t, postFixture{id: 1, fragments: 8})

	stored := []int{101, 102, 103, 104, 105, 106, 107, 108}

	requireConsecutive := func(step int, action string) {
		t.Helper()
		for index, fragment := range p.Fragments() {
			require.Equal(t, index+1, fragment.Position(), "step %d (%s): fragment at index %d", step, action, index)
		}
	}

	for step := 0; step < 300; step++ {
		count := len(p.Fragments())

		switch random.IntN(4) {
		case 0:
			_, err := p.AddFragment(post.FragmentRichText, nil)
			require.NoError(t, err)
			requireConsecutive(step, "append")
			require.Len(t, p.Fragments(), count+1)

		case 1:
			position := random.IntN(count+3) - 1
			_, err := p.AddFragment(post.FragmentCode, pointer.To(position))
			if position < post.MinPosition || position > count+1 {
				requireCode(t, err, apperr.CodeFragmentPosition)
				require.Len(t, p.Fragments(), count)
			} else {
				require.NoError(t, err)
				require.Len(t, p.Fragments(), count+1)
			}
			requireConsecutive(step, "insert")

		case 2:
			if len(stored) == 0 {
				continue
			}
			index := random.IntN(len(stored))
			require.NoError(t, p.RemoveFragment(post.MustFragmentID(stored[index])))
			stored = append(stored[:index], stored[index+1:]...)
			requireConsecutive(step, "remove")
			require.Len(t, p.Fragments(), count-1)

		case 3:
			if len(stored) == 0 || count < 2 {
				continue
			}
			fragment, ok := p.Fragment(post.MustFragmentID(stored[random.IntN(len(stored))]))
			require.True(t, ok)
			target := fragment.Position() + 1
			if target > count {
				target = fragment.Position() - 1
			}
			_, _, err := p.ChangeFragmentPosition(fragment.ID(), target)
			require.NoError(t, err)
			requireConsecutive(step, "move")
		}
	}
}

/*
TestPost_ChangeFragmentPosition_Errors verifies the ordered preconditions.
*/
func TestPost_ChangeFragmentPosition_Errors(t *testing.T) {
	tests := []struct {
		name        string
		fragments   int
		fragmentID  int
		newPosition int
		message     string
	}{
		{"unknown_fragment", 3, 999, 1, "Fragment 999 does not exist in this post"},
		{"same_position", 3, 102, 2, "Fragment is already at position 2"},
		{"single_fragment", 1, 101, 2, "Cannot move fragment when 1 fragment exists"},
		{"jump", 3, 101, 3, "Fragment can only be moved one position at a time"},
		{"below_range", 3, 101, 0, "Fragment position must be between 1 and 3"},
		{"above_range", 3, 103, 4, "Fragment position must be between 1 and 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := storedPost(t, postFixture{id: 1, fragments: tt.fragments})
			before := positions(p)

			moved, displaced, err := p.ChangeFragmentPosition(post.MustFragmentID(tt.fragmentID), tt.newPosition)
			appErr := requireCode(t, err, apperr.CodeFragmentPosition)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Nil(t, moved)
			assert.Nil(t, displaced)
			assert.Equal(t, before, positions(p))
		})
	}
}

/*
TestPost_ChangeFragmentPosition verifies a single step swaps with the neighbour.
*/
func TestPost_ChangeFragmentPosition(t *testing.T) {
	t.Run("up", func(t *testing.T) {
		p := storedPost(t, postFixture{id: 1, fragments: 3})

		moved, displaced, err := p.ChangeFragmentPosition(post.MustFragmentID(103), 2)
		require.NoError(t, err)
		assert.Equal(t, 103, moved.ID().Int())
		assert.Equal(t, 102, displaced.ID().Int())
		assert.Equal(t, map[int]int{101: 1, 103: 2, 102: 3}, positions(p))
		assert.Equal(t, 103, p.Fragments()[1].ID().Int())
	})

	t.Run("second_to_first", func(t *testing.T) {
		p := storedPost(t, postFixture{id: 1, fragments: 3})

		moved, displaced, err := p.ChangeFragmentPosition(post.MustFragmentID(102), 1)
		require.NoError(t, err)
		assert.Equal(t, 102, moved.ID().Int())
		assert.Equal(t, 101, displaced.ID().Int())
		assert.Equal(t, map[int]int{102: 1, 101: 2, 103: 3}, positions(p))
		assert.Equal(t, []int{102, 101, 103}, fragmentIDs(p))
	})

	t.Run("round_trip", func(t *testing.T) {
		for fragmentID := 101; fragmentID <= 104; fragmentID++ {
			for _, step := range []int{-1, 1} {
				p := storedPost(t, postFixture{id: 1, fragments: 4})
				before := positions(p)
				original := before[fragmentID]
				target := original + step
				if target < post.MinPosition || target > 4 {
					continue
				}

				_, _, err := p.ChangeFragmentPosition(post.MustFragmentID(fragmentID), target)
				require.NoError(t, err)
				assert.NotEqual(t, before, positions(p))

				_, _, err = p.ChangeFragmentPosition(post.MustFragmentID(fragmentID), original)
				require.NoError(t, err)
				assert.Equal(t, before, positions(p), "fragment %d moved to %d and back", fragmentID, target)
				assert.Equal(t, []int{101, 102, 103, 104}, fragmentIDs(p))
			}
		}
	})

	t.Run("down", func(t *testing.T) {
		p := storedPost(t, postFixture{id: 1, fragments: 2})

		moved, displaced, err := p.ChangeFragmentPosition(post.MustFragmentID(101), 2)
		require.NoError(t, err)
		assert.Equal(t, 2, moved.Position())
		assert.Equal(t, 1, displaced.Position())
		assert.Equal(t, map[int]int{102: 1, 101: 2}, positions(p))
	})
}

/*
TestPost_FragmentEdits verifies content replacement and the active toggle.
*/
func TestPost_FragmentEdits(t *testing.T) {
	p := storedPost(t, postFixture{id: 1, fragments: 2})

	require.NoError(t, p.SetFragmentContent(post.MustFragmentID(102), pointer.To("# Heading")))
	fragment, ok := p.Fragment(post.MustFragmentID(102))
	require.True(t, ok)
	assert.Equal(t, "# Heading", *fragment.Content())

	toggled, err := p.ToggleFragmentActive(post.MustFragmentID(101))
	require.NoError(t, err)
	assert.False(t, toggled.Active())

	requireCode(t, p.SetFragmentContent(post.MustFragmentID(5), nil), apperr.CodeValidation)
	_, err = p.ToggleFragmentActive(post.MustFragmentID(5))
	requireCode(t, err, apperr.CodeValidation)
}

/*
TestPost_SetParent verifies a stored post cannot become its own ancestor.
*/
func TestPost_SetParent(t *testing.T) {
	root := storedPost(t, postFixture{id: 1, segment: "root"})
	child := storedPost(t, postFixture{id: 2, segment: "child", parent: root})

	// A second copy of root, as it would be loaded in another request.
	rootCopy := storedPost(t, postFixture{id: 1, segment: "root"})
	err := rootCopy.SetParent(child)
	appErr := requireCode(t, err, apperr.CodeValidation)
	assert.Equal(t, "A post cannot be its own ancestor", appErr.Message)
	assert.Nil(t, rootCopy.Parent())

	err = child.SetParent(child)
	requireCode(t, err, apperr.CodeValidation)

	require.NoError(t, child.SetParent(nil))
	assert.Nil(t, child.Parent())
	assert.True(t, child.ParentID().IsZero())

	draft, err := post.NewPost(post.MustBlogID(testBlogID), "Unsaved")
	require.NoError(t, err)
	require.NoError(t, draft.SetParent(root))
	assert.Equal(t, root.ID(), draft.ParentID())
}

/*
TestPost_Publish verifies the lifecycle transitions.
*/
func TestPost_Publish(t *testing.T) {
	p := storedPost(t, postFixture{id: 1, segment: "hello"})

	before := time.Now().UTC()
	require.NoError(t, p.Publish())
	assert.Equal(t, post.StatusPublished, p.Status())
	require.NotNil(t, p.DateLastPublished())
	assert.False(t, p.DateLastPublished().Before(before))
	assert.Equal(t, time.UTC, p.DateLastPublished().Location())

	err := p.Publish()
	appErr := requireCode(t, err, apperr.CodeIllegalOperation)
	assert.Contains(t, appErr.Message, post.ReasonNotDraft)

	publishedAt := *p.DateLastPublished()
	require.NoError(t, p.Unpublish())
	assert.Equal(t, post.StatusDraft, p.Status())
	assert.Equal(t, publishedAt, *p.DateLastPublished())

	requireCode(t, p.Unpublish(), apperr.CodeIllegalOperation)
}

/*
TestPost_PublishMessage verifies the refusal message lists every reason.
*/
func TestPost_PublishMessage(t *testing.T) {
	p, err := post.NewPost(post.MustBlogID(1), "Unsaved draft")
	require.NoError(t, err)

	err = p.Publish()
	appErr := requireCode(t, err, apperr.CodeIllegalOperation)
	assert.Equal(t,
		"Post cannot be published because it does not meet all publishing requirements.\n"+
			" - Post must be saved before it can be published\n"+
			" - PathSegment must be set",
		appErr.Message,
	)
	require.Len(t, appErr.Details, 2)
	assert.Equal(t, post.ReasonPathSegmentMissing, appErr.Details[1].Message)
	assert.Equal(t, post.StatusDraft, p.Status())
	assert.Nil(t, p.DateLastPublished())
}
