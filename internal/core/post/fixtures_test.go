// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/risyyz/ABCD-sub000/internal/core/post"
	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
	"github.com/risyyz/ABCD-sub000/internal/platform/sqlite"
)

const testBlogID = 1

// postFixture describes a stored post for [storedPost].
type postFixture struct {
	id        int
	title     string
	published bool
	segment   string
	parent    *post.Post
	fragments int
}

// storedPost reconstitutes a post whose fragments have ids id*100+position.
func storedPost(t *testing.T, fixture postFixture) *post.Post {
	t.Helper()

	postID := post.MustPostID(fixture.id)
	fragments := make([]*post.Fragment, 0, fixture.fragments)
	for position := 1; position <= fixture.fragments; position++ {
		fragment, err := post.ReconstituteFragment(
			post.MustFragmentID(fixture.id*100+position), postID, post.FragmentRichText, position, nil, true,
		)
		require.NoError(t, err)
		fragments = append(fragments, fragment)
	}

	state := post.State{
		ID:        postID,
		BlogID:    post.MustBlogID(testBlogID),
		Title:     fixture.title,
		Status:    post.StatusDraft,
		Parent:    fixture.parent,
		Fragments: fragments,
		Version:   post.NewVersionToken([]byte{0, 0, 0, 0, 0, 0, 0, 1}),
	}
	if state.Title == "" {
		state.Title = "Post " + postID.String()
	}
	if fixture.segment != "" {
		state.PathSegment = post.MustPathSegment(fixture.segment)
	}
	if fixture.published {
		publishedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		state.Status = post.StatusPublished
		state.DateLastPublished = &publishedAt
	}

	stored, err := post.Reconstitute(state)
	require.NoError(t, err)
	return stored
}

// positions maps fragment ids to their positions.
func positions(p *post.Post) map[int]int {
	result := map[int]int{}
	for _, fragment := range p.Fragments() {
		result[fragment.ID().Int()] = fragment.Position()
	}
	return result
}

// requireCode asserts err is an application error of the given code.
func requireCode(t *testing.T, err error, code string) *apperr.AppError {
	t.Helper()

	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr, "expected an application error, got %v", err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openStore opens a migrated database in a temp dir holding one blog with
// id testBlogID.
func openStore(t *testing.T) (*sql.DB, post.PostRepository) {
	t.Helper()

	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "blog.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, "INSERT INTO blog (id, name, description, createdat) VALUES (?, 'Engineering', '', ?)",
		testBlogID, time.Now().UTC().Format(time.RFC3339Nano))
	require.NoError(t, err)

	return db, post.NewSQLitePostRepository(db)
}

// createPost stores a new draft with the given segment and fragment count.
func createPost(t *testing.T, repository post.PostRepository, title, segment string, parent *post.Post, fragments int) *post.Post {
	t.Helper()

	draft, err := post.NewPost(post.MustBlogID(testBlogID), title)
	require.NoError(t, err)
	if segment != "" {
		draft.SetPathSegment(post.MustPathSegment(segment))
	}
	require.NoError(t, draft.SetParent(parent))
	for i := 0; i < fragments; i++ {
		_, err := draft.AddFragment(post.FragmentRichText, nil)
		require.NoError(t, err)
	}

	created, err := repository.Create(context.Background(), draft)
	require.NoError(t, err)
	return created
}

// fragmentIDs lists fragment ids in position order.
func fragmentIDs(p *post.Post) []int {
	ids := make([]int, 0, len(p.Fragments()))
	for _, fragment := range p.Fragments() {
		ids = append(ids, fragment.ID().Int())
	}
	return ids
}
