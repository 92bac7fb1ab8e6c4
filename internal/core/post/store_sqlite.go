// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
	"github.com/risyyz/ABCD-sub000/internal/platform/dberr"
	"github.com/risyyz/ABCD-sub000/internal/platform/sqlite"
)

// # SQLite Repository

// sqlitePostRepository implements [PostRepository] on the embedded database.
// Queries run on the transaction carried by the context when there is one.
type sqlitePostRepository struct {
	db *sql.DB
}

// NewSQLitePostRepository constructs an embedded post store.
func NewSQLitePostRepository(db *sql.DB) PostRepository {
	return &sqlitePostRepository{db: db}
}

const sqlitePostColumns = "id, blogid, parentid, title, status, pathsegment, datelastpublished, rowversion"

const sqliteFragmentColumns = "id, postid, fragmenttype, position, content, active"

func (repository *sqlitePostRepository) FindByID(ctx context.Context, blogID BlogID, postID PostID) (*Post, error) {
	executor := sqlite.GetExecutor(ctx, repository.db)

	// visited holds ",id,id," so the walk ends at the root or at a repeated id.
	rows, err := executor.QueryContext(ctx, `
		WITH RECURSIVE chain AS (
			SELECT `+sqlitePostColumns+`, 0 AS depth, ',' || id || ',' AS visited
			FROM post
			WHERE blogid = ? AND id = ?
			UNION ALL
			SELECT p.id, p.blogid, p.parentid, p.title, p.status, p.pathsegment, p.datelastpublished, p.rowversion,
			       c.depth + 1, c.visited || p.id || ','
			FROM post p
			JOIN chain c ON p.id = c.parentid
			WHERE instr(c.visited, ',' || p.id || ',') = 0
		)
		SELECT `+sqlitePostColumns+` FROM chain ORDER BY depth
	`, blogID.Int(), postID.Int())
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load post chain: %w", err)
	}

	var chain []postRecord
	for rows.Next() {
		var record postRecord
		var parentID sql.NullInt64
		var pathSegment sql.NullString
		var published sql.NullString

		if err := rows.Scan(&record.id, &record.blogID, &parentID, &record.title, &record.status,
			&pathSegment, &published, &record.rowVersion); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: failed to scan post: %w", err)
		}

		if parentID.Valid {
			value := int(parentID.Int64)
			record.parentID = &value
		}
		if pathSegment.Valid {
			record.pathSegment = &pathSegment.String
		}
		if published.Valid {
			parsed, err := time.Parse(time.RFC3339Nano, published.String)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("sqlite: invalid publication date %q: %w", published.String, err)
			}
			record.dateLastPublished = &parsed
		}
		chain = append(chain, record)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate post chain: %w", err)
	}
	if len(chain) == 0 {
		return nil, apperr.NotFound("Post")
	}

	rows, err = executor.QueryContext(ctx,
		`SELECT `+sqliteFragmentColumns+` FROM fragment WHERE postid = ? ORDER BY position`, postID.Int())
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load fragments: %w", err)
	}
	defer rows.Close()

	var fragments []fragmentRecord
	for rows.Next() {
		var record fragmentRecord
		var content sql.NullString

		if err := rows.Scan(&record.id, &record.postID, &record.fragmentType, &record.position, &content, &record.active); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan fragment: %w", err)
		}
		if content.Valid {
			record.content = &content.String
		}
		fragments = append(fragments, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate fragments: %w", err)
	}

	return buildPost(chain, fragments)
}

func (repository *sqlitePostRepository) ListByBlog(ctx context.Context, blogID BlogID, filter Filter, limit, offset int) ([]*Post, int, error) {
	executor := sqlite.GetExecutor(ctx, repository.db)

	where := "blogid = ?"
	args := []any{blogID.Int()}
	if len(filter.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.Statuses)), ", ")
		where += " AND status IN (" + placeholders + ")"
		for _, name := range statusNames(filter.Statuses) {
			args = append(args, name)
		}
	}

	var total int
	if err := executor.QueryRowContext(ctx, "SELECT COUNT(*) FROM post WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: failed to count posts: %w", err)
	}

	rows, err := executor.QueryContext(ctx,
		"SELECT id FROM post WHERE "+where+" ORDER BY id LIMIT ? OFFSET ?", append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: failed to list posts: %w", err)
	}

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("sqlite: failed to scan post id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: failed to iterate posts: %w", err)
	}

	posts := make([]*Post, 0, len(ids))
	for _, id := range ids {
		post, err := repository.FindByID(ctx, blogID, PostID{id})
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}

	return posts, total, nil
}

func (repository *sqlitePostRepository) FindByTitle(ctx context.Context, blogID BlogID, title string) (*Post, error) {
	return repository.findOne(ctx, blogID,
		"SELECT id FROM post WHERE blogid = ? AND lower(title) = lower(?) ORDER BY id LIMIT 1", strings.TrimSpace(title))
}

func (repository *sqlitePostRepository) FindByPathSegment(ctx context.Context, blogID BlogID, segment PathSegment) (*Post, error) {
	return repository.findOne(ctx, blogID,
		"SELECT id FROM post WHERE blogid = ? AND pathsegment = ?", segment.String())
}

func (repository *sqlitePostRepository) findOne(ctx context.Context, blogID BlogID, query string, value any) (*Post, error) {
	var id int
	err := sqlite.GetExecutor(ctx, repository.db).QueryRowContext(ctx, query, blogID.Int(), value).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Post")
		}
		return nil, fmt.Errorf("sqlite: failed to find post: %w", err)
	}
	return repository.FindByID(ctx, blogID, PostID{id})
}

func (repository *sqlitePostRepository) Create(ctx context.Context, post *Post) (*Post, error) {
	var postID int64

	err := sqlite.RunInTransaction(ctx, repository.db, func(ctx context.Context) error {
		executor := sqlite.GetExecutor(ctx, repository.db)
		now := sqliteTime(time.Now())

		result, err := executor.ExecContext(ctx, `
			INSERT INTO post (blogid, parentid, title, status, pathsegment, datelastpublished, rowversion, createdat, updatedat)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		`, post.blogID.Int(), sqliteValue(nullableID(post.ParentID())), post.title, string(post.status),
			sqliteValue(nullableSegment(post.pathSegment)), sqliteTimeOrNil(post.dateLastPublished), now, now)
		if err != nil {
			return dberr.Wrap(err, "sqlite: insert post")
		}

		postID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: failed to read post id: %w", err)
		}

		for _, fragment := range post.fragments {
			if err := repository.insertFragment(ctx, int(postID), fragment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return repository.FindByID(ctx, post.blogID, PostID{int(postID)})
}

func (repository *sqlitePostRepository) Update(ctx context.Context, post *Post) (*Post, error) {
	err := sqlite.RunInTransaction(ctx, repository.db, func(ctx context.Context) error {
		executor := sqlite.GetExecutor(ctx, repository.db)

		expected, err := rowVersionOf(post.version)
		if err != nil {
			return err
		}

		if err := repository.ensureNotAncestor(ctx, post); err != nil {
			return err
		}

		result, err := executor.ExecContext(ctx, `
			UPDATE post
			SET parentid = ?, title = ?, status = ?, pathsegment = ?, datelastpublished = ?,
			    rowversion = rowversion + 1, updatedat = ?
			WHERE blogid = ? AND id = ? AND rowversion = ?
		`, sqliteValue(nullableID(post.ParentID())), post.title, string(post.status), sqliteValue(nullableSegment(post.pathSegment)),
			sqliteTimeOrNil(post.dateLastPublished), sqliteTime(time.Now()), post.blogID.Int(), post.id.Int(), expected)
		if err != nil {
			return dberr.Wrap(err, "sqlite: update post")
		}
		if err := repository.requireRow(ctx, result, post); err != nil {
			return err
		}

		return repository.syncFragments(ctx, post)
	})
	if err != nil {
		return nil, err
	}

	return repository.FindByID(ctx, post.blogID, post.id)
}

// ensureNotAncestor re-walks the stored lineage of the new parent inside the
// write transaction and fails when the post itself turns up in it.
func (repository *sqlitePostRepository) ensureNotAncestor(ctx context.Context, post *Post) error {
	parentID := post.ParentID()
	if parentID.IsZero() {
		return nil
	}

	var cycle bool
	err := sqlite.GetExecutor(ctx, repository.db).QueryRowContext(ctx, `
		WITH RECURSIVE lineage AS (
			SELECT id, parentid, ',' || id || ',' AS visited
			FROM post
			WHERE id = ?
			UNION ALL
			SELECT p.id, p.parentid, l.visited || p.id || ','
			FROM post p
			JOIN lineage l ON p.id = l.parentid
			WHERE instr(l.visited, ',' || p.id || ',') = 0
		)
		SELECT EXISTS (SELECT 1 FROM lineage WHERE id = ?)
	`, parentID.Int(), post.id.Int()).Scan(&cycle)
	if err != nil {
		return fmt.Errorf("sqlite: failed to walk parent lineage: %w", err)
	}
	if cycle {
		return ancestorCycle()
	}
	return nil
}

// syncFragments mirrors the PostgreSQL strategy: delete removed rows, park
// positions at their negatives, then write final positions and insert new rows.
func (repository *sqlitePostRepository) syncFragments(ctx context.Context, post *Post) error {
	executor := sqlite.GetExecutor(ctx, repository.db)

	kept := map[int]bool{}
	for _, fragment := range post.fragments {
		if !fragment.id.IsZero() {
			kept[fragment.id.Int()] = true
		}
	}

	rows, err := executor.QueryContext(ctx, "SELECT id FROM fragment WHERE postid = ?", post.id.Int())
	if err != nil {
		return fmt.Errorf("sqlite: failed to list fragments: %w", err)
	}
	var removed []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite: failed to scan fragment id: %w", err)
		}
		if !kept[id] {
			removed = append(removed, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: failed to iterate fragments: %w", err)
	}

	for _, id := range removed {
		if _, err := executor.ExecContext(ctx, "DELETE FROM fragment WHERE id = ?", id); err != nil {
			return fmt.Errorf("sqlite: failed to delete fragment %d: %w", id, err)
		}
	}

	if _, err := executor.ExecContext(ctx, "UPDATE fragment SET position = -position WHERE postid = ?", post.id.Int()); err != nil {
		return fmt.Errorf("sqlite: failed to park fragment positions: %w", err)
	}

	for _, fragment := range post.fragments {
		if fragment.id.IsZero() {
			if err := repository.insertFragment(ctx, post.id.Int(), fragment); err != nil {
				return err
			}
			continue
		}

		result, err := executor.ExecContext(ctx,
			"UPDATE fragment SET position = ?, content = ?, active = ? WHERE id = ? AND postid = ?",
			fragment.position, sqliteValue(fragment.content), fragment.active, fragment.id.Int(), post.id.Int())
		if err != nil {
			return dberr.Wrap(err, "sqlite: update fragment")
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return apperr.NotFound("Fragment")
		}
	}

	return nil
}

func (repository *sqlitePostRepository) insertFragment(ctx context.Context, postID int, fragment *Fragment) error {
	_, err := sqlite.GetExecutor(ctx, repository.db).ExecContext(ctx,
		"INSERT INTO fragment (postid, fragmenttype, position, content, active) VALUES (?, ?, ?, ?, ?)",
		postID, string(fragment.fragmentType), fragment.position, sqliteValue(fragment.content), fragment.active)
	if err != nil {
		return dberr.Wrap(err, "sqlite: insert fragment")
	}
	return nil
}

func (repository *sqlitePostRepository) SwapFragmentPositions(ctx context.Context, post *Post, moved, displaced *Fragment) (*Post, error) {
	if moved.id.IsZero() || displaced.id.IsZero() {
		return nil, apperr.ValidationError("Only stored fragments can be swapped")
	}

	err := sqlite.RunInTransaction(ctx, repository.db, func(ctx context.Context) error {
		executor := sqlite.GetExecutor(ctx, repository.db)

		expected, err := rowVersionOf(post.version)
		if err != nil {
			return err
		}

		result, err := executor.ExecContext(ctx,
			"UPDATE post SET rowversion = rowversion + 1, updatedat = ? WHERE blogid = ? AND id = ? AND rowversion = ?",
			sqliteTime(time.Now()), post.blogID.Int(), post.id.Int(), expected)
		if err != nil {
			return fmt.Errorf("sqlite: failed to bump post version: %w", err)
		}
		if err := repository.requireRow(ctx, result, post); err != nil {
			return err
		}

		steps := []struct {
			fragment *Fragment
			position int
		}{
			{moved, temporaryPosition},
			{displaced, displaced.position},
			{moved, moved.position},
		}

		for _, step := range steps {
			result, err := executor.ExecContext(ctx,
				"UPDATE fragment SET position = ? WHERE id = ? AND postid = ?",
				step.position, step.fragment.id.Int(), post.id.Int())
			if err != nil {
				return dberr.Wrap(err, "sqlite: swap fragment position")
			}
			if affected, err := result.RowsAffected(); err == nil && affected == 0 {
				return apperr.NotFound("Fragment")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return repository.FindByID(ctx, post.blogID, post.id)
}

func (repository *sqlitePostRepository) Delete(ctx context.Context, post *Post) error {
	return sqlite.RunInTransaction(ctx, repository.db, func(ctx context.Context) error {
		expected, err := rowVersionOf(post.version)
		if err != nil {
			return err
		}

		result, err := sqlite.GetExecutor(ctx, repository.db).ExecContext(ctx,
			"DELETE FROM post WHERE blogid = ? AND id = ? AND rowversion = ?",
			post.blogID.Int(), post.id.Int(), expected)
		if err != nil {
			return dberr.Wrap(err, "sqlite: delete post")
		}
		return repository.requireRow(ctx, result, post)
	})
}

// requireRow turns a guarded write that touched no row into NOT_FOUND or
// VERSION_CONFLICT.
func (repository *sqlitePostRepository) requireRow(ctx context.Context, result sql.Result, post *Post) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = sqlite.GetExecutor(ctx, repository.db).QueryRowContext(ctx,
		"SELECT 1 FROM post WHERE blogid = ? AND id = ?", post.blogID.Int(), post.id.Int()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Post")
	}
	if err != nil {
		return fmt.Errorf("sqlite: failed to check post existence: %w", err)
	}
	return apperr.VersionConflict("Post")
}

// sqliteValue dereferences an optional argument, mapping nil to NULL.
func sqliteValue[T any](value *T) any {
	if value == nil {
		return nil
	}
	return *value
}

// sqliteTime renders a timestamp as RFC 3339 text in UTC.
func sqliteTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func sqliteTimeOrNil(value *time.Time) any {
	if value == nil {
		return nil
	}
	return sqliteTime(*value)
}
