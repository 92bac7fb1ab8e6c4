// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
	"github.com/risyyz/ABCD-sub000/internal/platform/database/schema"
	"github.com/risyyz/ABCD-sub000/internal/platform/dberr"
)

// # PostgreSQL Repository

// postRepository implements [PostRepository] using pgx.
type postRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository constructs a PostgreSQL backed post store.
func NewPostRepository(pool *pgxpool.Pool) PostRepository {
	return &postRepository{pool: pool}
}

var (
	postTable     = schema.CorePost
	fragmentTable = schema.CoreFragment

	postColumns = strings.Join([]string{
		postTable.ID, postTable.BlogID, postTable.ParentID, postTable.Title, postTable.Status,
		postTable.PathSegment, postTable.DateLastPublished, postTable.RowVersion,
	}, ", ")

	fragmentColumns = strings.Join(fragmentTable.Columns(), ", ")
)

// # Reads

/*
FindByID loads the post, its ancestors (one recursive query) and its fragments.

The recursive walk carries the ids it has visited and stops at the root or at
the first repeated id, so the whole chain is loaded whatever its depth.
*/
func (repository *postRepository) FindByID(context context.Context, blogID BlogID, postID PostID) (*Post, error) {
	return repository.load(context, repository.pool, blogID, postID)
}

// querier is the read surface shared by the pool and a transaction.
type querier interface {
	Query(context context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(context context.Context, sql string, args ...any) pgx.Row
}

func (repository *postRepository) load(context context.Context, db querier, blogID BlogID, postID PostID) (*Post, error) {
	chainQuery := fmt.Sprintf(`
		WITH RECURSIVE chain AS (
			SELECT %[1]s, 0 AS depth, ARRAY[%[4]s] AS visited
			FROM %[2]s
			WHERE %[3]s = $1 AND %[4]s = $2
			UNION ALL
			SELECT p.%[4]s, p.%[3]s, p.%[5]s, p.%[6]s, p.%[7]s, p.%[8]s, p.%[9]s, p.%[10]s,
			       c.depth + 1, c.visited || p.%[4]s
			FROM %[2]s p
			JOIN chain c ON p.%[4]s = c.%[5]s
			WHERE NOT p.%[4]s = ANY(c.visited)
		)
		SELECT %[1]s FROM chain ORDER BY depth
	`,
		postColumns, postTable.Table, postTable.BlogID, postTable.ID, postTable.ParentID,
		postTable.Title, postTable.Status, postTable.PathSegment, postTable.DateLastPublished, postTable.RowVersion,
	)

	rows, err := db.Query(context, chainQuery, blogID.Int(), postID.Int())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load post chain: %w", err)
	}

	chain, err := pgx.CollectRows(rows, scanPostRecord)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan post chain: %w", err)
	}
	if len(chain) == 0 {
		return nil, apperr.NotFound("Post")
	}

	fragmentQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s`,
		fragmentColumns, fragmentTable.Table, fragmentTable.PostID, fragmentTable.Position)

	rows, err = db.Query(context, fragmentQuery, postID.Int())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load fragments: %w", err)
	}

	fragments, err := pgx.CollectRows(rows, scanFragmentRecord)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan fragments: %w", err)
	}

	return buildPost(chain, fragments)
}

/*
ListByBlog pages through post ids with a window count, then hydrates each post.
*/
func (repository *postRepository) ListByBlog(context context.Context, blogID BlogID, filter Filter, limit, offset int) ([]*Post, int, error) {
	var queryBuilder strings.Builder
	args := []any{blogID.Int()}

	queryBuilder.WriteString(fmt.Sprintf(`SELECT %s, COUNT(*) OVER() AS total_count FROM %s WHERE %s = $1`,
		postTable.ID, postTable.Table, postTable.BlogID))

	if len(filter.Statuses) > 0 {
		args = append(args, statusNames(filter.Statuses))
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = ANY($%d)", postTable.Status, len(args)))
	}

	args = append(args, limit, offset)
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", postTable.ID, len(args)-1, len(args)))

	rows, err := repository.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to list posts: %w", err)
	}

	var ids []int32
	var totalCount int
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id, &totalCount); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("postgres: failed to scan post id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to iterate posts: %w", err)
	}

	posts := make([]*Post, 0, len(ids))
	for _, id := range ids {
		post, err := repository.FindByID(context, blogID, PostID{int(id)})
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}

	return posts, totalCount, nil
}

/*
FindByTitle matches on lower(title) within the blog.
*/
func (repository *postRepository) FindByTitle(context context.Context, blogID BlogID, title string) (*Post, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND lower(%s) = lower($2) ORDER BY %s LIMIT 1`,
		postTable.ID, postTable.Table, postTable.BlogID, postTable.Title, postTable.ID)
	return repository.findOne(context, blogID, query, strings.TrimSpace(title))
}

/*
FindByPathSegment matches the stored (already lower-case) segment.
*/
func (repository *postRepository) FindByPathSegment(context context.Context, blogID BlogID, segment PathSegment) (*Post, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		postTable.ID, postTable.Table, postTable.BlogID, postTable.PathSegment)
	return repository.findOne(context, blogID, query, segment.String())
}

func (repository *postRepository) findOne(context context.Context, blogID BlogID, query string, value any) (*Post, error) {
	var id int32
	err := repository.pool.QueryRow(context, query, blogID.Int(), value).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Post")
		}
		return nil, fmt.Errorf("postgres: failed to find post: %w", err)
	}
	return repository.FindByID(context, blogID, PostID{int(id)})
}

// # Writes

/*
Create inserts the post row and its fragments in one transaction.
*/
func (repository *postRepository) Create(context context.Context, post *Post) (*Post, error) {
	var postID int32

	err := repository.withTransaction(context, func(transaction pgx.Tx) error {
		query := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING %s
		`,
			postTable.Table, postTable.BlogID, postTable.ParentID, postTable.Title,
			postTable.Status, postTable.PathSegment, postTable.DateLastPublished, postTable.ID,
		)

		err := transaction.QueryRow(context, query,
			post.blogID.Int(), nullableID(post.ParentID()), post.title,
			string(post.status), nullableSegment(post.pathSegment), post.dateLastPublished,
		).Scan(&postID)
		if err != nil {
			return dberr.Wrap(err, "postgres: insert post")
		}

		for _, fragment := range post.fragments {
			if err := insertFragment(context, transaction, int(postID), fragment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return repository.FindByID(context, post.blogID, PostID{int(postID)})
}

/*
Update writes the post row under the version guard, then synchronises fragments.

Positions are first negated in one statement so that rewriting them never
collides with the (post, position) unique constraint.
*/
func (repository *postRepository) Update(context context.Context, post *Post) (*Post, error) {
	err := repository.withTransaction(context, func(transaction pgx.Tx) error {
		expected, err := rowVersionOf(post.version)
		if err != nil {
			return err
		}

		if err := ensureNotAncestor(context, transaction, post); err != nil {
			return err
		}

		query := fmt.Sprintf(`
			UPDATE %[1]s
			SET %[2]s = $3, %[3]s = $4, %[4]s = $5, %[5]s = $6, %[6]s = $7,
			    %[7]s = %[7]s + 1, %[8]s = now()
			WHERE %[9]s = $1 AND %[10]s = $2 AND %[7]s = $8
		`,
			postTable.Table, postTable.ParentID, postTable.Title, postTable.Status, postTable.PathSegment,
			postTable.DateLastPublished, postTable.RowVersion, postTable.UpdatedAt, postTable.BlogID, postTable.ID,
		)

		tag, err := transaction.Exec(context, query,
			post.blogID.Int(), post.id.Int(), nullableID(post.ParentID()), post.title, string(post.status),
			nullableSegment(post.pathSegment), post.dateLastPublished, expected,
		)
		if err != nil {
			return dberr.Wrap(err, "postgres: update post")
		}
		if tag.RowsAffected() == 0 {
			return repository.missingOrConflict(context, transaction, post)
		}

		return syncFragments(context, transaction, post)
	})
	if err != nil {
		return nil, err
	}

	return repository.FindByID(context, post.blogID, post.id)
}

// reparentLockClass namespaces the per-blog advisory lock taken by reparenting writes.
const reparentLockClass = 0x706f7374

/*
ensureNotAncestor re-walks the new parent's stored lineage inside the write
transaction and fails when the post itself turns up in it.

Reparenting writes within a blog hold an advisory lock until the transaction
ends, so each walk sees every reparent committed before it.
*/
func ensureNotAncestor(context context.Context, transaction pgx.Tx, post *Post) error {
	parentID := post.ParentID()
	if parentID.IsZero() {
		return nil
	}

	if _, err := transaction.Exec(context, `SELECT pg_advisory_xact_lock($1, $2)`, reparentLockClass, post.blogID.Int()); err != nil {
		return fmt.Errorf("postgres: failed to lock post tree: %w", err)
	}

	query := fmt.Sprintf(`
		WITH RECURSIVE lineage AS (
			SELECT %[2]s, %[3]s, ARRAY[%[2]s] AS visited
			FROM %[1]s
			WHERE %[2]s = $1
			UNION ALL
			SELECT p.%[2]s, p.%[3]s, l.visited || p.%[2]s
			FROM %[1]s p
			JOIN lineage l ON p.%[2]s = l.%[3]s
			WHERE NOT p.%[2]s = ANY(l.visited)
		)
		SELECT EXISTS (SELECT 1 FROM lineage WHERE %[2]s = $2)
	`, postTable.Table, postTable.ID, postTable.ParentID)

	var cycle bool
	if err := transaction.QueryRow(context, query, parentID.Int(), post.id.Int()).Scan(&cycle); err != nil {
		return fmt.Errorf("postgres: failed to walk parent lineage: %w", err)
	}
	if cycle {
		return ancestorCycle()
	}
	return nil
}

func syncFragments(context context.Context, transaction pgx.Tx, post *Post) error {
	kept := make([]int32, 0, len(post.fragments))
	for _, fragment := range post.fragments {
		if !fragment.id.IsZero() {
			kept = append(kept, int32(fragment.id.Int()))
		}
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND NOT (%s = ANY($2))`,
		fragmentTable.Table, fragmentTable.PostID, fragmentTable.ID)
	if _, err := transaction.Exec(context, deleteQuery, post.id.Int(), kept); err != nil {
		return fmt.Errorf("postgres: failed to delete removed fragments: %w", err)
	}

	negateQuery := fmt.Sprintf(`UPDATE %[1]s SET %[2]s = -%[2]s WHERE %[3]s = $1`,
		fragmentTable.Table, fragmentTable.Position, fragmentTable.PostID)
	if _, err := transaction.Exec(context, negateQuery, post.id.Int()); err != nil {
		return fmt.Errorf("postgres: failed to park fragment positions: %w", err)
	}

	updateQuery := fmt.Sprintf(`UPDATE %s SET %s = $3, %s = $4, %s = $5 WHERE %s = $1 AND %s = $2`,
		fragmentTable.Table, fragmentTable.Position, fragmentTable.Content, fragmentTable.Active,
		fragmentTable.ID, fragmentTable.PostID)

	for _, fragment := range post.fragments {
		if fragment.id.IsZero() {
			if err := insertFragment(context, transaction, post.id.Int(), fragment); err != nil {
				return err
			}
			continue
		}

		tag, err := transaction.Exec(context, updateQuery,
			fragment.id.Int(), post.id.Int(), fragment.position, fragment.content, fragment.active)
		if err != nil {
			return dberr.Wrap(err, "postgres: update fragment")
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("Fragment")
		}
	}

	return nil
}

func insertFragment(context context.Context, transaction pgx.Tx, postID int, fragment *Fragment) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s) VALUES ($1, $2, $3, $4, $5)`,
		fragmentTable.Table, fragmentTable.PostID, fragmentTable.FragmentType,
		fragmentTable.Position, fragmentTable.Content, fragmentTable.Active)

	_, err := transaction.Exec(context, query,
		postID, string(fragment.fragmentType), fragment.position, fragment.content, fragment.active)
	if err != nil {
		return dberr.Wrap(err, "postgres: insert fragment")
	}
	return nil
}

/*
SwapFragmentPositions bumps the version, then performs the three position
writes (temporary, displaced, moved) inside one transaction.
*/
func (repository *postRepository) SwapFragmentPositions(context context.Context, post *Post, moved, displaced *Fragment) (*Post, error) {
	if moved.id.IsZero() || displaced.id.IsZero() {
		return nil, apperr.ValidationError("Only stored fragments can be swapped")
	}

	err := repository.withTransaction(context, func(transaction pgx.Tx) error {
		if err := repository.bumpVersion(context, transaction, post); err != nil {
			return err
		}

		query := fmt.Sprintf(`UPDATE %s SET %s = $3 WHERE %s = $1 AND %s = $2`,
			fragmentTable.Table, fragmentTable.Position, fragmentTable.ID, fragmentTable.PostID)

		steps := []struct {
			fragment *Fragment
			position int
		}{
			{moved, temporaryPosition},
			{displaced, displaced.position},
			{moved, moved.position},
		}

		for _, step := range steps {
			tag, err := transaction.Exec(context, query, step.fragment.id.Int(), post.id.Int(), step.position)
			if err != nil {
				return dberr.Wrap(err, "postgres: swap fragment position")
			}
			if tag.RowsAffected() == 0 {
				return apperr.NotFound("Fragment")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return repository.FindByID(context, post.blogID, post.id)
}

/*
Delete removes the post under the version guard; fragments cascade.
*/
func (repository *postRepository) Delete(context context.Context, post *Post) error {
	return repository.withTransaction(context, func(transaction pgx.Tx) error {
		expected, err := rowVersionOf(post.version)
		if err != nil {
			return err
		}

		query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2 AND %s = $3`,
			postTable.Table, postTable.BlogID, postTable.ID, postTable.RowVersion)

		tag, err := transaction.Exec(context, query, post.blogID.Int(), post.id.Int(), expected)
		if err != nil {
			return dberr.Wrap(err, "postgres: delete post")
		}
		if tag.RowsAffected() == 0 {
			return repository.missingOrConflict(context, transaction, post)
		}
		return nil
	})
}

// # Internal Helpers

// bumpVersion increments the row version if it still equals the post's token.
func (repository *postRepository) bumpVersion(context context.Context, transaction pgx.Tx, post *Post) error {
	expected, err := rowVersionOf(post.version)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %[1]s SET %[2]s = %[2]s + 1, %[3]s = now() WHERE %[4]s = $1 AND %[5]s = $2 AND %[2]s = $3`,
		postTable.Table, postTable.RowVersion, postTable.UpdatedAt, postTable.BlogID, postTable.ID)

	tag, err := transaction.Exec(context, query, post.blogID.Int(), post.id.Int(), expected)
	if err != nil {
		return fmt.Errorf("postgres: failed to bump post version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.missingOrConflict(context, transaction, post)
	}
	return nil
}

// missingOrConflict explains a guarded write that touched no row.
func (repository *postRepository) missingOrConflict(context context.Context, transaction pgx.Tx, post *Post) error {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE %s = $1 AND %s = $2`, postTable.Table, postTable.BlogID, postTable.ID)

	var exists int
	err := transaction.QueryRow(context, query, post.blogID.Int(), post.id.Int()).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Post")
	}
	if err != nil {
		return fmt.Errorf("postgres: failed to check post existence: %w", err)
	}
	return apperr.VersionConflict("Post")
}

// withTransaction runs fn in a transaction, committing only when fn succeeds.
func (repository *postRepository) withTransaction(context context.Context, fn func(pgx.Tx) error) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback(context)

	if err := fn(transaction); err != nil {
		return err
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres: failed to commit transaction: %w", err)
	}
	return nil
}

func scanPostRecord(row pgx.CollectableRow) (postRecord, error) {
	var record postRecord
	var id, blogID int32
	var parentID *int32

	err := row.Scan(&id, &blogID, &parentID, &record.title, &record.status,
		&record.pathSegment, &record.dateLastPublished, &record.rowVersion)
	if err != nil {
		return record, err
	}

	record.id = int(id)
	record.blogID = int(blogID)
	if parentID != nil {
		value := int(*parentID)
		record.parentID = &value
	}
	return record, nil
}

func scanFragmentRecord(row pgx.CollectableRow) (fragmentRecord, error) {
	var record fragmentRecord
	var id, postID, position int32

	err := row.Scan(&id, &postID, &record.fragmentType, &position, &record.content, &record.active)
	if err != nil {
		return record, err
	}

	record.id = int(id)
	record.postID = int(postID)
	record.position = int(position)
	return record, nil
}
