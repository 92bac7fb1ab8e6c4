// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package blog

import (
	"context"
	"database/sql"
	"time"

	"github.com/risyyz/ABCD-sub000/internal/platform/dberr"
	"github.com/risyyz/ABCD-sub000/internal/platform/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (repository *SQLiteRepository) ListBlogs(context context.Context, limit, offset int) ([]*Blog, int, error) {
	executor := sqlite.GetExecutor(context, repository.db)

	var total int
	if err := executor.QueryRowContext(context, `SELECT COUNT(*) FROM blog`).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_blogs")
	}

	rows, err := executor.QueryContext(context, `
		SELECT id, name, description, createdat
		FROM blog
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_blogs")
	}
	defer rows.Close()

	var blogs []*Blog
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, 0, err
		}
		blogs = append(blogs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "list_blogs")
	}

	return blogs, total, nil
}

func (repository *SQLiteRepository) GetBlog(context context.Context, id int) (*Blog, error) {
	row := sqlite.GetExecutor(context, repository.db).QueryRowContext(context,
		`SELECT id, name, description, createdat FROM blog WHERE id = ?`, id)
	return scanBlog(row)
}

func (repository *SQLiteRepository) CreateBlog(context context.Context, b *Blog) error {
	createdAt := time.Now().UTC()

	result, err := sqlite.GetExecutor(context, repository.db).ExecContext(context,
		`INSERT INTO blog (name, description, createdat) VALUES (?, ?, ?)`,
		b.Name, b.Description, createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return dberr.Wrap(err, "create_blog")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return dberr.Wrap(err, "create_blog")
	}

	b.ID = int(id)
	b.CreatedAt = createdAt
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(row rowScanner) (*Blog, error) {
	b := &Blog{}
	var createdAt string
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &createdAt); err != nil {
		return nil, dberr.Wrap(err, "scan_blog")
	}

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, dberr.Wrap(err, "scan_blog")
	}
	b.CreatedAt = parsed
	return b, nil
}
