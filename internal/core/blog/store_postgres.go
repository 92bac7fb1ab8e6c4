// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package blog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risyyz/ABCD-sub000/internal/platform/database/schema"
	"github.com/risyyz/ABCD-sub000/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

var blogColumns = strings.Join(schema.CoreBlog.Columns(), ", ")

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) ListBlogs(context context.Context, limit, offset int) ([]*Blog, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER()
		FROM %s
		ORDER BY %s ASC
		LIMIT $1 OFFSET $2
	`, blogColumns, schema.CoreBlog.Table, schema.CoreBlog.ID)

	rows, err := repository.db.Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_blogs")
	}
	defer rows.Close()

	var blogs []*Blog
	total := 0
	for rows.Next() {
		b := &Blog{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt, &total); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_blog")
		}
		blogs = append(blogs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "list_blogs")
	}

	return blogs, total, nil
}

func (repository *PostgresRepository) GetBlog(context context.Context, id int) (*Blog, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		blogColumns, schema.CoreBlog.Table, schema.CoreBlog.ID,
	)

	b := &Blog{}
	if err := repository.db.QueryRow(context, query, id).Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt); err != nil {
		return nil, dberr.Wrap(err, "get_blog")
	}
	return b, nil
}

func (repository *PostgresRepository) CreateBlog(context context.Context, b *Blog) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, NOW())
		RETURNING %s, %s
	`,
		schema.CoreBlog.Table, schema.CoreBlog.Name, schema.CoreBlog.Description, schema.CoreBlog.CreatedAt,
		schema.CoreBlog.ID, schema.CoreBlog.CreatedAt,
	)

	err := repository.db.QueryRow(context, query, b.Name, b.Description).Scan(&b.ID, &b.CreatedAt)
	return dberr.Wrap(err, "create_blog")
}
