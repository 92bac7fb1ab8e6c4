// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package blog

import "context"

// Repository is the data access contract for blogs.
type Repository interface {
	ListBlogs(context context.Context, limit, offset int) ([]*Blog, int, error)
	GetBlog(context context.Context, id int) (*Blog, error)
	CreateBlog(context context.Context, blog *Blog) error
}
