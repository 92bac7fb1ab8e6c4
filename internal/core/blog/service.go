// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package blog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/risyyz/ABCD-sub000/internal/core/post"
	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
	"github.com/risyyz/ABCD-sub000/internal/platform/validate"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (service *Service) ListBlogs(context context.Context, limit, offset int) ([]*Blog, int, error) {
	return service.repo.ListBlogs(context, limit, offset)
}

func (service *Service) GetBlog(context context.Context, id int) (*Blog, error) {
	b, err := service.repo.GetBlog(context, id)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, apperr.NotFound("Blog")
	}
	return b, err
}

// EnsureBlog implements [post.BlogDirectory].
func (service *Service) EnsureBlog(context context.Context, blogID post.BlogID) error {
	_, err := service.GetBlog(context, blogID.Int())
	return err
}

func (service *Service) CreateBlog(context context.Context, b *Blog) error {
	b.Name = strings.TrimSpace(b.Name)
	b.Description = strings.TrimSpace(b.Description)

	validator := &validate.Validator{}
	validator.Required(FieldName, b.Name).MaxLen(FieldName, b.Name, NameMaxLength)

	if err := validator.Err(); err != nil {
		return err
	}

	if err := service.repo.CreateBlog(context, b); err != nil {
		return err
	}

	service.logger.Info("blog_created", slog.Int("blog_id", b.ID), slog.String("name", b.Name))
	return nil
}
