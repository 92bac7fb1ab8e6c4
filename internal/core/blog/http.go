// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package blog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
	"github.com/risyyz/ABCD-sub000/internal/platform/middleware"
	requestutil "github.com/risyyz/ABCD-sub000/internal/platform/request"
	"github.com/risyyz/ABCD-sub000/internal/platform/respond"
	"github.com/risyyz/ABCD-sub000/internal/platform/sec"
	"github.com/risyyz/ABCD-sub000/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the blog endpoints, mounted at /blogs.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.listBlogs)
	router.Get("/{blogID}", handler.getBlog)

	router.With(middleware.RequireRole(sec.RoleAdmin)).Post("/", handler.createBlog)

	return router
}

func (handler *Handler) listBlogs(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	blogs, total, err := handler.service.ListBlogs(request.Context(), params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if blogs == nil {
		blogs = []*Blog{}
	}

	respond.Paginated(writer, blogs, pagination.NewMeta(params.Page, params.Limit, total))
}

func (handler *Handler) getBlog(writer http.ResponseWriter, request *http.Request) {
	id, err := strconv.Atoi(requestutil.Param(request, "blogID"))
	if err != nil || id <= 0 {
		respond.Error(writer, request, apperr.ValidationError("Invalid blog id", apperr.FieldError{Field: "blog_id", Message: "Must be a positive integer"}))
		return
	}

	b, err := handler.service.GetBlog(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, b)
}

type createBlogRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (handler *Handler) createBlog(writer http.ResponseWriter, request *http.Request) {
	var input createBlogRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	b := &Blog{Name: input.Name, Description: input.Description}
	if err := handler.service.CreateBlog(request.Context(), b); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, b)
}
