// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
	"github.com/risyyz/ABCD-sub000/internal/platform/middleware"
	requestutil "github.com/risyyz/ABCD-sub000/internal/platform/request"
	"github.com/risyyz/ABCD-sub000/internal/platform/respond"
	"github.com/risyyz/ABCD-sub000/internal/platform/sec"
	"github.com/risyyz/ABCD-sub000/pkg/convert"
	"github.com/risyyz/ABCD-sub000/pkg/pagination"
	"github.com/risyyz/ABCD-sub000/pkg/pointer"
	"github.com/risyyz/ABCD-sub000/pkg/query"
	"github.com/risyyz/ABCD-sub000/pkg/slice"
)

// # Handler Implementation

// Handler implements the HTTP layer for posts and their fragments.
type Handler struct {
	service *Service
}

// NewHandler constructs a new post [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the post endpoints. The router expects to be mounted under
// a path carrying the {blogID} parameter, e.g. /blogs/{blogID}/posts.
//
// # Routing Strategy
//
//   - Reading (Public): listing, single posts, eligibility and the published view.
//   - Editing (Restricted): requires [sec.RoleAuthor] or above.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Public Endpoints
	router.Get("/", handler.listPosts)
	router.Get("/published/{pathSegment}", handler.getPublishedPost)
	router.Get("/suggest-path", handler.suggestPathSegment)
	router.Get("/{postID}", handler.getPost)
	router.Get("/{postID}/eligibility", handler.getEligibility)

	// ## Editing (Author Protected)
	router.Group(func(author chi.Router) {
		author.Use(middleware.RequireRole(sec.RoleAuthor))

		author.Post("/", handler.createPost)
		author.Patch("/{postID}", handler.updatePost)
		author.Delete("/{postID}", handler.deletePost)

		// Lifecycle
		author.Post("/{postID}/publish", handler.publishPost)
		author.Post("/{postID}/unpublish", handler.unpublishPost)

		// Fragments
		author.Post("/{postID}/fragments", handler.addFragment)
		author.Patch("/{postID}/fragments/{fragmentID}", handler.updateFragment)
		author.Delete("/{postID}/fragments/{fragmentID}", handler.removeFragment)
		author.Put("/{postID}/fragments/{fragmentID}/position", handler.moveFragment)
	})

	return router
}

// # Read Endpoints

/*
GET /api/v1/blogs/{blogID}/posts.

Request:
  - status: string (comma separated: draft, published)
  - page: int
  - limit: int

Response:
  - 200: []postResponse: Paginated list of posts
  - 400: VALIDATION_ERROR: Unknown status or malformed blog id
  - 404: NOT_FOUND: Blog not found
*/
func (handler *Handler) listPosts(writer http.ResponseWriter, request *http.Request) {
	blogID, err := ParseBlogID(requestutil.Param(request, "blogID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	filter, err := parseFilter(request.URL.Query().Get("status"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	posts, total, err := handler.service.ListPosts(request.Context(), blogID, filter, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	responses := slice.Map(posts, func(post *Post) postResponse { return toPostResponse(post, false) })
	if responses == nil {
		responses = []postResponse{}
	}
	respond.Paginated(writer, responses, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
GET /api/v1/blogs/{blogID}/posts/{postID}.

Request:
  - active_only: bool (omit inactive fragments)

Response:
  - 200: postResponse
  - 404: NOT_FOUND: Post not found
*/
func (handler *Handler) getPost(writer http.ResponseWriter, request *http.Request) {
	blogID, postID, err := postKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	post, err := handler.service.GetPost(request.Context(), blogID, postID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toPostResponse(post, convert.ToBool(request.URL.Query().Get("active_only"))))
}

// GET /api/v1/blogs/{blogID}/posts/{postID}/eligibility.
func (handler *Handler) getEligibility(writer http.ResponseWriter, request *http.Request) {
	blogID, postID, err := postKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	eligibility, err := handler.service.Eligibility(request.Context(), blogID, postID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	reasons := eligibility.Reasons()
	if reasons == nil {
		reasons = []string{}
	}

	respond.OK(writer, eligibilityResponse{CanPublish: eligibility.CanPublish(), Reasons: reasons})
}

/*
GET /api/v1/blogs/{blogID}/posts/published/{pathSegment}.

Response:
  - 200: PublishedPost: Reader view with active fragments only
  - 404: NOT_FOUND: No published post at that segment
*/
func (handler *Handler) getPublishedPost(writer http.ResponseWriter, request *http.Request) {
	blogID, err := ParseBlogID(requestutil.Param(request, "blogID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	segment, err := NewPathSegment(requestutil.Param(request, "pathSegment"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	view, err := handler.service.GetPublishedPost(request.Context(), blogID, segment)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, view)
}

// GET /api/v1/blogs/{blogID}/posts/suggest-path?title=.
func (handler *Handler) suggestPathSegment(writer http.ResponseWriter, request *http.Request) {
	segment, err := handler.service.SuggestPathSegment(request.URL.Query().Get("title"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"path_segment": segment.String()})
}

// # Post Mutations

/*
POST /api/v1/blogs/{blogID}/posts.

Request (Body):
  - title: string (Required)
  - path_segment: string (Optional)
  - parent_id: int (Optional)

Response:
  - 201: postResponse
  - 400: VALIDATION_ERROR
  - 409: CONFLICT: Duplicate title or path segment
*/
func (handler *Handler) createPost(writer http.ResponseWriter, request *http.Request) {
	blogID, err := ParseBlogID(requestutil.Param(request, "blogID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createPostRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	command := CreatePostInput{Title: input.Title}
	if input.PathSegment != nil && *input.PathSegment != "" {
		if command.PathSegment, err = NewPathSegment(*input.PathSegment); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}
	if input.ParentID != nil {
		if command.ParentID, err = NewPostID(*input.ParentID); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	post, err := handler.service.CreatePost(request.Context(), blogID, command)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, toPostResponse(post, false))
}

/*
PATCH /api/v1/blogs/{blogID}/posts/{postID}.

Request (Body):
  - version: string (Required, e.g. 0x0000000000000001)
  - title: string (Optional)
  - path_segment: string (Optional, "" clears)
  - parent_id: int (Optional, 0 clears)

Response:
  - 200: postResponse
  - 412: VERSION_CONFLICT
*/
func (handler *Handler) updatePost(writer http.ResponseWriter, request *http.Request) {
	blogID, postID, err := postKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updatePostRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	command := UpdatePostInput{Title: input.Title}
	if command.Version, err = parseVersion(input.Version); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.PathSegment != nil {
		var segment PathSegment
		if *input.PathSegment != "" {
			if segment, err = NewPathSegment(*input.PathSegment); err != nil {
				respond.Error(writer, request, err)
				return
			}
		}
		command.PathSegment = &segment
	}

	if input.ParentID != nil {
		var parentID PostID
		if *input.ParentID != 0 {
			if parentID, err = NewPostID(*input.ParentID); err != nil {
				respond.Error(writer, request, err)
				return
			}
		}
		command.ParentID = &parentID
	}

	post, err := handler.service.UpdatePost(request.Context(), blogID, postID, command)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toPostResponse(post, false))
}

// DELETE /api/v1/blogs/{blogID}/posts/{postID}?version=.
func (handler *Handler) deletePost(writer http.ResponseWriter, request *http.Request) {
	blogID, postID, err := postKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	version, err := parseVersion(request.URL.Query().Get("version"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeletePost(request.Context(), blogID, postID, version); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/blogs/{blogID}/posts/{postID}/publish.

Response:
  - 200: postResponse
  - 409: ILLEGAL_OPERATION: Publishing rules not met (reasons in details)
  - 412: VERSION_CONFLICT
*/
func (handler *Handler) publishPost(writer http.ResponseWriter, request *http.Request) {
	handler.transition(writer, request, handler.service.Publish)
}

// POST /api/v1/blogs/{blogID}/posts/{postID}/unpublish.
func (handler *Handler) unpublishPost(writer http.ResponseWriter, request *http.Request) {
	handler.transition(writer, request, handler.service.Unpublish)
}

type transitionFunc func(context.Context, BlogID, PostID, VersionToken) (*Post, error)

func (handler *Handler) transition(writer http.ResponseWriter, request *http.Request, apply transitionFunc) {
	blogID, postID, err := postKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input versionRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	version, err := parseVersion(input.Version)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	post, err := apply(request.Context(), blogID, postID, version)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toPostResponse(post, false))
}

// # Fragment Mutations

/*
POST /api/v1/blogs/{blogID}/posts/{postID}/fragments.

Request (Body):
  - version: string (Required)
  - type: string (code, heading, table, image, richtext)
  - position: int (Optional, appends when omitted)
  - content: string (Optional)

Response:
  - 201: postResponse
  - 422: FRAGMENT_POSITION: Position outside 1..N+1
*/
func (handler *Handler) addFragment(writer http.ResponseWriter, request *http.Request) {
	blogID, postID, err := postKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input addFragmentRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	command := AddFragmentInput{Position: input.Position, Content: input.Content}
	if command.Version, err = parseVersion(input.Version); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if command.Type, err = ParseFragmentType(input.Type); err != nil {
		respond.Error(writer, request, err)
		return
	}

	post, err := handler.service.AddFragment(request.Context(), blogID, postID, command)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, toPostResponse(post, false))
}

// PATCH /api/v1/blogs/{blogID}/posts/{postID}/fragments/{fragmentID}.
func (handler *Handler) updateFragment(writer http.ResponseWriter, request *http.Request) {
	blogID, postID, fragmentID, err := fragmentKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateFragmentRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	command := UpdateFragmentInput{Content: input.Content, ToggleActive: input.ToggleActive}
	if command.Version, err = parseVersion(input.Version); err != nil {
		respond.Error(writer, request, err)
		return
	}

	post, err := handler.service.UpdateFragment(request.Context(), blogID, postID, fragmentID, command)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toPostResponse(post, false))
}

// DELETE /api/v1/blogs/{blogID}/posts/{postID}/fragments/{fragmentID}?version=.
func (handler *Handler) removeFragment(writer http.ResponseWriter, request *http.Request) {
	blogID, postID, fragmentID, err := fragmentKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	version, err := parseVersion(request.URL.Query().Get("version"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	post, err := handler.service.RemoveFragment(request.Context(), blogID, postID, fragmentID, version)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toPostResponse(post, false))
}

/*
PUT /api/v1/blogs/{blogID}/posts/{postID}/fragments/{fragmentID}/position.

Request (Body):
  - version: string (Required)
  - position: int (Required, adjacent to the current position)

Response:
  - 200: postResponse
  - 412: VERSION_CONFLICT
  - 422: FRAGMENT_POSITION
*/
func (handler *Handler) moveFragment(writer http.ResponseWriter, request *http.Request) {
	blogID, postID, fragmentID, err := fragmentKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input moveFragmentRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	version, err := parseVersion(input.Version)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	post, err := handler.service.ChangeFragmentPosition(request.Context(), blogID, postID, fragmentID, input.Position, version)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toPostResponse(post, false))
}

// # Request Payloads

type createPostRequest struct {
	Title       string  `json:"title"`
	PathSegment *string `json:"path_segment"`
	ParentID    *int    `json:"parent_id"`
}

type updatePostRequest struct {
	Version     string  `json:"version"`
	Title       *string `json:"title"`
	PathSegment *string `json:"path_segment"`
	ParentID    *int    `json:"parent_id"`
}

type versionRequest struct {
	Version string `json:"version"`
}

type addFragmentRequest struct {
	Version  string  `json:"version"`
	Type     string  `json:"type"`
	Position *int    `json:"position"`
	Content  *string `json:"content"`
}

type updateFragmentRequest struct {
	Version      string  `json:"version"`
	Content      *string `json:"content"`
	ToggleActive bool    `json:"toggle_active"`
}

type moveFragmentRequest struct {
	Version  string `json:"version"`
	Position int    `json:"position"`
}

// # Response Payloads

type postResponse struct {
	ID                int                `json:"id"`
	BlogID            int                `json:"blog_id"`
	ParentID          *int               `json:"parent_id"`
	Title             string             `json:"title"`
	Status            Status             `json:"status"`
	PathSegment       *string            `json:"path_segment"`
	DateLastPublished *time.Time         `json:"date_last_published"`
	Version           VersionToken       `json:"version"`
	Fragments         []fragmentResponse `json:"fragments"`
}

type fragmentResponse struct {
	ID       int          `json:"id"`
	Type     FragmentType `json:"type"`
	Position int          `json:"position"`
	Content  *string      `json:"content"`
	Active   bool         `json:"active"`
}

type eligibilityResponse struct {
	CanPublish bool     `json:"can_publish"`
	Reasons    []string `json:"reasons"`
}

func toPostResponse(post *Post, activeOnly bool) postResponse {
	fragments := post.Fragments()
	if activeOnly {
		fragments = slice.Filter(fragments, (*Fragment).Active)
	}

	response := postResponse{
		ID:                post.ID().Int(),
		BlogID:            post.BlogID().Int(),
		Title:             post.Title(),
		Status:            post.Status(),
		PathSegment:       nullableSegment(post.PathSegment()),
		DateLastPublished: post.DateLastPublished(),
		Version:           post.Version(),
		Fragments: slice.Map(fragments, func(fragment *Fragment) fragmentResponse {
			return fragmentResponse{
				ID:       fragment.ID().Int(),
				Type:     fragment.Type(),
				Position: fragment.Position(),
				Content:  fragment.Content(),
				Active:   fragment.Active(),
			}
		}),
	}

	if response.Fragments == nil {
		response.Fragments = []fragmentResponse{}
	}
	if parentID := post.ParentID(); !parentID.IsZero() {
		response.ParentID = pointer.To(parentID.Int())
	}
	return response
}

// # Parameter Parsing

func postKey(request *http.Request) (BlogID, PostID, error) {
	blogID, err := ParseBlogID(requestutil.Param(request, "blogID"))
	if err != nil {
		return BlogID{}, PostID{}, err
	}

	postID, err := ParsePostID(requestutil.Param(request, "postID"))
	if err != nil {
		return BlogID{}, PostID{}, err
	}
	return blogID, postID, nil
}

func fragmentKey(request *http.Request) (BlogID, PostID, FragmentID, error) {
	blogID, postID, err := postKey(request)
	if err != nil {
		return BlogID{}, PostID{}, FragmentID{}, err
	}

	fragmentID, err := ParseFragmentID(requestutil.Param(request, "fragmentID"))
	if err != nil {
		return BlogID{}, PostID{}, FragmentID{}, err
	}
	return blogID, postID, fragmentID, nil
}

func parseVersion(raw string) (VersionToken, error) {
	if raw == "" {
		return VersionToken{}, apperr.ValidationError("Version token is required", apperr.FieldError{Field: "version", Message: "Required"})
	}
	return ParseVersionToken(raw)
}

func parseFilter(raw string) (Filter, error) {
	var filter Filter
	for _, value := range query.StringSlice(raw) {
		status := Status(value)
		if !status.IsValid() {
			return Filter{}, apperr.ValidationError("Unknown post status", apperr.FieldError{Field: "status", Message: "Must be draft or published"})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	return filter, nil
}
