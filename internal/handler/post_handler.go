package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Julius266/proyecto-final/internal/middleware"
	"github.com/Julius266/proyecto-final/internal/models"
	"github.com/Julius266/proyecto-final/internal/service"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
	"github.com/Julius266/proyecto-final/pkg/response"
)

// PostHandler wires the feed endpoints.
type PostHandler struct {
	service *service.FeedService
}

// NewPostHandler creates a new handler.
func NewPostHandler(svc *service.FeedService) *PostHandler {
	return &PostHandler{service: svc}
}

// Create godoc
// @Summary Create post
// @Description Publish a manual feed post with hashtags
// @Tags Feed
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreatePostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}

	detail, err := h.service.CreatePost(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// List godoc
// @Summary List feed
// @Description List posts newest first with every reference dereferenced
// @Tags Feed
// @Produce json
// @Security BearerAuth
// @Param search query string false "Content search"
// @Param hashtag query string false "Hashtag filter"
// @Param author_id query string false "Author filter"
// @Param type query string false "Post type filter"
// @Param subject_id query string false "Curriculum subject filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /posts [get]
func (h *PostHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter := models.PostFilter{
		Search:              c.Query("search"),
		Hashtag:             c.Query("hashtag"),
		AuthorID:            c.Query("author_id"),
		Type:                models.PostType(c.Query("type")),
		CurriculumSubjectID: c.Query("subject_id"),
		Page:                page,
		PageSize:            pageSize,
	}

	viewerID := ""
	if claims := middleware.CurrentUser(c); claims != nil {
		viewerID = claims.UserID
	}

	posts, pagination, err := h.service.ListPosts(c.Request.Context(), filter, viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, pagination)
}

// Get godoc
// @Summary Get post
// @Description Fetch one fully dereferenced post
// @Tags Feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id} [get]
func (h *PostHandler) Get(c *gin.Context) {
	viewerID := ""
	if claims := middleware.CurrentUser(c); claims != nil {
		viewerID = claims.UserID
	}

	detail, err := h.service.GetPost(c.Request.Context(), c.Param("id"), viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete post
// @Description Remove a post; author or admin only
// @Tags Feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /posts/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeletePost(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListHashtags godoc
// @Summary List hashtags
// @Description List the hashtag vocabulary, optionally prefix-filtered
// @Tags Feed
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name prefix"
// @Success 200 {object} response.Envelope
// @Router /hashtags [get]
func (h *PostHandler) ListHashtags(c *gin.Context) {
	hashtags, err := h.service.ListHashtags(c.Request.Context(), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hashtags, nil)
}

// PopularHashtags godoc
// @Summary List popular hashtags
// @Description List the most used hashtags, cached briefly
// @Tags Feed
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /hashtags/popular [get]
func (h *PostHandler) PopularHashtags(c *gin.Context) {
	counts, err := h.service.PopularHashtags(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}
