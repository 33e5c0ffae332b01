package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Julius266/proyecto-final/internal/middleware"
	"github.com/Julius266/proyecto-final/internal/service"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
	"github.com/Julius266/proyecto-final/pkg/response"
)

// SocialHandler wires the like, comment and highlight endpoints.
type SocialHandler struct {
	service *service.SocialService
}

// NewSocialHandler creates a new handler.
func NewSocialHandler(svc *service.SocialService) *SocialHandler {
	return &SocialHandler{service: svc}
}

// Like godoc
// @Summary Like post
// @Description Record a like; one per user per post
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /posts/{id}/likes [post]
func (h *SocialHandler) Like(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	like, err := h.service.Like(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, like)
}

// Unlike godoc
// @Summary Unlike post
// @Description Remove the caller's like
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id}/likes [delete]
func (h *SocialHandler) Unlike(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Unlike(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListLikes godoc
// @Summary List likes
// @Description List the likes on a post
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id}/likes [get]
func (h *SocialHandler) ListLikes(c *gin.Context) {
	likes, err := h.service.ListLikes(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, likes, nil)
}

// AddComment godoc
// @Summary Comment on post
// @Description Record a comment on a post
// @Tags Social
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param payload body service.CreateCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id}/comments [post]
func (h *SocialHandler) AddComment(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// ListComments godoc
// @Summary List comments
// @Description List the comments on a post oldest first
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id}/comments [get]
func (h *SocialHandler) ListComments(c *gin.Context) {
	comments, err := h.service.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// DeleteComment godoc
// @Summary Delete comment
// @Description Remove a comment; comment author, post author or admin
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param commentId path string true "Comment ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /comments/{commentId} [delete]
func (h *SocialHandler) DeleteComment(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteComment(c.Request.Context(), c.Param("commentId"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Highlight godoc
// @Summary Highlight post
// @Description Mark a post as noteworthy; teachers only
// @Tags Social
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param payload body service.CreateHighlightRequest true "Highlight payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /posts/{id}/highlights [post]
func (h *SocialHandler) Highlight(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateHighlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid highlight payload"))
		return
	}

	highlight, err := h.service.Highlight(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, highlight)
}

// Unhighlight godoc
// @Summary Remove highlight
// @Description Remove the caller's highlight from a post
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id}/highlights [delete]
func (h *SocialHandler) Unhighlight(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Unhighlight(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListMyHighlights godoc
// @Summary List my highlights
// @Description List everything the calling teacher has highlighted
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /highlights/mine [get]
func (h *SocialHandler) ListMyHighlights(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	highlights, err := h.service.MyHighlights(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, highlights, nil)
}

// ListHighlights godoc
// @Summary List highlights
// @Description List the highlights on a post
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id}/highlights [get]
func (h *SocialHandler) ListHighlights(c *gin.Context) {
	highlights, err := h.service.ListHighlights(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, highlights, nil)
}
