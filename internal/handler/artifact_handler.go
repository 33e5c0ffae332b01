package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Julius266/proyecto-final/internal/middleware"
	"github.com/Julius266/proyecto-final/internal/models"
	"github.com/Julius266/proyecto-final/internal/service"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
	"github.com/Julius266/proyecto-final/pkg/response"
	"github.com/Julius266/proyecto-final/pkg/storage"
)

// ArtifactHandler wires the exam, assignment and project endpoints. The
// kind is fixed per registered route group.
type ArtifactHandler struct {
	service *service.ArtifactService
	kind    models.ArtifactKind
}

// NewArtifactHandler creates a handler bound to one artifact kind.
func NewArtifactHandler(svc *service.ArtifactService, kind models.ArtifactKind) *ArtifactHandler {
	return &ArtifactHandler{service: svc, kind: kind}
}

// Create godoc
// @Summary Create artifact
// @Description Store an exam, assignment or project and emit its feed post
// @Tags Artifacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateArtifactRequest true "Artifact payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exams [post]
func (h *ArtifactHandler) Create(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid artifact payload"))
		return
	}

	created, err := h.service.Create(c.Request.Context(), h.kind, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Get godoc
// @Summary Get artifact
// @Description Fetch one artifact by ID
// @Tags Artifacts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Artifact ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *ArtifactHandler) Get(c *gin.Context) {
	artifact, err := h.service.Get(c.Request.Context(), h.kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, artifact, nil)
}

// ListMine godoc
// @Summary List my artifacts
// @Description List the caller's artifacts, optionally scoped to a subject
// @Tags Artifacts
// @Produce json
// @Security BearerAuth
// @Param subject_id query string false "Curriculum subject filter"
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ArtifactHandler) ListMine(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	artifacts, err := h.service.ListMine(c.Request.Context(), h.kind, claims.UserID, c.Query("subject_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, artifacts, nil)
}

// ListByUser godoc
// @Summary List a user's artifacts
// @Description Browse another user's repository, optionally scoped to a subject
// @Tags Artifacts
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param subject_id query string false "Curriculum subject filter"
// @Success 200 {object} response.Envelope
// @Router /exams/user/{userId} [get]
func (h *ArtifactHandler) ListByUser(c *gin.Context) {
	artifacts, err := h.service.ListMine(c.Request.Context(), h.kind, c.Param("userId"), c.Query("subject_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, artifacts, nil)
}

// Update godoc
// @Summary Update artifact
// @Description Apply the mutable artifact fields; owner only
// @Tags Artifacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Artifact ID"
// @Param payload body service.UpdateArtifactRequest true "Artifact payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exams/{id} [put]
func (h *ArtifactHandler) Update(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid artifact payload"))
		return
	}

	artifact, err := h.service.Update(c.Request.Context(), h.kind, claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, artifact, nil)
}

// Delete godoc
// @Summary Delete artifact
// @Description Remove the artifact; its emitted post survives
// @Tags Artifacts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Artifact ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exams/{id} [delete]
func (h *ArtifactHandler) Delete(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), h.kind, claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddAttachment godoc
// @Summary Upload artifact attachment
// @Description Attach a binary to the artifact
// @Tags Artifacts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Artifact ID"
// @Param file formData file true "Attachment file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exams/{id}/attachments [post]
func (h *ArtifactHandler) AddAttachment(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "attachment file is required"))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "attachment exceeds size limit"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, http.StatusBadRequest, "failed to read attachment"))
		return
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, http.StatusBadRequest, "failed to read attachment"))
		return
	}

	artifact, err := h.service.AddAttachment(c.Request.Context(), h.kind, claims.UserID, c.Param("id"),
		fileHeader.Filename, storageKindFor(fileHeader.Header.Get("Content-Type")), data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, artifact, nil)
}

// RemoveAttachment godoc
// @Summary Remove artifact attachment
// @Description Detach a binary from the artifact
// @Tags Artifacts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Artifact ID"
// @Param storageId path string true "Attachment storage ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exams/{id}/attachments/{storageId} [delete]
func (h *ArtifactHandler) RemoveAttachment(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	artifact, err := h.service.RemoveAttachment(c.Request.Context(), h.kind, claims.UserID, c.Param("id"), c.Param("storageId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, artifact, nil)
}

func storageKindFor(contentType string) storage.Kind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return storage.KindImage
	case strings.HasPrefix(contentType, "video/"):
		return storage.KindVideo
	default:
		return storage.KindDocument
	}
}
