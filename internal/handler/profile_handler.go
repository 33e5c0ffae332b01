package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Julius266/proyecto-final/internal/middleware"
	"github.com/Julius266/proyecto-final/internal/service"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
	"github.com/Julius266/proyecto-final/pkg/response"
)

// maxUploadBytes caps profile image and attachment uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// ProfileHandler wires the profile endpoints.
type ProfileHandler struct {
	service *service.ProfileService
}

// NewProfileHandler creates a new handler.
func NewProfileHandler(svc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// GetMe godoc
// @Summary Get my profile
// @Description Fetch the caller's full profile view
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /profile/me [get]
func (h *ProfileHandler) GetMe(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, err := h.service.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// GetPublic godoc
// @Summary Get public profile
// @Description Fetch another user's public profile view
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /profile/{id} [get]
func (h *ProfileHandler) GetPublic(c *gin.Context) {
	view, err := h.service.GetPublicProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// UpdateStudent godoc
// @Summary Update student profile
// @Description Apply the mutable student profile fields
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.UpdateStudentProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /profile/student [put]
func (h *ProfileHandler) UpdateStudent(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateStudentProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.service.UpdateStudentProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateTeacher godoc
// @Summary Update teacher profile
// @Description Apply the mutable teacher profile fields
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.UpdateTeacherProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /profile/teacher [put]
func (h *ProfileHandler) UpdateTeacher(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateTeacherProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.service.UpdateTeacherProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// TransitionSemester godoc
// @Summary Transition semester
// @Description Archive the active enrollments and advance the semester
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.TransitionSemesterRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /profile/student/transition [post]
func (h *ProfileHandler) TransitionSemester(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.TransitionSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}

	record, err := h.service.TransitionSemester(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// GetHistory godoc
// @Summary Get academic history
// @Description Fetch the archived semester records with subject names
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /profile/student/history [get]
func (h *ProfileHandler) GetHistory(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	history, names, err := h.service.GetStudentHistory(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"history": history, "subject_names": names}, nil)
}

// ExportHistory godoc
// @Summary Export academic history
// @Description Download the academic history as a PDF document
// @Tags Profile
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /profile/student/history/export [get]
func (h *ProfileHandler) ExportHistory(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, filename, err := h.service.ExportHistoryPDF(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", payload)
}

// UploadImage godoc
// @Summary Upload profile image
// @Description Upload the caller's avatar image
// @Tags Profile
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /profile/image [post]
func (h *ProfileHandler) UploadImage(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "image file is required"))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "image exceeds size limit"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, http.StatusBadRequest, "failed to read image"))
		return
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, http.StatusBadRequest, "failed to read image"))
		return
	}

	object, err := h.service.UpdateProfileImage(c.Request.Context(), claims.UserID, fileHeader.Filename, data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, object, nil)
}

// DeleteAccount godoc
// @Summary Delete account
// @Description Remove the caller's account and owned content
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 204 {object} response.Envelope
// @Router /profile [delete]
func (h *ProfileHandler) DeleteAccount(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteAccount(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteUser godoc
// @Summary Delete a user
// @Description Remove a user account and its owned content; admin only
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *ProfileHandler) DeleteUser(c *gin.Context) {
	if err := h.service.DeleteAccount(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
