package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Julius266/proyecto-final/internal/middleware"
	"github.com/Julius266/proyecto-final/internal/service"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
	"github.com/Julius266/proyecto-final/pkg/response"
)

// OnboardingHandler wires the profile completion and enrollment endpoints.
type OnboardingHandler struct {
	service *service.OnboardingService
}

// NewOnboardingHandler creates a new handler.
func NewOnboardingHandler(svc *service.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{service: svc}
}

// CompleteStudent godoc
// @Summary Complete student onboarding
// @Description Create the student profile and enroll into every active subject of the current semester plus the dragged ones
// @Tags Onboarding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.StudentOnboardingRequest true "Onboarding payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /onboarding/student [post]
func (h *OnboardingHandler) CompleteStudent(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.StudentOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid onboarding payload"))
		return
	}

	result, err := h.service.CompleteStudentOnboarding(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// CompleteTeacher godoc
// @Summary Complete teacher onboarding
// @Description Create the teacher profile, claim subjects and backfill enrollments
// @Tags Onboarding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.TeacherOnboardingRequest true "Onboarding payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /onboarding/teacher [post]
func (h *OnboardingHandler) CompleteTeacher(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.TeacherOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid onboarding payload"))
		return
	}

	result, err := h.service.CompleteTeacherOnboarding(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListTeachers godoc
// @Summary List teachers
// @Description List onboarded teachers for discovery
// @Tags Onboarding
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *OnboardingHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.service.ListTeachers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// ListMyEnrollments godoc
// @Summary List my enrollments
// @Description List the caller's enrollment edges
// @Tags Onboarding
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Only active enrollments"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *OnboardingHandler) ListMyEnrollments(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	activeOnly := c.DefaultQuery("active", "true") == "true"
	details, err := h.service.ListMyEnrollments(c.Request.Context(), claims.UserID, activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// AddEnrollments godoc
// @Summary Enroll in additional subjects
// @Description Match extra subjects for an onboarded student
// @Tags Onboarding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body handler.addEnrollmentsRequest true "Subjects payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *OnboardingHandler) AddEnrollments(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req addEnrollmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}

	details, err := h.service.AddEnrollments(c.Request.Context(), claims.UserID, req.SubjectIDs, req.Dragged)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, details)
}

type addEnrollmentsRequest struct {
	SubjectIDs []string `json:"subject_ids" binding:"required,min=1"`
	Dragged    bool     `json:"dragged"`
}

// ListTaughtSubjects godoc
// @Summary List taught subjects
// @Description List the caller's active subject claims with roster sizes
// @Tags Onboarding
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teaching/subjects [get]
func (h *OnboardingHandler) ListTaughtSubjects(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	subjects, err := h.service.ListTaughtSubjects(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// ListSubjectRoster godoc
// @Summary List subject roster
// @Description List the active students of one taught subject
// @Tags Onboarding
// @Produce json
// @Security BearerAuth
// @Param id path string true "Curriculum subject ID"
// @Success 200 {object} response.Envelope
// @Router /teaching/subjects/{id}/students [get]
func (h *OnboardingHandler) ListSubjectRoster(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	roster, err := h.service.ListSubjectRoster(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}
