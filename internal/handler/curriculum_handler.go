package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Julius266/proyecto-final/internal/service"
	"github.com/Julius266/proyecto-final/pkg/response"
)

// CurriculumHandler exposes the curriculum catalog.
type CurriculumHandler struct {
	service *service.CurriculumService
}

// NewCurriculumHandler creates a new handler.
func NewCurriculumHandler(svc *service.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{service: svc}
}

// List godoc
// @Summary List curricula
// @Description List all active curricula
// @Tags Curriculum
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /curricula [get]
func (h *CurriculumHandler) List(c *gin.Context) {
	curricula, err := h.service.ListCurricula(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, curricula, nil)
}

// ListSubjects godoc
// @Summary List curriculum subjects
// @Description List the subjects of a curriculum, optionally one semester
// @Tags Curriculum
// @Produce json
// @Security BearerAuth
// @Param id path string true "Curriculum ID"
// @Param semester query int false "Semester filter"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /curricula/{id}/subjects [get]
func (h *CurriculumHandler) ListSubjects(c *gin.Context) {
	semester, _ := strconv.Atoi(c.Query("semester"))
	subjects, err := h.service.ListSubjects(c.Request.Context(), c.Param("id"), semester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// GetSubject godoc
// @Summary Get curriculum subject
// @Description Fetch one curriculum subject by ID
// @Tags Curriculum
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *CurriculumHandler) GetSubject(c *gin.Context) {
	subject, err := h.service.GetSubject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}
