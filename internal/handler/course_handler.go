package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learnify-api/internal/middleware"
	"github.com/noah-isme/learnify-api/internal/service"
	"github.com/noah-isme/learnify-api/internal/session"
	appErrors "github.com/noah-isme/learnify-api/pkg/errors"
	"github.com/noah-isme/learnify-api/pkg/response"
)

type courseViewService interface {
	View(ctx context.Context, req service.ViewRequest) (session.View, error)
	Enroll(ctx context.Context, req service.ViewRequest) (session.View, error)
	Complete(ctx context.Context, req service.ViewRequest) (session.View, error)
}

type courseViewQuery struct {
	Lesson   string `form:"lesson"`
	Profile  string `form:"profile"`
	Full     bool   `form:"full"`
	Enrolled bool   `form:"enrolled"`
}

// CourseHandler serves the course view and its enroll and complete actions.
type CourseHandler struct {
	service courseViewService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(svc courseViewService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// View godoc
// @Summary Course view
// @Description Render a course with its lessons for the caller. Guests see locked content.
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Param lesson query string false "Selected lesson ID"
// @Param profile query string false "Presentation profile (detail, compact)"
// @Param full query bool false "Show the full lesson description"
// @Param enrolled query bool false "Fresh enrollment hint"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/view [get]
func (h *CourseHandler) View(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	view, err := h.service.View(c.Request.Context(), req)
	h.respond(c, view, err)
}

// Enroll godoc
// @Summary Enroll in course
// @Description Enroll the authenticated student and return the refreshed view
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/enroll [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	view, err := h.service.Enroll(c.Request.Context(), req)
	h.respond(c, view, err)
}

// Complete godoc
// @Summary Mark lesson complete
// @Description Record a lesson as completed by the enrolled student
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/lessons/{lessonId}/complete [post]
func (h *CourseHandler) Complete(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	req.LessonID = c.Param("lessonId")
	view, err := h.service.Complete(c.Request.Context(), req)
	h.respond(c, view, err)
}

func (h *CourseHandler) request(c *gin.Context) (service.ViewRequest, bool) {
	var query courseViewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return service.ViewRequest{}, false
	}
	return service.ViewRequest{
		CourseID:       c.Param("id"),
		LessonID:       query.Lesson,
		Token:          tokenFromContext(c),
		Profile:        query.Profile,
		ShowFull:       query.Full,
		EnrollmentHint: query.Enrolled,
	}, true
}

func (h *CourseHandler) respond(c *gin.Context, view session.View, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetProfile(c, view.Profile)
	response.OK(c, view, middleware.ExtractMeta(c))
}
