package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learnify-api/internal/models"
	"github.com/noah-isme/learnify-api/internal/service"
	appErrors "github.com/noah-isme/learnify-api/pkg/errors"
	"github.com/noah-isme/learnify-api/pkg/response"
)

type rosterService interface {
	List(ctx context.Context, courseID, token string, filter models.RosterFilter) ([]models.RosterEntry, *models.Pagination, error)
	Export(ctx context.Context, courseID, token string, req service.RosterExportRequest) (*service.RosterExport, error)
}

// RosterHandler exposes the course roster to its instructor.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(svc rosterService) *RosterHandler {
	return &RosterHandler{service: svc}
}

// List godoc
// @Summary Course roster
// @Description List enrolled students with their lesson progress
// @Tags Roster
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/roster [get]
func (h *RosterHandler) List(c *gin.Context) {
	var filter models.RosterFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	entries, pagination, err := h.service.List(c.Request.Context(), c.Param("id"), tokenFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Export godoc
// @Summary Export course roster
// @Description Download the roster as CSV or PDF
// @Tags Roster
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/roster/export [get]
func (h *RosterHandler) Export(c *gin.Context) {
	var req service.RosterExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	out, err := h.service.Export(c.Request.Context(), c.Param("id"), tokenFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, out.Filename, out.ContentType, out.Body)
}
