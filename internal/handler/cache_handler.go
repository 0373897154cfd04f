package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learnify-api/pkg/response"
)

type courseCacheInvalidator interface {
	InvalidateCourse(ctx context.Context, courseID string) (int, error)
}

type courseCacheWarmer interface {
	Schedule(courseID string) error
}

// CacheHandler exposes catalog cache maintenance.
type CacheHandler struct {
	cache  courseCacheInvalidator
	warmer courseCacheWarmer
}

// NewCacheHandler constructs the handler. warmer may be nil.
func NewCacheHandler(cache courseCacheInvalidator, warmer courseCacheWarmer) *CacheHandler {
	return &CacheHandler{cache: cache, warmer: warmer}
}

// InvalidateCourse godoc
// @Summary Invalidate course cache
// @Description Drop the cached course and lessons and schedule a background reload
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/cache/courses/{id} [delete]
func (h *CacheHandler) InvalidateCourse(c *gin.Context) {
	courseID := c.Param("id")
	removed, err := h.cache.InvalidateCourse(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	warming := false
	if h.warmer != nil {
		if err := h.warmer.Schedule(courseID); err != nil {
			response.Error(c, err)
			return
		}
		warming = true
	}
	response.OK(c, gin.H{"course_id": courseID, "removed": removed, "warming": warming})
}
