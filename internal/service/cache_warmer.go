package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/learnify-api/internal/models"
	appErrors "github.com/noah-isme/learnify-api/pkg/errors"
	"github.com/noah-isme/learnify-api/pkg/jobs"
)

const jobTypeWarmCourse = "warm_course"

type catalogSource interface {
	FetchCourse(ctx context.Context, courseID, token string) (models.CourseView, error)
	FetchLessons(ctx context.Context, courseID, token string) ([]models.LessonView, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) (bool, error)
}

// CacheWarmer reloads a course into the catalog cache in the background
// after it was invalidated.
type CacheWarmer struct {
	source catalogSource
	queue  jobQueue
	logger *zap.Logger
}

// NewCacheWarmer constructs a warmer. Attach a queue with UseQueue before
// scheduling.
func NewCacheWarmer(source catalogSource, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{source: source, logger: logger}
}

// UseQueue sets the queue that Schedule pushes to.
func (w *CacheWarmer) UseQueue(queue jobQueue) {
	w.queue = queue
}

// Schedule queues a warm-up of courseID. Repeated calls for a course that is
// still waiting are coalesced.
func (w *CacheWarmer) Schedule(courseID string) error {
	if w == nil || w.queue == nil {
		return nil
	}
	queued, err := w.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeWarmCourse,
		Key:     courseCacheKey(courseID),
		Payload: courseID,
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule cache warm-up")
	}
	if !queued {
		w.logger.Debug("cache warm-up already pending", zap.String("course_id", courseID))
	}
	return nil
}

// Handle is the jobs.Handler for warm-up jobs. Catalog entries are loaded as
// a guest so no viewer projection is involved.
func (w *CacheWarmer) Handle(ctx context.Context, job jobs.Job) error {
	courseID, ok := job.Payload.(string)
	if !ok || job.Type != jobTypeWarmCourse {
		return fmt.Errorf("%w: unexpected job %s", jobs.ErrPermanent, job.Type)
	}
	if _, err := w.source.FetchCourse(ctx, courseID, ""); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return fmt.Errorf("%w: %v", jobs.ErrPermanent, err)
		}
		return err
	}
	if _, err := w.source.FetchLessons(ctx, courseID, ""); err != nil {
		return err
	}
	w.logger.Debug("course cache warmed", zap.String("course_id", courseID))
	return nil
}
