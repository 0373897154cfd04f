package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/learnify-api/internal/models"
	appErrors "github.com/noah-isme/learnify-api/pkg/errors"
)

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type lessonReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
}

type enrollmentStore interface {
	Exists(ctx context.Context, courseID, studentID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) (bool, error)
}

type completionStore interface {
	CompletedLessonIDs(ctx context.Context, studentID string, lessonIDs []string) (map[string]bool, error)
	Create(ctx context.Context, completion *models.LessonCompletion) error
}

type viewerResolver interface {
	ResolveViewer(token string) (*models.Viewer, error)
}

// CourseGateway serves course sessions from the database. Course and lesson
// entities go through the catalog cache; enrollment and completion flags are
// always read fresh for the requesting viewer.
type CourseGateway struct {
	courses     courseReader
	lessons     lessonReader
	enrollments enrollmentStore
	completions completionStore
	auth        viewerResolver
	cache       *CacheService
	logger      *zap.Logger
}

// NewCourseGateway wires the gateway. cache may be nil.
func NewCourseGateway(courses courseReader, lessons lessonReader, enrollments enrollmentStore, completions completionStore, auth viewerResolver, cache *CacheService, logger *zap.Logger) *CourseGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseGateway{
		courses:     courses,
		lessons:     lessons,
		enrollments: enrollments,
		completions: completions,
		auth:        auth,
		cache:       cache,
		logger:      logger,
	}
}

// FetchCourse returns the course joined with the viewer's enrollment flag.
func (g *CourseGateway) FetchCourse(ctx context.Context, courseID, token string) (models.CourseView, error) {
	viewer, err := g.auth.ResolveViewer(token)
	if err != nil {
		return models.CourseView{}, err
	}
	course, err := g.course(ctx, courseID)
	if err != nil {
		return models.CourseView{}, err
	}

	view := models.CourseView{Course: *course}
	if viewer.Is(models.RoleStudent) {
		enrolled, err := g.enrollments.Exists(ctx, courseID, viewer.ID)
		if err != nil {
			return models.CourseView{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		view.Enrolled = enrolled
	}
	return view, nil
}

// FetchLessons returns the ordered lessons joined with the viewer's
// completion flags.
func (g *CourseGateway) FetchLessons(ctx context.Context, courseID, token string) ([]models.LessonView, error) {
	viewer, err := g.auth.ResolveViewer(token)
	if err != nil {
		return nil, err
	}
	lessons, err := g.lessonList(ctx, courseID)
	if err != nil {
		return nil, err
	}

	views := make([]models.LessonView, len(lessons))
	for i, l := range lessons {
		views[i] = models.LessonView{Lesson: l}
	}
	if !viewer.Is(models.RoleStudent) || len(lessons) == 0 {
		return views, nil
	}

	ids := make([]string, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}
	done, err := g.completions.CompletedLessonIDs(ctx, viewer.ID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson progress")
	}
	for i := range views {
		views[i].Completed = done[views[i].ID]
	}
	return views, nil
}

// SubmitEnrollment enrolls the viewer as a student of courseID.
func (g *CourseGateway) SubmitEnrollment(ctx context.Context, courseID, token string) error {
	viewer, err := g.student(token)
	if err != nil {
		return err
	}
	course, err := g.course(ctx, courseID)
	if err != nil {
		return err
	}
	if !course.Active {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "course is not active")
	}

	created, err := g.enrollments.Create(ctx, &models.Enrollment{CourseID: courseID, StudentID: viewer.ID})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	if !created {
		return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "you are already enrolled in this course")
	}
	g.logger.Info("student enrolled", zap.String("course_id", courseID), zap.String("student_id", viewer.ID))
	return nil
}

// SubmitCompletion records lessonID as completed by the viewer, who must be
// enrolled in the lesson's course.
func (g *CourseGateway) SubmitCompletion(ctx context.Context, lessonID, token string) error {
	viewer, err := g.student(token)
	if err != nil {
		return err
	}
	lesson, err := g.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	course, err := g.course(ctx, lesson.CourseID)
	if err != nil {
		return err
	}
	if !course.Active {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "course is not active")
	}

	enrolled, err := g.enrollments.Exists(ctx, lesson.CourseID, viewer.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrForbidden, "enroll in the course before completing lessons")
	}

	if err := g.completions.Create(ctx, &models.LessonCompletion{LessonID: lessonID, StudentID: viewer.ID}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record completion")
	}
	return nil
}

func (g *CourseGateway) student(token string) (*models.Viewer, error) {
	viewer, err := g.auth.ResolveViewer(token)
	if err != nil {
		return nil, err
	}
	if !viewer.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "login required")
	}
	if !viewer.Is(models.RoleStudent) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can do this")
	}
	return viewer, nil
}

func (g *CourseGateway) course(ctx context.Context, courseID string) (*models.Course, error) {
	var cached models.Course
	if g.cache.Get(ctx, courseCacheKey(courseID), &cached) {
		return &cached, nil
	}
	course, err := g.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	g.cache.Set(ctx, courseCacheKey(courseID), course, 0)
	return course, nil
}

func (g *CourseGateway) lessonList(ctx context.Context, courseID string) ([]models.Lesson, error) {
	var cached []models.Lesson
	if g.cache.Get(ctx, lessonsCacheKey(courseID), &cached) {
		return cached, nil
	}
	lessons, err := g.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	g.cache.Set(ctx, lessonsCacheKey(courseID), lessons, 0)
	return lessons, nil
}
