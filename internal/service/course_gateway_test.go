package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnify-api/internal/models"
	appErrors "github.com/noah-isme/learnify-api/pkg/errors"
)

type fakeCourseRepo struct {
	courses map[string]*models.Course
	calls   int
}

func (f *fakeCourseRepo) FindByID(_ context.Context, id string) (*models.Course, error) {
	f.calls++
	c, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

type fakeLessonRepo struct {
	lessons map[string][]models.Lesson
}

func (f *fakeLessonRepo) ListByCourse(_ context.Context, courseID string) ([]models.Lesson, error) {
	return append([]models.Lesson(nil), f.lessons[courseID]...), nil
}

func (f *fakeLessonRepo) FindByID(_ context.Context, id string) (*models.Lesson, error) {
	for _, list := range f.lessons {
		for _, l := range list {
			if l.ID == id {
				cp := l
				return &cp, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

type fakeEnrollmentRepo struct {
	enrolled map[string]bool
}

func (f *fakeEnrollmentRepo) Exists(_ context.Context, courseID, studentID string) (bool, error) {
	return f.enrolled[courseID+"/"+studentID], nil
}

func (f *fakeEnrollmentRepo) Create(_ context.Context, e *models.Enrollment) (bool, error) {
	key := e.CourseID + "/" + e.StudentID
	if f.enrolled[key] {
		return false, nil
	}
	f.enrolled[key] = true
	return true, nil
}

type fakeCompletionRepo struct {
	done map[string]bool
}

func (f *fakeCompletionRepo) CompletedLessonIDs(_ context.Context, studentID string, lessonIDs []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range lessonIDs {
		if f.done[id+"/"+studentID] {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeCompletionRepo) Create(_ context.Context, c *models.LessonCompletion) error {
	f.done[c.LessonID+"/"+c.StudentID] = true
	return nil
}

type fakeResolver struct {
	viewers map[string]*models.Viewer
}

func (f fakeResolver) ResolveViewer(token string) (*models.Viewer, error) {
	if token == "" {
		return nil, nil
	}
	v, ok := f.viewers[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v, nil
}

type gatewayFixture struct {
	gateway     *CourseGateway
	courses     *fakeCourseRepo
	enrollments *fakeEnrollmentRepo
	completions *fakeCompletionRepo
}

func newGatewayFixture(cache *CacheService) gatewayFixture {
	courses := &fakeCourseRepo{courses: map[string]*models.Course{
		"c1": {ID: "c1", Title: "Go", Active: true, Instructor: models.InstructorRef{ID: "inst-1", Name: "Ada"}},
		"c2": {ID: "c2", Title: "Old", Active: false, Instructor: models.InstructorRef{ID: "inst-1"}},
	}}
	lessons := &fakeLessonRepo{lessons: map[string][]models.Lesson{
		"c1": {{ID: "l1", CourseID: "c1", Title: "One"}, {ID: "l2", CourseID: "c1", Title: "Two"}},
		"c2": {{ID: "l9", CourseID: "c2", Title: "Gone"}},
	}}
	enrollments := &fakeEnrollmentRepo{enrolled: map[string]bool{"c1/stu-1": true}}
	completions := &fakeCompletionRepo{done: map[string]bool{"l1/stu-1": true}}
	resolver := fakeResolver{viewers: map[string]*models.Viewer{
		"stu-1": {ID: "stu-1", Role: models.RoleStudent},
		"stu-2": {ID: "stu-2", Role: models.RoleStudent},
		"inst-1": {ID: "inst-1", Role: models.RoleInstructor},
	}}
	return gatewayFixture{
		gateway:     NewCourseGateway(courses, lessons, enrollments, completions, resolver, cache, nil),
		courses:     courses,
		enrollments: enrollments,
		completions: completions,
	}
}

func TestCourseGatewayFetchCourse(t *testing.T) {
	fx := newGatewayFixture(nil)
	ctx := context.Background()

	view, err := fx.gateway.FetchCourse(ctx, "c1", "stu-1")
	require.NoError(t, err)
	assert.True(t, view.Enrolled)
	assert.Equal(t, "Ada", view.Instructor.Name)

	view, err = fx.gateway.FetchCourse(ctx, "c1", "")
	require.NoError(t, err)
	assert.False(t, view.Enrolled)

	_, err = fx.gateway.FetchCourse(ctx, "missing", "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = fx.gateway.FetchCourse(ctx, "c1", "forged")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestCourseGatewayFetchLessonsJoinsCompletion(t *testing.T) {
	fx := newGatewayFixture(nil)

	lessons, err := fx.gateway.FetchLessons(context.Background(), "c1", "stu-1")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.True(t, lessons[0].Completed)
	assert.False(t, lessons[1].Completed)

	lessons, err = fx.gateway.FetchLessons(context.Background(), "c1", "inst-1")
	require.NoError(t, err)
	assert.False(t, lessons[0].Completed)
}

func TestCourseGatewaySubmitEnrollment(t *testing.T) {
	fx := newGatewayFixture(nil)
	ctx := context.Background()

	require.NoError(t, fx.gateway.SubmitEnrollment(ctx, "c1", "stu-2"))
	assert.True(t, fx.enrollments.enrolled["c1/stu-2"])

	err := fx.gateway.SubmitEnrollment(ctx, "c1", "stu-2")
	assert.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)

	assert.ErrorIs(t, fx.gateway.SubmitEnrollment(ctx, "c1", ""), appErrors.ErrUnauthorized)
	assert.ErrorIs(t, fx.gateway.SubmitEnrollment(ctx, "c1", "inst-1"), appErrors.ErrForbidden)
	assert.ErrorIs(t, fx.gateway.SubmitEnrollment(ctx, "c2", "stu-2"), appErrors.ErrPreconditionFailed)
	assert.ErrorIs(t, fx.gateway.SubmitEnrollment(ctx, "nope", "stu-2"), appErrors.ErrNotFound)
}

func TestCourseGatewaySubmitCompletion(t *testing.T) {
	fx := newGatewayFixture(nil)
	ctx := context.Background()

	require.NoError(t, fx.gateway.SubmitCompletion(ctx, "l2", "stu-1"))
	assert.True(t, fx.completions.done["l2/stu-1"])
	require.NoError(t, fx.gateway.SubmitCompletion(ctx, "l2", "stu-1"))

	assert.ErrorIs(t, fx.gateway.SubmitCompletion(ctx, "l2", "stu-2"), appErrors.ErrForbidden)
	assert.ErrorIs(t, fx.gateway.SubmitCompletion(ctx, "l9", "stu-1"), appErrors.ErrPreconditionFailed)
	assert.ErrorIs(t, fx.gateway.SubmitCompletion(ctx, "zz", "stu-1"), appErrors.ErrNotFound)
}

func TestCourseGatewayServesCourseFromCache(t *testing.T) {
	repo := newFakeCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	fx := newGatewayFixture(cache)
	ctx := context.Background()

	_, err := fx.gateway.FetchCourse(ctx, "c1", "stu-1")
	require.NoError(t, err)
	_, err = fx.gateway.FetchCourse(ctx, "c1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fx.courses.calls)

	// enrollment is never cached
	fx.enrollments.enrolled["c1/stu-2"] = true
	view, err := fx.gateway.FetchCourse(ctx, "c1", "stu-2")
	require.NoError(t, err)
	assert.True(t, view.Enrolled)
}
