package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnify-api/internal/middleware"
	"github.com/noah-isme/learnify-api/internal/models"
	"github.com/noah-isme/learnify-api/internal/service"
	"github.com/noah-isme/learnify-api/internal/session"
	appErrors "github.com/noah-isme/learnify-api/pkg/errors"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type authServiceMock struct {
	resp *models.LoginResponse
	err  error
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return m.resp, m.err
}

func TestAuthHandlerLogin(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{resp: &models.LoginResponse{AccessToken: "tok"}})
	body, _ := json.Marshal(models.LoginRequest{Email: "a@b.c", Password: "pw"})
	c, w := newGinContext(http.MethodPost, "/auth/login", body)

	h.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"tok"`)
}

func TestAuthHandlerLoginRejectsBadPayload(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})
	c, w := newGinContext(http.MethodPost, "/auth/login", []byte("{"))

	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})
	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent, FullName: "Ada"})

	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"full_name":"Ada"`)
}

type courseServiceMock struct {
	view session.View
	err  error
	got  service.ViewRequest
}

func (m *courseServiceMock) View(ctx context.Context, req service.ViewRequest) (session.View, error) {
	m.got = req
	return m.view, m.err
}

func (m *courseServiceMock) Enroll(ctx context.Context, req service.ViewRequest) (session.View, error) {
	m.got = req
	return m.view, m.err
}

func (m *courseServiceMock) Complete(ctx context.Context, req service.ViewRequest) (session.View, error) {
	m.got = req
	return m.view, m.err
}

func TestCourseHandlerView(t *testing.T) {
	svc := &courseServiceMock{view: session.View{State: session.StateReady, CourseID: "c1", Profile: "compact"}}
	h := NewCourseHandler(svc)
	c, w := newGinContext(http.MethodGet, "/courses/c1/view?lesson=l2&profile=compact&full=true&enrolled=true", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	c.Set(middleware.ContextTokenKey, "tok")

	h.View(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ViewRequest{CourseID: "c1", LessonID: "l2", Token: "tok", Profile: "compact", ShowFull: true, EnrollmentHint: true}, svc.got)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	env := decode(t, w)
	assert.Equal(t, "compact", env.Meta["profile"])
	assert.Contains(t, string(env.Data), `"state":"ready"`)
}

func TestCourseHandlerViewLoadFailure(t *testing.T) {
	svc := &courseServiceMock{err: appErrors.Scope(appErrors.Clone(appErrors.ErrNotFound, "course not found"), appErrors.ErrLoad, "")}
	h := NewCourseHandler(svc)
	c, w := newGinContext(http.MethodGet, "/courses/zz/view", nil)
	c.Params = gin.Params{{Key: "id", Value: "zz"}}

	h.View(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appErrors.ErrLoad.Code, decode(t, w).Error.Code)
}

func TestCourseHandlerEnrollConflict(t *testing.T) {
	svc := &courseServiceMock{err: appErrors.Clone(appErrors.ErrMutationInFlight, "enrollment is already in progress")}
	h := NewCourseHandler(svc)
	c, w := newGinContext(http.MethodPost, "/courses/c1/enroll", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	h.Enroll(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCourseHandlerComplete(t *testing.T) {
	svc := &courseServiceMock{view: session.View{State: session.StateReady}}
	h := NewCourseHandler(svc)
	c, w := newGinContext(http.MethodPost, "/courses/c1/lessons/l1/complete", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}, {Key: "lessonId", Value: "l1"}}

	h.Complete(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "l1", svc.got.LessonID)
	assert.Equal(t, "c1", svc.got.CourseID)
}

type rosterServiceMock struct {
	entries    []models.RosterEntry
	pagination *models.Pagination
	export     *service.RosterExport
	err        error
	filter     models.RosterFilter
	format     string
}

func (m *rosterServiceMock) List(ctx context.Context, courseID, token string, filter models.RosterFilter) ([]models.RosterEntry, *models.Pagination, error) {
	m.filter = filter
	return m.entries, m.pagination, m.err
}

func (m *rosterServiceMock) Export(ctx context.Context, courseID, token string, req service.RosterExportRequest) (*service.RosterExport, error) {
	m.format = req.Format
	return m.export, m.err
}

func TestRosterHandlerList(t *testing.T) {
	svc := &rosterServiceMock{
		entries:    []models.RosterEntry{{StudentID: "stu-1", FullName: "Ada"}},
		pagination: &models.Pagination{Page: 2, PageSize: 10, TotalCount: 11},
	}
	h := NewRosterHandler(svc)
	c, w := newGinContext(http.MethodGet, "/courses/c1/roster?page=2&page_size=10", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RosterFilter{Page: 2, PageSize: 10}, svc.filter)
	assert.Equal(t, 11, decode(t, w).Pagination.TotalCount)
}

func TestRosterHandlerListForbidden(t *testing.T) {
	h := NewRosterHandler(&rosterServiceMock{err: appErrors.ErrForbidden})
	c, w := newGinContext(http.MethodGet, "/courses/c1/roster", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	h.List(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRosterHandlerExport(t *testing.T) {
	svc := &rosterServiceMock{export: &service.RosterExport{Filename: "roster_go.csv", ContentType: "text/csv", Body: []byte("a,b\n")}}
	h := NewRosterHandler(svc)
	c, w := newGinContext(http.MethodGet, "/courses/c1/roster/export?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, `attachment; filename="roster_go.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", w.Body.String())
}

type invalidatorMock struct {
	removed int
	err     error
}

func (m *invalidatorMock) InvalidateCourse(ctx context.Context, courseID string) (int, error) {
	return m.removed, m.err
}

type warmerMock struct {
	scheduled []string
}

func (m *warmerMock) Schedule(courseID string) error {
	m.scheduled = append(m.scheduled, courseID)
	return nil
}

func TestCacheHandlerInvalidateCourse(t *testing.T) {
	warmer := &warmerMock{}
	h := NewCacheHandler(&invalidatorMock{removed: 2}, warmer)
	c, w := newGinContext(http.MethodDelete, "/admin/cache/courses/c1", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	h.InvalidateCourse(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":2`)
	assert.Contains(t, w.Body.String(), `"warming":true`)
	assert.Equal(t, []string{"c1"}, warmer.scheduled)
}

func TestCacheHandlerInvalidateCourseFailure(t *testing.T) {
	h := NewCacheHandler(&invalidatorMock{err: appErrors.ErrInternal}, nil)
	c, w := newGinContext(http.MethodDelete, "/admin/cache/courses/c1", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	h.InvalidateCourse(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	c, w := newGinContext(http.MethodGet, "/ready", nil)

	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"dial tcp: refused"`)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), nil)
	c, w := newGinContext(http.MethodGet, "/metrics", nil)

	h.Prometheus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "course_sessions_active")
}
