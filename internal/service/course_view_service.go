package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/learnify-api/internal/models"
	"github.com/noah-isme/learnify-api/internal/session"
	appErrors "github.com/noah-isme/learnify-api/pkg/errors"
)

const defaultSessionIdleTTL = 15 * time.Minute

// ViewRequest describes one render of a course for the caller.
type ViewRequest struct {
	CourseID       string
	LessonID       string
	Token          string
	Profile        string
	ShowFull       bool
	EnrollmentHint bool
}

type sessionKey struct {
	viewerID string
	courseID string
}

type sessionEntry struct {
	ctrl *session.Controller
	// mu serialises open and render sequences. Mutations run outside it so
	// a repeated request observes the in-flight guard.
	mu           sync.Mutex
	refs         int
	lastUsed     time.Time
	enrolledHint bool
}

// CourseViewService keeps one course session per authenticated viewer and
// course so that enroll and complete requests share in-flight guards and the
// fresh-enrollment hint. Guests get a throwaway session per request.
type CourseViewService struct {
	gateway      session.Gateway
	auth         viewerResolver
	metrics      *MetricsService
	logger       *zap.Logger
	idleTTL      time.Duration
	previewChars int
	now          func() time.Time

	mu        sync.Mutex
	sessions  map[sessionKey]*sessionEntry
	lastSweep time.Time
}

// NewCourseViewService constructs the service.
func NewCourseViewService(gateway session.Gateway, auth viewerResolver, metrics *MetricsService, logger *zap.Logger, idleTTL time.Duration, previewChars int) *CourseViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idleTTL <= 0 {
		idleTTL = defaultSessionIdleTTL
	}
	return &CourseViewService{
		gateway:      gateway,
		auth:         auth,
		metrics:      metrics,
		logger:       logger,
		idleTTL:      idleTTL,
		previewChars: previewChars,
		now:          time.Now,
		sessions:     make(map[sessionKey]*sessionEntry),
	}
}

// View loads the course and renders it for the caller.
func (s *CourseViewService) View(ctx context.Context, req ViewRequest) (session.View, error) {
	viewer, err := s.auth.ResolveViewer(req.Token)
	if err != nil {
		return session.View{}, err
	}
	entry := s.acquire(viewer, req.CourseID)
	defer s.release(entry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.render(ctx, entry, viewer, req)
}

// Enroll enrolls the caller and returns the refreshed view.
func (s *CourseViewService) Enroll(ctx context.Context, req ViewRequest) (session.View, error) {
	viewer, err := s.auth.ResolveViewer(req.Token)
	if err != nil {
		return session.View{}, err
	}
	if !viewer.Authenticated() {
		return session.View{}, appErrors.Clone(appErrors.ErrUnauthorized, "login required")
	}
	entry := s.acquire(viewer, req.CourseID)
	defer s.release(entry)

	if _, err := s.renderLocked(ctx, entry, viewer, req); err != nil {
		return session.View{}, err
	}
	if err := entry.ctrl.Enroll(ctx); err != nil {
		return entry.ctrl.View(), err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.enrolledHint = true
	return s.render(ctx, entry, viewer, req)
}

// Complete marks req.LessonID complete and returns the refreshed view.
func (s *CourseViewService) Complete(ctx context.Context, req ViewRequest) (session.View, error) {
	viewer, err := s.auth.ResolveViewer(req.Token)
	if err != nil {
		return session.View{}, err
	}
	if !viewer.Authenticated() {
		return session.View{}, appErrors.Clone(appErrors.ErrUnauthorized, "login required")
	}
	entry := s.acquire(viewer, req.CourseID)
	defer s.release(entry)

	if _, err := s.renderLocked(ctx, entry, viewer, req); err != nil {
		return session.View{}, err
	}
	// The cursor is shared with other requests on this session.
	if err := entry.ctrl.CompleteLesson(ctx, req.LessonID); err != nil {
		return entry.ctrl.View(), err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.render(ctx, entry, viewer, req)
}

// ActiveSessions reports the number of retained sessions.
func (s *CourseViewService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *CourseViewService) renderLocked(ctx context.Context, entry *sessionEntry, viewer *models.Viewer, req ViewRequest) (session.View, error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.render(ctx, entry, viewer, req)
}

func (s *CourseViewService) render(ctx context.Context, entry *sessionEntry, viewer *models.Viewer, req ViewRequest) (session.View, error) {
	ctrl := entry.ctrl
	ctrl.SetAuth(session.StaticAuth{Viewer: viewer, Token: req.Token})
	ctrl.SetProfile(session.ProfileByName(req.Profile).WithPreviewChars(s.previewChars))

	hint := entry.enrolledHint || req.EnrollmentHint
	entry.enrolledHint = false
	if err := ctrl.Open(ctx, req.CourseID, session.OpenOptions{EnrollmentHint: hint}); err != nil {
		return ctrl.View(), err
	}
	if err := ctrl.Await(ctx); err != nil {
		return ctrl.View(), err
	}
	if req.LessonID != "" {
		ctrl.SelectLesson(req.LessonID)
	}
	if req.ShowFull {
		ctrl.SetFullContent(true)
	}
	return ctrl.View(), nil
}

func (s *CourseViewService) newController() *session.Controller {
	cfg := session.Config{Gateway: s.gateway, Logger: s.logger}
	if s.metrics != nil {
		cfg.Recorder = s.metrics
	}
	return session.New(cfg)
}

func (s *CourseViewService) acquire(viewer *models.Viewer, courseID string) *sessionEntry {
	if !viewer.Authenticated() {
		return &sessionEntry{ctrl: s.newController()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)

	key := sessionKey{viewerID: viewer.ID, courseID: courseID}
	entry, ok := s.sessions[key]
	if !ok {
		entry = &sessionEntry{ctrl: s.newController()}
		s.sessions[key] = entry
		s.metrics.SetActiveSessions(len(s.sessions))
	}
	entry.refs++
	entry.lastUsed = now
	return entry
}

func (s *CourseViewService) release(entry *sessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.refs > 0 {
		entry.refs--
	}
	entry.lastUsed = s.now()
}

func (s *CourseViewService) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < s.idleTTL/2 {
		return
	}
	s.lastSweep = now
	evicted := 0
	for key, entry := range s.sessions {
		if entry.refs == 0 && now.Sub(entry.lastUsed) > s.idleTTL {
			delete(s.sessions, key)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("evicted idle course sessions", zap.Int("evicted", evicted))
		s.metrics.SetActiveSessions(len(s.sessions))
	}
}
