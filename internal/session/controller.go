// Package session holds the state of one viewer looking at one course: the
// loaded course and lessons, the selected lesson, and the enroll and
// mark-complete actions.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/learnify-api/internal/models"
	"github.com/noah-isme/learnify-api/internal/policy"
	"github.com/noah-isme/learnify-api/internal/progress"
	appErrors "github.com/noah-isme/learnify-api/pkg/errors"
)

// State of a course session.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateLoadFailed State = "load_failed"
)

// Load, enrollment and completion results reported to a Recorder.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
	ResultStale  = "stale"
)

// Gateway is the backend a session reads from and writes to. Fetches return
// the projections of the viewer identified by token.
type Gateway interface {
	FetchCourse(ctx context.Context, courseID, token string) (models.CourseView, error)
	FetchLessons(ctx context.Context, courseID, token string) ([]models.LessonView, error)
	SubmitEnrollment(ctx context.Context, courseID, token string) error
	SubmitCompletion(ctx context.Context, lessonID, token string) error
}

// Recorder receives session outcomes, typically a metrics sink.
type Recorder interface {
	RecordCourseLoad(result string)
	RecordEnrollment(result string)
	RecordCompletion(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCourseLoad(string) {}
func (nopRecorder) RecordEnrollment(string) {}
func (nopRecorder) RecordCompletion(string) {}

// OpenOptions tunes a load.
type OpenOptions struct {
	// EnrollmentHint marks the viewer as enrolled regardless of the fetched
	// flag. Set it right after a successful enrollment when the backend may
	// still serve the previous state. A false hint is ignored.
	EnrollmentHint bool
}

// Config wires a Controller.
type Config struct {
	Gateway  Gateway
	Auth     AuthSource
	Profile  Profile
	Logger   *zap.Logger
	Recorder Recorder
}

// Controller is the state machine of one course view. It is safe for
// concurrent use; collaborator calls run without holding the lock.
type Controller struct {
	gateway  Gateway
	auth     AuthSource
	profile  Profile
	logger   *zap.Logger
	recorder Recorder

	mu         sync.Mutex
	generation uint64
	cancelLoad context.CancelFunc
	settled    chan struct{}

	state       State
	courseID    string
	authState   models.AuthState
	authSettled bool
	course      *models.CourseView
	lessons     []models.LessonView
	cursor      string
	showFull    bool

	loadErr       *appErrors.Error
	enrollErr     *appErrors.Error
	completionErr *appErrors.Error

	enrolling bool
	marking   bool
}

// New constructs an idle Controller.
func New(cfg Config) *Controller {
	if cfg.Auth == nil {
		cfg.Auth = Guest
	}
	if cfg.Profile.Name == "" {
		cfg.Profile = DetailProfile
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	settled := make(chan struct{})
	close(settled)
	return &Controller{
		gateway:  cfg.Gateway,
		auth:     cfg.Auth,
		profile:  cfg.Profile,
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
		settled:  settled,
		state:    StateIdle,
	}
}

// SetAuth swaps the identity source used by the next Open.
func (c *Controller) SetAuth(auth AuthSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if auth == nil {
		auth = Guest
	}
	c.auth = auth
}

// SetProfile swaps the presentation profile.
func (c *Controller) SetProfile(p Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = p
}

// Open loads courseID, replacing whatever the session showed before. Any
// load still in flight is cancelled and its result discarded. Open returns
// nil when it was itself superseded.
func (c *Controller) Open(ctx context.Context, courseID string, opts OpenOptions) error {
	c.mu.Lock()
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.generation++
	gen := c.generation
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancelLoad = cancel
	settled := make(chan struct{})
	c.settled = settled

	c.state = StateLoading
	c.courseID = courseID
	c.authState = models.AuthState{}
	c.authSettled = false
	c.course = nil
	c.lessons = nil
	c.cursor = ""
	c.showFull = false
	c.loadErr = nil
	c.enrollErr = nil
	c.completionErr = nil
	auth := c.auth
	c.mu.Unlock()

	defer close(settled)
	defer cancel()

	authState, err := auth.Settle(loadCtx)
	if err != nil {
		return c.failLoad(gen, err)
	}
	c.mu.Lock()
	if gen == c.generation {
		c.authState = authState
		c.authSettled = true
	}
	c.mu.Unlock()

	course, err := c.gateway.FetchCourse(loadCtx, courseID, authState.Token)
	if err != nil {
		return c.failLoad(gen, err)
	}
	lessons, err := c.gateway.FetchLessons(loadCtx, courseID, authState.Token)
	if err != nil {
		return c.failLoad(gen, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.discardLocked(courseID)
		return nil
	}

	if opts.EnrollmentHint {
		course.Enrolled = true
	}
	c.course = &course
	c.lessons = append([]models.LessonView(nil), lessons...)
	if len(c.lessons) > 0 {
		c.cursor = c.lessons[0].ID
	}
	c.state = StateReady
	c.recorder.RecordCourseLoad(ResultOK)
	return nil
}

func (c *Controller) failLoad(gen uint64, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.discardLocked(c.courseID)
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.state = StateLoadFailed
		c.loadErr = appErrors.Wrap(err, appErrors.ErrLoad.Code, appErrors.ErrLoad.Status, "course load was cancelled")
		c.recorder.RecordCourseLoad(ResultFailed)
		return c.loadErr
	}
	c.state = StateLoadFailed
	c.loadErr = appErrors.Scope(err, appErrors.ErrLoad, "")
	c.recorder.RecordCourseLoad(ResultFailed)
	c.logger.Warn("course load failed",
		zap.String("course_id", c.courseID),
		zap.Error(err),
	)
	return c.loadErr
}

func (c *Controller) discardLocked(courseID string) {
	c.recorder.RecordCourseLoad(ResultStale)
	c.logger.Debug("discarding superseded course load",
		zap.String("course_id", courseID),
		zap.String("current_course_id", c.courseID),
	)
}

// Await blocks until the latest load has resolved or ctx is done.
func (c *Controller) Await(ctx context.Context) error {
	for {
		c.mu.Lock()
		state, settled := c.state, c.settled
		c.mu.Unlock()
		if state != StateLoading {
			return nil
		}
		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SelectLesson moves the cursor to lessonID. It reports false and changes
// nothing when the session is not ready or the lesson is not loaded.
func (c *Controller) SelectLesson(lessonID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.indexLocked(lessonID) < 0 {
		return false
	}
	c.cursor = lessonID
	return true
}

// ToggleFullContent flips the "view more" toggle and returns the new value.
func (c *Controller) ToggleFullContent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showFull = !c.showFull
	return c.showFull
}

// SetFullContent sets the "view more" toggle.
func (c *Controller) SetFullContent(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showFull = show
}

// Enroll enrolls the viewer in the loaded course. A failure is kept as the
// enrollment error and leaves the session untouched.
func (c *Controller) Enroll(ctx context.Context) error {
	c.mu.Lock()
	if err := c.waitReadyLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.capabilitiesLocked().CanEnroll {
		c.mu.Unlock()
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment is not available for this viewer")
	}
	if c.enrolling {
		c.mu.Unlock()
		return appErrors.Clone(appErrors.ErrMutationInFlight, "enrollment is already in progress")
	}
	c.enrolling = true
	c.enrollErr = nil
	gen, courseID, token := c.generation, c.courseID, c.authState.Token
	c.mu.Unlock()

	err := c.gateway.SubmitEnrollment(ctx, courseID, token)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.enrolling = false
	if err != nil {
		scoped := appErrors.Scope(err, appErrors.ErrEnrollment, "")
		c.recorder.RecordEnrollment(ResultFailed)
		if gen == c.generation {
			c.enrollErr = scoped
		}
		return scoped
	}
	c.recorder.RecordEnrollment(ResultOK)
	if gen == c.generation && c.course != nil {
		c.course.Enrolled = true
	}
	return nil
}

// MarkComplete records completion of the selected lesson. Completing a lesson
// that is already complete is a no-op. A failure is kept as the completion
// error and leaves the lessons untouched.
func (c *Controller) MarkComplete(ctx context.Context) error {
	c.mu.Lock()
	if err := c.waitReadyLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.cursor == "" {
		c.mu.Unlock()
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "no lesson selected")
	}
	return c.completeLocked(ctx, c.cursor)
}

// CompleteLesson is MarkComplete for an explicit lesson, independent of the
// cursor. An id that is not part of the loaded course is NotFound.
func (c *Controller) CompleteLesson(ctx context.Context, lessonID string) error {
	c.mu.Lock()
	if err := c.waitReadyLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	return c.completeLocked(ctx, lessonID)
}

// completeLocked is entered with c.mu held and releases it.
func (c *Controller) completeLocked(ctx context.Context, lessonID string) error {
	if !c.capabilitiesLocked().CanMarkComplete {
		c.mu.Unlock()
		return appErrors.Clone(appErrors.ErrForbidden, "lesson completion is not available for this viewer")
	}
	idx := c.indexLocked(lessonID)
	if idx < 0 {
		c.mu.Unlock()
		return appErrors.Clone(appErrors.ErrNotFound, "lesson not found in course")
	}
	if c.lessons[idx].Completed {
		c.mu.Unlock()
		return nil
	}
	if c.marking {
		c.mu.Unlock()
		return appErrors.Clone(appErrors.ErrMutationInFlight, "lesson completion is already in progress")
	}
	c.marking = true
	c.completionErr = nil
	gen, token := c.generation, c.authState.Token
	c.mu.Unlock()

	err := c.gateway.SubmitCompletion(ctx, lessonID, token)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.marking = false
	if err != nil {
		scoped := appErrors.Scope(err, appErrors.ErrCompletion, "")
		c.recorder.RecordCompletion(ResultFailed)
		if gen == c.generation {
			c.completionErr = scoped
		}
		return scoped
	}
	c.recorder.RecordCompletion(ResultOK)
	if gen == c.generation {
		c.lessons = progress.MarkComplete(c.lessons, lessonID)
	}
	return nil
}

// waitReadyLocked lets a load in progress settle before a mutation is
// checked. It is entered and left with c.mu held.
func (c *Controller) waitReadyLocked(ctx context.Context) error {
	for c.state == StateLoading {
		settled := c.settled
		c.mu.Unlock()
		select {
		case <-settled:
		case <-ctx.Done():
			c.mu.Lock()
			return ctx.Err()
		}
		c.mu.Lock()
	}
	if c.state != StateReady {
		return appErrors.Clone(appErrors.ErrNotReady, "")
	}
	return nil
}

// Capabilities evaluates the access policy against the current state. It is
// never cached.
func (c *Controller) Capabilities() policy.CapabilitySet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capabilitiesLocked()
}

func (c *Controller) capabilitiesLocked() policy.CapabilitySet {
	if !c.authSettled || c.course == nil {
		return policy.CapabilitySet{}
	}
	return policy.Evaluate(c.authState.Viewer, *c.course)
}

func (c *Controller) indexLocked(lessonID string) int {
	if lessonID == "" {
		return -1
	}
	for i := range c.lessons {
		if c.lessons[i].ID == lessonID {
			return i
		}
	}
	return -1
}
