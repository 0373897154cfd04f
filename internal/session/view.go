package session

import (
	"github.com/noah-isme/learnify-api/internal/content"
	"github.com/noah-isme/learnify-api/internal/models"
	"github.com/noah-isme/learnify-api/internal/policy"
	"github.com/noah-isme/learnify-api/internal/progress"
	"github.com/noah-isme/learnify-api/internal/video"
	appErrors "github.com/noah-isme/learnify-api/pkg/errors"
)

// Affordance is the primary call to action next to the lesson list.
type Affordance string

const (
	AffordanceNone         Affordance = "none"
	AffordanceManageRoster Affordance = "manage_roster"
	AffordanceLogin        Affordance = "login"
	AffordanceEnrolled     Affordance = "enrolled"
	AffordanceEnroll       Affordance = "enroll"
)

// Copy shown to viewers who cannot open the content.
const (
	LockMessageAuthenticated = "Enroll in this course to unlock all video lessons and start learning."
	LockMessageGuest         = "Please log in and enroll to access this exclusive content."
	UnavailableTitle         = "Course Unavailable"
	UnavailableMessage       = "This course is no longer active and cannot be accessed."
)

// LessonItem is one entry of the lesson list.
type LessonItem struct {
	ID        string `json:"id"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Selected  bool   `json:"selected"`
	Completed *bool  `json:"completed,omitempty"`
}

// LessonDetail is the selected lesson.
type LessonDetail struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	// Completed is set only for enrolled students.
	Completed *bool `json:"completed,omitempty"`
	// Video is withheld unless the viewer may view content.
	Video       *video.Resolution    `json:"video,omitempty"`
	Locked      bool                 `json:"locked"`
	LockMessage string               `json:"lock_message,omitempty"`
	PosterURL   string               `json:"poster_url,omitempty"`
	Body        content.SafeDocument `json:"body"`
	Expandable  bool                 `json:"expandable"`
	ShowFull    bool                 `json:"show_full"`
}

// ProgressView is the progress bar of an enrolled student.
type ProgressView struct {
	progress.Summary
	Display int `json:"display_percent"`
}

// Unavailable is shown instead of the course when it is inactive.
type Unavailable struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// View is a render snapshot of a session.
type View struct {
	State        State                `json:"state"`
	CourseID     string               `json:"course_id"`
	Profile      string               `json:"profile"`
	AuthPending  bool                 `json:"auth_pending"`
	Course       *models.CourseView   `json:"course,omitempty"`
	Capabilities policy.CapabilitySet `json:"capabilities"`
	IsOwner      bool                 `json:"is_owner"`
	Unavailable  *Unavailable         `json:"unavailable,omitempty"`
	Lessons      []LessonItem         `json:"lessons"`
	TotalLessons int                  `json:"total_lessons"`
	NoLessons    bool                 `json:"no_lessons"`
	Selected     *LessonDetail        `json:"selected,omitempty"`
	Progress     *ProgressView        `json:"progress,omitempty"`
	Affordance   Affordance           `json:"affordance"`
	Enrolling    bool                 `json:"enrolling"`
	Marking      bool                 `json:"marking"`

	LoadError       *appErrors.Error `json:"load_error,omitempty"`
	EnrollmentError *appErrors.Error `json:"enrollment_error,omitempty"`
	CompletionError *appErrors.Error `json:"completion_error,omitempty"`
}

// View renders the current state. Capabilities are evaluated on every call.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:           c.state,
		CourseID:        c.courseID,
		Profile:         c.profile.Name,
		AuthPending:     c.state == StateLoading && !c.authSettled,
		Affordance:      AffordanceNone,
		Enrolling:       c.enrolling,
		Marking:         c.marking,
		LoadError:       c.loadErr,
		EnrollmentError: c.enrollErr,
		CompletionError: c.completionErr,
		Lessons:         []LessonItem{},
	}
	if c.state != StateReady || c.course == nil {
		return v
	}

	course := *c.course
	viewer := c.authState.Viewer
	caps := policy.Evaluate(viewer, course)
	class := policy.Classify(viewer, course)

	v.Course = &course
	v.Capabilities = caps
	v.IsOwner = class.InstructorOwner

	if !course.Active && !class.InstructorOwner {
		v.Unavailable = &Unavailable{Title: UnavailableTitle, Message: UnavailableMessage}
		return v
	}

	v.TotalLessons = len(c.lessons)
	v.NoLessons = len(c.lessons) == 0
	v.Affordance = affordance(class)

	for i, l := range c.lessons {
		item := LessonItem{ID: l.ID, Number: i + 1, Title: l.Title, Selected: l.ID == c.cursor}
		if c.profile.ShowCompletionMarkers && class.EnrolledStudent {
			done := l.Completed
			item.Completed = &done
		}
		v.Lessons = append(v.Lessons, item)
	}

	if class.EnrolledStudent && len(c.lessons) > 0 {
		summary := progress.Compute(c.lessons)
		v.Progress = &ProgressView{Summary: summary, Display: summary.Rounded()}
	}

	if idx := c.indexLocked(c.cursor); idx >= 0 {
		v.Selected = c.detailLocked(idx, caps, class, course)
	}
	return v
}

func (c *Controller) detailLocked(idx int, caps policy.CapabilitySet, class policy.Classification, course models.CourseView) *LessonDetail {
	l := c.lessons[idx]
	d := &LessonDetail{
		ID:         l.ID,
		Number:     idx + 1,
		Title:      l.Title,
		Body:       content.Render(l.Content),
		Expandable: content.Expandable(l.Content, c.profile.PreviewChars),
		ShowFull:   c.showFull,
	}
	if class.EnrolledStudent {
		done := l.Completed
		d.Completed = &done
	}
	if caps.CanViewContent {
		res := video.Resolve(l.Video.URL, l.Video.Kind)
		d.Video = &res
		return d
	}
	d.Locked = true
	d.PosterURL = course.ImageURL
	if class.Authenticated {
		d.LockMessage = LockMessageAuthenticated
	} else {
		d.LockMessage = LockMessageGuest
	}
	return d
}

func affordance(class policy.Classification) Affordance {
	switch {
	case class.InstructorOwner:
		return AffordanceManageRoster
	case !class.Authenticated:
		return AffordanceLogin
	case class.EnrolledStudent:
		return AffordanceEnrolled
	case class.Student:
		return AffordanceEnroll
	default:
		return AffordanceNone
	}
}
