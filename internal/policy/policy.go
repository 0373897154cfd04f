// Package policy decides what a viewer may do with a course.
package policy

import "github.com/noah-isme/learnify-api/internal/models"

// CapabilitySet is derived per evaluation and never persisted.
type CapabilitySet struct {
	CanViewContent  bool `json:"can_view_content"`
	CanEnroll       bool `json:"can_enroll"`
	CanMarkComplete bool `json:"can_mark_complete"`
	CanManageRoster bool `json:"can_manage_roster"`
}

// None reports whether no capability is granted.
func (c CapabilitySet) None() bool {
	return c == CapabilitySet{}
}

// Classification names the viewer relationship to a course.
type Classification struct {
	Authenticated   bool
	InstructorOwner bool
	EnrolledStudent bool
	Student         bool
}

// Classify derives the viewer relationship. A nil viewer is a guest.
func Classify(viewer *models.Viewer, view models.CourseView) Classification {
	if !viewer.Authenticated() {
		return Classification{}
	}
	student := viewer.Is(models.RoleStudent)
	return Classification{
		Authenticated:   true,
		InstructorOwner: viewer.Is(models.RoleInstructor) && viewer.ID == view.Instructor.ID,
		EnrolledStudent: student && view.Enrolled,
		Student:         student,
	}
}

// Evaluate returns the capabilities of viewer on view. It is total: guests,
// admins and instructors viewing someone else's course all get nothing.
// An inactive course grants nothing to anyone but its owner.
func Evaluate(viewer *models.Viewer, view models.CourseView) CapabilitySet {
	class := Classify(viewer, view)

	var caps CapabilitySet
	switch {
	case class.InstructorOwner:
		caps.CanViewContent = true
		caps.CanManageRoster = true
	case class.EnrolledStudent:
		caps.CanViewContent = true
		caps.CanMarkComplete = true
	case class.Student:
		caps.CanEnroll = true
	}

	if !view.Active && !class.InstructorOwner {
		return CapabilitySet{}
	}
	return caps
}
