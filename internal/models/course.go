package models

import "time"

// InstructorRef identifies the owning instructor of a course.
type InstructorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Course holds course-intrinsic data only. It is safe to share and cache
// across viewers.
type Course struct {
	ID          string        `db:"id" json:"id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	Instructor  InstructorRef `db:"-" json:"instructor"`
	Active      bool          `db:"active" json:"active"`
	ImageURL    string        `db:"image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// CourseView joins a course with the enrollment flag of one viewer.
type CourseView struct {
	Course
	Enrolled bool `json:"enrolled"`
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RosterEntry is an enrolled student as seen by the course owner.
type RosterEntry struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
	Completed  int       `db:"completed" json:"completed"`
	Total      int       `db:"total" json:"total"`
	Percent    float64   `db:"-" json:"percent"`
}

// RosterFilter captures paging for roster listings.
type RosterFilter struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}
