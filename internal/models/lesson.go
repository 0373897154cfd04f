package models

import "time"

// VideoKind declares how a lesson video reference is played.
type VideoKind string

const (
	// VideoKindLink is a third-party player link that needs rewriting to an embed URL.
	VideoKindLink VideoKind = "link"
	// VideoKindFile is a media file played directly.
	VideoKindFile VideoKind = "file"
)

// Video is the stored reference of a lesson video.
type Video struct {
	URL  string    `json:"url"`
	Kind VideoKind `json:"kind"`
}

// Lesson belongs to exactly one course. Position is the server ordering;
// display numbers derive from the slice index.
type Lesson struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	Video     Video     `db:"-" json:"video"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LessonView joins a lesson with the completion flag of one viewer.
type LessonView struct {
	Lesson
	Completed bool `json:"completed"`
}

// LessonCompletion records that a student finished a lesson.
type LessonCompletion struct {
	ID          string    `db:"id" json:"id"`
	LessonID    string    `db:"lesson_id" json:"lesson_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}
