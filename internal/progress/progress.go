// Package progress derives lesson completion figures.
package progress

import (
	"math"

	"github.com/noah-isme/learnify-api/internal/models"
)

// Summary is the completion state of a lesson collection. Percent is exact;
// round only for display.
type Summary struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// Rounded returns the display percentage.
func (s Summary) Rounded() int {
	return int(math.Round(s.Percent))
}

// Compute counts completed lessons.
func Compute(lessons []models.LessonView) Summary {
	completed := 0
	for _, l := range lessons {
		if l.Completed {
			completed++
		}
	}
	s, _ := FromCounts(completed, len(lessons))
	return s
}

// FromCounts builds a summary from aggregate counts, as produced by roster
// queries. Counts outside [0,total] are clamped and reported as an anomaly.
func FromCounts(completed, total int) (Summary, bool) {
	anomaly := false
	if total < 0 {
		total, anomaly = 0, true
	}
	if completed < 0 {
		completed, anomaly = 0, true
	}
	if completed > total {
		completed, anomaly = total, true
	}

	s := Summary{Completed: completed, Total: total}
	if total > 0 {
		s.Percent = 100 * float64(completed) / float64(total)
	}
	return s, anomaly
}

// MarkComplete returns a copy of lessons with lessonID completed. Unknown ids
// and lessons already complete leave the copy equal to the input.
func MarkComplete(lessons []models.LessonView, lessonID string) []models.LessonView {
	out := make([]models.LessonView, len(lessons))
	copy(out, lessons)
	for i := range out {
		if out[i].ID == lessonID {
			out[i].Completed = true
		}
	}
	return out
}
