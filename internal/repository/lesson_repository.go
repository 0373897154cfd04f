package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learnify-api/internal/models"
)

// LessonRepository reads lessons of a course.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

type lessonRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	VideoURL  string    `db:"video_url"`
	VideoKind string    `db:"video_kind"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
}

func (r lessonRow) toModel() models.Lesson {
	return models.Lesson{
		ID:        r.ID,
		CourseID:  r.CourseID,
		Title:     r.Title,
		Content:   r.Content,
		Video:     models.Video{URL: r.VideoURL, Kind: models.VideoKind(r.VideoKind)},
		Position:  r.Position,
		CreatedAt: r.CreatedAt,
	}
}

const selectLesson = `SELECT id, course_id, title, COALESCE(content, '') AS content,
        COALESCE(video_url, '') AS video_url, video_kind, position, created_at FROM lessons`

// ListByCourse returns the lessons of a course in display order.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	query := selectLesson + ` WHERE course_id = $1 ORDER BY position ASC, created_at ASC`
	var rows []lessonRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	lessons := make([]models.Lesson, len(rows))
	for i, row := range rows {
		lessons[i] = row.toModel()
	}
	return lessons, nil
}

// FindByID returns a lesson by identifier. sql.ErrNoRows is returned as is.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := selectLesson + ` WHERE id = $1 LIMIT 1`
	var row lessonRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson by id: %w", err)
	}
	lesson := row.toModel()
	return &lesson, nil
}
