package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learnify-api/internal/models"
)

// CourseRepository reads course catalog entries.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

type courseRow struct {
	ID             string    `db:"id"`
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	InstructorID   string    `db:"instructor_id"`
	InstructorName string    `db:"instructor_name"`
	Active         bool      `db:"active"`
	ImageURL       string    `db:"image_url"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r courseRow) toModel() models.Course {
	return models.Course{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Instructor:  models.InstructorRef{ID: r.InstructorID, Name: r.InstructorName},
		Active:      r.Active,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const selectCourse = `SELECT c.id, c.title, c.description, c.instructor_id, u.full_name AS instructor_name,
        c.active, COALESCE(c.image_url, '') AS image_url, c.created_at, c.updated_at
        FROM courses c
        JOIN users u ON u.id = c.instructor_id`

// FindByID returns a course by identifier. sql.ErrNoRows is returned as is.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := selectCourse + ` WHERE c.id = $1 LIMIT 1`
	var row courseRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	course := row.toModel()
	return &course, nil
}
