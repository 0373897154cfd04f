package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/learnify-api/internal/models"
)

// CompletionRepository stores lesson completions per student.
type CompletionRepository struct {
	db *sqlx.DB
}

// NewCompletionRepository constructs the repository.
func NewCompletionRepository(db *sqlx.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// CompletedLessonIDs returns which of lessonIDs studentID has completed.
func (r *CompletionRepository) CompletedLessonIDs(ctx context.Context, studentID string, lessonIDs []string) (map[string]bool, error) {
	done := make(map[string]bool, len(lessonIDs))
	if len(lessonIDs) == 0 {
		return done, nil
	}
	const query = `SELECT lesson_id FROM lesson_completions WHERE student_id = $1 AND lesson_id = ANY($2)`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID, pq.Array(lessonIDs)); err != nil {
		return nil, fmt.Errorf("list completed lessons: %w", err)
	}
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}

// Create records a completion. Recording the same lesson twice is a no-op.
func (r *CompletionRepository) Create(ctx context.Context, completion *models.LessonCompletion) error {
	if completion.ID == "" {
		completion.ID = uuid.NewString()
	}
	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lesson_completions (id, lesson_id, student_id, completed_at)
        VALUES (:id, :lesson_id, :student_id, :completed_at)
        ON CONFLICT (lesson_id, student_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, completion); err != nil {
		return fmt.Errorf("create lesson completion: %w", err)
	}
	return nil
}
