package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eduquizhq/eduquiz-api/internal/models"
)

// QuizRepository handles persistence of quizzes and their embedded questions.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs the repository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// Create inserts a new quiz.
func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	quiz.CreatedAt = now
	quiz.UpdatedAt = now

	const query = `INSERT INTO quizzes (id, title, description, module_id, questions, total_points, duration_minutes, created_by, created_at, updated_at)
		VALUES (:id, :title, :description, :module_id, :questions, :total_points, :duration_minutes, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, quiz); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

// FindByID returns a quiz by its ID, answer key included.
func (r *QuizRepository) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	const query = `SELECT id, title, description, module_id, questions, total_points, duration_minutes, created_by, created_at, updated_at FROM quizzes WHERE id = $1`
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, query, id); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// ListByModule returns the quizzes of a module, newest first.
func (r *QuizRepository) ListByModule(ctx context.Context, moduleID string) ([]models.Quiz, error) {
	const query = `SELECT id, title, description, module_id, questions, total_points, duration_minutes, created_by, created_at, updated_at FROM quizzes WHERE module_id = $1 ORDER BY created_at DESC`
	var quizzes []models.Quiz
	if err := r.db.SelectContext(ctx, &quizzes, query, moduleID); err != nil {
		return nil, fmt.Errorf("list module quizzes: %w", err)
	}
	return quizzes, nil
}

// Update replaces the mutable fields of a quiz, including its question set
// and the recomputed total.
func (r *QuizRepository) Update(ctx context.Context, quiz *models.Quiz) error {
	quiz.UpdatedAt = time.Now().UTC()
	const query = `UPDATE quizzes SET title = :title, description = :description, questions = :questions, total_points = :total_points, duration_minutes = :duration_minutes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, quiz); err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return nil
}

// Delete removes a quiz.
func (r *QuizRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM quizzes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}
