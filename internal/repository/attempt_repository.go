package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eduquizhq/eduquiz-api/internal/models"
)

// AttemptRepository handles persistence of quiz attempts.
type AttemptRepository struct {
	db *sqlx.DB
}

// NewAttemptRepository constructs the repository.
func NewAttemptRepository(db *sqlx.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create inserts a new in-progress attempt.
func (r *AttemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = time.Now().UTC()
	}
	if attempt.Answers == nil {
		attempt.Answers = models.AnswerList{}
	}

	const query = `INSERT INTO attempts (id, student_id, quiz_id, module_id, answers, score, total_points, percentage, started_at)
		VALUES (:id, :student_id, :quiz_id, :module_id, :answers, :score, :total_points, :percentage, :started_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attempt); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// FindByID returns an attempt by its ID.
func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*models.Attempt, error) {
	const query = `SELECT id, student_id, quiz_id, module_id, answers, score, total_points, percentage, started_at, submitted_at, time_taken_sec FROM attempts WHERE id = $1`
	var attempt models.Attempt
	if err := r.db.GetContext(ctx, &attempt, query, id); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Submit atomically records the graded outcome of an attempt. The guard on
// submitted_at makes concurrent submissions race for a single winner: the
// loser matches zero rows and the update reports submitted=false.
func (r *AttemptRepository) Submit(ctx context.Context, attempt *models.Attempt) (bool, error) {
	const query = `UPDATE attempts
		SET answers = $2, score = $3, percentage = $4, submitted_at = $5, time_taken_sec = $6
		WHERE id = $1 AND submitted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		attempt.ID, attempt.Answers, attempt.Score, attempt.Percentage, attempt.SubmittedAt, attempt.TimeTakenSec)
	if err != nil {
		return false, fmt.Errorf("submit attempt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("submit attempt rows: %w", err)
	}
	return affected == 1, nil
}

// List returns attempts with quiz and student info matching the filter.
// Submitted-only listings order by submission time, others by creation.
func (r *AttemptRepository) List(ctx context.Context, filter models.AttemptFilter) ([]models.AttemptDetail, error) {
	base := `SELECT a.id, a.student_id, a.quiz_id, a.module_id, a.answers, a.score, a.total_points, a.percentage, a.started_at, a.submitted_at, a.time_taken_sec,
		q.title AS quiz_title, u.name AS student_name, u.email AS student_email
		FROM attempts a
		LEFT JOIN quizzes q ON q.id = a.quiz_id
		LEFT JOIN users u ON u.id = a.student_id`

	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.QuizID != "" {
		conditions = append(conditions, fmt.Sprintf("a.quiz_id = $%d", len(args)+1))
		args = append(args, filter.QuizID)
	}
	if filter.ModuleID != "" {
		conditions = append(conditions, fmt.Sprintf("a.module_id = $%d", len(args)+1))
		args = append(args, filter.ModuleID)
	}
	if filter.SubmittedOnly {
		conditions = append(conditions, "a.submitted_at IS NOT NULL")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := " ORDER BY a.started_at DESC"
	if filter.SubmittedOnly {
		order = " ORDER BY a.submitted_at DESC"
	}

	var attempts []models.AttemptDetail
	if err := r.db.SelectContext(ctx, &attempts, base+clause+order, args...); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}
