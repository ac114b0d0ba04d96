package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eduquizhq/eduquiz-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create inserts a new enrollment. The (student_id, module_id) pair is
// unique at the database level.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}

	const query = `INSERT INTO enrollments (id, student_id, module_id, status, enrolled_at)
		VALUES (:id, :student_id, :module_id, :status, :enrolled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// FindByStudentAndModule returns the enrollment for a (student, module) pair.
func (r *EnrollmentRepository) FindByStudentAndModule(ctx context.Context, studentID, moduleID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, module_id, status, enrolled_at FROM enrollments WHERE student_id = $1 AND module_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, moduleID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists reports whether a student holds an enrollment row in a module.
// Enrollment status is deliberately not consulted here.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, moduleID string) (bool, error) {
	if _, err := r.FindByStudentAndModule(ctx, studentID, moduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ListByStudent returns a student's enrollments with module info, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.module_id, e.status, e.enrolled_at,
		m.title AS module_title, m.subject AS module_subject, u.name AS teacher_name
		FROM enrollments e
		LEFT JOIN modules m ON m.id = e.module_id
		LEFT JOIN users u ON u.id = m.teacher_id
		WHERE e.student_id = $1
		ORDER BY e.enrolled_at DESC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// Delete removes an enrollment by ID.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}
