package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eduquizhq/eduquiz-api/internal/models"
)

// ModuleRepository handles persistence of course modules.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository constructs the repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// Create inserts a new module.
func (r *ModuleRepository) Create(ctx context.Context, module *models.CourseModule) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	module.CreatedAt = now
	module.UpdatedAt = now

	const query = `INSERT INTO modules (id, title, description, subject, teacher_id, created_at, updated_at)
		VALUES (:id, :title, :description, :subject, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("insert module: %w", err)
	}
	return nil
}

// FindByID returns a module by its ID.
func (r *ModuleRepository) FindByID(ctx context.Context, id string) (*models.CourseModule, error) {
	const query = `SELECT id, title, description, subject, teacher_id, created_at, updated_at FROM modules WHERE id = $1`
	var module models.CourseModule
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		return nil, err
	}
	return &module, nil
}

// FindDetailByID returns a module with teacher info.
func (r *ModuleRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseModuleDetail, error) {
	const query = `SELECT m.id, m.title, m.description, m.subject, m.teacher_id, m.created_at, m.updated_at,
		u.name AS teacher_name, u.email AS teacher_email
		FROM modules m
		LEFT JOIN users u ON u.id = m.teacher_id
		WHERE m.id = $1`
	var detail models.CourseModuleDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns all modules newest first.
func (r *ModuleRepository) List(ctx context.Context) ([]models.CourseModuleDetail, error) {
	const query = `SELECT m.id, m.title, m.description, m.subject, m.teacher_id, m.created_at, m.updated_at,
		u.name AS teacher_name, u.email AS teacher_email
		FROM modules m
		LEFT JOIN users u ON u.id = m.teacher_id
		ORDER BY m.created_at DESC`
	var modules []models.CourseModuleDetail
	if err := r.db.SelectContext(ctx, &modules, query); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// ListByTeacher returns the modules owned by a teacher, newest first.
func (r *ModuleRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseModule, error) {
	const query = `SELECT id, title, description, subject, teacher_id, created_at, updated_at FROM modules WHERE teacher_id = $1 ORDER BY created_at DESC`
	var modules []models.CourseModule
	if err := r.db.SelectContext(ctx, &modules, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher modules: %w", err)
	}
	return modules, nil
}

// Update replaces the mutable fields of a module.
func (r *ModuleRepository) Update(ctx context.Context, module *models.CourseModule) error {
	module.UpdatedAt = time.Now().UTC()
	const query = `UPDATE modules SET title = :title, description = :description, subject = :subject, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("update module: %w", err)
	}
	return nil
}

// Delete removes a module.
func (r *ModuleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM modules WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	return nil
}
