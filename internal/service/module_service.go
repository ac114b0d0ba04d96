package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eduquizhq/eduquiz-api/internal/models"
	appErrors "github.com/eduquizhq/eduquiz-api/pkg/errors"
)

type moduleRepo interface {
	Create(ctx context.Context, module *models.CourseModule) error
	FindByID(ctx context.Context, id string) (*models.CourseModule, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseModuleDetail, error)
	List(ctx context.Context) ([]models.CourseModuleDetail, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseModule, error)
	Update(ctx context.Context, module *models.CourseModule) error
	Delete(ctx context.Context, id string) error
}

// CreateModuleRequest carries a new module definition.
type CreateModuleRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Subject     string `json:"subject" validate:"required"`
}

// UpdateModuleRequest carries partial module updates.
type UpdateModuleRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Subject     *string `json:"subject"`
}

// ModuleService manages course modules.
type ModuleService struct {
	modules   moduleRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewModuleService constructs ModuleService.
func NewModuleService(modules moduleRepo, validate *validator.Validate, logger *zap.Logger) *ModuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleService{modules: modules, validator: validate, logger: logger}
}

// Create stores a new module owned by the calling teacher.
func (s *ModuleService) Create(ctx context.Context, teacherID string, req CreateModuleRequest) (*models.CourseModule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid module payload")
	}

	module := &models.CourseModule{
		Title:       req.Title,
		Description: req.Description,
		Subject:     req.Subject,
		TeacherID:   teacherID,
	}
	if err := s.modules.Create(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create module")
	}
	return module, nil
}

// List returns all modules for browsing.
func (s *ModuleService) List(ctx context.Context) ([]models.CourseModuleDetail, error) {
	modules, err := s.modules.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modules")
	}
	return modules, nil
}

// ListMine returns the modules owned by the calling teacher.
func (s *ModuleService) ListMine(ctx context.Context, teacherID string) ([]models.CourseModule, error) {
	modules, err := s.modules.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modules")
	}
	return modules, nil
}

// Get returns a module with teacher info.
func (s *ModuleService) Get(ctx context.Context, id string) (*models.CourseModuleDetail, error) {
	module, err := s.modules.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	return module, nil
}

// Update replaces provided fields on a module owned by the caller.
func (s *ModuleService) Update(ctx context.Context, id, teacherID string, req UpdateModuleRequest) (*models.CourseModule, error) {
	module, err := s.findOwned(ctx, id, teacherID, "not authorized to update this module")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		module.Title = *req.Title
	}
	if req.Description != nil {
		module.Description = *req.Description
	}
	if req.Subject != nil {
		module.Subject = *req.Subject
	}

	if err := s.modules.Update(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update module")
	}
	return module, nil
}

// Delete removes a module owned by the caller.
func (s *ModuleService) Delete(ctx context.Context, id, teacherID string) error {
	if _, err := s.findOwned(ctx, id, teacherID, "not authorized to delete this module"); err != nil {
		return err
	}
	if err := s.modules.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete module")
	}
	return nil
}

func (s *ModuleService) findOwned(ctx context.Context, id, teacherID, forbiddenMsg string) (*models.CourseModule, error) {
	module, err := s.modules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	if module.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, forbiddenMsg)
	}
	return module, nil
}
