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

type enrollmentRepo interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByStudentAndModule(ctx context.Context, studentID, moduleID string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Delete(ctx context.Context, id string) error
}

// EnrollRequest enrolls the calling student into a module.
type EnrollRequest struct {
	ModuleID string `json:"module_id" validate:"required"`
}

// EnrollmentCheck reports membership for a (student, module) pair.
type EnrollmentCheck struct {
	IsEnrolled bool               `json:"is_enrolled"`
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
}

// EnrollmentService manages course membership.
type EnrollmentService struct {
	enrollments enrollmentRepo
	modules     moduleReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(enrollments enrollmentRepo, modules moduleReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{enrollments: enrollments, modules: modules, validator: validate, logger: logger}
}

// Enroll registers the student in a module. A student has at most one
// enrollment per module; re-enrolling is a conflict.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID string, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "module id is required")
	}

	if _, err := s.modules.FindByID(ctx, req.ModuleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}

	if _, err := s.enrollments.FindByStudentAndModule(ctx, studentID, req.ModuleID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this module")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	enrollment := &models.Enrollment{
		StudentID: studentID,
		ModuleID:  req.ModuleID,
		Status:    models.EnrollmentStatusActive,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// MyCourses returns the student's enrollments, newest first.
func (s *EnrollmentService) MyCourses(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// Check reports whether the student is enrolled in a module.
func (s *EnrollmentService) Check(ctx context.Context, studentID, moduleID string) (*EnrollmentCheck, error) {
	enrollment, err := s.enrollments.FindByStudentAndModule(ctx, studentID, moduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &EnrollmentCheck{IsEnrolled: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	return &EnrollmentCheck{IsEnrolled: true, Enrollment: enrollment}, nil
}

// Unenroll removes the student's enrollment in a module.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, moduleID string) error {
	enrollment, err := s.enrollments.FindByStudentAndModule(ctx, studentID, moduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.enrollments.Delete(ctx, enrollment.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	return nil
}
