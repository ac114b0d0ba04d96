package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduquizhq/eduquiz-api/internal/models"
	appErrors "github.com/eduquizhq/eduquiz-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	existing *models.Enrollment
	listed   []models.EnrollmentDetail
	created  []*models.Enrollment
	deleted  []string
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.ID = "enrollment-1"
	m.created = append(m.created, enrollment)
	return nil
}

func (m *mockEnrollmentRepo) FindByStudentAndModule(ctx context.Context, studentID, moduleID string) (*models.Enrollment, error) {
	if m.existing == nil || m.existing.StudentID != studentID || m.existing.ModuleID != moduleID {
		return nil, sql.ErrNoRows
	}
	return m.existing, nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.listed, nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func TestEnrollSuccess(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	modules := &mockModuleReader{module: &models.CourseModule{ID: "module-1", TeacherID: "teacher-1"}}
	svc := NewEnrollmentService(repo, modules, nil, nil)

	enrollment, err := svc.Enroll(context.Background(), "student-1", EnrollRequest{ModuleID: "module-1"})
	require.NoError(t, err)
	assert.Equal(t, "student-1", enrollment.StudentID)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.Len(t, repo.created, 1)
}

func TestEnrollUnknownModule(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := NewEnrollmentService(repo, &mockModuleReader{}, nil, nil)

	_, err := svc.Enroll(context.Background(), "student-1", EnrollRequest{ModuleID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestEnrollTwiceConflicts(t *testing.T) {
	repo := &mockEnrollmentRepo{existing: &models.Enrollment{ID: "enrollment-1", StudentID: "student-1", ModuleID: "module-1"}}
	modules := &mockModuleReader{module: &models.CourseModule{ID: "module-1", TeacherID: "teacher-1"}}
	svc := NewEnrollmentService(repo, modules, nil, nil)

	_, err := svc.Enroll(context.Background(), "student-1", EnrollRequest{ModuleID: "module-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestEnrollmentCheck(t *testing.T) {
	repo := &mockEnrollmentRepo{existing: &models.Enrollment{ID: "enrollment-1", StudentID: "student-1", ModuleID: "module-1"}}
	svc := NewEnrollmentService(repo, &mockModuleReader{}, nil, nil)

	check, err := svc.Check(context.Background(), "student-1", "module-1")
	require.NoError(t, err)
	assert.True(t, check.IsEnrolled)
	require.NotNil(t, check.Enrollment)
	assert.Equal(t, "enrollment-1", check.Enrollment.ID)

	check, err = svc.Check(context.Background(), "student-2", "module-1")
	require.NoError(t, err)
	assert.False(t, check.IsEnrolled)
	assert.Nil(t, check.Enrollment)
}

func TestUnenroll(t *testing.T) {
	repo := &mockEnrollmentRepo{existing: &models.Enrollment{ID: "enrollment-1", StudentID: "student-1", ModuleID: "module-1"}}
	svc := NewEnrollmentService(repo, &mockModuleReader{}, nil, nil)

	require.NoError(t, svc.Unenroll(context.Background(), "student-1", "module-1"))
	assert.Equal(t, []string{"enrollment-1"}, repo.deleted)

	err := svc.Unenroll(context.Background(), "student-2", "module-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
