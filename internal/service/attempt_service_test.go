package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduquizhq/eduquiz-api/internal/models"
	appErrors "github.com/eduquizhq/eduquiz-api/pkg/errors"
)

type mockAttemptRepo struct {
	attempts     map[string]*models.Attempt
	created      []*models.Attempt
	listed       []models.AttemptDetail
	lastFilter   models.AttemptFilter
	createErr    error
	submitErr    error
	submitDenied bool
	submitCalls  int
}

func (m *mockAttemptRepo) Create(ctx context.Context, attempt *models.Attempt) error {
	if m.createErr != nil {
		return m.createErr
	}
	attempt.ID = "attempt-1"
	m.created = append(m.created, attempt)
	if m.attempts == nil {
		m.attempts = make(map[string]*models.Attempt)
	}
	m.attempts[attempt.ID] = attempt
	return nil
}

func (m *mockAttemptRepo) FindByID(ctx context.Context, id string) (*models.Attempt, error) {
	attempt, ok := m.attempts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *attempt
	return &copied, nil
}

func (m *mockAttemptRepo) Submit(ctx context.Context, attempt *models.Attempt) (bool, error) {
	m.submitCalls++
	if m.submitErr != nil {
		return false, m.submitErr
	}
	if m.submitDenied {
		return false, nil
	}
	stored, ok := m.attempts[attempt.ID]
	if !ok || stored.Submitted() {
		return false, nil
	}
	*stored = *attempt
	return true, nil
}

func (m *mockAttemptRepo) List(ctx context.Context, filter models.AttemptFilter) ([]models.AttemptDetail, error) {
	m.lastFilter = filter
	return m.listed, nil
}

type mockQuizReader struct {
	quiz *models.Quiz
	err  error
}

func (m *mockQuizReader) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.quiz == nil || m.quiz.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.quiz, nil
}

type mockEnrollmentChecker struct {
	enrolled bool
	err      error
}

func (m *mockEnrollmentChecker) Exists(ctx context.Context, studentID, moduleID string) (bool, error) {
	return m.enrolled, m.err
}

func attemptTestQuiz() *models.Quiz {
	return &models.Quiz{
		ID:       "quiz-1",
		ModuleID: "module-1",
		Title:    "Fractions",
		Questions: models.QuestionList{
			{ID: "q1", Type: models.QuestionTypeSingle, Options: []string{"a", "b"}, CorrectAnswers: []int{0}, Points: 6},
			{ID: "q2", Type: models.QuestionTypeMultiple, Options: []string{"a", "b", "c"}, CorrectAnswers: []int{0, 2}, Points: 4},
		},
		TotalPoints: 10,
	}
}

func newAttemptServiceForTest(repo *mockAttemptRepo, quizzes *mockQuizReader, enrollments *mockEnrollmentChecker) *AttemptService {
	return NewAttemptService(repo, quizzes, enrollments, nil, nil)
}

func TestStartAttemptSuccess(t *testing.T) {
	repo := &mockAttemptRepo{}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: true})
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return started }

	res, err := svc.Start(context.Background(), "student-1", StartAttemptRequest{QuizID: "quiz-1"})
	require.NoError(t, err)
	assert.Equal(t, "attempt-1", res.AttemptID)
	assert.Equal(t, started, res.StartedAt)

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.Equal(t, "student-1", created.StudentID)
	assert.Equal(t, "module-1", created.ModuleID)
	assert.Equal(t, 10, created.TotalPoints)
	assert.Nil(t, created.SubmittedAt)
}

func TestStartAttemptQuizNotFound(t *testing.T) {
	repo := &mockAttemptRepo{}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{}, &mockEnrollmentChecker{enrolled: true})

	_, err := svc.Start(context.Background(), "student-1", StartAttemptRequest{QuizID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestStartAttemptNotEnrolled(t *testing.T) {
	repo := &mockAttemptRepo{}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: false})

	_, err := svc.Start(context.Background(), "student-1", StartAttemptRequest{QuizID: "quiz-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestStartAttemptAllowsRepeatedAttempts(t *testing.T) {
	repo := &mockAttemptRepo{}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: true})

	_, err := svc.Start(context.Background(), "student-1", StartAttemptRequest{QuizID: "quiz-1"})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), "student-1", StartAttemptRequest{QuizID: "quiz-1"})
	require.NoError(t, err)
	assert.Len(t, repo.created, 2)
}

func TestSubmitAttemptGradesAndFinalizes(t *testing.T) {
	repo := &mockAttemptRepo{}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: true})
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return started }

	startRes, err := svc.Start(context.Background(), "student-1", StartAttemptRequest{QuizID: "quiz-1"})
	require.NoError(t, err)

	// 2m5.9s elapsed: the stored duration truncates to whole seconds.
	svc.now = func() time.Time { return started.Add(125*time.Second + 900*time.Millisecond) }

	res, err := svc.Submit(context.Background(), startRes.AttemptID, "student-1", SubmitAttemptRequest{
		Answers: []models.SubmittedAnswer{
			{QuestionID: "q1", SelectedAnswers: []int{0}},
			{QuestionID: "q2", SelectedAnswers: []int{2, 0}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Score)
	assert.Equal(t, 10, res.TotalPoints)
	assert.InDelta(t, 100.0, res.Percentage, 1e-9)

	stored := repo.attempts[startRes.AttemptID]
	require.NotNil(t, stored.SubmittedAt)
	require.NotNil(t, stored.TimeTakenSec)
	assert.Equal(t, int64(125), *stored.TimeTakenSec)
	assert.Len(t, stored.Answers, 2)
}

func TestSubmitAttemptNotOwner(t *testing.T) {
	repo := &mockAttemptRepo{}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: true})

	startRes, err := svc.Start(context.Background(), "student-1", StartAttemptRequest{QuizID: "quiz-1"})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), startRes.AttemptID, "student-2", SubmitAttemptRequest{
		Answers: []models.SubmittedAnswer{{QuestionID: "q1", SelectedAnswers: []int{0}}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubmitAttemptTwiceConflicts(t *testing.T) {
	repo := &mockAttemptRepo{}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: true})

	startRes, err := svc.Start(context.Background(), "student-1", StartAttemptRequest{QuizID: "quiz-1"})
	require.NoError(t, err)

	answers := SubmitAttemptRequest{Answers: []models.SubmittedAnswer{{QuestionID: "q1", SelectedAnswers: []int{0}}}}
	first, err := svc.Submit(context.Background(), startRes.AttemptID, "student-1", answers)
	require.NoError(t, err)
	assert.Equal(t, 6, first.Score)

	_, err = svc.Submit(context.Background(), startRes.AttemptID, "student-1", answers)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// The stored result is untouched by the rejected second call.
	stored := repo.attempts[startRes.AttemptID]
	assert.Equal(t, 6, stored.Score)
	assert.Equal(t, 1, repo.submitCalls)
}

func TestSubmitAttemptLosesConcurrentRace(t *testing.T) {
	// The guarded update reports zero affected rows when another submission
	// landed between the read and the write.
	repo := &mockAttemptRepo{submitDenied: true}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: true})

	startRes, err := svc.Start(context.Background(), "student-1", StartAttemptRequest{QuizID: "quiz-1"})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), startRes.AttemptID, "student-1", SubmitAttemptRequest{
		Answers: []models.SubmittedAnswer{{QuestionID: "q1", SelectedAnswers: []int{0}}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubmitAttemptUsesSnapshotTotalPoints(t *testing.T) {
	quiz := attemptTestQuiz()
	repo := &mockAttemptRepo{}
	reader := &mockQuizReader{quiz: quiz}
	svc := newAttemptServiceForTest(repo, reader, &mockEnrollmentChecker{enrolled: true})

	startRes, err := svc.Start(context.Background(), "student-1", StartAttemptRequest{QuizID: "quiz-1"})
	require.NoError(t, err)

	// The quiz gains a question after the attempt started. Percentage is
	// still computed against the snapshot taken at start.
	quiz.Questions = append(quiz.Questions, models.Question{ID: "q3", Type: models.QuestionTypeSingle, Options: []string{"a", "b"}, CorrectAnswers: []int{1}, Points: 10})
	quiz.TotalPoints = 20

	res, err := svc.Submit(context.Background(), startRes.AttemptID, "student-1", SubmitAttemptRequest{
		Answers: []models.SubmittedAnswer{{QuestionID: "q1", SelectedAnswers: []int{0}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.TotalPoints)
	assert.InDelta(t, 60.0, res.Percentage, 1e-9)
}

func TestSubmitAttemptEmptyAnswersRejected(t *testing.T) {
	repo := &mockAttemptRepo{}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: true})

	_, err := svc.Submit(context.Background(), "attempt-1", "student-1", SubmitAttemptRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGetAttemptOwnershipGate(t *testing.T) {
	repo := &mockAttemptRepo{}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: true})

	startRes, err := svc.Start(context.Background(), "student-1", StartAttemptRequest{QuizID: "quiz-1"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), startRes.AttemptID, "student-2", models.RoleStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	attempt, err := svc.Get(context.Background(), startRes.AttemptID, "student-1", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "student-1", attempt.StudentID)

	attempt, err = svc.Get(context.Background(), startRes.AttemptID, "teacher-9", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, "student-1", attempt.StudentID)
}

func TestListFiltersCarrySubmittedOnly(t *testing.T) {
	repo := &mockAttemptRepo{}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: true})

	_, err := svc.ListMineByQuiz(context.Background(), "student-1", "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptFilter{StudentID: "student-1", QuizID: "quiz-1"}, repo.lastFilter)

	_, err = svc.ListSubmittedByModule(context.Background(), "module-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptFilter{ModuleID: "module-1", SubmittedOnly: true}, repo.lastFilter)
}

func TestExportResultsCSV(t *testing.T) {
	submittedAt := time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC)
	timeTaken := int64(300)
	repo := &mockAttemptRepo{listed: []models.AttemptDetail{
		{
			Attempt: models.Attempt{
				ID: "a1", StudentID: "student-1", QuizID: "quiz-1", ModuleID: "module-1",
				Score: 6, TotalPoints: 10, Percentage: 60,
				SubmittedAt: &submittedAt, TimeTakenSec: &timeTaken,
			},
			QuizTitle:    "Fractions",
			StudentName:  "Ada",
			StudentEmail: "ada@example.com",
		},
	}}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: true})

	out, err := svc.ExportResults(context.Background(), "quiz-1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "quiz-quiz-1-results.csv", out.Filename)
	assert.Equal(t, "text/csv", out.ContentType)
	assert.Contains(t, string(out.Content), "Ada")
	assert.Contains(t, string(out.Content), "60.00")
	assert.True(t, repo.lastFilter.SubmittedOnly)
}

func TestExportResultsUnsupportedFormat(t *testing.T) {
	repo := &mockAttemptRepo{}
	svc := newAttemptServiceForTest(repo, &mockQuizReader{quiz: attemptTestQuiz()}, &mockEnrollmentChecker{enrolled: true})

	_, err := svc.ExportResults(context.Background(), "quiz-1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
