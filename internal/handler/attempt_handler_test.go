package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduquizhq/eduquiz-api/internal/middleware"
	"github.com/eduquizhq/eduquiz-api/internal/models"
	"github.com/eduquizhq/eduquiz-api/internal/service"
)

type fakeAttemptRepo struct {
	attempts map[string]*models.Attempt
}

func (f *fakeAttemptRepo) Create(ctx context.Context, attempt *models.Attempt) error {
	attempt.ID = "attempt-1"
	if f.attempts == nil {
		f.attempts = make(map[string]*models.Attempt)
	}
	f.attempts[attempt.ID] = attempt
	return nil
}

func (f *fakeAttemptRepo) FindByID(ctx context.Context, id string) (*models.Attempt, error) {
	attempt, ok := f.attempts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *attempt
	return &copied, nil
}

func (f *fakeAttemptRepo) Submit(ctx context.Context, attempt *models.Attempt) (bool, error) {
	stored, ok := f.attempts[attempt.ID]
	if !ok || stored.Submitted() {
		return false, nil
	}
	*stored = *attempt
	return true, nil
}

func (f *fakeAttemptRepo) List(ctx context.Context, filter models.AttemptFilter) ([]models.AttemptDetail, error) {
	return nil, nil
}

type fakeQuizReader struct {
	quiz *models.Quiz
}

func (f *fakeQuizReader) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	if f.quiz == nil || f.quiz.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.quiz, nil
}

type fakeEnrollmentChecker struct {
	enrolled bool
}

func (f *fakeEnrollmentChecker) Exists(ctx context.Context, studentID, moduleID string) (bool, error) {
	return f.enrolled, nil
}

type attemptEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func handlerTestQuiz() *models.Quiz {
	return &models.Quiz{
		ID:       "quiz-1",
		ModuleID: "module-1",
		Title:    "Fractions",
		Questions: models.QuestionList{
			{ID: "q1", Type: models.QuestionTypeSingle, Options: []string{"1", "2"}, CorrectAnswers: []int{0}, Points: 10},
		},
		TotalPoints: 10,
	}
}

func newAttemptHandlerForTest(repo *fakeAttemptRepo, enrolled bool) *AttemptHandler {
	svc := service.NewAttemptService(repo, &fakeQuizReader{quiz: handlerTestQuiz()}, &fakeEnrollmentChecker{enrolled: enrolled}, nil, nil)
	return NewAttemptHandler(svc)
}

func studentContext(rec *httptest.ResponseRecorder, method, target, body string) (*gin.Context, *gin.Engine) {
	c, engine := gin.CreateTestContext(rec)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	return c, engine
}

func TestAttemptHandlerStart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeAttemptRepo{}
	handler := newAttemptHandlerForTest(repo, true)

	rec := httptest.NewRecorder()
	c, _ := studentContext(rec, http.MethodPost, "/attempts/start", `{"quiz_id":"quiz-1"}`)

	handler.Start(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope attemptEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "attempt-1", envelope.Data["attempt_id"])
}

func TestAttemptHandlerStartNotEnrolled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAttemptHandlerForTest(&fakeAttemptRepo{}, false)

	rec := httptest.NewRecorder()
	c, _ := studentContext(rec, http.MethodPost, "/attempts/start", `{"quiz_id":"quiz-1"}`)

	handler.Start(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAttemptHandlerStartMissingAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAttemptHandlerForTest(&fakeAttemptRepo{}, true)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attempts/start", strings.NewReader(`{"quiz_id":"quiz-1"}`))

	handler.Start(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAttemptHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	started := time.Now().UTC().Add(-2 * time.Minute)
	repo := &fakeAttemptRepo{attempts: map[string]*models.Attempt{
		"attempt-1": {ID: "attempt-1", StudentID: "student-1", QuizID: "quiz-1", ModuleID: "module-1", TotalPoints: 10, StartedAt: started},
	}}
	handler := newAttemptHandlerForTest(repo, true)

	rec := httptest.NewRecorder()
	c, _ := studentContext(rec, http.MethodPost, "/attempts/attempt-1/submit", `{"answers":[{"question_id":"q1","selected_answers":[0]}]}`)
	c.Params = gin.Params{{Key: "id", Value: "attempt-1"}}

	handler.Submit(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope attemptEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(10), envelope.Data["score"])
	assert.Equal(t, float64(100), envelope.Data["percentage"])
}

func TestAttemptHandlerSubmitTwiceConflicts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	submittedAt := time.Now().UTC()
	repo := &fakeAttemptRepo{attempts: map[string]*models.Attempt{
		"attempt-1": {ID: "attempt-1", StudentID: "student-1", QuizID: "quiz-1", TotalPoints: 10, StartedAt: submittedAt.Add(-time.Minute), SubmittedAt: &submittedAt},
	}}
	handler := newAttemptHandlerForTest(repo, true)

	rec := httptest.NewRecorder()
	c, _ := studentContext(rec, http.MethodPost, "/attempts/attempt-1/submit", `{"answers":[{"question_id":"q1","selected_answers":[0]}]}`)
	c.Params = gin.Params{{Key: "id", Value: "attempt-1"}}

	handler.Submit(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope attemptEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICT", envelope.Error.Code)
}

func TestAttemptHandlerSubmitMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAttemptHandlerForTest(&fakeAttemptRepo{}, true)

	rec := httptest.NewRecorder()
	c, _ := studentContext(rec, http.MethodPost, "/attempts/attempt-1/submit", `{"answers":`)
	c.Params = gin.Params{{Key: "id", Value: "attempt-1"}}

	handler.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttemptHandlerGetForeignAttempt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeAttemptRepo{attempts: map[string]*models.Attempt{
		"attempt-1": {ID: "attempt-1", StudentID: "student-2", QuizID: "quiz-1"},
	}}
	handler := newAttemptHandlerForTest(repo, true)

	rec := httptest.NewRecorder()
	c, _ := studentContext(rec, http.MethodGet, "/attempts/attempt-1", "")
	c.Params = gin.Params{{Key: "id", Value: "attempt-1"}}

	handler.Get(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
