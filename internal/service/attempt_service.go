package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eduquizhq/eduquiz-api/internal/models"
	appErrors "github.com/eduquizhq/eduquiz-api/pkg/errors"
	"github.com/eduquizhq/eduquiz-api/pkg/export"
)

type attemptRepo interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	FindByID(ctx context.Context, id string) (*models.Attempt, error)
	Submit(ctx context.Context, attempt *models.Attempt) (bool, error)
	List(ctx context.Context, filter models.AttemptFilter) ([]models.AttemptDetail, error)
}

type quizReader interface {
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
}

type enrollmentChecker interface {
	Exists(ctx context.Context, studentID, moduleID string) (bool, error)
}

// StartAttemptRequest opens a new attempt at a quiz.
type StartAttemptRequest struct {
	QuizID string `json:"quiz_id" validate:"required"`
}

// StartAttemptResponse identifies the freshly created attempt.
type StartAttemptResponse struct {
	AttemptID string    `json:"attempt_id"`
	StartedAt time.Time `json:"started_at"`
}

// SubmitAttemptRequest carries the raw answers for grading.
type SubmitAttemptRequest struct {
	Answers []models.SubmittedAnswer `json:"answers" validate:"required,min=1,dive"`
}

// SubmitAttemptResponse summarises the graded outcome.
type SubmitAttemptResponse struct {
	Score       int               `json:"score"`
	TotalPoints int               `json:"total_points"`
	Percentage  float64           `json:"percentage"`
	Answers     models.AnswerList `json:"answers"`
}

// ExportFormat selects the rendering for result exports.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ResultsExport bundles a rendered result table for download.
type ResultsExport struct {
	Filename    string
	ContentType string
	Content     []byte
}

// AttemptService orchestrates the attempt lifecycle: start, submission
// grading and authorization-gated retrieval.
type AttemptService struct {
	attempts    attemptRepo
	quizzes     quizReader
	enrollments enrollmentChecker
	validator   *validator.Validate
	logger      *zap.Logger
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	now         func() time.Time
}

// NewAttemptService constructs AttemptService.
func NewAttemptService(attempts attemptRepo, quizzes quizReader, enrollments enrollmentChecker, validate *validator.Validate, logger *zap.Logger) *AttemptService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttemptService{
		attempts:    attempts,
		quizzes:     quizzes,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start creates a new attempt for the student. The quiz must exist and the
// student must hold an enrollment row in the quiz's module. The attempt
// snapshots the quiz's total points; later quiz edits do not affect it.
// Nothing prevents several in-progress attempts per (student, quiz): each
// call creates a fresh record.
func (s *AttemptService) Start(ctx context.Context, studentID string, req StartAttemptRequest) (*StartAttemptResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "quiz id is required")
	}

	quiz, err := s.quizzes.FindByID(ctx, req.QuizID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}

	// Existence of the row is the gate; a dropped enrollment still passes.
	enrolled, err := s.enrollments.Exists(ctx, studentID, quiz.ModuleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you must be enrolled in this module to attempt the quiz")
	}

	attempt := &models.Attempt{
		StudentID:   studentID,
		QuizID:      quiz.ID,
		ModuleID:    quiz.ModuleID,
		Answers:     models.AnswerList{},
		TotalPoints: quiz.TotalPoints,
		StartedAt:   s.now(),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attempt")
	}

	return &StartAttemptResponse{AttemptID: attempt.ID, StartedAt: attempt.StartedAt}, nil
}

// Submit grades the raw answers against the attempt's quiz and finalizes
// the attempt. The full mutation (answers, score, percentage, submission
// time, time taken) commits atomically or not at all; a second submission
// of the same attempt fails with a conflict whether it arrives after or
// concurrently with the first.
func (s *AttemptService) Submit(ctx context.Context, attemptID, callerID string, req SubmitAttemptRequest) (*SubmitAttemptResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "answers payload is required")
	}

	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt")
	}
	if attempt.StudentID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized")
	}
	if attempt.Submitted() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "quiz already submitted")
	}

	quiz, err := s.quizzes.FindByID(ctx, attempt.QuizID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}

	graded := gradeAnswers(quiz.Questions, req.Answers)
	submittedAt := s.now()
	timeTaken := int64(submittedAt.Sub(attempt.StartedAt) / time.Second)

	attempt.Answers = graded
	attempt.Score = sumPoints(graded)
	attempt.Percentage = percentage(attempt.Score, attempt.TotalPoints)
	attempt.SubmittedAt = &submittedAt
	attempt.TimeTakenSec = &timeTaken

	submitted, err := s.attempts.Submit(ctx, attempt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist submission")
	}
	if !submitted {
		// Lost a concurrent submission race.
		return nil, appErrors.Clone(appErrors.ErrConflict, "quiz already submitted")
	}

	return &SubmitAttemptResponse{
		Score:       attempt.Score,
		TotalPoints: attempt.TotalPoints,
		Percentage:  attempt.Percentage,
		Answers:     graded,
	}, nil
}

// Get returns the full attempt. Students may only read their own attempts;
// teachers may read any.
func (s *AttemptService) Get(ctx context.Context, attemptID string, callerID string, callerRole models.UserRole) (*models.Attempt, error) {
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt")
	}
	if callerRole == models.RoleStudent && attempt.StudentID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized")
	}
	return attempt, nil
}

// ListMineByQuiz returns the caller's attempts at a quiz, newest first.
func (s *AttemptService) ListMineByQuiz(ctx context.Context, studentID, quizID string) ([]models.AttemptDetail, error) {
	return s.list(ctx, models.AttemptFilter{StudentID: studentID, QuizID: quizID})
}

// ListMineByModule returns the caller's attempts within a module, newest first.
func (s *AttemptService) ListMineByModule(ctx context.Context, studentID, moduleID string) ([]models.AttemptDetail, error) {
	return s.list(ctx, models.AttemptFilter{StudentID: studentID, ModuleID: moduleID})
}

// ListSubmittedByQuiz returns all submitted attempts at a quiz for teachers.
func (s *AttemptService) ListSubmittedByQuiz(ctx context.Context, quizID string) ([]models.AttemptDetail, error) {
	return s.list(ctx, models.AttemptFilter{QuizID: quizID, SubmittedOnly: true})
}

// ListSubmittedByModule returns all submitted attempts in a module for teachers.
func (s *AttemptService) ListSubmittedByModule(ctx context.Context, moduleID string) ([]models.AttemptDetail, error) {
	return s.list(ctx, models.AttemptFilter{ModuleID: moduleID, SubmittedOnly: true})
}

func (s *AttemptService) list(ctx context.Context, filter models.AttemptFilter) ([]models.AttemptDetail, error) {
	attempts, err := s.attempts.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attempts")
	}
	return attempts, nil
}

// ExportResults renders the submitted attempts of a quiz as a downloadable
// CSV or PDF table.
func (s *AttemptService) ExportResults(ctx context.Context, quizID string, format ExportFormat) (*ResultsExport, error) {
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}

	attempts, err := s.attempts.List(ctx, models.AttemptFilter{QuizID: quizID, SubmittedOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attempts")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Score", "Total Points", "Percentage", "Time Taken (s)", "Submitted At"},
	}
	for _, attempt := range attempts {
		timeTaken := ""
		if attempt.TimeTakenSec != nil {
			timeTaken = strconv.FormatInt(*attempt.TimeTakenSec, 10)
		}
		submittedAt := ""
		if attempt.SubmittedAt != nil {
			submittedAt = attempt.SubmittedAt.UTC().Format(time.RFC3339)
		}
		dataset.Rows = append(dataset.Rows, []string{
			attempt.StudentName,
			attempt.StudentEmail,
			strconv.Itoa(attempt.Score),
			strconv.Itoa(attempt.TotalPoints),
			fmt.Sprintf("%.2f", attempt.Percentage),
			timeTaken,
			submittedAt,
		})
	}

	switch format {
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, fmt.Sprintf("%s - Results", quiz.Title))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ResultsExport{Filename: fmt.Sprintf("quiz-%s-results.pdf", quiz.ID), ContentType: "application/pdf", Content: content}, nil
	case ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ResultsExport{Filename: fmt.Sprintf("quiz-%s-results.csv", quiz.ID), ContentType: "text/csv", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
