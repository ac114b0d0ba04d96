package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eduquizhq/eduquiz-api/internal/models"
	appErrors "github.com/eduquizhq/eduquiz-api/pkg/errors"
)

type quizRepo interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
	ListByModule(ctx context.Context, moduleID string) ([]models.Quiz, error)
	Update(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, id string) error
}

type moduleReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseModule, error)
}

type quizCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// QuestionInput is a question definition within quiz create/update payloads.
type QuestionInput struct {
	Text           string              `json:"text" validate:"required"`
	Type           models.QuestionType `json:"type" validate:"required,oneof=single multiple"`
	Options        []string            `json:"options" validate:"required,min=2,dive,required"`
	CorrectAnswers []int               `json:"correct_answers" validate:"required,min=1"`
	Points         *int                `json:"points" validate:"omitempty,gte=0"`
}

// CreateQuizRequest carries a new quiz definition.
type CreateQuizRequest struct {
	Title           string          `json:"title" validate:"required"`
	Description     string          `json:"description"`
	ModuleID        string          `json:"module_id" validate:"required"`
	Questions       []QuestionInput `json:"questions" validate:"required,min=1,dive"`
	DurationMinutes int             `json:"duration_minutes" validate:"omitempty,gt=0"`
}

// UpdateQuizRequest carries partial quiz updates. Nil fields keep their
// stored values.
type UpdateQuizRequest struct {
	Title           *string         `json:"title"`
	Description     *string         `json:"description"`
	Questions       []QuestionInput `json:"questions" validate:"omitempty,min=1,dive"`
	DurationMinutes *int            `json:"duration_minutes" validate:"omitempty,gt=0"`
}

// QuizService manages quiz definitions and their delivery views.
type QuizService struct {
	quizzes   quizRepo
	modules   moduleReader
	cache     quizCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuizService constructs QuizService.
func NewQuizService(quizzes quizRepo, modules moduleReader, cache quizCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *QuizService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{quizzes: quizzes, modules: modules, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Create stores a new quiz in a module owned by the caller. The stored
// total is always recomputed from the question set.
func (s *QuizService) Create(ctx context.Context, teacherID string, req CreateQuizRequest) (*models.Quiz, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz payload")
	}

	module, err := s.modules.FindByID(ctx, req.ModuleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	if module.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to add quiz to this module")
	}

	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = 30
	}

	quiz := &models.Quiz{
		Title:           req.Title,
		Description:     req.Description,
		ModuleID:        req.ModuleID,
		Questions:       questions,
		TotalPoints:     questions.TotalPoints(),
		DurationMinutes: duration,
		CreatedBy:       teacherID,
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create quiz")
	}
	return quiz, nil
}

// Get returns a quiz for the given caller role. Teachers receive the answer
// key; students receive a view with correct answers stripped. Reads go
// through the cache.
func (s *QuizService) Get(ctx context.Context, id string, callerRole models.UserRole) (*models.Quiz, error) {
	quiz, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerRole == models.RoleStudent {
		view := quiz.StudentView()
		return &view, nil
	}
	return quiz, nil
}

// ListByModule returns the quizzes of a module, stripped for students.
func (s *QuizService) ListByModule(ctx context.Context, moduleID string, callerRole models.UserRole) ([]models.Quiz, error) {
	quizzes, err := s.quizzes.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quizzes")
	}
	if callerRole == models.RoleStudent {
		for i := range quizzes {
			quizzes[i] = quizzes[i].StudentView()
		}
	}
	return quizzes, nil
}

// Update replaces provided fields on a quiz owned by the caller. When the
// question set changes, the total is recomputed so it stays consistent with
// the questions the quiz currently has.
func (s *QuizService) Update(ctx context.Context, id, teacherID string, req UpdateQuizRequest) (*models.Quiz, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz payload")
	}

	quiz, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.CreatedBy != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to update this quiz")
	}

	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.DurationMinutes != nil {
		quiz.DurationMinutes = *req.DurationMinutes
	}
	if req.Questions != nil {
		questions, err := buildQuestions(req.Questions)
		if err != nil {
			return nil, err
		}
		quiz.Questions = questions
		quiz.TotalPoints = questions.TotalPoints()
	}

	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update quiz")
	}
	s.invalidate(ctx, id)
	return quiz, nil
}

// Delete removes a quiz owned by the caller.
func (s *QuizService) Delete(ctx context.Context, id, teacherID string) error {
	quiz, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}
	if quiz.CreatedBy != teacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "not authorized to delete this quiz")
	}
	if err := s.quizzes.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete quiz")
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *QuizService) load(ctx context.Context, id string) (*models.Quiz, error) {
	key := quizCacheKey(id)
	if s.cache != nil {
		var cached models.Quiz
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("quiz cache read failed", zap.String("quiz_id", id), zap.Error(err))
		}
	}

	quiz, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, quiz, s.cacheTTL); err != nil {
			s.logger.Warn("quiz cache write failed", zap.String("quiz_id", id), zap.Error(err))
		}
	}
	return quiz, nil
}

func (s *QuizService) findByID(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := s.quizzes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}
	return quiz, nil
}

func (s *QuizService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, quizCacheKey(id)); err != nil {
		s.logger.Warn("quiz cache invalidation failed", zap.String("quiz_id", id), zap.Error(err))
	}
}

func quizCacheKey(id string) string {
	return fmt.Sprintf("quiz:%s", id)
}

// buildQuestions materialises question inputs into owned child records with
// locally-unique identifiers, validating answer indices against options.
func buildQuestions(inputs []QuestionInput) (models.QuestionList, error) {
	questions := make(models.QuestionList, 0, len(inputs))
	for i, input := range inputs {
		for _, idx := range input.CorrectAnswers {
			if idx < 0 || idx >= len(input.Options) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d: correct answer index %d out of range", i+1, idx))
			}
		}
		points := 1
		if input.Points != nil {
			points = *input.Points
		}
		questions = append(questions, models.Question{
			ID:             uuid.NewString(),
			Text:           input.Text,
			Type:           input.Type,
			Options:        input.Options,
			CorrectAnswers: input.CorrectAnswers,
			Points:         points,
		})
	}
	return questions, nil
}
