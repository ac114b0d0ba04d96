package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eduquizhq/eduquiz-api/internal/models"
)

func gradingQuiz() models.QuestionList {
	return models.QuestionList{
		{ID: "q1", Text: "Capital of France?", Type: models.QuestionTypeSingle, Options: []string{"Paris", "Lyon", "Nice"}, CorrectAnswers: []int{0}, Points: 6},
		{ID: "q2", Text: "Prime numbers?", Type: models.QuestionTypeMultiple, Options: []string{"2", "3", "4", "5"}, CorrectAnswers: []int{0, 1, 3}, Points: 4},
	}
}

func TestGradeAnswersSingleChoice(t *testing.T) {
	graded := gradeAnswers(gradingQuiz(), []models.SubmittedAnswer{
		{QuestionID: "q1", SelectedAnswers: []int{0}},
	})

	assert.Len(t, graded, 1)
	assert.True(t, graded[0].IsCorrect)
	assert.Equal(t, 6, graded[0].PointsEarned)
}

func TestGradeAnswersWrongSelection(t *testing.T) {
	graded := gradeAnswers(gradingQuiz(), []models.SubmittedAnswer{
		{QuestionID: "q1", SelectedAnswers: []int{1}},
	})

	assert.False(t, graded[0].IsCorrect)
	assert.Zero(t, graded[0].PointsEarned)
}

func TestGradeAnswersOrderIndependent(t *testing.T) {
	graded := gradeAnswers(gradingQuiz(), []models.SubmittedAnswer{
		{QuestionID: "q2", SelectedAnswers: []int{3, 0, 1}},
	})

	assert.True(t, graded[0].IsCorrect)
	assert.Equal(t, 4, graded[0].PointsEarned)
}

func TestGradeAnswersSubsetIsIncorrect(t *testing.T) {
	graded := gradeAnswers(gradingQuiz(), []models.SubmittedAnswer{
		{QuestionID: "q2", SelectedAnswers: []int{0, 1}},
	})

	assert.False(t, graded[0].IsCorrect)
	assert.Zero(t, graded[0].PointsEarned)
}

func TestGradeAnswersDuplicateIndexIsIncorrect(t *testing.T) {
	// [0, 0, 1, 3] covers the key {0, 1, 3} as a set, but the sides are
	// compared without deduplication and the lengths differ.
	graded := gradeAnswers(gradingQuiz(), []models.SubmittedAnswer{
		{QuestionID: "q2", SelectedAnswers: []int{0, 0, 1, 3}},
	})

	assert.False(t, graded[0].IsCorrect)
	assert.Zero(t, graded[0].PointsEarned)
}

func TestGradeAnswersUnknownQuestion(t *testing.T) {
	graded := gradeAnswers(gradingQuiz(), []models.SubmittedAnswer{
		{QuestionID: "ghost", SelectedAnswers: []int{0}},
		{QuestionID: "q1", SelectedAnswers: []int{0}},
	})

	assert.Len(t, graded, 2)
	assert.False(t, graded[0].IsCorrect)
	assert.Zero(t, graded[0].PointsEarned)
	assert.True(t, graded[1].IsCorrect)
}

func TestGradeAnswersPreservesSubmissionOrder(t *testing.T) {
	graded := gradeAnswers(gradingQuiz(), []models.SubmittedAnswer{
		{QuestionID: "q2", SelectedAnswers: []int{0, 1, 3}},
		{QuestionID: "q1", SelectedAnswers: []int{0}},
	})

	assert.Equal(t, "q2", graded[0].QuestionID)
	assert.Equal(t, "q1", graded[1].QuestionID)
}

func TestSumPointsAggregatesAllCorrectAnswers(t *testing.T) {
	graded := gradeAnswers(gradingQuiz(), []models.SubmittedAnswer{
		{QuestionID: "q1", SelectedAnswers: []int{0}},
		{QuestionID: "q2", SelectedAnswers: []int{1, 0, 3}},
	})

	assert.Equal(t, 10, sumPoints(graded))
	assert.InDelta(t, 100.0, percentage(sumPoints(graded), 10), 1e-9)
}

func TestPercentagePartialScore(t *testing.T) {
	graded := gradeAnswers(gradingQuiz(), []models.SubmittedAnswer{
		{QuestionID: "q1", SelectedAnswers: []int{0}},
		{QuestionID: "q2", SelectedAnswers: []int{2}},
	})

	assert.Equal(t, 6, sumPoints(graded))
	assert.InDelta(t, 60.0, percentage(6, 10), 1e-9)
}

func TestPercentageZeroTotalPoints(t *testing.T) {
	assert.Zero(t, percentage(0, 0))
	assert.Zero(t, percentage(5, 0))
	assert.Zero(t, percentage(5, -1))
}

func TestAnswersMatchEmptySelection(t *testing.T) {
	assert.True(t, answersMatch(nil, nil))
	assert.False(t, answersMatch([]int{0}, nil))
	assert.False(t, answersMatch(nil, []int{0}))
}
