package service

import (
	"sort"

	"github.com/eduquizhq/eduquiz-api/internal/models"
)

// gradeAnswers compares submitted answers against the quiz's answer key and
// produces one graded record per submitted answer, preserving submission
// order. Answers referencing unknown questions never earn points and never
// raise an error; the submitted payload is trusted for correlation only.
func gradeAnswers(questions models.QuestionList, submitted []models.SubmittedAnswer) models.AnswerList {
	byID := make(map[string]models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}

	graded := make(models.AnswerList, 0, len(submitted))
	for _, answer := range submitted {
		record := models.AnswerRecord{
			QuestionID:      answer.QuestionID,
			SelectedAnswers: answer.SelectedAnswers,
		}

		question, ok := byID[answer.QuestionID]
		if ok && answersMatch(question.CorrectAnswers, answer.SelectedAnswers) {
			record.IsCorrect = true
			record.PointsEarned = question.Points
		}

		graded = append(graded, record)
	}
	return graded
}

// answersMatch checks order-independent equality of the correct and
// selected index sets: sort copies of both, then require equal length and
// pairwise equality. Neither side is deduplicated, so a submission padded
// with a duplicate index fails the length check and is graded incorrect.
func answersMatch(correct, selected []int) bool {
	if len(correct) != len(selected) {
		return false
	}

	sortedCorrect := append([]int(nil), correct...)
	sortedSelected := append([]int(nil), selected...)
	sort.Ints(sortedCorrect)
	sort.Ints(sortedSelected)

	for i, v := range sortedCorrect {
		if v != sortedSelected[i] {
			return false
		}
	}
	return true
}

// sumPoints aggregates the score over the full, final answer set.
func sumPoints(answers models.AnswerList) int {
	total := 0
	for _, answer := range answers {
		total += answer.PointsEarned
	}
	return total
}

// percentage computes score/totalPoints*100. A zero-point quiz yields 0
// rather than an indeterminate value.
func percentage(score, totalPoints int) float64 {
	if totalPoints <= 0 {
		return 0
	}
	return float64(score) / float64(totalPoints) * 100
}
