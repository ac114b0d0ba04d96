package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// QuestionType distinguishes single-choice from multiple-choice questions.
type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "single"
	QuestionTypeMultiple QuestionType = "multiple"
)

// Question is an owned child record embedded in a quiz. CorrectAnswers
// holds indices into Options.
type Question struct {
	ID             string       `json:"id"`
	Text           string       `json:"text"`
	Type           QuestionType `json:"type"`
	Options        []string     `json:"options"`
	CorrectAnswers []int        `json:"correct_answers,omitempty"`
	Points         int          `json:"points"`
}

// QuestionList persists embedded questions as a JSONB column.
type QuestionList []Question

// Value marshals the question list to JSON for persistence.
func (q QuestionList) Value() (driver.Value, error) {
	if q == nil {
		q = QuestionList{}
	}
	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the question list.
func (q *QuestionList) Scan(value interface{}) error {
	if value == nil {
		*q = QuestionList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for QuestionList", value)
	}
	if len(data) == 0 {
		*q = QuestionList{}
		return nil
	}
	if err := json.Unmarshal(data, q); err != nil {
		return fmt.Errorf("unmarshal questions: %w", err)
	}
	return nil
}

// TotalPoints sums the point values of the given questions. The quiz's
// stored total must stay consistent with its current question set, so
// every write path recomputes it from here.
func (q QuestionList) TotalPoints() int {
	total := 0
	for _, question := range q {
		total += question.Points
	}
	return total
}

// Quiz owns an ordered set of questions inside a module.
type Quiz struct {
	ID              string       `db:"id" json:"id"`
	Title           string       `db:"title" json:"title"`
	Description     string       `db:"description" json:"description,omitempty"`
	ModuleID        string       `db:"module_id" json:"module_id"`
	Questions       QuestionList `db:"questions" json:"questions"`
	TotalPoints     int          `db:"total_points" json:"total_points"`
	DurationMinutes int          `db:"duration_minutes" json:"duration_minutes"`
	CreatedBy       string       `db:"created_by" json:"created_by"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// StudentView returns a copy of the quiz with answer keys stripped, for
// delivery to students.
func (q Quiz) StudentView() Quiz {
	view := q
	view.Questions = make(QuestionList, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswers = nil
		view.Questions[i] = question
	}
	return view
}
