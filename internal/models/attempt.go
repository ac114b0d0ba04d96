package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SubmittedAnswer is the raw answer payload sent by a student. Selected
// answers are indices into the question's options.
type SubmittedAnswer struct {
	QuestionID      string `json:"question_id" validate:"required"`
	SelectedAnswers []int  `json:"selected_answers"`
}

// AnswerRecord is the graded outcome for one submitted answer.
type AnswerRecord struct {
	QuestionID      string `json:"question_id"`
	SelectedAnswers []int  `json:"selected_answers"`
	IsCorrect       bool   `json:"is_correct"`
	PointsEarned    int    `json:"points_earned"`
}

// AnswerList persists graded answers as a JSONB column.
type AnswerList []AnswerRecord

// Value marshals the answer list to JSON for persistence.
func (a AnswerList) Value() (driver.Value, error) {
	if a == nil {
		a = AnswerList{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the answer list.
func (a *AnswerList) Scan(value interface{}) error {
	if value == nil {
		*a = AnswerList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for AnswerList", value)
	}
	if len(data) == 0 {
		*a = AnswerList{}
		return nil
	}
	if err := json.Unmarshal(data, a); err != nil {
		return fmt.Errorf("unmarshal answers: %w", err)
	}
	return nil
}

// Attempt is one student's single pass at answering a quiz. TotalPoints is
// snapshotted from the quiz at start time and never changes afterwards;
// grading always scores against the snapshot. SubmittedAt discriminates
// in-progress (nil) from submitted (set) attempts.
type Attempt struct {
	ID           string     `db:"id" json:"id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	QuizID       string     `db:"quiz_id" json:"quiz_id"`
	ModuleID     string     `db:"module_id" json:"module_id"`
	Answers      AnswerList `db:"answers" json:"answers"`
	Score        int        `db:"score" json:"score"`
	TotalPoints  int        `db:"total_points" json:"total_points"`
	Percentage   float64    `db:"percentage" json:"percentage"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	SubmittedAt  *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	TimeTakenSec *int64     `db:"time_taken_sec" json:"time_taken_sec,omitempty"`
}

// Submitted reports whether the attempt has reached its terminal state.
func (a Attempt) Submitted() bool {
	return a.SubmittedAt != nil
}

// AttemptDetail enriches an attempt with quiz and student info for listings.
type AttemptDetail struct {
	Attempt
	QuizTitle    string `db:"quiz_title" json:"quiz_title"`
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}

// AttemptFilter captures listing criteria for attempts.
type AttemptFilter struct {
	StudentID     string
	QuizID        string
	ModuleID      string
	SubmittedOnly bool
}
