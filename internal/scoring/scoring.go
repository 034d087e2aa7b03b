// Package scoring evaluates submitted answers against a meet's questions.
package scoring

import (
	"fmt"
	"time"

	"dopamine-dashboard/internal/domain"
)

// Policy is the single scoring rule applied to every submission path.
type Policy struct {
	BonusPoints           int
	BonusThresholdSeconds float64
	PenaltyPoints         int
}

// DefaultPolicy awards the question's points, a +5 bonus for answers at or
// under five seconds and no penalty for wrong answers.
func DefaultPolicy() Policy {
	return Policy{
		BonusPoints:           5,
		BonusThresholdSeconds: 5,
		PenaltyPoints:         0,
	}
}

// Result is the outcome of evaluating a full attempt.
type Result struct {
	Answers                []domain.AnswerRecord `json:"answers"`
	TotalScore             int                   `json:"totalScore"`
	CorrectAnswers         int                   `json:"correctAnswers"`
	TotalQuestions         int                   `json:"totalQuestions"`
	Accuracy               float64               `json:"accuracy"`
	TimeTaken              float64               `json:"timeTaken"`
	AverageTimePerQuestion float64               `json:"averageTimePerQuestion"`
}

// EvaluateOne scores a single answer. An out-of-range option is incorrect, not an error.
func EvaluateOne(q domain.Question, selected int, timeTaken float64, p Policy, now time.Time) domain.AnswerRecord {
	correct := selected >= 0 && selected < len(q.Options) && selected == q.CorrectIndex
	points := p.PenaltyPoints
	if correct {
		points = q.Points
		if points == 0 {
			points = domain.DefaultQuestionPoints
		}
		if timeTaken <= p.BonusThresholdSeconds {
			points += p.BonusPoints
		}
	}
	return domain.AnswerRecord{
		QuestionID:     q.ID,
		SelectedOption: selected,
		IsCorrect:      correct,
		Points:         points,
		TimeTaken:      timeTaken,
		AnsweredAt:     now,
	}
}

// Evaluate scores answers against the ordered questions. Questions without an
// answer count as incorrect with selected option -1 and zero time.
func Evaluate(questions []domain.Question, answers []domain.AnswerSubmission, p Policy, now time.Time) (Result, error) {
	byQuestion := make(map[string]domain.AnswerSubmission, len(answers))
	known := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}
	for i, a := range answers {
		if _, ok := known[a.QuestionID]; !ok {
			return Result{}, domain.NewValidationError("answer references a question outside this meet",
				domain.FieldError{Field: fmt.Sprintf("answers[%d].questionId", i), Message: "unknown question"})
		}
		if a.TimeTaken < 0 {
			return Result{}, domain.NewValidationError("time taken must not be negative",
				domain.FieldError{Field: fmt.Sprintf("answers[%d].timeTaken", i), Message: "must be >= 0"})
		}
		byQuestion[a.QuestionID] = a
	}

	res := Result{
		Answers:        make([]domain.AnswerRecord, 0, len(questions)),
		TotalQuestions: len(questions),
	}
	for _, q := range questions {
		a, ok := byQuestion[q.ID]
		if !ok {
			a = domain.AnswerSubmission{QuestionID: q.ID, SelectedOption: -1}
		}
		rec := EvaluateOne(q, a.SelectedOption, a.TimeTaken, p, now)
		res.Answers = append(res.Answers, rec)
		res.TotalScore += rec.Points
		res.TimeTaken += rec.TimeTaken
		if rec.IsCorrect {
			res.CorrectAnswers++
		}
	}
	res.Accuracy = Accuracy(res.CorrectAnswers, res.TotalQuestions)
	if res.TotalQuestions > 0 {
		res.AverageTimePerQuestion = res.TimeTaken / float64(res.TotalQuestions)
	}
	return res, nil
}

// Accuracy returns correct/total as a percentage, 0 when total is 0.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}
