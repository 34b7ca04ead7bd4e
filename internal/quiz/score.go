package quiz

import (
	"strconv"

	"github.com/quizroomhq/quizroom-backend/internal/model"
)

// FillAnswers clamps raw submitted answers to the question list: one entry
// per question, -1 when absent, keys outside [0, len(questions)) ignored.
func FillAnswers(questions []model.Question, raw map[string]int) map[string]int {
	answers := make(map[string]int, len(questions))
	for i := range questions {
		key := strconv.Itoa(i)
		if choice, ok := raw[key]; ok {
			answers[key] = choice
		} else {
			answers[key] = -1
		}
	}
	return answers
}

// EmptyAnswers returns an all -1 answer map covering every question, the
// shape the finalizer records for students who never submitted.
func EmptyAnswers(n int) map[string]int {
	answers := make(map[string]int, n)
	for i := 0; i < n; i++ {
		answers[strconv.Itoa(i)] = -1
	}
	return answers
}

// Score counts the questions whose chosen option matches the correct one.
func Score(questions []model.Question, answers map[string]int) int {
	score := 0
	for i, q := range questions {
		if answers[strconv.Itoa(i)] == q.Answer {
			score++
		}
	}
	return score
}

// BuildSheet expands answers into per-question detail lines for the
// answer sheet.
func BuildSheet(questions []model.Question, answers map[string]int) []model.SheetLine {
	details := make([]model.SheetLine, len(questions))
	for i, q := range questions {
		choice, ok := answers[strconv.Itoa(i)]
		if !ok {
			choice = -1
		}
		details[i] = model.SheetLine{
			Index:         i,
			Question:      q.Text,
			Options:       q.Options,
			CorrectAnswer: q.Answer,
			StudentChoice: choice,
			Correct:       choice == q.Answer,
		}
	}
	return details
}
