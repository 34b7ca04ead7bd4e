package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Question is the canonical question shape produced by the normalizer.
// Field names are part of the persisted representation and must stay stable.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

// Quiz represents an uploaded quiz. Questions are immutable once created;
// only the duration may be edited afterwards.
type Quiz struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	Questions       []Question `json:"questions"`
	CreatedAt       time.Time  `json:"created_at"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// ForStudents strips correct answers from the quiz's question list.
func (q *Quiz) ForStudents() []QuestionForStudent {
	out := make([]QuestionForStudent, len(q.Questions))
	for i, qq := range q.Questions {
		out[i] = QuestionForStudent{Index: i, Text: qq.Text, Options: qq.Options}
	}
	return out
}

// UploadQuizRequest is the payload for uploading a quiz to a room.
// Questions is kept raw so the normalizer can accept any of the supported
// upload shapes and report a precise validation error.
type UploadQuizRequest struct {
	Title           string          `json:"title" binding:"required,min=1,max=100"`
	DurationMinutes int             `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	Questions       json.RawMessage `json:"questions" binding:"required"`
}
