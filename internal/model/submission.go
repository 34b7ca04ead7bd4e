package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus enumerates submission states. It replaces the legacy
// empty-answers sentinel: the finalizer's skip condition is a direct
// status match instead of an emptiness check.
type SubmissionStatus string

const (
	SubmissionStatusInProgress    SubmissionStatus = "IN_PROGRESS"
	SubmissionStatusSubmitted     SubmissionStatus = "SUBMITTED"
	SubmissionStatusAutoSubmitted SubmissionStatus = "AUTO_SUBMITTED"
)

// Submission is the canonical score + raw answers for one student/room
// pair. Answers maps question index (as a string key) to the chosen option
// index, -1 when unanswered. Exactly one row exists per (student, room).
type Submission struct {
	ID        uuid.UUID        `json:"id"`
	RoomID    uuid.UUID        `json:"room_id"`
	StudentID int              `json:"student_id"`
	Status    SubmissionStatus `json:"status"`
	Score     int              `json:"score"`
	Answers   map[string]int   `json:"answers"`
	StartedAt *time.Time       `json:"started_at,omitempty"`
}

// Submitted reports whether the submission is final (manual or auto).
func (s *Submission) Submitted() bool {
	return s.Status == SubmissionStatusSubmitted || s.Status == SubmissionStatusAutoSubmitted
}

// SheetLine is one question's detail in an answer sheet. Field names are
// part of the persisted representation and must stay stable.
type SheetLine struct {
	Index         int      `json:"index"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	StudentChoice int      `json:"student_choice"`
	Correct       bool     `json:"correct"`
}

// AutoSubmitReason tags sheets written by the room finalizer.
const AutoSubmitReason = "auto"

// AnswerSheet is the durable, detailed per-student record of every
// question's correctness, used for review. At most one exists per
// (student, room); each submission write replaces it wholesale.
type AnswerSheet struct {
	ID               uuid.UUID   `json:"id"`
	RoomID           uuid.UUID   `json:"room_id"`
	StudentID        int         `json:"student_id"`
	Score            int         `json:"score"`
	Details          []SheetLine `json:"details"`
	AutoSubmitReason *string     `json:"auto_submit_reason,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// SubmitRequest is the payload for submitting quiz answers. Keys are
// question indexes ("0", "1", ...); values are chosen option indexes,
// -1 or absent for no selection.
type SubmitRequest struct {
	Answers map[string]int `json:"answers" binding:"required"`
}
