package model

import (
	"time"

	"github.com/google/uuid"
)

// Room is a joinable session scoping one quiz to one teacher and a set of
// students. QuizStartTime is only ever set while QuizID is non-nil; its
// absence means the quiz has not started.
type Room struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Code          string     `json:"code"`
	TeacherID     int        `json:"teacher_id"`
	QuizID        *uuid.UUID `json:"quiz_id,omitempty"`
	IsActive      bool       `json:"is_active"`
	QuizStartTime *time.Time `json:"quiz_start_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CreateRoomRequest is the payload for creating a room. Code is optional;
// when empty a code is generated.
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=80"`
	Code string `json:"code" binding:"omitempty,max=20"`
}

// JoinRoomRequest is the payload for a student joining a room by code.
type JoinRoomRequest struct {
	Code string `json:"code" binding:"required,min=1,max=20"`
}

// StartQuizRequest optionally overrides the quiz duration at start.
type StartQuizRequest struct {
	Minutes int `json:"minutes" binding:"omitempty,min=1,max=480"`
}

// ExtendQuizRequest adds minutes to a running quiz.
type ExtendQuizRequest struct {
	Minutes int `json:"minutes" binding:"required,min=1,max=120"`
}

// DashboardCounts summarizes a teacher's rooms for the dashboard.
type DashboardCounts struct {
	Rooms       int `json:"rooms"`
	ActiveRooms int `json:"active_rooms"`
	Quizzes     int `json:"quizzes"`
	Students    int `json:"students"`
}
