package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizroomhq/quizroom-backend/internal/model"
)

// StatusNotStarted is the report status for members with no submission row.
const StatusNotStarted = "NOT_STARTED"

// ReportRow is one member's line in a room report.
type ReportRow struct {
	StudentID int        `json:"student_id"`
	Name      string     `json:"name"`
	Roll      *string    `json:"roll,omitempty"`
	Status    string     `json:"status"`
	Score     int        `json:"score"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// RoomReport is the teacher's view of every member's progress in a room.
type RoomReport struct {
	Room           *model.Room `json:"room"`
	QuizTitle      string      `json:"quiz_title,omitempty"`
	TotalQuestions int         `json:"total_questions"`
	Members        int         `json:"members"`
	Submitted      int         `json:"submitted"`
	Rows           []ReportRow `json:"rows"`
}

// OverviewRow is one room's entry in a student's cross-room overview.
type OverviewRow struct {
	RoomID         uuid.UUID              `json:"room_id"`
	RoomName       string                 `json:"room_name"`
	RoomCode       string                 `json:"room_code"`
	QuizTitle      string                 `json:"quiz_title,omitempty"`
	Status         model.SubmissionStatus `json:"status"`
	Score          int                    `json:"score"`
	TotalQuestions int                    `json:"total_questions"`
	StartedAt      *time.Time             `json:"started_at,omitempty"`
}

// ReportService builds teacher room reports and student overviews.
type ReportService struct {
	rooms   RoomStore
	quizzes QuizStore
	subs    SubmissionStore
}

// NewReportService creates a new ReportService.
func NewReportService(rooms RoomStore, quizzes QuizStore, subs SubmissionStore) *ReportService {
	return &ReportService{rooms: rooms, quizzes: quizzes, subs: subs}
}

// RoomReport assembles per-member status and scores for the owning
// teacher. The same payload backs the JSON report endpoint and the
// monitor WebSocket frames.
func (s *ReportService) RoomReport(ctx context.Context, teacherID int, roomID uuid.UUID) (*RoomReport, error) {
	rm, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	if rm.TeacherID != teacherID {
		return nil, ErrNotRoomOwner
	}

	report := &RoomReport{Room: rm, Rows: []ReportRow{}}

	if rm.QuizID != nil {
		q, err := s.quizzes.GetByID(ctx, *rm.QuizID)
		if err != nil {
			return nil, fmt.Errorf("get quiz: %w", err)
		}
		report.QuizTitle = q.Title
		report.TotalQuestions = len(q.Questions)
	}

	members, err := s.rooms.ListMembers(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	subs, err := s.subs.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	report.Members = len(members)
	for _, m := range members {
		row := ReportRow{
			StudentID: m.ID,
			Name:      m.Name,
			Roll:      m.Roll,
			Status:    StatusNotStarted,
		}
		if sub, ok := subs[m.ID]; ok {
			row.Status = string(sub.Status)
			row.Score = sub.Score
			row.StartedAt = sub.StartedAt
			if sub.Submitted() {
				report.Submitted++
			}
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// TeacherSheet returns a member's answer sheet for the owning teacher.
func (s *ReportService) TeacherSheet(ctx context.Context, teacherID int, roomID uuid.UUID, studentID int) (*model.AnswerSheet, error) {
	rm, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	if rm.TeacherID != teacherID {
		return nil, ErrNotRoomOwner
	}
	sheet, err := s.subs.GetSheet(ctx, roomID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSheetNotFound
		}
		return nil, fmt.Errorf("get sheet: %w", err)
	}
	return sheet, nil
}

// StudentOverview lists a student's submissions across all rooms,
// enriched with room and quiz titles.
func (s *ReportService) StudentOverview(ctx context.Context, studentID int) ([]OverviewRow, error) {
	subs, err := s.subs.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	rows := make([]OverviewRow, 0, len(subs))
	for _, sub := range subs {
		rm, err := s.rooms.GetByID(ctx, sub.RoomID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("get room: %w", err)
		}
		row := OverviewRow{
			RoomID:    rm.ID,
			RoomName:  rm.Name,
			RoomCode:  rm.Code,
			Status:    sub.Status,
			Score:     sub.Score,
			StartedAt: sub.StartedAt,
		}
		if rm.QuizID != nil {
			if q, err := s.quizzes.GetByID(ctx, *rm.QuizID); err == nil {
				row.QuizTitle = q.Title
				row.TotalQuestions = len(q.Questions)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
