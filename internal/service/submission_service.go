package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizroomhq/quizroom-backend/internal/model"
	"github.com/quizroomhq/quizroom-backend/internal/quiz"
	"github.com/rs/zerolog"
)

// Submission errors.
var (
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	ErrResultNotReady   = errors.New("result not available yet")
	ErrSheetNotFound    = errors.New("answer sheet not found")
)

// SubmissionStore is the submission persistence surface the services need.
type SubmissionStore interface {
	Get(ctx context.Context, roomID uuid.UUID, studentID int) (*model.Submission, error)
	EnsureStarted(ctx context.Context, roomID uuid.UUID, studentID int, now time.Time) (*model.Submission, error)
	Submit(ctx context.Context, roomID uuid.UUID, studentID, score int, answers map[string]int, details []model.SheetLine) (bool, error)
	FinalizeMembers(ctx context.Context, roomID uuid.UUID, studentIDs []int, answers map[string]int, details []model.SheetLine) error
	GetSheet(ctx context.Context, roomID uuid.UUID, studentID int) (*model.AnswerSheet, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) (map[int]model.Submission, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Submission, error)
}

// QuizSession is what a student sees when opening a room's quiz.
type QuizSession struct {
	RoomID           uuid.UUID                  `json:"room_id"`
	RoomName         string                     `json:"room_name"`
	QuizTitle        string                     `json:"quiz_title"`
	Status           model.SubmissionStatus     `json:"status"`
	Expired          bool                       `json:"expired"`
	RemainingSeconds int                        `json:"remaining_seconds"`
	TotalQuestions   int                        `json:"total_questions"`
	Score            *int                       `json:"score,omitempty"`
	StartedAt        *time.Time                 `json:"started_at,omitempty"`
	Questions        []model.QuestionForStudent `json:"questions,omitempty"`
}

// SubmitOutcome is the result of a submission attempt.
type SubmitOutcome struct {
	Expired        bool `json:"expired"`
	Score          int  `json:"score"`
	TotalQuestions int  `json:"total_questions"`
}

// ResultView is a student's score summary for one room.
type ResultView struct {
	RoomID         uuid.UUID              `json:"room_id"`
	Status         model.SubmissionStatus `json:"status"`
	Score          int                    `json:"score"`
	TotalQuestions int                    `json:"total_questions"`
	AutoSubmitted  bool                   `json:"auto_submitted"`
	StartedAt      *time.Time             `json:"started_at,omitempty"`
}

// SubmissionService runs the timed-quiz lifecycle: taking the quiz,
// manual submission, and room finalization once the window elapses.
// Expiry is detected lazily from request paths; there is no background
// sweeper. The clock answers from the database here, not the Redis
// cache, so every decision that mutates rows uses authoritative state.
type SubmissionService struct {
	rooms   RoomStore
	quizzes QuizStore
	subs    SubmissionStore
	log     zerolog.Logger
	now     func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(rooms RoomStore, quizzes QuizStore, subs SubmissionStore, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		rooms:   rooms,
		quizzes: quizzes,
		subs:    subs,
		log:     log.With().Str("component", "submission").Logger(),
		now:     time.Now,
	}
}

// loadMemberRoom loads the room and verifies the student belongs to it.
func (s *SubmissionService) loadMemberRoom(ctx context.Context, studentID int, roomID uuid.UUID) (*model.Room, error) {
	rm, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	member, err := s.rooms.IsMember(ctx, roomID, studentID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, ErrNotRoomMember
	}
	return rm, nil
}

// loadRunningQuiz checks the room has a started quiz and loads it.
func (s *SubmissionService) loadRunningQuiz(ctx context.Context, rm *model.Room) (*model.Quiz, error) {
	if rm.QuizID == nil {
		return nil, ErrQuizNotAssigned
	}
	if rm.QuizStartTime == nil {
		return nil, ErrQuizNotStarted
	}
	q, err := s.quizzes.GetByID(ctx, *rm.QuizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return q, nil
}

// TakeQuiz opens the quiz for a student. The first successful call stamps
// the student's start time; repeats never move it. When the window has
// already elapsed the whole room is finalized and an expired session is
// returned instead of an error.
func (s *SubmissionService) TakeQuiz(ctx context.Context, studentID int, roomID uuid.UUID) (*QuizSession, error) {
	rm, err := s.loadMemberRoom(ctx, studentID, roomID)
	if err != nil {
		return nil, err
	}
	if !rm.IsActive {
		return nil, ErrRoomClosed
	}
	q, err := s.loadRunningQuiz(ctx, rm)
	if err != nil {
		return nil, err
	}

	session := &QuizSession{
		RoomID:         rm.ID,
		RoomName:       rm.Name,
		QuizTitle:      q.Title,
		TotalQuestions: len(q.Questions),
	}

	sub, err := s.subs.Get(ctx, roomID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub != nil && sub.Submitted() {
		session.Status = sub.Status
		session.Score = &sub.Score
		session.StartedAt = sub.StartedAt
		return session, nil
	}

	if quiz.RemainingSeconds(s.now(), rm.QuizStartTime, q.DurationMinutes) == 0 {
		if err := s.finalizeRoom(ctx, rm, q); err != nil {
			return nil, err
		}
		sub, err = s.subs.Get(ctx, roomID, studentID)
		if err != nil {
			return nil, fmt.Errorf("get submission: %w", err)
		}
		session.Status = sub.Status
		session.Score = &sub.Score
		session.StartedAt = sub.StartedAt
		session.Expired = true
		return session, nil
	}

	sub, err = s.subs.EnsureStarted(ctx, roomID, studentID, s.now())
	if err != nil {
		return nil, fmt.Errorf("start submission: %w", err)
	}

	session.Status = sub.Status
	session.StartedAt = sub.StartedAt
	session.RemainingSeconds = quiz.RemainingSeconds(s.now(), rm.QuizStartTime, q.DurationMinutes)
	session.Questions = q.ForStudents()
	return session, nil
}

// Submit grades and records a student's answers. A late submission is not
// an error: it finalizes the room and reports the outcome as expired.
// Submitting twice is rejected.
func (s *SubmissionService) Submit(ctx context.Context, studentID int, roomID uuid.UUID, raw map[string]int) (*SubmitOutcome, error) {
	rm, err := s.loadMemberRoom(ctx, studentID, roomID)
	if err != nil {
		return nil, err
	}
	if !rm.IsActive {
		return nil, ErrRoomClosed
	}
	q, err := s.loadRunningQuiz(ctx, rm)
	if err != nil {
		return nil, err
	}

	sub, err := s.subs.Get(ctx, roomID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub != nil && sub.Submitted() {
		return nil, ErrAlreadySubmitted
	}

	if quiz.RemainingSeconds(s.now(), rm.QuizStartTime, q.DurationMinutes) == 0 {
		if err := s.finalizeRoom(ctx, rm, q); err != nil {
			return nil, err
		}
		return &SubmitOutcome{Expired: true, TotalQuestions: len(q.Questions)}, nil
	}

	answers := quiz.FillAnswers(q.Questions, raw)
	score := quiz.Score(q.Questions, answers)
	details := quiz.BuildSheet(q.Questions, answers)

	ok, err := s.subs.Submit(ctx, roomID, studentID, score, answers, details)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if !ok {
		// The finalizer or a concurrent submit won the race.
		return nil, ErrAlreadySubmitted
	}

	s.log.Info().
		Str("room_id", roomID.String()).
		Int("student_id", studentID).
		Int("score", score).
		Msg("quiz submitted")

	return &SubmitOutcome{Score: score, TotalQuestions: len(q.Questions)}, nil
}

// FinalizeRoom auto-submits every member who has not submitted yet. It is
// a no-op when the room's quiz never started, and safe to call any number
// of times.
func (s *SubmissionService) FinalizeRoom(ctx context.Context, roomID uuid.UUID) error {
	rm, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("get room: %w", err)
	}
	if rm.QuizID == nil || rm.QuizStartTime == nil {
		return nil
	}
	q, err := s.quizzes.GetByID(ctx, *rm.QuizID)
	if err != nil {
		return fmt.Errorf("get quiz: %w", err)
	}
	return s.finalizeRoom(ctx, rm, q)
}

func (s *SubmissionService) finalizeRoom(ctx context.Context, rm *model.Room, q *model.Quiz) error {
	members, err := s.rooms.ListMembers(ctx, rm.ID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	if len(members) == 0 {
		return nil
	}

	ids := make([]int, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	answers := quiz.EmptyAnswers(len(q.Questions))
	details := quiz.BuildSheet(q.Questions, answers)

	if err := s.subs.FinalizeMembers(ctx, rm.ID, ids, answers, details); err != nil {
		return fmt.Errorf("finalize members: %w", err)
	}

	s.log.Info().
		Str("room_id", rm.ID.String()).
		Int("members", len(ids)).
		Msg("room finalized")
	return nil
}

// Result returns a student's score summary for a room. If the quiz window
// has elapsed but the room was never finalized, this path finalizes it.
func (s *SubmissionService) Result(ctx context.Context, studentID int, roomID uuid.UUID) (*ResultView, error) {
	rm, err := s.loadMemberRoom(ctx, studentID, roomID)
	if err != nil {
		return nil, err
	}
	q, err := s.loadRunningQuiz(ctx, rm)
	if err != nil {
		return nil, err
	}

	sub, err := s.subs.Get(ctx, roomID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	if sub == nil || !sub.Submitted() {
		if quiz.RemainingSeconds(s.now(), rm.QuizStartTime, q.DurationMinutes) > 0 {
			return nil, ErrResultNotReady
		}
		if err := s.finalizeRoom(ctx, rm, q); err != nil {
			return nil, err
		}
		sub, err = s.subs.Get(ctx, roomID, studentID)
		if err != nil {
			return nil, fmt.Errorf("get submission: %w", err)
		}
	}

	return &ResultView{
		RoomID:         rm.ID,
		Status:         sub.Status,
		Score:          sub.Score,
		TotalQuestions: len(q.Questions),
		AutoSubmitted:  sub.Status == model.SubmissionStatusAutoSubmitted,
		StartedAt:      sub.StartedAt,
	}, nil
}

// StudentSheet returns the student's own answer sheet for a room.
func (s *SubmissionService) StudentSheet(ctx context.Context, studentID int, roomID uuid.UUID) (*model.AnswerSheet, error) {
	if _, err := s.loadMemberRoom(ctx, studentID, roomID); err != nil {
		return nil, err
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
