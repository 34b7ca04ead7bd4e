package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizroomhq/quizroom-backend/internal/config"
	"github.com/quizroomhq/quizroom-backend/internal/model"
	"github.com/quizroomhq/quizroom-backend/internal/quiz"
	"github.com/redis/go-redis/v9"
)

// Common room/quiz errors.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomClosed         = errors.New("room is closed")
	ErrRoomCodeTaken      = errors.New("room code already taken")
	ErrNotRoomOwner       = errors.New("room belongs to another teacher")
	ErrNotRoomMember      = errors.New("not a member of this room")
	ErrQuizNotAssigned    = errors.New("no quiz assigned to this room")
	ErrQuizNotStarted     = errors.New("quiz has not started")
	ErrQuizAlreadyStarted = errors.New("quiz already started")
	ErrQuizNotRunning     = errors.New("quiz is not running")
)

// Quizzes uploaded without an explicit duration run for ten minutes.
const defaultQuizDurationMinutes = 10

const maxCustomCodeLength = 10

// codeAlphabet deliberately omits 0/O and 1/I.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomStore is the room persistence surface the services need.
type RoomStore interface {
	Create(ctx context.Context, rm *model.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
	GetByCode(ctx context.Context, code string) (*model.Room, error)
	ListByTeacher(ctx context.Context, teacherID int) ([]model.Room, error)
	SetQuiz(ctx context.Context, roomID, quizID uuid.UUID) error
	SetStartTime(ctx context.Context, roomID uuid.UUID, start *time.Time) error
	Close(ctx context.Context, roomID uuid.UUID) error
	AddMember(ctx context.Context, roomID uuid.UUID, studentID int) error
	IsMember(ctx context.Context, roomID uuid.UUID, studentID int) (bool, error)
	ListMembers(ctx context.Context, roomID uuid.UUID) ([]model.User, error)
	ListJoined(ctx context.Context, studentID int) ([]model.Room, error)
	DashboardCounts(ctx context.Context, teacherID int) (*model.DashboardCounts, error)
}

// QuizStore is the quiz persistence surface the services need.
type QuizStore interface {
	Create(ctx context.Context, q *model.Quiz) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	UpdateDuration(ctx context.Context, id uuid.UUID, minutes int) error
}

// RoomService handles room lifecycle, membership, and the quiz clock.
type RoomService struct {
	cfg     *config.Config
	rdb     *redis.Client
	rooms   RoomStore
	quizzes QuizStore
	now     func() time.Time
}

// NewRoomService creates a new RoomService.
func NewRoomService(cfg *config.Config, rdb *redis.Client, rooms RoomStore, quizzes QuizStore) *RoomService {
	return &RoomService{cfg: cfg, rdb: rdb, rooms: rooms, quizzes: quizzes, now: time.Now}
}

// NormalizeCode uppercases a custom room code and strips everything that
// is not a letter or digit.
func NormalizeCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(code)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > maxCustomCodeLength {
		s = s[:maxCustomCodeLength]
	}
	return s
}

// generateCode produces a random room code of the configured length.
func (s *RoomService) generateCode() (string, error) {
	n := s.cfg.RoomCodeLength
	if n <= 0 {
		n = 6
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}

// CreateRoom creates a room with the given custom code, or a generated
// one when the code is empty.
func (s *RoomService) CreateRoom(ctx context.Context, teacherID int, req model.CreateRoomRequest) (*model.Room, error) {
	code := NormalizeCode(req.Code)
	if code != "" {
		if _, err := s.rooms.GetByCode(ctx, code); err == nil {
			return nil, ErrRoomCodeTaken
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("check code: %w", err)
		}
	} else {
		var err error
		if code, err = s.generateCode(); err != nil {
			return nil, err
		}
	}

	rm := &model.Room{Name: req.Name, Code: code, TeacherID: teacherID}
	if err := s.rooms.Create(ctx, rm); err != nil {
		// Race on the uniqueness check above.
		if isUniqueViolation(err) {
			return nil, ErrRoomCodeTaken
		}
		return nil, fmt.Errorf("create room: %w", err)
	}
	return rm, nil
}

// GetOwnedRoom loads a room and verifies the teacher owns it.
func (s *RoomService) GetOwnedRoom(ctx context.Context, teacherID int, roomID uuid.UUID) (*model.Room, error) {
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
	return rm, nil
}

// ListRooms retrieves a teacher's rooms.
func (s *RoomService) ListRooms(ctx context.Context, teacherID int) ([]model.Room, error) {
	return s.rooms.ListByTeacher(ctx, teacherID)
}

// ListJoined retrieves the rooms a student has joined.
func (s *RoomService) ListJoined(ctx context.Context, studentID int) ([]model.Room, error) {
	return s.rooms.ListJoined(ctx, studentID)
}

// Members retrieves a room's roster for its owning teacher.
func (s *RoomService) Members(ctx context.Context, teacherID int, roomID uuid.UUID) ([]model.User, error) {
	if _, err := s.GetOwnedRoom(ctx, teacherID, roomID); err != nil {
		return nil, err
	}
	return s.rooms.ListMembers(ctx, roomID)
}

// Dashboard aggregates a teacher's room counts.
func (s *RoomService) Dashboard(ctx context.Context, teacherID int) (*model.DashboardCounts, error) {
	return s.rooms.DashboardCounts(ctx, teacherID)
}

// JoinRoom adds a student to the room behind a code. Joining twice is a
// no-op; joining a closed room is rejected.
func (s *RoomService) JoinRoom(ctx context.Context, studentID int, code string) (*model.Room, error) {
	rm, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	if !rm.IsActive {
		return nil, ErrRoomClosed
	}
	if err := s.rooms.AddMember(ctx, rm.ID, studentID); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return rm, nil
}

// UploadQuiz normalizes the uploaded questions, stores the quiz, and
// binds it to the room. Replacing the quiz is only allowed before the
// quiz has started.
func (s *RoomService) UploadQuiz(ctx context.Context, teacherID int, roomID uuid.UUID, req model.UploadQuizRequest) (*model.Quiz, error) {
	rm, err := s.GetOwnedRoom(ctx, teacherID, roomID)
	if err != nil {
		return nil, err
	}
	if rm.QuizStartTime != nil {
		return nil, ErrQuizAlreadyStarted
	}

	questions, err := quiz.Normalize(req.Questions)
	if err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = defaultQuizDurationMinutes
	}

	q := &model.Quiz{Title: req.Title, DurationMinutes: duration, Questions: questions}
	if err := s.quizzes.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	if err := s.rooms.SetQuiz(ctx, roomID, q.ID); err != nil {
		return nil, fmt.Errorf("assign quiz: %w", err)
	}
	return q, nil
}

// SetDuration edits the assigned quiz's duration before the quiz starts.
func (s *RoomService) SetDuration(ctx context.Context, teacherID int, roomID uuid.UUID, minutes int) error {
	rm, err := s.GetOwnedRoom(ctx, teacherID, roomID)
	if err != nil {
		return err
	}
	if rm.QuizID == nil {
		return ErrQuizNotAssigned
	}
	if rm.QuizStartTime != nil {
		return ErrQuizAlreadyStarted
	}
	return s.quizzes.UpdateDuration(ctx, *rm.QuizID, minutes)
}

// StartQuiz stamps the room's quiz start time, optionally overriding the
// duration first, and primes the Redis clock cache.
func (s *RoomService) StartQuiz(ctx context.Context, teacherID int, roomID uuid.UUID, req model.StartQuizRequest) (*model.Room, error) {
	rm, err := s.GetOwnedRoom(ctx, teacherID, roomID)
	if err != nil {
		return nil, err
	}
	if !rm.IsActive {
		return nil, ErrRoomClosed
	}
	if rm.QuizID == nil {
		return nil, ErrQuizNotAssigned
	}
	if rm.QuizStartTime != nil {
		return nil, ErrQuizAlreadyStarted
	}

	q, err := s.quizzes.GetByID(ctx, *rm.QuizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	duration := q.DurationMinutes
	if req.Minutes > 0 && req.Minutes != duration {
		if err := s.quizzes.UpdateDuration(ctx, q.ID, req.Minutes); err != nil {
			return nil, fmt.Errorf("override duration: %w", err)
		}
		duration = req.Minutes
	}

	start := s.now()
	if err := s.rooms.SetStartTime(ctx, roomID, &start); err != nil {
		return nil, fmt.Errorf("set start time: %w", err)
	}
	rm.QuizStartTime = &start

	s.cacheClock(ctx, roomID, start, duration)
	return rm, nil
}

// ExtendQuiz grants extra minutes to a running quiz by shifting its start
// time forward.
func (s *RoomService) ExtendQuiz(ctx context.Context, teacherID int, roomID uuid.UUID, minutes int) (*model.Room, error) {
	rm, err := s.GetOwnedRoom(ctx, teacherID, roomID)
	if err != nil {
		return nil, err
	}
	if rm.QuizID == nil || rm.QuizStartTime == nil {
		return nil, ErrQuizNotStarted
	}

	q, err := s.quizzes.GetByID(ctx, *rm.QuizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if quiz.RemainingSeconds(s.now(), rm.QuizStartTime, q.DurationMinutes) == 0 {
		return nil, ErrQuizNotRunning
	}

	start := quiz.Extend(*rm.QuizStartTime, minutes)
	if err := s.rooms.SetStartTime(ctx, roomID, &start); err != nil {
		return nil, fmt.Errorf("set start time: %w", err)
	}
	rm.QuizStartTime = &start

	s.cacheClock(ctx, roomID, start, q.DurationMinutes)
	return rm, nil
}

// CloseRoom marks a room inactive and drops its clock cache. The caller
// is expected to finalize outstanding submissions first.
func (s *RoomService) CloseRoom(ctx context.Context, teacherID int, roomID uuid.UUID) error {
	if _, err := s.GetOwnedRoom(ctx, teacherID, roomID); err != nil {
		return err
	}
	if err := s.rooms.Close(ctx, roomID); err != nil {
		return fmt.Errorf("close room: %w", err)
	}
	id := roomID.String()
	s.rdb.Del(ctx, config.CacheKey.RoomStartKey(id), config.CacheKey.RoomDurationKey(id))
	return nil
}

// RemainingSeconds reports the room's countdown, preferring the Redis
// clock cache and falling back to (and re-priming from) the database.
func (s *RoomService) RemainingSeconds(ctx context.Context, rm *model.Room) (int, error) {
	if rm.QuizID == nil || rm.QuizStartTime == nil {
		return 0, nil
	}

	id := rm.ID.String()
	vals, err := s.rdb.MGet(ctx, config.CacheKey.RoomStartKey(id), config.CacheKey.RoomDurationKey(id)).Result()
	if err == nil && len(vals) == 2 && vals[0] != nil && vals[1] != nil {
		startUnix, err1 := strconv.ParseInt(fmt.Sprint(vals[0]), 10, 64)
		duration, err2 := strconv.Atoi(fmt.Sprint(vals[1]))
		if err1 == nil && err2 == nil {
			start := time.Unix(startUnix, 0)
			return quiz.RemainingSeconds(s.now(), &start, duration), nil
		}
	}

	// Cache miss or garbage: answer from the database and self-heal.
	q, err := s.quizzes.GetByID(ctx, *rm.QuizID)
	if err != nil {
		return 0, fmt.Errorf("get quiz: %w", err)
	}
	s.cacheClock(ctx, rm.ID, *rm.QuizStartTime, q.DurationMinutes)
	return quiz.RemainingSeconds(s.now(), rm.QuizStartTime, q.DurationMinutes), nil
}

// cacheClock writes the room's start time and duration to Redis. Cache
// failures are swallowed: the database stays authoritative.
func (s *RoomService) cacheClock(ctx context.Context, roomID uuid.UUID, start time.Time, durationMinutes int) {
	ttl := time.Duration(durationMinutes)*time.Minute + time.Hour
	id := roomID.String()
	s.rdb.Set(ctx, config.CacheKey.RoomStartKey(id), start.Unix(), ttl)
	s.rdb.Set(ctx, config.CacheKey.RoomDurationKey(id), durationMinutes, ttl)
}
