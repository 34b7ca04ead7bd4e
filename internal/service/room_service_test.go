package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/quizroomhq/quizroom-backend/internal/config"
	"github.com/quizroomhq/quizroom-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      "test-secret",
		JWTExpiry:      time.Hour,
		BcryptCost:     4,
		RoomCodeLength: 6,
	}
}

type roomEnv struct {
	store *memStore
	svc   *RoomService
	now   time.Time
}

func newRoomEnv(t *testing.T) *roomEnv {
	t.Helper()
	store := newMemStore()
	e := &roomEnv{
		store: store,
		now:   time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
	e.svc = NewRoomService(testConfig(), testRedis(t), fakeRooms{store}, fakeQuizzes{store})
	e.svc.now = func() time.Time { return e.now }
	return e
}

const questionsJSON = `[
	{"text": "2 + 2?", "options": ["3", "4", "5"], "answer": 1},
	{"question": "Capital of France?", "options": {"a": "Paris", "b": "Rome"}, "answer": "a"}
]`

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  quiz-101! ", "QUIZ101"},
		{"math42", "MATH42"},
		{"ALREADYFINE", "ALREADYFIN"}, // truncated to 10
		{"___", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateRoomGeneratesCode(t *testing.T) {
	e := newRoomEnv(t)
	rm, err := e.svc.CreateRoom(context.Background(), 1, model.CreateRoomRequest{Name: "Period 3"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(rm.Code) != 6 {
		t.Errorf("code %q has length %d, want 6", rm.Code, len(rm.Code))
	}
	if !rm.IsActive {
		t.Error("new room not active")
	}
}

func TestCreateRoomCustomCodeCollision(t *testing.T) {
	e := newRoomEnv(t)
	ctx := context.Background()

	if _, err := e.svc.CreateRoom(ctx, 1, model.CreateRoomRequest{Name: "A", Code: "math42"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := e.svc.CreateRoom(ctx, 2, model.CreateRoomRequest{Name: "B", Code: "MATH42"})
	if !errors.Is(err, ErrRoomCodeTaken) {
		t.Errorf("got %v, want ErrRoomCodeTaken", err)
	}
}

func TestJoinRoom(t *testing.T) {
	e := newRoomEnv(t)
	ctx := context.Background()
	rm, _ := e.svc.CreateRoom(ctx, 1, model.CreateRoomRequest{Name: "A", Code: "MATH42"})

	joined, err := e.svc.JoinRoom(ctx, 7, "MATH42")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.ID != rm.ID {
		t.Error("joined wrong room")
	}

	// Joining twice is a no-op.
	if _, err := e.svc.JoinRoom(ctx, 7, "MATH42"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	ok, _ := e.store.IsMember(ctx, rm.ID, 7)
	if !ok {
		t.Error("student not recorded as member")
	}

	if _, err := e.svc.JoinRoom(ctx, 7, "NOPE"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("unknown code: got %v, want ErrRoomNotFound", err)
	}

	e.store.Close(ctx, rm.ID)
	if _, err := e.svc.JoinRoom(ctx, 8, "MATH42"); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("closed room: got %v, want ErrRoomClosed", err)
	}
}

func TestUploadQuizRejectedAfterStart(t *testing.T) {
	e := newRoomEnv(t)
	ctx := context.Background()
	rm, _ := e.svc.CreateRoom(ctx, 1, model.CreateRoomRequest{Name: "A"})

	q, err := e.svc.UploadQuiz(ctx, 1, rm.ID, model.UploadQuizRequest{
		Title:     "Fundamentals",
		Questions: []byte(questionsJSON),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if q.DurationMinutes != defaultQuizDurationMinutes {
		t.Errorf("duration = %d, want default %d", q.DurationMinutes, defaultQuizDurationMinutes)
	}
	if len(q.Questions) != 2 {
		t.Fatalf("normalized %d questions, want 2", len(q.Questions))
	}

	if _, err := e.svc.StartQuiz(ctx, 1, rm.ID, model.StartQuizRequest{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = e.svc.UploadQuiz(ctx, 1, rm.ID, model.UploadQuizRequest{
		Title:     "Replacement",
		Questions: []byte(questionsJSON),
	})
	if !errors.Is(err, ErrQuizAlreadyStarted) {
		t.Errorf("got %v, want ErrQuizAlreadyStarted", err)
	}
}

func TestUploadQuizInvalidQuestions(t *testing.T) {
	e := newRoomEnv(t)
	ctx := context.Background()
	rm, _ := e.svc.CreateRoom(ctx, 1, model.CreateRoomRequest{Name: "A"})

	_, err := e.svc.UploadQuiz(ctx, 1, rm.ID, model.UploadQuizRequest{
		Title:     "Broken",
		Questions: []byte(`[{"options": ["a", "b"], "answer": 0}]`),
	})
	if err == nil {
		t.Fatal("upload of question without text succeeded")
	}
}

func TestStartQuizLifecycle(t *testing.T) {
	e := newRoomEnv(t)
	ctx := context.Background()
	rm, _ := e.svc.CreateRoom(ctx, 1, model.CreateRoomRequest{Name: "A"})

	if _, err := e.svc.StartQuiz(ctx, 1, rm.ID, model.StartQuizRequest{}); !errors.Is(err, ErrQuizNotAssigned) {
		t.Errorf("start without quiz: got %v, want ErrQuizNotAssigned", err)
	}

	q, _ := e.svc.UploadQuiz(ctx, 1, rm.ID, model.UploadQuizRequest{Title: "F", Questions: []byte(questionsJSON)})

	started, err := e.svc.StartQuiz(ctx, 1, rm.ID, model.StartQuizRequest{Minutes: 7})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.QuizStartTime == nil || !started.QuizStartTime.Equal(e.now) {
		t.Errorf("start time = %v, want %v", started.QuizStartTime, e.now)
	}

	// The minutes override is persisted to the quiz.
	stored, _ := e.store.GetQuizByID(ctx, q.ID)
	if stored.DurationMinutes != 7 {
		t.Errorf("duration = %d, want override 7", stored.DurationMinutes)
	}

	if _, err := e.svc.StartQuiz(ctx, 1, rm.ID, model.StartQuizRequest{}); !errors.Is(err, ErrQuizAlreadyStarted) {
		t.Errorf("restart: got %v, want ErrQuizAlreadyStarted", err)
	}
	if _, err := e.svc.StartQuiz(ctx, 2, rm.ID, model.StartQuizRequest{}); !errors.Is(err, ErrNotRoomOwner) {
		t.Errorf("foreign teacher: got %v, want ErrNotRoomOwner", err)
	}
}

func TestRemainingSecondsFromCacheAndSelfHeal(t *testing.T) {
	e := newRoomEnv(t)
	ctx := context.Background()
	rm, _ := e.svc.CreateRoom(ctx, 1, model.CreateRoomRequest{Name: "A"})
	e.svc.UploadQuiz(ctx, 1, rm.ID, model.UploadQuizRequest{Title: "F", DurationMinutes: 5, Questions: []byte(questionsJSON)})
	started, err := e.svc.StartQuiz(ctx, 1, rm.ID, model.StartQuizRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	e.now = e.now.Add(2 * time.Minute)
	remaining, err := e.svc.RemainingSeconds(ctx, started)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 180 {
		t.Errorf("remaining = %d, want 180", remaining)
	}

	// Flush the cache; the database fallback answers and re-primes it.
	id := rm.ID.String()
	e.svc.rdb.Del(ctx, config.CacheKey.RoomStartKey(id), config.CacheKey.RoomDurationKey(id))
	remaining, err = e.svc.RemainingSeconds(ctx, started)
	if err != nil {
		t.Fatalf("remaining after flush: %v", err)
	}
	if remaining != 180 {
		t.Errorf("remaining after flush = %d, want 180", remaining)
	}
	if err := e.svc.rdb.Get(ctx, config.CacheKey.RoomStartKey(id)).Err(); err != nil {
		t.Errorf("cache not re-primed: %v", err)
	}
}

func TestExtendQuizAddsTime(t *testing.T) {
	e := newRoomEnv(t)
	ctx := context.Background()
	rm, _ := e.svc.CreateRoom(ctx, 1, model.CreateRoomRequest{Name: "A"})
	e.svc.UploadQuiz(ctx, 1, rm.ID, model.UploadQuizRequest{Title: "F", DurationMinutes: 5, Questions: []byte(questionsJSON)})
	started, _ := e.svc.StartQuiz(ctx, 1, rm.ID, model.StartQuizRequest{})

	e.now = e.now.Add(4 * time.Minute)
	before, _ := e.svc.RemainingSeconds(ctx, started)

	extended, err := e.svc.ExtendQuiz(ctx, 1, rm.ID, 3)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	after, _ := e.svc.RemainingSeconds(ctx, extended)
	if after-before != 180 {
		t.Errorf("extend by 3m changed remaining by %d, want 180", after-before)
	}

	// Extending a quiz whose window already elapsed is rejected.
	e.now = e.now.Add(time.Hour)
	if _, err := e.svc.ExtendQuiz(ctx, 1, rm.ID, 3); !errors.Is(err, ErrQuizNotRunning) {
		t.Errorf("extend expired: got %v, want ErrQuizNotRunning", err)
	}
}

func TestCloseRoomDropsClockCache(t *testing.T) {
	e := newRoomEnv(t)
	ctx := context.Background()
	rm, _ := e.svc.CreateRoom(ctx, 1, model.CreateRoomRequest{Name: "A"})
	e.svc.UploadQuiz(ctx, 1, rm.ID, model.UploadQuizRequest{Title: "F", Questions: []byte(questionsJSON)})
	e.svc.StartQuiz(ctx, 1, rm.ID, model.StartQuizRequest{})

	if err := e.svc.CloseRoom(ctx, 1, rm.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	closed, _ := e.store.GetRoomByID(ctx, rm.ID)
	if closed.IsActive {
		t.Error("room still active after close")
	}
	if err := e.svc.rdb.Get(ctx, config.CacheKey.RoomStartKey(rm.ID.String())).Err(); !errors.Is(err, redis.Nil) {
		t.Errorf("clock cache survived close: %v", err)
	}
}
