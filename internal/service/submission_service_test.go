package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quizroomhq/quizroom-backend/internal/model"
	"github.com/rs/zerolog"
)

// quizEnv wires a SubmissionService over in-memory fakes with a
// controllable clock, seeded with one teacher, three student members,
// and a three-question quiz.
type quizEnv struct {
	store    *memStore
	svc      *SubmissionService
	room     *model.Room
	quiz     *model.Quiz
	students []int
	now      time.Time
}

func (e *quizEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func newQuizEnv(t *testing.T) *quizEnv {
	t.Helper()
	ctx := context.Background()
	store := newMemStore()

	e := &quizEnv{
		store: store,
		now:   time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}

	teacher := &model.User{Name: "Ms. Hill", Email: "hill@school.test", Role: model.RoleTeacher}
	if err := store.CreateUser(ctx, teacher); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	for i, name := range []string{"Asha", "Ben", "Chloe"} {
		roll := string(rune('A'+i)) + "01"
		u := &model.User{Name: name, Email: name + "@school.test", Role: model.RoleStudent, Roll: &roll}
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("create student: %v", err)
		}
		e.students = append(e.students, u.ID)
	}

	room := &model.Room{Name: "Period 3", Code: "MATH42", TeacherID: teacher.ID}
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	e.room = room

	q := &model.Quiz{
		Title:           "Fundamentals",
		DurationMinutes: 5,
		Questions: []model.Question{
			{Text: "2 + 2?", Options: []string{"3", "4", "5"}, Answer: 1},
			{Text: "Capital of France?", Options: []string{"Paris", "Rome", "Berlin"}, Answer: 0},
			{Text: "Largest planet?", Options: []string{"Mars", "Venus", "Jupiter"}, Answer: 2},
		},
	}
	if err := store.CreateQuiz(ctx, q); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	e.quiz = q
	store.SetQuiz(ctx, room.ID, q.ID)

	for _, id := range e.students {
		store.AddMember(ctx, room.ID, id)
	}

	e.svc = NewSubmissionService(fakeRooms{store}, fakeQuizzes{store}, fakeSubs{store}, zerolog.Nop())
	e.svc.now = func() time.Time { return e.now }
	return e
}

// startQuiz stamps the room's start time at the env's current instant.
func (e *quizEnv) startQuiz(t *testing.T) {
	t.Helper()
	start := e.now
	if err := e.store.SetStartTime(context.Background(), e.room.ID, &start); err != nil {
		t.Fatalf("set start time: %v", err)
	}
}

func TestTakeQuizStampsStartExactlyOnce(t *testing.T) {
	e := newQuizEnv(t)
	e.startQuiz(t)
	ctx := context.Background()

	first, err := e.svc.TakeQuiz(ctx, e.students[0], e.room.ID)
	if err != nil {
		t.Fatalf("first take: %v", err)
	}
	if first.StartedAt == nil {
		t.Fatal("first take did not set started_at")
	}
	if first.RemainingSeconds != 300 {
		t.Errorf("remaining = %d, want 300", first.RemainingSeconds)
	}
	if len(first.Questions) != 3 {
		t.Fatalf("got %d questions, want 3", len(first.Questions))
	}

	e.advance(30 * time.Second)
	second, err := e.svc.TakeQuiz(ctx, e.students[0], e.room.ID)
	if err != nil {
		t.Fatalf("second take: %v", err)
	}
	if !second.StartedAt.Equal(*first.StartedAt) {
		t.Errorf("started_at moved from %v to %v", first.StartedAt, second.StartedAt)
	}
	if second.RemainingSeconds != 270 {
		t.Errorf("remaining = %d, want 270", second.RemainingSeconds)
	}
}

func TestTakeQuizGuards(t *testing.T) {
	e := newQuizEnv(t)
	ctx := context.Background()

	if _, err := e.svc.TakeQuiz(ctx, e.students[0], e.room.ID); !errors.Is(err, ErrQuizNotStarted) {
		t.Errorf("before start: got %v, want ErrQuizNotStarted", err)
	}

	e.startQuiz(t)
	outsider := &model.User{Name: "Dana", Email: "dana@school.test", Role: model.RoleStudent}
	e.store.CreateUser(ctx, outsider)
	if _, err := e.svc.TakeQuiz(ctx, outsider.ID, e.room.ID); !errors.Is(err, ErrNotRoomMember) {
		t.Errorf("non-member: got %v, want ErrNotRoomMember", err)
	}

	e.store.Close(ctx, e.room.ID)
	if _, err := e.svc.TakeQuiz(ctx, e.students[0], e.room.ID); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("closed room: got %v, want ErrRoomClosed", err)
	}
}

func TestSubmitScoresExactMatches(t *testing.T) {
	e := newQuizEnv(t)
	e.startQuiz(t)
	ctx := context.Background()
	student := e.students[0]

	if _, err := e.svc.TakeQuiz(ctx, student, e.room.ID); err != nil {
		t.Fatalf("take: %v", err)
	}

	// Questions 0 and 1 right, question 2 wrong.
	out, err := e.svc.Submit(ctx, student, e.room.ID, map[string]int{"0": 1, "1": 0, "2": 1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Expired {
		t.Error("submit reported expired")
	}
	if out.Score != 2 || out.TotalQuestions != 3 {
		t.Errorf("score = %d/%d, want 2/3", out.Score, out.TotalQuestions)
	}

	sheet, err := e.svc.StudentSheet(ctx, student, e.room.ID)
	if err != nil {
		t.Fatalf("sheet: %v", err)
	}
	if sheet.AutoSubmitReason != nil {
		t.Errorf("manual sheet tagged auto: %v", *sheet.AutoSubmitReason)
	}
	if len(sheet.Details) != 3 {
		t.Fatalf("sheet has %d lines, want 3", len(sheet.Details))
	}
	line := sheet.Details[2]
	if line.Correct || line.StudentChoice != 1 || line.CorrectAnswer != 2 {
		t.Errorf("line 2 = %+v, want incorrect choice 1 vs answer 2", line)
	}
	if !sheet.Details[0].Correct || !sheet.Details[1].Correct {
		t.Error("lines 0 and 1 should be correct")
	}
}

func TestSubmitFillsMissingAnswers(t *testing.T) {
	e := newQuizEnv(t)
	e.startQuiz(t)
	ctx := context.Background()
	student := e.students[0]

	out, err := e.svc.Submit(ctx, student, e.room.ID, map[string]int{"0": 1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Score != 1 {
		t.Errorf("score = %d, want 1", out.Score)
	}

	sub, err := e.store.Get(ctx, e.room.ID, student)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	want := map[string]int{"0": 1, "1": -1, "2": -1}
	for k, v := range want {
		if sub.Answers[k] != v {
			t.Errorf("answers[%s] = %d, want %d", k, sub.Answers[k], v)
		}
	}
}

func TestResubmissionRejected(t *testing.T) {
	e := newQuizEnv(t)
	e.startQuiz(t)
	ctx := context.Background()
	student := e.students[0]

	if _, err := e.svc.Submit(ctx, student, e.room.ID, map[string]int{"0": 1}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := e.svc.Submit(ctx, student, e.room.ID, map[string]int{"0": 1, "1": 0, "2": 2})
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("resubmit: got %v, want ErrAlreadySubmitted", err)
	}

	// First submission's score must survive.
	sub, _ := e.store.Get(ctx, e.room.ID, student)
	if sub.Score != 1 || sub.Status != model.SubmissionStatusSubmitted {
		t.Errorf("submission = %s/%d, want SUBMITTED/1", sub.Status, sub.Score)
	}
}

func TestExpiryFinalizesWholeRoom(t *testing.T) {
	e := newQuizEnv(t)
	e.startQuiz(t)
	ctx := context.Background()

	// Student 0 submits a perfect run mid-window.
	e.advance(60 * time.Second)
	out, err := e.svc.Submit(ctx, e.students[0], e.room.ID, map[string]int{"0": 1, "1": 0, "2": 2})
	if err != nil || out.Score != 3 {
		t.Fatalf("submit: score=%v err=%v", out, err)
	}

	// Window elapses; student 1's view triggers the finalizer.
	e.advance(241 * time.Second)
	session, err := e.svc.TakeQuiz(ctx, e.students[1], e.room.ID)
	if err != nil {
		t.Fatalf("take after expiry: %v", err)
	}
	if !session.Expired {
		t.Error("session not marked expired")
	}
	if session.Status != model.SubmissionStatusAutoSubmitted {
		t.Errorf("status = %s, want AUTO_SUBMITTED", session.Status)
	}
	if session.Score == nil || *session.Score != 0 {
		t.Errorf("score = %v, want 0", session.Score)
	}
	if len(session.Questions) != 0 {
		t.Error("expired session leaked questions")
	}

	// The submitted student is untouched; every other member is finalized.
	sub0, _ := e.store.Get(ctx, e.room.ID, e.students[0])
	if sub0.Status != model.SubmissionStatusSubmitted || sub0.Score != 3 {
		t.Errorf("student 0 = %s/%d, want SUBMITTED/3", sub0.Status, sub0.Score)
	}
	for _, id := range e.students[1:] {
		sub, err := e.store.Get(ctx, e.room.ID, id)
		if err != nil {
			t.Fatalf("student %d has no submission", id)
		}
		if sub.Status != model.SubmissionStatusAutoSubmitted || sub.Score != 0 {
			t.Errorf("student %d = %s/%d, want AUTO_SUBMITTED/0", id, sub.Status, sub.Score)
		}
		sheet, err := e.store.GetSheet(ctx, e.room.ID, id)
		if err != nil {
			t.Fatalf("student %d has no sheet", id)
		}
		if sheet.AutoSubmitReason == nil || *sheet.AutoSubmitReason != model.AutoSubmitReason {
			t.Errorf("student %d sheet reason = %v, want auto", id, sheet.AutoSubmitReason)
		}
		for _, line := range sheet.Details {
			if line.StudentChoice != -1 || line.Correct {
				t.Errorf("auto sheet line %d = %+v, want choice -1", line.Index, line)
			}
		}
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	e := newQuizEnv(t)
	e.startQuiz(t)
	ctx := context.Background()

	e.advance(time.Minute)
	if _, err := e.svc.Submit(ctx, e.students[0], e.room.ID, map[string]int{"0": 1, "1": 0, "2": 2}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	e.advance(10 * time.Minute)

	if err := e.svc.FinalizeRoom(ctx, e.room.ID); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	before := map[int]model.Submission{}
	for _, id := range e.students {
		sub, _ := e.store.Get(ctx, e.room.ID, id)
		before[id] = *sub
	}

	if err := e.svc.FinalizeRoom(ctx, e.room.ID); err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	for _, id := range e.students {
		sub, _ := e.store.Get(ctx, e.room.ID, id)
		prev := before[id]
		if sub.Status != prev.Status || sub.Score != prev.Score {
			t.Errorf("student %d changed from %s/%d to %s/%d",
				id, prev.Status, prev.Score, sub.Status, sub.Score)
		}
	}
}

func TestSubmitAfterExpiryReportsExpired(t *testing.T) {
	e := newQuizEnv(t)
	e.startQuiz(t)
	ctx := context.Background()
	student := e.students[0]

	e.advance(301 * time.Second)
	out, err := e.svc.Submit(ctx, student, e.room.ID, map[string]int{"0": 1, "1": 0, "2": 2})
	if err != nil {
		t.Fatalf("late submit: %v", err)
	}
	if !out.Expired {
		t.Error("late submit not marked expired")
	}

	// The late answers are discarded; the finalizer recorded zero.
	sub, _ := e.store.Get(ctx, e.room.ID, student)
	if sub.Status != model.SubmissionStatusAutoSubmitted || sub.Score != 0 {
		t.Errorf("submission = %s/%d, want AUTO_SUBMITTED/0", sub.Status, sub.Score)
	}
}

func TestResultLifecycle(t *testing.T) {
	e := newQuizEnv(t)
	e.startQuiz(t)
	ctx := context.Background()
	student := e.students[0]

	if _, err := e.svc.Result(ctx, student, e.room.ID); !errors.Is(err, ErrResultNotReady) {
		t.Errorf("result mid-quiz: got %v, want ErrResultNotReady", err)
	}

	// Asking for the result after the window lazily finalizes the room.
	e.advance(301 * time.Second)
	res, err := e.svc.Result(ctx, student, e.room.ID)
	if err != nil {
		t.Fatalf("result after expiry: %v", err)
	}
	if !res.AutoSubmitted || res.Score != 0 || res.TotalQuestions != 3 {
		t.Errorf("result = %+v, want auto-submitted 0/3", res)
	}
}

func TestStudentSheetMissing(t *testing.T) {
	e := newQuizEnv(t)
	e.startQuiz(t)

	_, err := e.svc.StudentSheet(context.Background(), e.students[0], e.room.ID)
	if !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("got %v, want ErrSheetNotFound", err)
	}
}
