package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quizroomhq/quizroom-backend/internal/model"
)

// memStore backs in-memory fakes of every store interface, mirroring the
// SQL repositories' semantics closely enough for service tests:
// pgx.ErrNoRows on miss, unique violations as *pgconn.PgError, and the
// status guard on submission writes. The fake* adapters below rename the
// colliding methods onto the interface shapes.
type memStore struct {
	mu      sync.Mutex
	nextID  int
	users   map[int]*model.User
	rooms   map[uuid.UUID]*model.Room
	quizzes map[uuid.UUID]*model.Quiz
	members map[uuid.UUID][]int
	subs    map[string]*model.Submission
	sheets  map[string]*model.AnswerSheet
}

func newMemStore() *memStore {
	return &memStore{
		nextID:  1,
		users:   map[int]*model.User{},
		rooms:   map[uuid.UUID]*model.Room{},
		quizzes: map[uuid.UUID]*model.Quiz{},
		members: map[uuid.UUID][]int{},
		subs:    map[string]*model.Submission{},
		sheets:  map[string]*model.AnswerSheet{},
	}
}

func subKey(roomID uuid.UUID, studentID int) string {
	return fmt.Sprintf("%s|%d", roomID, studentID)
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

// ─── UserStore ──────────────────────────────────────────────────────────

func (m *memStore) CreateUser(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return uniqueViolation()
		}
	}
	u.ID = m.nextID
	m.nextID++
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

// ─── RoomStore ──────────────────────────────────────────────────────────

func (m *memStore) CreateRoom(ctx context.Context, rm *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rooms {
		if existing.Code == rm.Code {
			return uniqueViolation()
		}
	}
	rm.ID = uuid.New()
	rm.IsActive = true
	rm.CreatedAt = time.Now()
	cp := *rm
	m.rooms[rm.ID] = &cp
	return nil
}

func (m *memStore) GetRoomByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm, ok := m.rooms[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *rm
	return &cp, nil
}

func (m *memStore) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rm := range m.rooms {
		if rm.Code == code {
			cp := *rm
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) ListByTeacher(ctx context.Context, teacherID int) ([]model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Room
	for _, rm := range m.rooms {
		if rm.TeacherID == teacherID {
			out = append(out, *rm)
		}
	}
	return out, nil
}

func (m *memStore) SetQuiz(ctx context.Context, roomID, quizID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rm, ok := m.rooms[roomID]; ok {
		id := quizID
		rm.QuizID = &id
	}
	return nil
}

func (m *memStore) SetStartTime(ctx context.Context, roomID uuid.UUID, start *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rm, ok := m.rooms[roomID]; ok {
		rm.QuizStartTime = start
	}
	return nil
}

func (m *memStore) Close(ctx context.Context, roomID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rm, ok := m.rooms[roomID]; ok {
		rm.IsActive = false
	}
	return nil
}

func (m *memStore) AddMember(ctx context.Context, roomID uuid.UUID, studentID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.members[roomID] {
		if id == studentID {
			return nil
		}
	}
	m.members[roomID] = append(m.members[roomID], studentID)
	return nil
}

func (m *memStore) IsMember(ctx context.Context, roomID uuid.UUID, studentID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.members[roomID] {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListMembers(ctx context.Context, roomID uuid.UUID) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, id := range m.members[roomID] {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) ListJoined(ctx context.Context, studentID int) ([]model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Room
	for roomID, ids := range m.members {
		for _, id := range ids {
			if id == studentID {
				out = append(out, *m.rooms[roomID])
			}
		}
	}
	return out, nil
}

func (m *memStore) DashboardCounts(ctx context.Context, teacherID int) (*model.DashboardCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &model.DashboardCounts{}
	for _, rm := range m.rooms {
		if rm.TeacherID != teacherID {
			continue
		}
		c.Rooms++
		if rm.IsActive {
			c.ActiveRooms++
		}
		if rm.QuizID != nil {
			c.Quizzes++
		}
		c.Students += len(m.members[rm.ID])
	}
	return c, nil
}

// ─── QuizStore ──────────────────────────────────────────────────────────

func (m *memStore) CreateQuiz(ctx context.Context, q *model.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = uuid.New()
	q.CreatedAt = time.Now()
	cp := *q
	m.quizzes[q.ID] = &cp
	return nil
}

func (m *memStore) GetQuizByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (m *memStore) UpdateDuration(ctx context.Context, id uuid.UUID, minutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.quizzes[id]; ok {
		q.DurationMinutes = minutes
	}
	return nil
}

// ─── SubmissionStore ────────────────────────────────────────────────────

func (m *memStore) Get(ctx context.Context, roomID uuid.UUID, studentID int) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[subKey(roomID, studentID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) EnsureStarted(ctx context.Context, roomID uuid.UUID, studentID int, now time.Time) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subKey(roomID, studentID)
	s, ok := m.subs[key]
	if !ok {
		started := now
		s = &model.Submission{
			ID:        uuid.New(),
			RoomID:    roomID,
			StudentID: studentID,
			Status:    model.SubmissionStatusInProgress,
			Answers:   map[string]int{},
			StartedAt: &started,
		}
		m.subs[key] = s
	} else if s.StartedAt == nil {
		started := now
		s.StartedAt = &started
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) Submit(ctx context.Context, roomID uuid.UUID, studentID, score int, answers map[string]int, details []model.SheetLine) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subKey(roomID, studentID)
	s, ok := m.subs[key]
	if !ok {
		s = &model.Submission{ID: uuid.New(), RoomID: roomID, StudentID: studentID, Status: model.SubmissionStatusInProgress}
		m.subs[key] = s
	}
	if s.Status != model.SubmissionStatusInProgress {
		return false, nil
	}
	s.Status = model.SubmissionStatusSubmitted
	s.Score = score
	s.Answers = answers
	m.sheets[key] = &model.AnswerSheet{
		ID: uuid.New(), RoomID: roomID, StudentID: studentID,
		Score: score, Details: details, CreatedAt: time.Now(),
	}
	return true, nil
}

func (m *memStore) FinalizeMembers(ctx context.Context, roomID uuid.UUID, studentIDs []int, answers map[string]int, details []model.SheetLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reason := model.AutoSubmitReason
	for _, id := range studentIDs {
		key := subKey(roomID, id)
		s, ok := m.subs[key]
		if !ok {
			s = &model.Submission{ID: uuid.New(), RoomID: roomID, StudentID: id, Status: model.SubmissionStatusInProgress}
			m.subs[key] = s
		}
		if s.Status != model.SubmissionStatusInProgress {
			continue
		}
		s.Status = model.SubmissionStatusAutoSubmitted
		s.Score = 0
		s.Answers = answers
		m.sheets[key] = &model.AnswerSheet{
			ID: uuid.New(), RoomID: roomID, StudentID: id,
			Score: 0, Details: details, AutoSubmitReason: &reason, CreatedAt: time.Now(),
		}
	}
	return nil
}

func (m *memStore) GetSheet(ctx context.Context, roomID uuid.UUID, studentID int) (*model.AnswerSheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sh, ok := m.sheets[subKey(roomID, studentID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *sh
	return &cp, nil
}

func (m *memStore) ListByRoom(ctx context.Context, roomID uuid.UUID) (map[int]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int]model.Submission{}
	for _, s := range m.subs {
		if s.RoomID == roomID {
			out[s.StudentID] = *s
		}
	}
	return out, nil
}

func (m *memStore) ListByStudent(ctx context.Context, studentID int) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Submission
	for _, s := range m.subs {
		if s.StudentID == studentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

// ─── Interface adapters ─────────────────────────────────────────────────

type fakeUsers struct{ *memStore }

func (f fakeUsers) Create(ctx context.Context, u *model.User) error {
	return f.CreateUser(ctx, u)
}

func (f fakeUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.GetUserByEmail(ctx, email)
}

func (f fakeUsers) GetByID(ctx context.Context, id int) (*model.User, error) {
	return f.GetUserByID(ctx, id)
}

type fakeRooms struct{ *memStore }

func (f fakeRooms) Create(ctx context.Context, rm *model.Room) error {
	return f.CreateRoom(ctx, rm)
}

func (f fakeRooms) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	return f.GetRoomByID(ctx, id)
}

type fakeQuizzes struct{ *memStore }

func (f fakeQuizzes) Create(ctx context.Context, q *model.Quiz) error {
	return f.CreateQuiz(ctx, q)
}

func (f fakeQuizzes) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	return f.GetQuizByID(ctx, id)
}

type fakeSubs struct{ *memStore }
