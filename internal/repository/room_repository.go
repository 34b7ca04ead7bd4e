package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizroomhq/quizroom-backend/internal/model"
)

// RoomRepository handles room and membership data access.
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

const roomColumns = `id, name, code, teacher_id, quiz_id, is_active, quiz_start_time, created_at`

func scanRoom(row interface{ Scan(...any) error }) (*model.Room, error) {
	rm := &model.Room{}
	err := row.Scan(&rm.ID, &rm.Name, &rm.Code, &rm.TeacherID, &rm.QuizID,
		&rm.IsActive, &rm.QuizStartTime, &rm.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rm, nil
}

// Create inserts a new room and populates its ID and timestamps.
func (r *RoomRepository) Create(ctx context.Context, rm *model.Room) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO rooms (name, code, teacher_id, is_active)
		 VALUES ($1, $2, $3, TRUE)
		 RETURNING id, is_active, created_at`,
		rm.Name, rm.Code, rm.TeacherID,
	).Scan(&rm.ID, &rm.IsActive, &rm.CreatedAt)
}

// GetByID retrieves a room by ID.
func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	return scanRoom(r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
}

// GetByCode retrieves a room by its code, case-insensitively.
func (r *RoomRepository) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	return scanRoom(r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE UPPER(code) = UPPER($1)`, code))
}

// ListByTeacher retrieves all rooms owned by a teacher, newest first.
func (r *RoomRepository) ListByTeacher(ctx context.Context, teacherID int) ([]model.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM rooms
		 WHERE teacher_id = $1 ORDER BY created_at DESC`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *rm)
	}
	return rooms, rows.Err()
}

// SetQuiz assigns (or replaces) the room's quiz.
func (r *RoomRepository) SetQuiz(ctx context.Context, roomID, quizID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms SET quiz_id = $1 WHERE id = $2`, quizID, roomID)
	return err
}

// SetStartTime sets or clears the room's quiz start time.
func (r *RoomRepository) SetStartTime(ctx context.Context, roomID uuid.UUID, start *time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms SET quiz_start_time = $1 WHERE id = $2`, start, roomID)
	return err
}

// Close marks the room inactive.
func (r *RoomRepository) Close(ctx context.Context, roomID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms SET is_active = FALSE WHERE id = $1`, roomID)
	return err
}

// AddMember adds a student to the room. Joining twice is a no-op.
func (r *RoomRepository) AddMember(ctx context.Context, roomID uuid.UUID, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO room_members (room_id, student_id)
		 VALUES ($1, $2)
		 ON CONFLICT (room_id, student_id) DO NOTHING`,
		roomID, studentID)
	return err
}

// IsMember reports whether a student belongs to the room.
func (r *RoomRepository) IsMember(ctx context.Context, roomID uuid.UUID, studentID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM room_members WHERE room_id = $1 AND student_id = $2
		)`, roomID, studentID).Scan(&exists)
	return exists, err
}

// ListMembers retrieves the room's student members ordered by name.
func (r *RoomRepository) ListMembers(ctx context.Context, roomID uuid.UUID) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.email, u.password_hash, u.role, u.roll, u.created_at
		 FROM room_members m
		 JOIN users u ON u.id = m.student_id
		 WHERE m.room_id = $1
		 ORDER BY u.name ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Roll, &u.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, u)
	}
	return members, rows.Err()
}

// ListJoined retrieves the rooms a student is a member of, newest first.
func (r *RoomRepository) ListJoined(ctx context.Context, studentID int) ([]model.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.code, r.teacher_id, r.quiz_id, r.is_active, r.quiz_start_time, r.created_at
		 FROM room_members m
		 JOIN rooms r ON r.id = m.room_id
		 WHERE m.student_id = $1
		 ORDER BY r.created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *rm)
	}
	return rooms, rows.Err()
}

// DashboardCounts aggregates room/member totals for a teacher's dashboard.
func (r *RoomRepository) DashboardCounts(ctx context.Context, teacherID int) (*model.DashboardCounts, error) {
	c := &model.DashboardCounts{}
	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(quiz_id),
			COALESCE((
				SELECT COUNT(*) FROM room_members m
				JOIN rooms r2 ON r2.id = m.room_id
				WHERE r2.teacher_id = $1
			), 0)
		 FROM rooms WHERE teacher_id = $1`, teacherID,
	).Scan(&c.Rooms, &c.ActiveRooms, &c.Quizzes, &c.Students)
	if err != nil {
		return nil, err
	}
	return c, nil
}
