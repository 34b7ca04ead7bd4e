package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizroomhq/quizroom-backend/internal/model"
)

// QuizRepository handles quiz data access. Question lists are stored as a
// JSONB column in the normalized shape; a corrupted blob degrades to an
// empty question list rather than failing the read.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// Create inserts a new quiz with its normalized questions.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, duration_minutes, questions)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		q.Title, q.DurationMinutes, questions,
	).Scan(&q.ID, &q.CreatedAt)
}

// GetByID retrieves a quiz by ID.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	var questions []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_minutes, questions, created_at
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.Title, &q.DurationMinutes, &questions, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		q.Questions = nil
	}
	return q, nil
}

// UpdateDuration sets a quiz's duration in minutes.
func (r *QuizRepository) UpdateDuration(ctx context.Context, id uuid.UUID, minutes int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET duration_minutes = $1 WHERE id = $2`, minutes, id)
	return err
}

// Count returns the total number of quizzes.
func (r *QuizRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quizzes`).Scan(&n)
	return n, err
}
