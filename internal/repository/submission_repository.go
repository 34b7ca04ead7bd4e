package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizroomhq/quizroom-backend/internal/model"
)

// SubmissionRepository handles submission and answer-sheet data access.
// The (room_id, student_id) pair is unique on both tables; every write path
// is either an upsert or a status-guarded update so the finalizer and the
// submission engine can never interleave into an inconsistent row.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

const submissionColumns = `id, room_id, student_id, status, score, answers, started_at`

func scanSubmission(row interface{ Scan(...any) error }) (*model.Submission, error) {
	s := &model.Submission{}
	var answers []byte
	err := row.Scan(&s.ID, &s.RoomID, &s.StudentID, &s.Status, &s.Score, &answers, &s.StartedAt)
	if err != nil {
		return nil, err
	}
	// A corrupted answers blob reads as empty rather than failing.
	if err := json.Unmarshal(answers, &s.Answers); err != nil || s.Answers == nil {
		s.Answers = map[string]int{}
	}
	return s, nil
}

// Get retrieves the submission for a student/room pair.
func (r *SubmissionRepository) Get(ctx context.Context, roomID uuid.UUID, studentID int) (*model.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions WHERE room_id = $1 AND student_id = $2`,
		roomID, studentID))
}

// EnsureStarted creates the submission row on first access and records the
// start time exactly once; later calls leave started_at untouched.
func (r *SubmissionRepository) EnsureStarted(ctx context.Context, roomID uuid.UUID, studentID int, now time.Time) (*model.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx,
		`INSERT INTO submissions (room_id, student_id, status, score, answers, started_at)
		 VALUES ($1, $2, $3, 0, '{}', $4)
		 ON CONFLICT (room_id, student_id)
		 DO UPDATE SET started_at = COALESCE(submissions.started_at, EXCLUDED.started_at)
		 RETURNING `+submissionColumns,
		roomID, studentID, model.SubmissionStatusInProgress, now))
}

// Submit writes the manual submission and upserts its answer sheet in one
// transaction. It returns false without writing when the student has
// already submitted (manually or via finalize) — the status guard is the
// at-most-one-real-submission check.
func (r *SubmissionRepository) Submit(ctx context.Context, roomID uuid.UUID, studentID, score int, answers map[string]int, details []model.SheetLine) (bool, error) {
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return false, fmt.Errorf("marshal answers: %w", err)
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return false, fmt.Errorf("marshal details: %w", err)
	}

	submitted := false
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var id uuid.UUID
		err := tx.QueryRow(ctx,
			`INSERT INTO submissions (room_id, student_id, status, score, answers)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (room_id, student_id) DO UPDATE
			 SET status = EXCLUDED.status, score = EXCLUDED.score, answers = EXCLUDED.answers
			 WHERE submissions.status = $6
			 RETURNING id`,
			roomID, studentID, model.SubmissionStatusSubmitted, score, answersJSON,
			model.SubmissionStatusInProgress,
		).Scan(&id)
		if err != nil {
			if err == pgx.ErrNoRows {
				// Guard rejected the write: already submitted.
				return nil
			}
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO answer_sheets (room_id, student_id, score, details, auto_submit_reason)
			 VALUES ($1, $2, $3, $4, NULL)
			 ON CONFLICT (room_id, student_id) DO UPDATE
			 SET score = EXCLUDED.score, details = EXCLUDED.details,
			     auto_submit_reason = EXCLUDED.auto_submit_reason, created_at = NOW()`,
			roomID, studentID, score, detailsJSON)
		if err != nil {
			return err
		}
		submitted = true
		return nil
	})
	return submitted, err
}

// FinalizeMembers auto-submits zero-score records and "auto" sheets for the
// given students in a single transaction: either every student is finalized
// or none are. The status guard re-checks each row inside the transaction,
// so a student whose manual submission landed in the meantime is skipped.
func (r *SubmissionRepository) FinalizeMembers(ctx context.Context, roomID uuid.UUID, studentIDs []int, answers map[string]int, details []model.SheetLine) error {
	if len(studentIDs) == 0 {
		return nil
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`INSERT INTO submissions (room_id, student_id, status, score, answers)
			 SELECT $1, sid, $2, 0, $3
			 FROM UNNEST($4::int[]) AS sid
			 ON CONFLICT (room_id, student_id) DO UPDATE
			 SET status = EXCLUDED.status, score = 0, answers = EXCLUDED.answers
			 WHERE submissions.status = $5
			 RETURNING student_id`,
			roomID, model.SubmissionStatusAutoSubmitted, answersJSON, studentIDs,
			model.SubmissionStatusInProgress)
		if err != nil {
			return err
		}
		finalized := make([]int, 0, len(studentIDs))
		for rows.Next() {
			var sid int
			if err := rows.Scan(&sid); err != nil {
				rows.Close()
				return err
			}
			finalized = append(finalized, sid)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(finalized) == 0 {
			return nil
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO answer_sheets (room_id, student_id, score, details, auto_submit_reason)
			 SELECT $1, sid, 0, $2, $3
			 FROM UNNEST($4::int[]) AS sid
			 ON CONFLICT (room_id, student_id) DO UPDATE
			 SET score = 0, details = EXCLUDED.details, created_at = NOW(),
			     auto_submit_reason = COALESCE(answer_sheets.auto_submit_reason, EXCLUDED.auto_submit_reason)`,
			roomID, detailsJSON, model.AutoSubmitReason, finalized)
		return err
	})
}

// GetSheet retrieves the answer sheet for a student/room pair.
func (r *SubmissionRepository) GetSheet(ctx context.Context, roomID uuid.UUID, studentID int) (*model.AnswerSheet, error) {
	sh := &model.AnswerSheet{}
	var details []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, room_id, student_id, score, details, auto_submit_reason, created_at
		 FROM answer_sheets WHERE room_id = $1 AND student_id = $2`,
		roomID, studentID,
	).Scan(&sh.ID, &sh.RoomID, &sh.StudentID, &sh.Score, &details, &sh.AutoSubmitReason, &sh.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(details, &sh.Details); err != nil {
		sh.Details = nil
	}
	return sh, nil
}

// ListByRoom retrieves every submission in a room keyed by student ID.
func (r *SubmissionRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) (map[int]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make(map[int]model.Submission)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs[s.StudentID] = *s
	}
	return subs, rows.Err()
}

// ListByStudent retrieves all of a student's submissions across rooms,
// newest started first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions WHERE student_id = $1
		 ORDER BY started_at DESC NULLS LAST`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}
