package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertSessionSQL = `
INSERT INTO quiz_sessions (
    id, user_id, flow, topic, difficulty, score, total, percentage,
    elapsed_seconds, timed_out, best_streak, points, started_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO NOTHING`

const insertAnswerSQL = `
INSERT INTO session_answers (
    session_id, question_index, question_text, options, correct_index,
    selected_index, is_correct, timed_out, points, explanation, answered_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (session_id, question_index) DO NOTHING`

const listSessionsByUserSQL = `
SELECT id, user_id, flow, topic, difficulty, score, total, percentage,
       elapsed_seconds, timed_out, best_streak, points, started_at, completed_at
FROM quiz_sessions
WHERE user_id = $1
ORDER BY completed_at DESC
LIMIT $2`

// PgStore is the pgx implementation of the session store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// InsertSession writes the session row and its answers in one transaction.
func (s *PgStore) InsertSession(ctx context.Context, row SessionRow, answers []AnswerRow) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertSessionSQL,
			row.ID, row.UserID, row.Flow, row.Topic, row.Difficulty,
			row.Score, row.Total, row.Percentage, row.ElapsedSeconds,
			row.TimedOut, row.BestStreak, row.Points, row.StartedAt, row.CompletedAt,
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		if len(answers) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, a := range answers {
			batch.Queue(insertAnswerSQL,
				a.SessionID, a.QuestionIndex, a.QuestionText, a.Options, a.CorrectIndex,
				a.SelectedIndex, a.IsCorrect, a.TimedOut, a.Points, a.Explanation, a.AnsweredAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		return nil
	})
}

// ListSessionsByUser returns up to limit sessions for userID, newest first.
func (s *PgStore) ListSessionsByUser(ctx context.Context, userID string, limit int) ([]SessionRow, error) {
	rows, err := s.pool.Query(ctx, listSessionsByUserSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[SessionRow])
}
