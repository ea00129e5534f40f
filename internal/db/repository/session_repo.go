package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quizforge/internal/session"
)

// SessionRow is one quiz_sessions row.
type SessionRow struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         *string   `db:"user_id" json:"user_id"`
	Flow           string    `db:"flow" json:"flow"`
	Topic          string    `db:"topic" json:"topic"`
	Difficulty     string    `db:"difficulty" json:"difficulty"`
	Score          int       `db:"score" json:"score"`
	Total          int       `db:"total" json:"total"`
	Percentage     int       `db:"percentage" json:"percentage"`
	ElapsedSeconds int       `db:"elapsed_seconds" json:"elapsed_seconds"`
	TimedOut       int       `db:"timed_out" json:"timed_out"`
	BestStreak     int       `db:"best_streak" json:"best_streak"`
	Points         int       `db:"points" json:"points"`
	StartedAt      time.Time `db:"started_at" json:"started_at"`
	CompletedAt    time.Time `db:"completed_at" json:"completed_at"`
}

// AnswerRow is one session_answers row.
type AnswerRow struct {
	SessionID     uuid.UUID
	QuestionIndex int
	QuestionText  string
	Options       []string
	CorrectIndex  int
	SelectedIndex *int
	IsCorrect     bool
	TimedOut      bool
	Points        int
	Explanation   string
	AnsweredAt    time.Time
}

type sessionStore interface {
	InsertSession(ctx context.Context, row SessionRow, answers []AnswerRow) error
	ListSessionsByUser(ctx context.Context, userID string, limit int) ([]SessionRow, error)
}

// SessionRepository writes completed sessions to Postgres. It implements
// session.Persister.
type SessionRepository struct {
	store sessionStore
}

var _ session.Persister = (*SessionRepository)(nil)

// NewSessionRepository constructs a new session repository.
func NewSessionRepository(store sessionStore) *SessionRepository {
	return &SessionRepository{store: store}
}

// RecordSession stores the summary row and, for detailed flows, one row per answer.
func (r *SessionRepository) RecordSession(ctx context.Context, rec session.Record) error {
	id, err := uuid.Parse(rec.SessionID)
	if err != nil {
		return fmt.Errorf("session id %q: %w", rec.SessionID, err)
	}

	row := SessionRow{
		ID:             id,
		UserID:         rec.Identity,
		Flow:           string(rec.Flow),
		Topic:          rec.Topic,
		Difficulty:     rec.Difficulty,
		Score:          rec.Summary.Score,
		Total:          rec.Summary.Total,
		Percentage:     rec.Summary.Percentage,
		ElapsedSeconds: rec.Summary.ElapsedSeconds,
		TimedOut:       rec.Summary.TimedOut,
		BestStreak:     rec.Summary.BestStreak,
		Points:         rec.Summary.Points,
		StartedAt:      rec.StartedAt,
		CompletedAt:    rec.CompletedAt,
	}

	var answers []AnswerRow
	if rec.WithDetails {
		answers = make([]AnswerRow, 0, len(rec.Answers))
		for _, a := range rec.Answers {
			if a.QuestionIndex < 0 || a.QuestionIndex >= len(rec.Questions) {
				return fmt.Errorf("answer for question %d outside %d questions", a.QuestionIndex, len(rec.Questions))
			}
			q := rec.Questions[a.QuestionIndex]
			answers = append(answers, AnswerRow{
				SessionID:     id,
				QuestionIndex: a.QuestionIndex,
				QuestionText:  q.Text,
				Options:       q.Options,
				CorrectIndex:  q.CorrectIndex,
				SelectedIndex: a.SelectedIndex,
				IsCorrect:     a.IsCorrect,
				TimedOut:      a.TimedOut,
				Points:        a.Points,
				Explanation:   q.Explanation,
				AnsweredAt:    a.AnsweredAt,
			})
		}
	}

	if err := r.store.InsertSession(ctx, row, answers); err != nil {
		return fmt.Errorf("record session %s: %w", rec.SessionID, err)
	}
	return nil
}

// RecentForUser lists a user's latest completed sessions, newest first.
func (r *SessionRepository) RecentForUser(ctx context.Context, userID string, limit int) ([]SessionRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return r.store.ListSessionsByUser(ctx, userID, limit)
}
