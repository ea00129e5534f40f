package session

import (
	"errors"
	"time"

	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/session/scoring"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Session errors.
var (
	ErrNoQuestions      = errors.New("session needs at least one question")
	ErrNotFound         = errors.New("session not found")
	ErrCompleted        = errors.New("session already completed")
	ErrIdentityRequired = errors.New("flow requires an identified user")
	ErrUnknownFlow      = errors.New("unknown session flow")
)

// AnswerRecord is the outcome for one question. SelectedIndex is nil when the
// question timed out.
type AnswerRecord struct {
	QuestionIndex    int       `json:"question_index"`
	SelectedIndex    *int      `json:"selected_index"`
	IsCorrect        bool      `json:"is_correct"`
	TimedOut         bool      `json:"timed_out"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Points           int       `json:"points"`
	AnsweredAt       time.Time `json:"answered_at"`
}

func (r AnswerRecord) clone() AnswerRecord {
	if r.SelectedIndex != nil {
		sel := *r.SelectedIndex
		r.SelectedIndex = &sel
	}
	return r
}

// Rejection explains why Answer or Advance did not change state.
type Rejection string

const (
	RejectNone            Rejection = ""
	RejectAlreadyAnswered Rejection = "already_answered"
	RejectInvalidOption   Rejection = "invalid_option"
	RejectCompleted       Rejection = "completed"
	RejectNotAnswered     Rejection = "not_answered"
)

// AnswerResult reports the effect of Answer.
type AnswerResult struct {
	Accepted     bool         `json:"accepted"`
	Rejection    Rejection    `json:"rejection,omitempty"`
	Record       AnswerRecord `json:"record"`
	CorrectIndex int          `json:"correct_index"`
	Explanation  string       `json:"explanation,omitempty"`
}

// QuestionView is a question as shown to a player, without the answer key.
type QuestionView struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// Snapshot is a consistent copy of session state.
type Snapshot struct {
	ID             string           `json:"id"`
	Flow           Flow             `json:"flow"`
	Topic          string           `json:"topic,omitempty"`
	Difficulty     string           `json:"difficulty,omitempty"`
	Status         Status           `json:"status"`
	CurrentIndex   int              `json:"current_index"`
	TotalQuestions int              `json:"total_questions"`
	TimeRemaining  int              `json:"time_remaining"`
	Answers        []AnswerRecord   `json:"answers"`
	Current        *QuestionView    `json:"current,omitempty"`
	Summary        *scoring.Summary `json:"summary,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
}

// EventType names an observable state change.
type EventType string

const (
	EventTick      EventType = "tick"
	EventAnswered  EventType = "answered"
	EventTimedOut  EventType = "timed_out"
	EventAdvanced  EventType = "advanced"
	EventCompleted EventType = "completed"
)

// Event is delivered to observers after the lock is released.
type Event struct {
	Type          EventType        `json:"type"`
	SessionID     string           `json:"session_id"`
	QuestionIndex int              `json:"question_index"`
	TimeRemaining int              `json:"time_remaining"`
	Record        *AnswerRecord    `json:"record,omitempty"`
	Summary       *scoring.Summary `json:"summary,omitempty"`
}

// Record is what persisters receive when a session completes.
type Record struct {
	SessionID   string              `json:"session_id"`
	Flow        Flow                `json:"flow"`
	Topic       string              `json:"topic"`
	Difficulty  string              `json:"difficulty"`
	Identity    *string             `json:"identity,omitempty"`
	Summary     scoring.Summary     `json:"summary"`
	Questions   []question.Question `json:"questions"`
	Answers     []AnswerRecord      `json:"answers"`
	WithDetails bool                `json:"with_details"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
}
