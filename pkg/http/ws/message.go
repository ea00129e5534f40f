package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeSubmitAnswer = "submit_answer"
	TypeNextQuestion = "next_question"
	TypeRequestState = "request_state"
	TypePing         = "ping"

	// Server -> Client
	TypeSessionState      = "session_state"
	TypeQuestionTick      = "question_tick"
	TypeAnswerAck         = "answer_ack"
	TypeQuestionTimeout   = "question_timeout"
	TypeQuestionAdvanced  = "question_advanced"
	TypeSessionComplete   = "session_complete"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeError             = "error"
	TypePong              = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Client Messages (incoming)

type SubmitAnswerPayload struct {
	SelectedIndex int `json:"selected_index"`
}

// Server Messages (outgoing)

type QuestionTickPayload struct {
	SessionID        string `json:"session_id"`
	QuestionIndex    int    `json:"question_index"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type AnswerAckPayload struct {
	SessionID     string `json:"session_id"`
	QuestionIndex int    `json:"question_index"`
	Accepted      bool   `json:"accepted"`
	Rejection     string `json:"rejection,omitempty"`
	IsCorrect     bool   `json:"is_correct"`
	CorrectIndex  int    `json:"correct_index"`
	Explanation   string `json:"explanation,omitempty"`
	Points        int    `json:"points"`
}

type QuestionTimeoutPayload struct {
	SessionID     string `json:"session_id"`
	QuestionIndex int    `json:"question_index"`
}

type QuestionAdvancedPayload struct {
	SessionID        string   `json:"session_id"`
	QuestionIndex    int      `json:"question_index"`
	Text             string   `json:"text,omitempty"`
	Options          []string `json:"options,omitempty"`
	RemainingSeconds int      `json:"remaining_seconds"`
}

type SessionCompletePayload struct {
	SessionID      string `json:"session_id"`
	Score          int    `json:"score"`
	Total          int    `json:"total"`
	Percentage     int    `json:"percentage"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	TimedOut       int    `json:"timed_out"`
	Points         int    `json:"points"`
}

type LeaderboardUpdatePayload struct {
	Topic     string             `json:"topic"`
	Window    string             `json:"window"`
	Top       []LeaderboardEntry `json:"top"`
	SessionID string             `json:"session_id"`
}

type LeaderboardEntry struct {
	Rank      int     `json:"rank"`
	UserID    string  `json:"user_id"`
	Points    int     `json:"points"`
	Games     int     `json:"games"`
	Correct   int     `json:"correct"`
	Questions int     `json:"questions"`
	Accuracy  float64 `json:"accuracy"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
