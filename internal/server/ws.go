package server

import (
	"encoding/json"
	"net/http"

	"github.com/gokatarajesh/quizforge/internal/auth"
	"github.com/gokatarajesh/quizforge/internal/leaderboard"
	"github.com/gokatarajesh/quizforge/internal/session"
	httperrors "github.com/gokatarajesh/quizforge/pkg/http/errors"
	ws "github.com/gokatarajesh/quizforge/pkg/http/ws"
)

// sessionSocket streams a session's timer and transitions and accepts
// answers over one connection.
func (h *handlers) sessionSocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s, err := h.deps.Sessions.GetFor(id, auth.IdentityFromContext(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	events, unsubscribe, err := h.deps.Sessions.Subscribe(id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	defer unsubscribe()

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("session_id", id).Msg("websocket upgrade failed")
		return
	}
	conn := ws.NewConnection(raw, h.logger)
	h.register(conn, "")
	defer h.unregister(conn)

	go conn.WritePump()
	h.send(conn, ws.TypeSessionState, s.Snapshot())

	go func() {
		for ev := range events {
			if msg, ok := eventMessage(s, ev); ok {
				_ = conn.Send(msg)
			}
		}
	}()

	conn.ReadPump(func(msg ws.Message) error {
		return h.handleSessionMessage(conn, s, msg)
	})
}

func (h *handlers) handleSessionMessage(conn *ws.Connection, s *session.Session, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeSubmitAnswer:
		var payload ws.SubmitAnswerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			h.sendError(conn, httperrors.ErrCodeInvalidPayload, "invalid submit_answer payload")
			return err
		}
		index := s.Snapshot().CurrentIndex
		res := s.Answer(payload.SelectedIndex)
		ack := ws.AnswerAckPayload{
			SessionID:     s.ID(),
			QuestionIndex: index,
			Accepted:      res.Accepted,
			Rejection:     string(res.Rejection),
		}
		if res.Accepted {
			ack.QuestionIndex = res.Record.QuestionIndex
			ack.IsCorrect = res.Record.IsCorrect
			ack.CorrectIndex = res.CorrectIndex
			ack.Explanation = res.Explanation
			ack.Points = res.Record.Points
		}
		h.send(conn, ws.TypeAnswerAck, ack)
	case ws.TypeNextQuestion:
		switch s.Advance() {
		case session.RejectNone:
		case session.RejectCompleted:
			h.sendError(conn, httperrors.ErrCodeSessionCompleted, "session already completed")
		default:
			h.sendError(conn, httperrors.ErrCodeNotAnswered, "current question has not been answered")
		}
	case ws.TypeRequestState:
		h.send(conn, ws.TypeSessionState, s.Snapshot())
	case ws.TypePing:
		h.send(conn, ws.TypePong, nil)
	default:
		h.sendError(conn, httperrors.ErrCodeUnknownMessageType, "unknown message type: "+msg.Type)
	}
	return nil
}

// leaderboardSocket pushes updates for one topic board.
func (h *handlers) leaderboardSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn := ws.NewConnection(raw, h.logger)
	h.register(conn, leaderboard.Room(r.PathValue("topic")))
	defer h.unregister(conn)

	go conn.WritePump()
	conn.ReadPump(func(msg ws.Message) error {
		if msg.Type == ws.TypePing {
			h.send(conn, ws.TypePong, nil)
		}
		return nil
	})
}

// eventMessage translates a session event into a client message. Answered
// events are acknowledged directly to the submitting connection instead.
func eventMessage(s *session.Session, ev session.Event) (ws.Message, bool) {
	var (
		msgType string
		payload any
	)
	switch ev.Type {
	case session.EventTick:
		msgType = ws.TypeQuestionTick
		payload = ws.QuestionTickPayload{SessionID: ev.SessionID, QuestionIndex: ev.QuestionIndex, RemainingSeconds: ev.TimeRemaining}
	case session.EventTimedOut:
		msgType = ws.TypeQuestionTimeout
		payload = ws.QuestionTimeoutPayload{SessionID: ev.SessionID, QuestionIndex: ev.QuestionIndex}
	case session.EventAdvanced:
		p := ws.QuestionAdvancedPayload{SessionID: ev.SessionID, QuestionIndex: ev.QuestionIndex, RemainingSeconds: ev.TimeRemaining}
		if snap := s.Snapshot(); snap.Current != nil && snap.Current.Index == ev.QuestionIndex {
			p.Text = snap.Current.Text
			p.Options = snap.Current.Options
		}
		msgType, payload = ws.TypeQuestionAdvanced, p
	case session.EventCompleted:
		if ev.Summary == nil {
			return ws.Message{}, false
		}
		msgType = ws.TypeSessionComplete
		payload = ws.SessionCompletePayload{
			SessionID:      ev.SessionID,
			Score:          ev.Summary.Score,
			Total:          ev.Summary.Total,
			Percentage:     ev.Summary.Percentage,
			ElapsedSeconds: ev.Summary.ElapsedSeconds,
			TimedOut:       ev.Summary.TimedOut,
			Points:         ev.Summary.Points,
		}
	default:
		return ws.Message{}, false
	}
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		return ws.Message{}, false
	}
	return msg, true
}

func (h *handlers) register(conn *ws.Connection, room string) {
	if h.deps.Hub == nil {
		return
	}
	h.deps.Hub.RegisterConnection(conn)
	if room != "" {
		h.deps.Hub.Join(room, conn.ID())
	}
}

func (h *handlers) unregister(conn *ws.Connection) {
	if h.deps.Hub == nil {
		conn.Close()
		return
	}
	h.deps.Hub.UnregisterConnection(conn.ID())
}

func (h *handlers) send(conn *ws.Connection, msgType string, payload any) {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		h.logger.Warn().Err(err).Str("type", msgType).Msg("failed to marshal websocket message")
		return
	}
	if err := conn.Send(msg); err != nil {
		h.logger.Debug().Err(err).Str("type", msgType).Msg("websocket send dropped")
	}
}

func (h *handlers) sendError(conn *ws.Connection, code, message string) {
	h.send(conn, ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
}
