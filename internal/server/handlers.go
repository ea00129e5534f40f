package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/auth"
	"github.com/gokatarajesh/quizforge/internal/logging"
	"github.com/gokatarajesh/quizforge/internal/session"
	httperrors "github.com/gokatarajesh/quizforge/pkg/http/errors"
)

type handlers struct {
	deps     Deps
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

type generateRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type startSessionRequest struct {
	generateRequest
	Flow string `json:"flow"`
}

type startSessionResponse struct {
	Source  string           `json:"source"`
	Session session.Snapshot `json:"session"`
}

type answerRequest struct {
	SelectedIndex *int `json:"selected_index"`
}

func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.deps.Generator.Generate(r.Context(), req.Topic, req.Difficulty, req.Count)
	if err != nil {
		h.logFailure(r, err, "question generation failed")
		respondDomainError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, res)
}

func (h *handlers) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	flow, err := session.ParseFlow(req.Flow)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if h.deps.Generator == nil {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "question generation is not configured")
		return
	}

	res, err := h.deps.Generator.Generate(r.Context(), req.Topic, req.Difficulty, req.Count)
	if err != nil {
		h.logFailure(r, err, "question generation failed")
		respondDomainError(w, err)
		return
	}

	s, err := h.deps.Sessions.Start(r.Context(), session.StartRequest{
		Questions:  res.Questions,
		Flow:       flow,
		Identity:   auth.IdentityFromContext(r.Context()),
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		h.logFailure(r, err, "session start failed")
		respondDomainError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, startSessionResponse{Source: res.Source, Session: s.Snapshot()})
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Sessions.GetFor(r.PathValue("id"), auth.IdentityFromContext(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, s.Snapshot())
}

func (h *handlers) stopSession(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Sessions.Stop(r.PathValue("id"), auth.IdentityFromContext(r.Context())); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SelectedIndex == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "selected_index is required", "selected_index")
		return
	}

	res, err := h.deps.Sessions.Answer(r.PathValue("id"), auth.IdentityFromContext(r.Context()), *req.SelectedIndex)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	switch res.Rejection {
	case session.RejectNone:
		httperrors.RespondJSON(w, http.StatusOK, res)
	case session.RejectCompleted:
		respondDomainError(w, session.ErrCompleted)
	case session.RejectInvalidOption:
		httperrors.RespondBadRequest(w, httperrors.ErrCodeAnswerRejected, string(res.Rejection))
	default:
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeAnswerRejected, string(res.Rejection))
	}
}

func (h *handlers) next(w http.ResponseWriter, r *http.Request) {
	snap, rej, err := h.deps.Sessions.Next(r.PathValue("id"), auth.IdentityFromContext(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	switch rej {
	case session.RejectNone:
		httperrors.RespondJSON(w, http.StatusOK, snap)
	case session.RejectCompleted:
		respondDomainError(w, session.ErrCompleted)
	default:
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeNotAnswered, "current question has not been answered")
	}
}

func (h *handlers) mySessions(w http.ResponseWriter, r *http.Request) {
	userID := auth.IdentityFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := h.deps.History.RecentForUser(r.Context(), *userID, limit)
	if err != nil {
		h.logFailure(r, err, "session history fetch failed")
		httperrors.RespondInternalError(w, "failed to fetch sessions")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]any{"sessions": rows})
}

func (h *handlers) logFailure(r *http.Request, err error, msg string) {
	logging.FromContext(r.Context()).Warn().Err(err).Msg(msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid JSON body")
		return false
	}
	return true
}
