package leaderboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/quizforge/pkg/http/errors"
	ws "github.com/gokatarajesh/quizforge/pkg/http/ws"
)

// HTTPHandler exposes REST endpoints for leaderboard queries.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandler constructs a leaderboard HTTP handler.
func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// HandleGet responds with a topic board.
// Route: GET /v1/leaderboards/{topic}?window=all_time&limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	topic := TopicKey(r.PathValue("topic"))

	window := r.URL.Query().Get("window")
	if window == "" {
		window = WindowAllTime
	}
	if !IsValidWindow(window) {
		httperrors.RespondNotFound(w, httperrors.ErrCodeUnknownWindow, "unknown leaderboard window: "+window)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	top := []ws.LeaderboardEntry{}
	if h.svc != nil {
		entries, err := h.svc.Top(r.Context(), topic, window, limit)
		if err != nil {
			h.logger.Warn().Err(err).Str("topic", topic).Str("window", window).Msg("leaderboard fetch failed")
			httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeLeaderboardFetchFailed, "failed to fetch leaderboard")
			return
		}
		top = toWSEntries(entries)
	}

	writeJSON(w, map[string]any{
		"topic":       topic,
		"window":      window,
		"top":         top,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
