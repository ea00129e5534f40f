package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/auth"
	"github.com/gokatarajesh/quizforge/internal/config"
	"github.com/gokatarajesh/quizforge/internal/db/repository"
	"github.com/gokatarajesh/quizforge/internal/leaderboard"
	"github.com/gokatarajesh/quizforge/internal/logging"
	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/session"
	ws "github.com/gokatarajesh/quizforge/pkg/http/ws"
)

// Generator produces questions for a topic.
type Generator interface {
	Generate(ctx context.Context, topic, difficulty string, count int) (question.Result, error)
}

// History lists persisted sessions for a user.
type History interface {
	RecentForUser(ctx context.Context, userID string, limit int) ([]repository.SessionRow, error)
}

// Deps are the collaborators behind the HTTP surface. Nil members disable
// their routes.
type Deps struct {
	Generator   Generator
	Sessions    *session.Manager
	History     History
	Leaderboard *leaderboard.HTTPHandler
	Hub         *ws.Hub
	Tokens      auth.TokenValidator
	// Checks are run by /v1/ping, keyed by dependency name.
	Checks map[string]func(context.Context) error
}

// NewHTTPServer wires the API routes behind CORS and optional bearer identity.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Deps) *http.Server {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: true,
		MaxAge:           cfg.CORS.MaxAge,
	})

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           c.Handler(NewRouter(logger, deps, originChecker(cfg.CORS.AllowedOrigins))),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the mux. checkOrigin guards websocket upgrades; nil allows
// every origin.
func NewRouter(logger zerolog.Logger, deps Deps, checkOrigin func(*http.Request) bool) http.Handler {
	h := &handlers{
		deps:   deps,
		logger: logging.Component(logger, "http"),
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if h.upgrader.CheckOrigin == nil {
		h.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/ping", h.ping)

	if deps.Generator != nil {
		mux.HandleFunc("POST /v1/quizzes/generate", h.generate)
	}
	if deps.Sessions != nil {
		mux.HandleFunc("POST /v1/sessions", h.startSession)
		mux.HandleFunc("GET /v1/sessions/{id}", h.getSession)
		mux.HandleFunc("DELETE /v1/sessions/{id}", h.stopSession)
		mux.HandleFunc("POST /v1/sessions/{id}/answers", h.answer)
		mux.HandleFunc("POST /v1/sessions/{id}/next", h.next)
		mux.HandleFunc("GET /ws/sessions/{id}", h.sessionSocket)
	}
	if deps.History != nil {
		mux.Handle("GET /v1/me/sessions", auth.RequireAuth(http.HandlerFunc(h.mySessions)))
	}
	if deps.Leaderboard != nil {
		mux.HandleFunc("GET /v1/leaderboards/{topic}", deps.Leaderboard.HandleGet)
	}
	if deps.Hub != nil {
		mux.HandleFunc("GET /ws/leaderboards/{topic}", h.leaderboardSocket)
	}

	return auth.AuthMiddleware(deps.Tokens, h.logger)(withRequestLogger(h.logger, mux))
}

func withRequestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		next.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))
	})
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return nil
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *handlers) ping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range h.deps.Checks {
		if err := check(ctx); err != nil {
			logging.FromContext(r.Context()).Error().Err(err).Str("dependency", name).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"pong":true}`))
}
