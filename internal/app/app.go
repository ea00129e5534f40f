package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/auth"
	"github.com/gokatarajesh/quizforge/internal/auth/jwt"
	"github.com/gokatarajesh/quizforge/internal/config"
	"github.com/gokatarajesh/quizforge/internal/db/repository"
	"github.com/gokatarajesh/quizforge/internal/leaderboard"
	"github.com/gokatarajesh/quizforge/internal/logging"
	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/question/ai"
	"github.com/gokatarajesh/quizforge/internal/server"
	"github.com/gokatarajesh/quizforge/internal/session"
	ws "github.com/gokatarajesh/quizforge/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server
	hub   *ws.Hub

	sessions      *session.Manager
	prewarm       *question.PrewarmWorker
	warmQueue     chan question.GenerationRequest
	warmRequests  []question.GenerationRequest
	lbBroadcaster *leaderboard.Broadcaster
	bgCancels     []context.CancelFunc
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 10
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// Identity is optional: without a secret every caller is a guest.
	var tokens auth.TokenValidator
	if cfg.Security.JWTSecret != "" {
		tokens = jwt.NewManager(jwt.TokenConfig{
			Secret: []byte(cfg.Security.JWTSecret),
			Issuer: cfg.Security.JWTIssuer,
		})
	} else {
		logger.Warn().Msg("JWT secret not configured; only the guest flow is available")
	}

	// Generation pipeline
	if cfg.AI.APIKey == "" {
		logger.Warn().Msg("AI_API_KEY not set; generation requests will fail with an auth error")
	}
	completer := ai.NewClient(ai.Config{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.HTTPTimeout,
	}, logger)
	questionSvc := question.NewService(
		question.NewMemoryCache(cfg.Generation.CacheTTL),
		completer,
		question.ServiceOptions{Validator: question.NewValidator(cfg.Generation.Denylist)},
		logger,
	)

	warmRequests := question.WarmRequests(cfg.Generation.WarmTopics, cfg.Generation.WarmCount)
	warmQueue := make(chan question.GenerationRequest, len(warmRequests))
	prewarm := question.NewPrewarmWorker(questionSvc, warmQueue, logger, cfg.Generation.WarmTimeout)

	// Persistence fan-out: Postgres history plus the Redis leaderboard.
	sessionRepo := repository.NewSessionRepository(repository.NewPgStore(pool))
	leaderboardSvc := leaderboard.NewService(redisClient, logger, leaderboard.ServiceOptions{
		TopN:           cfg.Redis.TopN,
		RedisKeyPrefix: cfg.Redis.Prefix,
		PubSubChannel:  cfg.Redis.Prefix + ":updates",
	})

	sessions := session.NewManager(session.ManagerOptions{
		Policies: session.NewPolicies(
			cfg.Session.GuestSeconds,
			cfg.Session.AuthenticatedSeconds,
			cfg.Session.ScheduledSeconds,
		),
		Persister:       session.MultiPersister{sessionRepo, leaderboardSvc},
		TickInterval:    cfg.Session.TickInterval,
		Retention:       cfg.Session.Retention,
		PersistTimeout:  cfg.Session.PersistTimeout,
		AdvanceOnAnswer: cfg.Session.AdvanceOnAnswer,
	}, logger)

	wsHub := ws.NewHub(logger)
	lbBroadcaster := leaderboard.NewBroadcaster(redisClient, wsHub, leaderboardSvc.Channel(), logger)

	apiServer := server.NewHTTPServer(cfg, logger, server.Deps{
		Generator:   questionSvc,
		Sessions:    sessions,
		History:     sessionRepo,
		Leaderboard: leaderboard.NewHTTPHandler(leaderboardSvc, logger),
		Hub:         wsHub,
		Tokens:      tokens,
		Checks: map[string]func(context.Context) error{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	return &Application{
		cfg:           cfg,
		logger:        logger,
		pool:          pool,
		redis:         redisClient,
		http:          apiServer,
		hub:           wsHub,
		sessions:      sessions,
		prewarm:       prewarm,
		warmQueue:     warmQueue,
		warmRequests:  warmRequests,
		lbBroadcaster: lbBroadcaster,
		bgCancels:     make([]context.CancelFunc, 0, 2),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}
	// Hijacked websocket connections are not closed by Shutdown.
	if n := a.hub.CloseAll(); n > 0 {
		a.logger.Info().Int("connections", n).Msg("closed websocket connections")
	}

	a.prewarm.Stop()
	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.sessions.Close()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	for _, req := range a.warmRequests {
		a.warmQueue <- req
	}
	close(a.warmQueue)
	go a.prewarm.Run()

	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go a.sessions.Run(bgCtx)

	if a.lbBroadcaster != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.lbBroadcaster.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("leaderboard broadcaster stopped")
			}
		}()
	}
}
