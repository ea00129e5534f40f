package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/session/scoring"
)

const (
	defaultRetention     = 15 * time.Minute
	defaultSweepInterval = time.Minute
	subscriberBuffer     = 32
)

// ManagerOptions configures a Manager. Zero values select defaults.
type ManagerOptions struct {
	Policies        Policies
	Persister       Persister
	TickInterval    time.Duration
	Retention       time.Duration
	PersistTimeout  time.Duration
	AdvanceOnAnswer bool
	Scoring         *scoring.Engine
	Now             func() time.Time
}

// StartRequest describes a new session.
type StartRequest struct {
	Questions  []question.Question
	Flow       Flow
	Identity   *string
	Topic      string
	Difficulty string
}

// Manager holds live sessions, each driven by its own Runner.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	opts   ManagerOptions
	logger zerolog.Logger
}

type entry struct {
	session *Session
	runner  *Runner

	mu      sync.Mutex
	subs    map[int]chan Event
	nextSub int
	closed  bool
}

func NewManager(opts ManagerOptions, logger zerolog.Logger) *Manager {
	if opts.Policies == nil {
		opts.Policies = DefaultPolicies()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}
	if opts.Scoring == nil {
		opts.Scoring = scoring.NewEngine(scoring.DefaultScoringConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		sessions: make(map[string]*entry),
		opts:     opts,
		logger:   logger.With().Str("component", "session_manager").Logger(),
	}
}

// Start creates a session for req and starts its timer.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Session, error) {
	cfg, err := m.opts.Policies.Apply(req.Flow, req.Identity, Config{
		AdvanceOnAnswer: m.opts.AdvanceOnAnswer,
		Topic:           req.Topic,
		Difficulty:      req.Difficulty,
		Persister:       m.opts.Persister,
		PersistTimeout:  m.opts.PersistTimeout,
		Scoring:         m.opts.Scoring,
		Logger:          m.logger,
		Now:             m.opts.Now,
	})
	if err != nil {
		return nil, err
	}

	e := &entry{subs: make(map[int]chan Event)}
	cfg.Observer = e.publish

	s, err := New(uuid.NewString(), req.Questions, cfg)
	if err != nil {
		return nil, err
	}
	e.session = s
	e.runner = NewRunner(s, m.opts.TickInterval)

	m.mu.Lock()
	m.sessions[s.ID()] = e
	liveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	// The runner outlives the request that created it.
	e.runner.Start(context.WithoutCancel(ctx))

	m.logger.Info().
		Str("session_id", s.ID()).
		Str("flow", string(cfg.Flow)).
		Int("questions", len(req.Questions)).
		Int("per_question_seconds", cfg.PerQuestionSeconds).
		Msg("session started")
	return s, nil
}

// Get returns a live or recently finished session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.session, nil
}

// GetFor is Get restricted to sessions caller owns. Sessions owned by
// someone else are reported as not found.
func (m *Manager) GetFor(id string, caller *string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if !s.OwnedBy(caller) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Answer forwards to the session's Answer.
func (m *Manager) Answer(id string, caller *string, selected int) (AnswerResult, error) {
	s, err := m.GetFor(id, caller)
	if err != nil {
		return AnswerResult{}, err
	}
	return s.Answer(selected), nil
}

// Next forwards to the session's Advance and returns the resulting snapshot.
func (m *Manager) Next(id string, caller *string) (Snapshot, Rejection, error) {
	s, err := m.GetFor(id, caller)
	if err != nil {
		return Snapshot{}, RejectNone, err
	}
	rej := s.Advance()
	return s.Snapshot(), rej, nil
}

// Stop tears a session down: the timer is cancelled, observers are released
// and the session is forgotten. An unfinished session is not persisted.
func (m *Manager) Stop(id string, caller *string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok && !e.session.OwnedBy(caller) {
		ok = false
	}
	if ok {
		delete(m.sessions, id)
		liveSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.runner.Stop()
	e.closeSubscribers()
	return nil
}

// Subscribe streams session events. Slow subscribers miss events rather than
// blocking the session. The returned func unsubscribes.
func (m *Manager) Subscribe(id string) (<-chan Event, func(), error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if e.closed {
		close(ch)
		return ch, func() {}, nil
	}
	key := e.nextSub
	e.nextSub++
	e.subs[key] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subs[key]; ok {
				delete(e.subs, key)
				close(sub)
			}
		})
	}, nil
}

// Sweep drops sessions that completed more than the retention period ago.
func (m *Manager) Sweep() int {
	now := m.opts.Now()
	var expired []*entry

	m.mu.Lock()
	for id, e := range m.sessions {
		at, done := e.session.CompletedAt()
		if done && now.Sub(at) >= m.opts.Retention {
			delete(m.sessions, id)
			expired = append(expired, e)
		}
	}
	liveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, e := range expired {
		e.runner.Stop()
		e.closeSubscribers()
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then stops every runner.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(defaultSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Close()
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug().Int("evicted", n).Msg("swept finished sessions")
			}
		}
	}
}

// Close stops all timers. Sessions stay readable.
func (m *Manager) Close() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.sessions {
		e.runner.Stop()
	}
}

// Len reports held sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (e *entry) publish(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (e *entry) closeSubscribers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for key, ch := range e.subs {
		delete(e.subs, key)
		close(ch)
	}
}
