package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/session/scoring"
)

const (
	DefaultPerQuestionSeconds = 30
	defaultPersistTimeout     = 10 * time.Second
)

// Config carries everything a session needs besides its questions.
type Config struct {
	PerQuestionSeconds int
	// AdvanceOnAnswer moves to the next question as soon as one is answered.
	AdvanceOnAnswer bool

	Flow        Flow
	Topic       string
	Difficulty  string
	Identity    *string
	WithDetails bool

	Persister      Persister
	PersistTimeout time.Duration
	Scoring        *scoring.Engine
	Observer       func(Event)
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Session is a timed walk through a fixed question list. All transitions are
// serialized; the first write for a question index wins.
type Session struct {
	mu sync.Mutex

	id        string
	cfg       Config
	questions []question.Question
	budget    int
	logger    zerolog.Logger

	status        Status
	currentIndex  int
	timeRemaining int
	answers       []AnswerRecord
	summary       *scoring.Summary
	startedAt     time.Time
	completedAt   time.Time
	pending       *Record

	completedC chan struct{}
	persistedC chan struct{}
}

// New starts a session at question 0 with a full time budget.
func New(id string, questions []question.Question, cfg Config) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	if id == "" {
		id = uuid.NewString()
	}
	if cfg.PerQuestionSeconds <= 0 {
		cfg.PerQuestionSeconds = DefaultPerQuestionSeconds
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	if cfg.Scoring == nil {
		cfg.Scoring = scoring.NewEngine(scoring.DefaultScoringConfig())
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Flow == "" {
		cfg.Flow = FlowGuest
	}

	s := &Session{
		id:            id,
		cfg:           cfg,
		questions:     question.CloneAll(questions),
		budget:        cfg.PerQuestionSeconds,
		logger:        cfg.Logger.With().Str("component", "session").Str("session_id", id).Logger(),
		status:        StatusInProgress,
		timeRemaining: cfg.PerQuestionSeconds,
		answers:       make([]AnswerRecord, 0, len(questions)),
		startedAt:     cfg.Now(),
		completedC:    make(chan struct{}),
		persistedC:    make(chan struct{}),
	}
	sessionsStarted.WithLabelValues(string(cfg.Flow)).Inc()
	return s, nil
}

func (s *Session) ID() string { return s.id }

// OwnedBy reports whether caller may drive the session. Anonymous sessions
// are open to whoever holds the id; identified ones only to their user.
func (s *Session) OwnedBy(caller *string) bool {
	if s.cfg.Identity == nil {
		return true
	}
	return caller != nil && *caller == *s.cfg.Identity
}

// Completed is closed when the session reaches StatusCompleted.
func (s *Session) Completed() <-chan struct{} { return s.completedC }

// Persisted is closed once the persister call for this session has returned.
func (s *Session) Persisted() <-chan struct{} { return s.persistedC }

// Tick consumes one unit of the current question's budget. When the budget
// runs out an unanswered question is recorded as timed out, then the session
// advances.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.status != StatusInProgress {
		s.mu.Unlock()
		return
	}

	var events []Event
	if s.timeRemaining > 0 {
		s.timeRemaining--
	}
	if s.timeRemaining > 0 {
		events = append(events, s.eventLocked(EventTick))
	} else {
		if !s.answeredLocked() {
			rec := AnswerRecord{
				QuestionIndex: s.currentIndex,
				TimedOut:      true,
				AnsweredAt:    s.cfg.Now(),
			}
			s.answers = append(s.answers, rec)
			answersTotal.WithLabelValues("timed_out").Inc()
			ev := s.eventLocked(EventTimedOut)
			ev.Record = &rec
			events = append(events, ev)
		}
		events = append(events, s.advanceLocked()...)
	}

	rec := s.takePendingLocked()
	s.mu.Unlock()
	s.dispatch(events, rec)
}

// Answer records selected for the current question. Out-of-range selections,
// repeat answers and answers after completion are rejected without changing state.
func (s *Session) Answer(selected int) AnswerResult {
	s.mu.Lock()
	if s.status != StatusInProgress {
		s.mu.Unlock()
		return AnswerResult{Rejection: RejectCompleted}
	}
	if s.answeredLocked() {
		s.mu.Unlock()
		return AnswerResult{Rejection: RejectAlreadyAnswered}
	}
	q := s.questions[s.currentIndex]
	if selected < 0 || selected >= len(q.Options) {
		s.mu.Unlock()
		return AnswerResult{Rejection: RejectInvalidOption}
	}

	correct := selected == q.CorrectIndex
	streak := 0
	if correct {
		streak = s.trailingStreakLocked() + 1
	}
	sel := selected
	rec := AnswerRecord{
		QuestionIndex:    s.currentIndex,
		SelectedIndex:    &sel,
		IsCorrect:        correct,
		RemainingSeconds: s.timeRemaining,
		Points: s.cfg.Scoring.Points(scoring.Answer{
			Correct:          correct,
			RemainingSeconds: s.timeRemaining,
			BudgetSeconds:    s.budget,
			Streak:           streak,
			Difficulty:       s.cfg.Difficulty,
		}),
		AnsweredAt: s.cfg.Now(),
	}
	s.answers = append(s.answers, rec)
	if correct {
		answersTotal.WithLabelValues("correct").Inc()
	} else {
		answersTotal.WithLabelValues("incorrect").Inc()
	}

	result := AnswerResult{
		Accepted:     true,
		Record:       rec.clone(),
		CorrectIndex: q.CorrectIndex,
		Explanation:  q.Explanation,
	}
	ev := s.eventLocked(EventAnswered)
	evRec := rec.clone()
	ev.Record = &evRec
	events := []Event{ev}
	if s.cfg.AdvanceOnAnswer {
		events = append(events, s.advanceLocked()...)
	}

	pending := s.takePendingLocked()
	s.mu.Unlock()
	s.dispatch(events, pending)
	return result
}

// Advance moves past an answered question. It is a no-op on an unanswered
// question and after completion; the returned Rejection says which.
func (s *Session) Advance() Rejection {
	s.mu.Lock()
	if s.status != StatusInProgress {
		s.mu.Unlock()
		return RejectCompleted
	}
	if !s.answeredLocked() {
		s.mu.Unlock()
		return RejectNotAnswered
	}
	events := s.advanceLocked()
	rec := s.takePendingLocked()
	s.mu.Unlock()
	s.dispatch(events, rec)
	return RejectNone
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:             s.id,
		Flow:           s.cfg.Flow,
		Topic:          s.cfg.Topic,
		Difficulty:     s.cfg.Difficulty,
		Status:         s.status,
		CurrentIndex:   s.currentIndex,
		TotalQuestions: len(s.questions),
		TimeRemaining:  s.timeRemaining,
		Answers:        s.answersCopyLocked(),
		StartedAt:      s.startedAt,
	}
	if s.status == StatusInProgress {
		q := s.questions[s.currentIndex]
		snap.Current = &QuestionView{
			Index:   s.currentIndex,
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
		}
	}
	if s.summary != nil {
		sum := *s.summary
		snap.Summary = &sum
	}
	return snap
}

// Summary returns the final summary once the session has completed.
func (s *Session) Summary() (scoring.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return scoring.Summary{}, false
	}
	return *s.summary, true
}

// CompletedAt reports when the session completed.
func (s *Session) CompletedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedAt, s.status == StatusCompleted
}

// Questions returns a copy of the full question list, answer keys included.
func (s *Session) Questions() []question.Question {
	return question.CloneAll(s.questions)
}

func (s *Session) answeredLocked() bool {
	return len(s.answers) > s.currentIndex
}

func (s *Session) trailingStreakLocked() int {
	n := 0
	for i := len(s.answers) - 1; i >= 0 && s.answers[i].IsCorrect; i-- {
		n++
	}
	return n
}

func (s *Session) advanceLocked() []Event {
	if s.currentIndex+1 >= len(s.questions) {
		return s.completeLocked()
	}
	s.currentIndex++
	s.timeRemaining = s.budget
	return []Event{s.eventLocked(EventAdvanced)}
}

// completeLocked is the single path into StatusCompleted.
func (s *Session) completeLocked() []Event {
	now := s.cfg.Now()
	outcomes := make([]scoring.Outcome, len(s.answers))
	for i, a := range s.answers {
		outcomes[i] = scoring.Outcome{Correct: a.IsCorrect, TimedOut: a.TimedOut, Points: a.Points}
	}
	summary := scoring.Summarize(outcomes, len(s.questions), now.Sub(s.startedAt))

	s.status = StatusCompleted
	s.timeRemaining = 0
	s.summary = &summary
	s.completedAt = now
	s.pending = &Record{
		SessionID:   s.id,
		Flow:        s.cfg.Flow,
		Topic:       s.cfg.Topic,
		Difficulty:  s.cfg.Difficulty,
		Identity:    s.cfg.Identity,
		Summary:     summary,
		Questions:   question.CloneAll(s.questions),
		Answers:     s.answersCopyLocked(),
		WithDetails: s.cfg.WithDetails,
		StartedAt:   s.startedAt,
		CompletedAt: now,
	}
	close(s.completedC)
	sessionsCompleted.WithLabelValues(string(s.cfg.Flow)).Inc()

	ev := s.eventLocked(EventCompleted)
	ev.Summary = &summary
	return []Event{ev}
}

func (s *Session) takePendingLocked() *Record {
	rec := s.pending
	s.pending = nil
	return rec
}

func (s *Session) answersCopyLocked() []AnswerRecord {
	out := make([]AnswerRecord, len(s.answers))
	for i, a := range s.answers {
		out[i] = a.clone()
	}
	return out
}

func (s *Session) eventLocked(t EventType) Event {
	return Event{
		Type:          t,
		SessionID:     s.id,
		QuestionIndex: s.currentIndex,
		TimeRemaining: s.timeRemaining,
	}
}

func (s *Session) dispatch(events []Event, rec *Record) {
	if s.cfg.Observer != nil {
		for _, ev := range events {
			s.cfg.Observer(ev)
		}
	}
	if rec != nil {
		go s.persist(*rec)
	}
}

// persist hands the record to the persister. Failures are logged and never
// reach the player.
func (s *Session) persist(rec Record) {
	defer close(s.persistedC)
	defer func() {
		if r := recover(); r != nil {
			persistFailures.Inc()
			s.logger.Error().Interface("panic", r).Msg("session persister panicked")
		}
	}()

	if s.cfg.Persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
	defer cancel()
	if err := s.cfg.Persister.RecordSession(ctx, rec); err != nil {
		persistFailures.Inc()
		s.logger.Warn().Err(err).Msg("failed to persist session")
		return
	}
	s.logger.Debug().Int("score", rec.Summary.Score).Int("total", rec.Summary.Total).Msg("session persisted")
}
