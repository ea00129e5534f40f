package question

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Completer sends one prompt to the language model and returns its raw text.
// Failures should be *CompletionError values.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Service runs validate, cache, prompt, complete, parse and fallback for one request.
type Service struct {
	validator  *Validator
	cache      Cache
	completer  Completer
	strategies []ParseStrategy
	logger     zerolog.Logger
}

// ServiceOptions tweaks optional collaborators.
type ServiceOptions struct {
	Validator  *Validator
	Strategies []ParseStrategy
}

func NewService(cache Cache, completer Completer, opts ServiceOptions, logger zerolog.Logger) *Service {
	if cache == nil {
		cache = NewMemoryCache(DefaultCacheTTL)
	}
	if opts.Validator == nil {
		opts.Validator = defaultValidator
	}
	if len(opts.Strategies) == 0 {
		opts.Strategies = DefaultStrategies
	}
	return &Service{
		validator:  opts.Validator,
		cache:      cache,
		completer:  completer,
		strategies: opts.Strategies,
		logger:     logger.With().Str("component", "question_service").Logger(),
	}
}

// Generate returns questions for topic. Validation failures and completion
// failures are returned as errors; an unparseable completion yields the
// fallback set with Source "fallback", which is never cached.
func (s *Service) Generate(ctx context.Context, topic, difficulty string, count int) (Result, error) {
	req, err := s.validator.Validate(topic, difficulty, count)
	if err != nil {
		return Result{}, err
	}

	key := CacheKey(req)
	if cached, ok := s.cache.Get(key); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		generationsTotal.WithLabelValues(SourceCache).Inc()
		return Result{Questions: cached, Source: SourceCache}, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	raw, err := s.complete(ctx, BuildPrompt(req))
	if err != nil {
		return Result{}, err
	}

	questions, strategy := ParseWith(raw, s.strategies...)
	parsedQuestions.WithLabelValues(strategyLabel(strategy)).Observe(float64(len(questions)))
	if len(questions) == 0 {
		s.logger.Warn().
			Str("topic", req.Topic).
			Str("difficulty", req.Difficulty).
			Int("raw_len", len(raw)).
			Msg("completion produced no parseable questions, serving fallback")
		generationsTotal.WithLabelValues(SourceFallback).Inc()
		return Result{
			Questions: GenerateFallback(req.Topic, req.Difficulty, req.Count),
			Source:    SourceFallback,
		}, nil
	}

	if len(questions) > req.Count {
		questions = questions[:req.Count]
	}
	s.cache.Put(key, questions)
	generationsTotal.WithLabelValues(SourceLLM).Inc()

	s.logger.Debug().
		Str("topic", req.Topic).
		Str("strategy", strategy).
		Int("requested", req.Count).
		Int("returned", len(questions)).
		Msg("generated questions")
	return Result{Questions: CloneAll(questions), Source: SourceLLM}, nil
}

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	if s.completer == nil {
		err := NewCompletionError(FailureAuth, 0, errors.New("completion client not configured"))
		completionFailures.WithLabelValues(string(err.Kind)).Inc()
		return "", err
	}

	start := time.Now()
	raw, err := s.completer.Complete(ctx, prompt)
	completionLatency.Observe(time.Since(start).Seconds())
	if err == nil {
		return raw, nil
	}

	var cerr *CompletionError
	if !errors.As(err, &cerr) {
		cerr = NewCompletionError(FailureNetwork, 0, err)
		err = cerr
	}
	completionFailures.WithLabelValues(string(cerr.Kind)).Inc()
	s.logger.Warn().Err(err).Str("kind", string(cerr.Kind)).Msg("completion failed")
	return "", fmt.Errorf("generate questions: %w", err)
}

func strategyLabel(name string) string {
	if name == "" {
		return "none"
	}
	return name
}
