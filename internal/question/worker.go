package question

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PrewarmWorker generates queued requests ahead of time so popular topics are
// served from cache.
type PrewarmWorker struct {
	service   *Service
	queue     <-chan GenerationRequest
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
	stopOnce  sync.Once
}

func NewPrewarmWorker(service *Service, queue <-chan GenerationRequest, logger zerolog.Logger, timeout time.Duration) *PrewarmWorker {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &PrewarmWorker{
		service:   service,
		queue:     queue,
		logger:    logger.With().Str("component", "question_prewarm").Logger(),
		timeout:   timeout,
		shutdownC: make(chan struct{}),
	}
}

// Run consumes the queue until Stop is called or the queue is closed.
func (w *PrewarmWorker) Run() {
	for {
		select {
		case <-w.shutdownC:
			w.logger.Info().Msg("prewarm worker stopping")
			return
		case req, ok := <-w.queue:
			if !ok {
				return
			}
			w.handle(req)
		}
	}
}

func (w *PrewarmWorker) handle(req GenerationRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	res, err := w.service.Generate(ctx, req.Topic, req.Difficulty, req.Count)
	if err != nil {
		w.logger.Warn().Err(err).Str("topic", req.Topic).Msg("prewarm failed")
		return
	}
	w.logger.Info().
		Str("topic", req.Topic).
		Str("difficulty", req.Difficulty).
		Str("source", res.Source).
		Int("questions", len(res.Questions)).
		Msg("prewarmed topic")
}

func (w *PrewarmWorker) Stop() {
	w.stopOnce.Do(func() { close(w.shutdownC) })
}

// WarmRequests expands topics into one request per difficulty.
func WarmRequests(topics []string, count int) []GenerationRequest {
	var out []GenerationRequest
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		for _, diff := range []string{DifficultyEasy, DifficultyMedium, DifficultyHard} {
			out = append(out, GenerationRequest{Topic: topic, Difficulty: diff, Count: count})
		}
	}
	return out
}
