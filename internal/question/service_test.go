package question

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	reply   string
	err     error
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func (s *stubCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestService(completer Completer, cache Cache) *Service {
	return NewService(cache, completer, ServiceOptions{}, zerolog.New(io.Discard))
}

func TestGenerateServesRepeatFromCache(t *testing.T) {
	stub := &stubCompleter{reply: fencedJSON}
	svc := newTestService(stub, NewMemoryCache(0))

	first, err := svc.Generate(context.Background(), "Cell Biology", "easy", 2)
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, first.Source)
	require.Len(t, first.Questions, 2)

	second, err := svc.Generate(context.Background(), "cell   biology", "EASY", 2)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Questions, second.Questions)
	assert.Equal(t, 1, stub.Calls())
}

func TestGenerateRefetchesAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	stub := &stubCompleter{reply: fencedJSON}
	svc := newTestService(stub, NewMemoryCache(30*time.Minute, WithClock(clock.Now)))

	_, err := svc.Generate(context.Background(), "Cell Biology", "easy", 2)
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	res, err := svc.Generate(context.Background(), "Cell Biology", "easy", 2)
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, res.Source)
	assert.Equal(t, 2, stub.Calls())
}

func TestGenerateTruncatesToCount(t *testing.T) {
	stub := &stubCompleter{reply: fencedJSON}
	svc := newTestService(stub, nil)

	res, err := svc.Generate(context.Background(), "Cell Biology", "easy", 1)
	require.NoError(t, err)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, "What is the powerhouse of the cell?", res.Questions[0].Text)
}

func TestGenerateFallsBackOnUnparseableReply(t *testing.T) {
	stub := &stubCompleter{reply: "Sorry, I cannot produce that right now."}
	cache := NewMemoryCache(0)
	svc := newTestService(stub, cache)

	res, err := svc.Generate(context.Background(), "Cell Biology", "medium", 8)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Len(t, res.Questions, 5)
	assert.Equal(t, 0, cache.Len(), "fallback output is not cached")

	_, err = svc.Generate(context.Background(), "Cell Biology", "medium", 8)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.Calls())
}

func TestGenerateSurfacesCompletionErrors(t *testing.T) {
	cases := []struct {
		kind     FailureKind
		sentinel error
		category string
	}{
		{FailureAuth, ErrAuth, "auth"},
		{FailureRateLimited, ErrRateLimited, "rate_limited"},
		{FailureUnavailable, ErrUnavailable, "network"},
		{FailureNetwork, ErrNetwork, "network"},
		{FailureMalformed, ErrMalformed, "unknown"},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			stub := &stubCompleter{err: NewCompletionError(tc.kind, 0, errors.New("upstream"))}
			cache := NewMemoryCache(0)
			svc := newTestService(stub, cache)

			res, err := svc.Generate(context.Background(), "Thermodynamics", "hard", 5)
			require.Error(t, err)
			assert.Empty(t, res.Questions)
			assert.ErrorIs(t, err, tc.sentinel)

			var cerr *CompletionError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tc.category, cerr.Category())
			assert.Equal(t, 0, cache.Len())
		})
	}
}

func TestGenerateWrapsUntypedCompleterErrors(t *testing.T) {
	stub := &stubCompleter{err: context.DeadlineExceeded}
	svc := newTestService(stub, nil)

	_, err := svc.Generate(context.Background(), "Thermodynamics", "hard", 5)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateValidationHasNoSideEffects(t *testing.T) {
	stub := &stubCompleter{reply: fencedJSON}
	svc := newTestService(stub, nil)

	_, err := svc.Generate(context.Background(), "x", "easy", 5)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, stub.Calls())
}

func TestGenerateWithoutCompleter(t *testing.T) {
	svc := newTestService(nil, nil)
	_, err := svc.Generate(context.Background(), "Thermodynamics", "hard", 5)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestGeneratePromptMentionsTopic(t *testing.T) {
	stub := &stubCompleter{reply: fencedJSON}
	svc := newTestService(stub, nil)

	_, err := svc.Generate(context.Background(), "Renal Pathology", "hard", 3)
	require.NoError(t, err)
	require.Len(t, stub.prompts, 1)
	assert.Contains(t, stub.prompts[0], `"Renal Pathology"`)
}

func TestPrewarmWorkerFillsCache(t *testing.T) {
	stub := &stubCompleter{reply: fencedJSON}
	cache := NewMemoryCache(0)
	svc := newTestService(stub, cache)

	queue := make(chan GenerationRequest, 3)
	for _, req := range WarmRequests([]string{" Cell Biology ", ""}, 2) {
		queue <- req
	}
	close(queue)

	w := NewPrewarmWorker(svc, queue, zerolog.New(io.Discard), time.Second)
	w.Run()
	w.Stop()
	w.Stop()

	assert.Equal(t, 3, cache.Len())
	res, err := svc.Generate(context.Background(), "cell biology", "hard", 2)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, 3, stub.Calls())
}
