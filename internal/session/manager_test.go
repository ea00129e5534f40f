package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRunnerDrivesSessionToCompletion(t *testing.T) {
	persister := &recordingPersister{}
	s, err := New("", threeQuestions(), Config{PerQuestionSeconds: 2, Persister: persister})
	require.NoError(t, err)

	r := NewRunner(s, 5*time.Millisecond)
	r.Start(context.Background())
	r.Start(context.Background())

	waitClosed(t, s.Completed())
	waitClosed(t, r.Done())
	waitClosed(t, s.Persisted())

	summary, ok := s.Summary()
	require.True(t, ok)
	assert.Equal(t, 3, summary.TimedOut)
	assert.Len(t, persister.Records(), 1)
}

func TestRunnerStopLeavesSessionInProgress(t *testing.T) {
	s, err := New("", threeQuestions(), Config{PerQuestionSeconds: 1000})
	require.NoError(t, err)

	r := NewRunner(s, time.Millisecond)
	r.Start(context.Background())
	r.Stop()
	r.Stop()
	waitClosed(t, r.Done())

	assert.Equal(t, StatusInProgress, s.Snapshot().Status)
}

func TestRunnerStopsOnContextCancel(t *testing.T) {
	s, err := New("", threeQuestions(), Config{PerQuestionSeconds: 1000})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(s, time.Millisecond)
	r.Start(ctx)
	cancel()
	waitClosed(t, r.Done())
}

func newTestManager(p Persister, clock *fakeClock) *Manager {
	return NewManager(ManagerOptions{
		Policies:     NewPolicies(1, 1, 2),
		Persister:    p,
		TickInterval: 20 * time.Millisecond,
		Retention:    time.Minute,
		Now:          clock.Now,
	}, zerolog.New(io.Discard))
}

func TestManagerLifecycle(t *testing.T) {
	clock := newFakeClock()
	persister := &recordingPersister{}
	m := newTestManager(persister, clock)

	s, err := m.Start(context.Background(), StartRequest{
		Questions:  threeQuestions(),
		Flow:       FlowAuthenticated,
		Identity:   strPtr("user-7"),
		Topic:      "greek letters",
		Difficulty: "easy",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	events, unsubscribe, err := m.Subscribe(s.ID())
	require.NoError(t, err)
	defer unsubscribe()

	res, err := m.Answer(s.ID(), strPtr("user-7"), 1)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	waitClosed(t, s.Completed())
	waitClosed(t, s.Persisted())

	sawCompleted := false
	for !sawCompleted {
		select {
		case ev := <-events:
			if ev.Type == EventCompleted {
				sawCompleted = true
				require.NotNil(t, ev.Summary)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no completed event")
		}
	}

	records := persister.Records()
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Identity)
	assert.Equal(t, "user-7", *records[0].Identity)
	assert.True(t, records[0].WithDetails)
	assert.Equal(t, FlowAuthenticated, records[0].Flow)

	assert.Equal(t, 0, m.Sweep(), "still inside retention")
	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	_, ok := <-events
	assert.False(t, ok, "subscription closed on eviction")
}

func TestManagerGuestFlowIsAnonymous(t *testing.T) {
	persister := &recordingPersister{}
	m := newTestManager(persister, newFakeClock())

	s, err := m.Start(context.Background(), StartRequest{
		Questions: threeQuestions()[:1],
		Flow:      FlowGuest,
		Identity:  strPtr("user-7"),
	})
	require.NoError(t, err)
	waitClosed(t, s.Persisted())

	records := persister.Records()
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Identity)
	assert.False(t, records[0].WithDetails)
}

func TestManagerRequiresIdentityForAuthenticatedFlows(t *testing.T) {
	m := newTestManager(nil, newFakeClock())

	for _, flow := range []Flow{FlowAuthenticated, FlowScheduled} {
		_, err := m.Start(context.Background(), StartRequest{Questions: threeQuestions(), Flow: flow})
		assert.ErrorIs(t, err, ErrIdentityRequired)
	}
	_, err := m.Start(context.Background(), StartRequest{Questions: threeQuestions(), Flow: "weekly"})
	assert.ErrorIs(t, err, ErrUnknownFlow)
	_, err = m.Start(context.Background(), StartRequest{Flow: FlowGuest})
	assert.ErrorIs(t, err, ErrNoQuestions)
	assert.Equal(t, 0, m.Len())
}

func TestManagerStopTearsDown(t *testing.T) {
	persister := &recordingPersister{}
	m := NewManager(ManagerOptions{
		Policies:     NewPolicies(1000, 1000, 1000),
		Persister:    persister,
		TickInterval: time.Millisecond,
	}, zerolog.New(io.Discard))

	s, err := m.Start(context.Background(), StartRequest{Questions: threeQuestions(), Flow: FlowGuest})
	require.NoError(t, err)
	events, _, err := m.Subscribe(s.ID())
	require.NoError(t, err)

	require.NoError(t, m.Stop(s.ID(), nil))
	assert.ErrorIs(t, m.Stop(s.ID(), nil), ErrNotFound)

	for range events {
	}
	assert.Equal(t, StatusInProgress, s.Snapshot().Status)
	assert.Empty(t, persister.Records())

	_, _, err = m.Next(s.ID(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Answer(s.ID(), nil, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerNext(t *testing.T) {
	m := NewManager(ManagerOptions{Policies: NewPolicies(1000, 1000, 1000)}, zerolog.New(io.Discard))
	defer m.Close()

	s, err := m.Start(context.Background(), StartRequest{Questions: threeQuestions(), Flow: FlowGuest})
	require.NoError(t, err)

	_, rej, err := m.Next(s.ID(), nil)
	require.NoError(t, err)
	assert.Equal(t, RejectNotAnswered, rej)

	_, err = m.Answer(s.ID(), nil, 0)
	require.NoError(t, err)
	snap, rej, err := m.Next(s.ID(), nil)
	require.NoError(t, err)
	assert.Equal(t, RejectNone, rej)
	assert.Equal(t, 1, snap.CurrentIndex)
}

func TestManagerRestrictsIdentifiedSessionsToOwner(t *testing.T) {
	m := NewManager(ManagerOptions{Policies: NewPolicies(1000, 1000, 1000)}, zerolog.New(io.Discard))
	defer m.Close()

	owned, err := m.Start(context.Background(), StartRequest{
		Questions: threeQuestions(),
		Flow:      FlowAuthenticated,
		Identity:  strPtr("user-5"),
	})
	require.NoError(t, err)

	for _, caller := range []*string{nil, strPtr("user-6")} {
		_, err = m.GetFor(owned.ID(), caller)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = m.Answer(owned.ID(), caller, 0)
		assert.ErrorIs(t, err, ErrNotFound)
		_, _, err = m.Next(owned.ID(), caller)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, m.Stop(owned.ID(), caller), ErrNotFound)
	}
	assert.Empty(t, owned.Snapshot().Answers)
	assert.Equal(t, 1, m.Len())

	res, err := m.Answer(owned.ID(), strPtr("user-5"), 0)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	guest, err := m.Start(context.Background(), StartRequest{Questions: threeQuestions(), Flow: FlowGuest, Identity: strPtr("user-5")})
	require.NoError(t, err)
	_, err = m.GetFor(guest.ID(), strPtr("user-6"))
	assert.NoError(t, err, "anonymous sessions are open to the id holder")

	require.NoError(t, m.Stop(owned.ID(), strPtr("user-5")))
}

func TestParseFlow(t *testing.T) {
	f, err := ParseFlow("")
	require.NoError(t, err)
	assert.Equal(t, FlowGuest, f)

	f, err = ParseFlow(" Scheduled ")
	require.NoError(t, err)
	assert.Equal(t, FlowScheduled, f)

	_, err = ParseFlow("tournament")
	assert.ErrorIs(t, err, ErrUnknownFlow)
}

func TestMultiPersisterJoinsErrors(t *testing.T) {
	ok := &recordingPersister{}
	failing := PersisterFunc(func(context.Context, Record) error { return errors.New("redis down") })
	multi := MultiPersister{failing, nil, ok}

	err := multi.RecordSession(context.Background(), Record{SessionID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	assert.Len(t, ok.Records(), 1, "later persisters still run")

	assert.NoError(t, MultiPersister{ok}.RecordSession(context.Background(), Record{}))
}
