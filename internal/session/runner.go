package session

import (
	"context"
	"sync"
	"time"
)

// DefaultTickInterval is one budget unit.
const DefaultTickInterval = time.Second

// Runner drives a session's Tick from a ticker until the session completes,
// Stop is called or the context ends.
type Runner struct {
	session  *Session
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stopC     chan struct{}
	doneC     chan struct{}
}

func NewRunner(s *Session, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Runner{
		session:  s,
		interval: interval,
		stopC:    make(chan struct{}),
		doneC:    make(chan struct{}),
	}
}

// Start launches the tick loop. Later calls are ignored.
func (r *Runner) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go r.run(ctx)
	})
}

// Stop cancels the timer. The session keeps its current state.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopC) })
}

// Done is closed when the tick loop has exited.
func (r *Runner) Done() <-chan struct{} { return r.doneC }

func (r *Runner) run(ctx context.Context) {
	defer close(r.doneC)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopC:
			return
		case <-r.session.Completed():
			return
		case <-ticker.C:
			r.session.Tick()
		}
	}
}
